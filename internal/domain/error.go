package domain

import (
	"context"
	"errors"
)

var (
	// Common domain errors
	ErrNotFound               = errors.New("entity not found")
	ErrAlreadyExists          = errors.New("entity already exists")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrDuplicateDelivery      = errors.New("duplicate idempotency key")
	ErrUnknownPlatform        = errors.New("unknown platform")
	ErrLockNotAcquired        = errors.New("lock not acquired")
	ErrInvalidExecContext     = errors.New("invalid executor context")
	ErrReadDatabaseRow        = errors.New("failed to read database row")
)

// ProcessingError classifies a worker-side failure of a transcription or
// generation call. Transient failures are nacked with backoff; permanent
// failures mark the job failed terminally.
type ProcessingError struct {
	Transient bool
	Err       error
}

func (e *ProcessingError) Error() string {
	if e.Transient {
		return "transient processing error: " + e.Err.Error()
	}
	return "permanent processing error: " + e.Err.Error()
}

func (e *ProcessingError) Unwrap() error { return e.Err }

func NewTransientProcessing(err error) *ProcessingError {
	return &ProcessingError{Transient: true, Err: err}
}

func NewPermanentProcessing(err error) *ProcessingError {
	return &ProcessingError{Transient: false, Err: err}
}

// IsTransientProcessing reports whether err should be retried. A context
// deadline exceeded on a bounded provider call counts as transient.
func IsTransientProcessing(err error) bool {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Transient
	}
	return errors.Is(err, context.DeadlineExceeded)
}
