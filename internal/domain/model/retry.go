package model

import "time"

// RetryPolicy is the explicit, testable backoff function shared by the
// worker pool and the distribution dispatcher.
type RetryPolicy struct {
	Base        time.Duration
	Cap         time.Duration
	MaxAttempts int
}

// NextAttempt answers whether another attempt may be made after `attempts`
// completed attempts, and how long to wait before it.
// Delay grows as Base * 2^attempts, capped at Cap.
func (p RetryPolicy) NextAttempt(attempts int) (bool, time.Duration) {
	if attempts >= p.MaxAttempts {
		return false, 0
	}
	delay := p.Base
	for i := 0; i < attempts; i++ {
		delay *= 2
		if p.Cap > 0 && delay >= p.Cap {
			return true, p.Cap
		}
	}
	if p.Cap > 0 && delay > p.Cap {
		delay = p.Cap
	}
	return true, delay
}
