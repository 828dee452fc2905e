package model

import (
	"time"

	"github.com/google/uuid"

	"podcast-content-pipeline/internal/domain"
)

type JobKind string

const (
	JobKindTranscribe JobKind = "transcribe"
	JobKindGenerate   JobKind = "generate"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// ProcessingJob is one unit of work for the worker pool: transcribe an
// episode's audio, or generate marketing drafts from its transcript.
// Created by the ingest collaborator, mutated only through the JobQueue.
type ProcessingJob struct {
	ID             string
	EpisodeRef     string // opaque external episode/asset reference
	Kind           JobKind
	Status         JobStatus
	Priority       int // higher dequeues first; FIFO within a tier
	Attempts       int
	NotBefore      time.Time // backoff visibility gate
	LeaseExpiresAt *time.Time
	LastError      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewProcessingJob(episodeRef string, kind JobKind, priority int) (*ProcessingJob, error) {
	if episodeRef == "" {
		return nil, domain.ErrInvalidArgument
	}
	if kind != JobKindTranscribe && kind != JobKindGenerate {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &ProcessingJob{
		ID:         uuid.NewString(),
		EpisodeRef: episodeRef,
		Kind:       kind,
		Status:     JobStatusQueued,
		Priority:   priority,
		NotBefore:  now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Terminal reports whether the job can no longer change state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}
