package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// StatusEvent is one append-only record of a post status change, exposed to
// dashboard/analytics collaborators through the event sink.
type StatusEvent struct {
	ID         string
	PostID     string
	FromStatus PostStatus
	ToStatus   PostStatus
	OccurredAt time.Time
	ErrorMsg   string
}

func NewStatusEvent(postID string, from, to PostStatus, errMsg string) *StatusEvent {
	return &StatusEvent{
		ID:         ulid.Make().String(),
		PostID:     postID,
		FromStatus: from,
		ToStatus:   to,
		OccurredAt: time.Now(),
		ErrorMsg:   errMsg,
	}
}
