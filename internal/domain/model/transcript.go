package model

import "time"

// TranscriptSegment is one timestamped slice of the transcript.
type TranscriptSegment struct {
	StartMs      int64  `json:"start_ms"`
	EndMs        int64  `json:"end_ms"`
	SpeakerLabel string `json:"speaker_label,omitempty"`
	Text         string `json:"text"`
}

// Transcript is the speech-to-text output for one episode.
// Immutable once written.
type Transcript struct {
	ID         string
	EpisodeRef string
	Text       string
	Segments   []TranscriptSegment
	Language   string
	CreatedAt  time.Time
}
