package engine

import (
	"time"
)

// EventType enumerates attempt lifecycle events.
type EventType string

const (
	EventAttemptStarted   EventType = "attempt_started"
	EventAnswerSaved      EventType = "answer_saved"
	EventAttemptFinalized EventType = "attempt_finalized"
)

// FinalizeReason records what closed an attempt.
type FinalizeReason string

const (
	ReasonSubmitted FinalizeReason = "submitted"
	ReasonExpired   FinalizeReason = "expired"
)

// Event is published to proctors watching a test. It never carries
// correctness of individual answers.
type Event struct {
	Type       EventType      `json:"type"`
	UserID     int64          `json:"user_id"`
	TestID     int64          `json:"test_id"`
	QuestionID int64          `json:"question_id,omitempty"`
	Score      *int           `json:"score,omitempty"`
	Percentage *float64       `json:"percentage,omitempty"`
	Reason     FinalizeReason `json:"reason,omitempty"`
	Deadline   *time.Time     `json:"deadline,omitempty"`
	At         time.Time      `json:"at"`
}
