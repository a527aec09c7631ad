package model

import (
	"time"
)

// TestDefinition is a timed test as configured by the administration
// subsystem. The engine only reads it.
type TestDefinition struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"test_name"`
	Description        *string   `json:"description,omitempty"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
	DurationMinutes    int       `json:"duration"`
	CategoryID         int64     `json:"category_id"`
	CategoryName       string    `json:"category_name,omitempty"`
	QuestionCount      int       `json:"question_count"`
	RandomizeQuestions bool      `json:"randomize_questions"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Duration returns the configured attempt length.
func (t *TestDefinition) Duration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}

// IsAvailable reports whether the test can be started at now.
// The availability window is half-open: [StartTime, EndTime).
func (t *TestDefinition) IsAvailable(now time.Time) bool {
	if !t.IsActive {
		return false
	}
	return !now.Before(t.StartTime) && now.Before(t.EndTime)
}
