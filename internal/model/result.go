package model

import (
	"time"
)

// Result is the permanent outcome of a completed attempt. At most one
// exists per (user, test).
type Result struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	TestID           int64     `json:"test_id"`
	Score            int       `json:"score"`
	TotalQuestions   int       `json:"total_questions"`
	Percentage       float64   `json:"percentage"`
	StartedAt        time.Time `json:"started_at"`
	CompletedAt      time.Time `json:"completed_at"`
	TimeTakenSeconds int       `json:"time_taken"`
}

// ResultDetail joins a result with the test it belongs to.
type ResultDetail struct {
	Result
	TestName     string `json:"test_name"`
	CategoryName string `json:"category_name"`
}
