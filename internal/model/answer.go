package model

import (
	"time"
)

// Answer is the durable record of one selection. IsCorrect is derived when
// the answer is written and never recomputed.
type Answer struct {
	UserID         int64     `json:"user_id"`
	TestID         int64     `json:"test_id"`
	QuestionID     int64     `json:"question_id"`
	SelectedAnswer string    `json:"selected_answer"`
	IsCorrect      bool      `json:"-"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SaveAnswerRequest is the payload for saving a single answer.
type SaveAnswerRequest struct {
	QuestionID     int64  `json:"question_id" binding:"required,min=1"`
	SelectedAnswer string `json:"selected_answer" binding:"required,notblank,max=255"`
}
