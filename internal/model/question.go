package model

import (
	"encoding/json"
)

// DifficultyLevel enumerates question difficulty.
type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// Question is a single bank question, including its correct answer.
type Question struct {
	ID              int64           `json:"id"`
	CategoryID      int64           `json:"category_id"`
	QuestionText    string          `json:"question_text"`
	QuestionImage   *string         `json:"question_image,omitempty"`
	QuestionAudio   *string         `json:"question_audio,omitempty"`
	AnswerOptions   json.RawMessage `json:"answer_options"`
	CorrectAnswer   string          `json:"-"`
	DifficultyLevel DifficultyLevel `json:"difficulty_level"`
	IsActive        bool            `json:"is_active"`
}

// IsCorrectAnswer compares a selected option with the stored correct one.
// Comparison is exact; options are opaque strings.
func (q *Question) IsCorrectAnswer(selected string) bool {
	return q.CorrectAnswer == selected
}

// QuestionView is the participant-facing projection of a question.
// It never carries the correct answer.
type QuestionView struct {
	ID              int64           `json:"id"`
	QuestionText    string          `json:"question_text"`
	QuestionImage   *string         `json:"question_image,omitempty"`
	QuestionAudio   *string         `json:"question_audio,omitempty"`
	AnswerOptions   json.RawMessage `json:"answer_options"`
	DifficultyLevel DifficultyLevel `json:"difficulty_level"`
}

// View strips the answer key.
func (q *Question) View() QuestionView {
	return QuestionView{
		ID:              q.ID,
		QuestionText:    q.QuestionText,
		QuestionImage:   q.QuestionImage,
		QuestionAudio:   q.QuestionAudio,
		AnswerOptions:   q.AnswerOptions,
		DifficultyLevel: q.DifficultyLevel,
	}
}
