package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stemsi/exstem-session/internal/model"
)

// AnswerRecorder writes a user's selection and grades it on the spot.
type AnswerRecorder struct {
	bank    QuestionBank
	results ResultStore
}

// NewAnswerRecorder creates an AnswerRecorder.
func NewAnswerRecorder(bank QuestionBank, results ResultStore) *AnswerRecorder {
	return &AnswerRecorder{bank: bank, results: results}
}

// Record upserts the answer for questionID and returns its correctness.
// Replaying the same selection leaves the stored state unchanged.
func (r *AnswerRecorder) Record(ctx context.Context, a *model.Attempt, test *model.TestDefinition, questionID int64, selected string, now time.Time) (bool, error) {
	if !a.Contains(questionID) {
		return false, ErrQuestionNotInAttempt
	}
	if Expired(a, test, now) {
		return false, ErrDeadlineExceeded
	}

	q, err := r.bank.QuestionByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, ErrQuestionNotInAttempt
		}
		return false, fmt.Errorf("load question: %w", err)
	}

	ans := &model.Answer{
		UserID:         a.UserID,
		TestID:         a.TestID,
		QuestionID:     questionID,
		SelectedAnswer: selected,
		IsCorrect:      q.IsCorrectAnswer(selected),
		UpdatedAt:      now,
	}
	if err := r.results.UpsertAnswer(ctx, ans); err != nil {
		if errors.Is(err, ErrAlreadyCompleted) {
			return false, err
		}
		return false, fmt.Errorf("upsert answer: %w", err)
	}

	return ans.IsCorrect, nil
}
