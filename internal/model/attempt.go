package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Attempt is one user's in-progress pass through a test.
// QuestionIDs is frozen at creation and is the only source of truth for
// "which question is question N" while the attempt lives.
type Attempt struct {
	ID          uuid.UUID `json:"id"`
	UserID      int64     `json:"user_id"`
	TestID      int64     `json:"test_id"`
	QuestionIDs []int64   `json:"question_ids"`
	StartedAt   time.Time `json:"started_at"`
}

// Contains reports whether questionID belongs to the frozen set.
func (a *Attempt) Contains(questionID int64) bool {
	return slices.Contains(a.QuestionIDs, questionID)
}

// Owns reports whether ans was written during this attempt rather than left
// behind by an earlier one. StartedAt is truncated to the microsecond
// precision answers are stored with.
func (a *Attempt) Owns(ans *Answer) bool {
	return !ans.UpdatedAt.Before(a.StartedAt.Truncate(time.Microsecond))
}

// QuestionAt returns the question ID at the 1-based position.
func (a *Attempt) QuestionAt(position int) (int64, bool) {
	if position < 1 || position > len(a.QuestionIDs) {
		return 0, false
	}
	return a.QuestionIDs[position-1], true
}

// AttemptRef identifies an attempt by its (user, test) key.
type AttemptRef struct {
	UserID int64 `json:"user_id"`
	TestID int64 `json:"test_id"`
}
