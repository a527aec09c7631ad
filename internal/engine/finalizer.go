package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stemsi/exstem-session/internal/model"
)

// AttemptFinalizer turns a live attempt into its Result exactly once.
type AttemptFinalizer struct {
	sessions *SessionStore
	results  ResultStore
	log      zerolog.Logger
}

// NewAttemptFinalizer creates an AttemptFinalizer.
func NewAttemptFinalizer(sessions *SessionStore, results ResultStore, log zerolog.Logger) *AttemptFinalizer {
	return &AttemptFinalizer{
		sessions: sessions,
		results:  results,
		log:      log.With().Str("component", "attempt_finalizer").Logger(),
	}
}

// Finalize scores the attempt and closes it. The second return value is
// true only for the call that wrote the Result; every other caller gets the
// stored Result back unchanged.
// The caller must hold the attempt lock for the pair.
func (f *AttemptFinalizer) Finalize(ctx context.Context, test *model.TestDefinition, userID int64, now time.Time) (*model.Result, bool, error) {
	existing, err := f.results.ExistingResult(ctx, userID, test.ID)
	if err == nil {
		// Result written but destroy never happened (crash or lost race).
		// The Result stands either way; a failed cleanup is retried by the
		// next call or by the sweeper.
		if err := f.sessions.Destroy(ctx, userID, test.ID); err != nil {
			f.log.Warn().Err(err).
				Int64("user_id", userID).
				Int64("test_id", test.ID).
				Msg("Drop leftover attempt failed")
		}
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("check existing result: %w", err)
	}

	a, err := f.sessions.Get(ctx, userID, test.ID)
	if err != nil {
		return nil, false, err
	}

	answers, err := f.results.AnswersFor(ctx, userID, test.ID)
	if err != nil {
		return nil, false, fmt.Errorf("load answers: %w", err)
	}

	res := Score(a, test, answers, now)

	stored, created, err := f.results.InsertResult(ctx, res)
	if err != nil {
		return nil, false, fmt.Errorf("insert result: %w", err)
	}

	// Only after the result is durable may the attempt go away.
	if err := f.sessions.Destroy(ctx, userID, test.ID); err != nil {
		return nil, false, err
	}

	return stored, created, nil
}

// Score computes a Result from the frozen set and recorded answers.
// Unanswered questions count as wrong but stay in the denominator. Answers
// left over from an earlier attempt that expired without a Result are
// ignored.
func Score(a *model.Attempt, test *model.TestDefinition, answers []model.Answer, now time.Time) *model.Result {
	score := 0
	for i := range answers {
		ans := &answers[i]
		if ans.IsCorrect && a.Contains(ans.QuestionID) && a.Owns(ans) {
			score++
		}
	}

	total := len(a.QuestionIDs)
	percentage := 0.0
	if total > 0 {
		percentage = decimal.NewFromInt(int64(score)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(total))).
			Round(2).
			InexactFloat64()
	}

	taken := now.Sub(a.StartedAt)
	if taken < 0 {
		taken = 0
	}
	if limit := test.Duration(); taken > limit {
		taken = limit
	}

	return &model.Result{
		UserID:           a.UserID,
		TestID:           a.TestID,
		Score:            score,
		TotalQuestions:   total,
		Percentage:       percentage,
		StartedAt:        a.StartedAt,
		CompletedAt:      now,
		TimeTakenSeconds: int(taken / time.Second),
	}
}
