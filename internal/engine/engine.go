package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/model"
)

// Engine is the only entry point the request layer uses for attempts.
type Engine struct {
	tests     TestCatalog
	bank      QuestionBank
	results   ResultStore
	resolver  *QuestionSetResolver
	sessions  *SessionStore
	recorder  *AnswerRecorder
	finalizer *AttemptFinalizer
	events    EventPublisher
	log       zerolog.Logger
}

// NewEngine wires the engine components. events may be nil.
func NewEngine(
	tests TestCatalog,
	bank QuestionBank,
	results ResultStore,
	backend AttemptBackend,
	locks Locker,
	events EventPublisher,
	log zerolog.Logger,
) *Engine {
	sessions := NewSessionStore(backend, results, locks)
	return &Engine{
		tests:     tests,
		bank:      bank,
		results:   results,
		resolver:  NewQuestionSetResolver(bank),
		sessions:  sessions,
		recorder:  NewAnswerRecorder(bank, results),
		finalizer: NewAttemptFinalizer(sessions, results, log),
		events:    events,
		log:       log.With().Str("component", "session_engine").Logger(),
	}
}

// QuestionState is what a participant sees for one position. When the
// deadline has passed, Completed is set and Result holds the final outcome.
type QuestionState struct {
	Completed        bool                `json:"completed"`
	Result           *model.Result       `json:"result,omitempty"`
	Question         *model.QuestionView `json:"question,omitempty"`
	Position         int                 `json:"question_number,omitempty"`
	TotalQuestions   int                 `json:"total_questions,omitempty"`
	RemainingSeconds int                 `json:"remaining_seconds"`
	PriorAnswer      *string             `json:"existing_answer,omitempty"`
}

// SaveOutcome is returned by SaveAnswer.
type SaveOutcome struct {
	QuestionID       int64 `json:"question_id"`
	IsCorrect        bool  `json:"is_correct"`
	RemainingSeconds int   `json:"remaining_seconds"`
}

// AttemptStatus is the per-test status shown in a participant's lobby.
type AttemptStatus string

const (
	StatusUnavailable AttemptStatus = "UNAVAILABLE"
	StatusAvailable   AttemptStatus = "AVAILABLE"
	StatusInProgress  AttemptStatus = "IN_PROGRESS"
	StatusCompleted   AttemptStatus = "COMPLETED"
)

// StatusView pairs a status with the live attempt's remaining time or the
// stored result.
type StatusView struct {
	Status           AttemptStatus `json:"status"`
	RemainingSeconds *int          `json:"remaining_seconds,omitempty"`
	TotalQuestions   *int          `json:"total_questions,omitempty"`
	Result           *model.Result `json:"result,omitempty"`
}

// StartAttempt freezes a question set for the user and starts the clock.
func (e *Engine) StartAttempt(ctx context.Context, userID, testID int64, now time.Time) (*model.Attempt, error) {
	test, err := e.loadTest(ctx, testID)
	if err != nil {
		return nil, err
	}

	if err := e.sessions.ensureNoResult(ctx, userID, testID); err != nil {
		return nil, err
	}
	if !test.IsAvailable(now) {
		return nil, ErrTestNotAvailable
	}

	unlock, err := e.sessions.Lock(ctx, userID, testID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := e.sessions.Get(ctx, userID, testID); err == nil {
		return nil, ErrAttemptAlreadyActive
	} else if !errors.Is(err, ErrNoActiveAttempt) {
		return nil, fmt.Errorf("check active attempt: %w", err)
	}

	ids, err := e.resolver.Resolve(ctx, test)
	if err != nil {
		return nil, err
	}

	a, err := e.sessions.Create(ctx, test, userID, ids, now)
	if err != nil {
		return nil, err
	}

	deadline := Deadline(a, test)
	e.log.Info().
		Int64("user_id", userID).
		Int64("test_id", testID).
		Str("attempt_id", a.ID.String()).
		Int("questions", len(a.QuestionIDs)).
		Time("deadline", deadline).
		Msg("Attempt started")

	e.publish(ctx, Event{
		Type:     EventAttemptStarted,
		UserID:   userID,
		TestID:   testID,
		Deadline: &deadline,
		At:       now,
	})

	return a, nil
}

// ViewQuestion returns the question at the 1-based position. If the
// deadline has passed, the attempt is finalized instead and the returned
// state carries the Result.
func (e *Engine) ViewQuestion(ctx context.Context, userID, testID int64, position int, now time.Time) (*QuestionState, error) {
	test, err := e.loadTest(ctx, testID)
	if err != nil {
		return nil, err
	}

	a, err := e.activeAttempt(ctx, userID, testID)
	if err != nil {
		return nil, err
	}

	if Expired(a, test, now) {
		res, err := e.finalize(ctx, test, userID, now, ReasonExpired)
		if err != nil {
			return nil, err
		}
		return &QuestionState{Completed: true, Result: res}, nil
	}

	qid, ok := a.QuestionAt(position)
	if !ok {
		return nil, ErrPositionOutOfRange
	}

	q, err := e.bank.QuestionByID(ctx, qid)
	if err != nil {
		return nil, fmt.Errorf("load question %d: %w", qid, err)
	}
	view := q.View()

	state := &QuestionState{
		Question:         &view,
		Position:         position,
		TotalQuestions:   len(a.QuestionIDs),
		RemainingSeconds: RemainingSeconds(a, test, now),
	}

	prior, err := e.results.AnswerFor(ctx, userID, testID, qid)
	switch {
	case err == nil:
		if a.Owns(prior) {
			state.PriorAnswer = &prior.SelectedAnswer
		}
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("load prior answer: %w", err)
	}

	return state, nil
}

// SaveAnswer records a selection. ErrDeadlineExceeded means the caller
// should submit the attempt.
func (e *Engine) SaveAnswer(ctx context.Context, userID, testID, questionID int64, selected string, now time.Time) (*SaveOutcome, error) {
	test, err := e.loadTest(ctx, testID)
	if err != nil {
		return nil, err
	}

	// Shared with other saves, exclusive against finalize: a save either
	// lands before the finalizer reads the answers or finds the attempt gone.
	unlock, err := e.sessions.RLock(ctx, userID, testID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	a, err := e.activeAttempt(ctx, userID, testID)
	if err != nil {
		return nil, err
	}

	correct, err := e.recorder.Record(ctx, a, test, questionID, selected, now)
	if err != nil {
		return nil, err
	}

	e.publish(ctx, Event{
		Type:       EventAnswerSaved,
		UserID:     userID,
		TestID:     testID,
		QuestionID: questionID,
		At:         now,
	})

	return &SaveOutcome{
		QuestionID:       questionID,
		IsCorrect:        correct,
		RemainingSeconds: RemainingSeconds(a, test, now),
	}, nil
}

// SubmitAttempt finalizes the attempt. Repeated or concurrent submits all
// return the same Result.
func (e *Engine) SubmitAttempt(ctx context.Context, userID, testID int64, now time.Time) (*model.Result, error) {
	test, err := e.loadTest(ctx, testID)
	if err != nil {
		return nil, err
	}

	reason := ReasonSubmitted
	if a, err := e.sessions.Get(ctx, userID, testID); err == nil && Expired(a, test, now) {
		reason = ReasonExpired
	}

	return e.finalize(ctx, test, userID, now, reason)
}

// ExpireAttempt finalizes the attempt only if its deadline has passed.
// It reports false, with no error, when the attempt still has time left.
func (e *Engine) ExpireAttempt(ctx context.Context, userID, testID int64, now time.Time) (*model.Result, bool, error) {
	test, err := e.loadTest(ctx, testID)
	if err != nil {
		return nil, false, err
	}

	a, err := e.sessions.Get(ctx, userID, testID)
	if err != nil {
		return nil, false, err
	}
	if !Expired(a, test, now) {
		return nil, false, nil
	}

	res, err := e.finalize(ctx, test, userID, now, ReasonExpired)
	if err != nil {
		return nil, false, err
	}
	return res, true, nil
}

// GetResult returns the stored Result or ErrNotFound.
func (e *Engine) GetResult(ctx context.Context, userID, testID int64) (*model.Result, error) {
	return e.results.ExistingResult(ctx, userID, testID)
}

// AttemptStatus reports the lobby status of a test for one user.
func (e *Engine) AttemptStatus(ctx context.Context, userID int64, test *model.TestDefinition, now time.Time) (*StatusView, error) {
	res, err := e.results.ExistingResult(ctx, userID, test.ID)
	if err == nil {
		return &StatusView{Status: StatusCompleted, Result: res}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check existing result: %w", err)
	}

	a, err := e.sessions.Get(ctx, userID, test.ID)
	if err == nil {
		secs := RemainingSeconds(a, test, now)
		total := len(a.QuestionIDs)
		return &StatusView{Status: StatusInProgress, RemainingSeconds: &secs, TotalQuestions: &total}, nil
	}
	if !errors.Is(err, ErrNoActiveAttempt) {
		return nil, fmt.Errorf("check active attempt: %w", err)
	}

	if test.IsAvailable(now) {
		return &StatusView{Status: StatusAvailable}, nil
	}
	return &StatusView{Status: StatusUnavailable}, nil
}

func (e *Engine) finalize(ctx context.Context, test *model.TestDefinition, userID int64, now time.Time, reason FinalizeReason) (*model.Result, error) {
	unlock, err := e.sessions.Lock(ctx, userID, test.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	res, created, err := e.finalizer.Finalize(ctx, test, userID, now)
	if err != nil {
		if !errors.Is(err, ErrNoActiveAttempt) {
			e.log.Error().Err(err).
				Int64("user_id", userID).
				Int64("test_id", test.ID).
				Msg("Finalize failed")
		}
		return nil, err
	}

	if created {
		e.log.Info().
			Int64("user_id", userID).
			Int64("test_id", test.ID).
			Int("score", res.Score).
			Int("total", res.TotalQuestions).
			Float64("percentage", res.Percentage).
			Str("reason", string(reason)).
			Msg("Attempt finalized")

		e.publish(ctx, Event{
			Type:       EventAttemptFinalized,
			UserID:     userID,
			TestID:     test.ID,
			Score:      &res.Score,
			Percentage: &res.Percentage,
			Reason:     reason,
			At:         now,
		})
	}

	return res, nil
}

// activeAttempt distinguishes "never started" from "already finished".
// An attempt still stored beside its Result is a leftover of an interrupted
// finalize: it is reported as completed and removed.
func (e *Engine) activeAttempt(ctx context.Context, userID, testID int64) (*model.Attempt, error) {
	a, err := e.sessions.Get(ctx, userID, testID)
	if err != nil && !errors.Is(err, ErrNoActiveAttempt) {
		return nil, fmt.Errorf("load attempt: %w", err)
	}

	if err := e.sessions.ensureNoResult(ctx, userID, testID); err != nil {
		if a != nil && errors.Is(err, ErrAlreadyCompleted) {
			if derr := e.sessions.Destroy(ctx, userID, testID); derr != nil {
				e.log.Warn().Err(derr).
					Int64("user_id", userID).
					Int64("test_id", testID).
					Msg("Drop leftover attempt failed")
			}
		}
		return nil, err
	}

	if a == nil {
		return nil, ErrNoActiveAttempt
	}
	return a, nil
}

func (e *Engine) loadTest(ctx context.Context, testID int64) (*model.TestDefinition, error) {
	test, err := e.tests.TestByID(ctx, testID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load test %d: %w", testID, err)
	}
	return test, nil
}

func (e *Engine) publish(ctx context.Context, ev Event) {
	if e.events == nil {
		return
	}
	if err := e.events.Publish(ctx, ev); err != nil {
		e.log.Warn().Err(err).Str("event", string(ev.Type)).Msg("Publish event failed")
	}
}
