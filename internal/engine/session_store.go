package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-session/internal/model"
)

// SessionStore owns the at-most-one-live-attempt rule for a (user, test)
// pair on top of a pluggable backend.
type SessionStore struct {
	backend AttemptBackend
	results ResultStore
	locks   Locker
}

// NewSessionStore creates a SessionStore.
func NewSessionStore(backend AttemptBackend, results ResultStore, locks Locker) *SessionStore {
	return &SessionStore{backend: backend, results: results, locks: locks}
}

func attemptKey(userID, testID int64) string {
	return fmt.Sprintf("%d:%d", userID, testID)
}

// Create freezes questionIDs into a new attempt started at now.
// The caller must hold the attempt lock for the key.
func (s *SessionStore) Create(ctx context.Context, test *model.TestDefinition, userID int64, questionIDs []int64, now time.Time) (*model.Attempt, error) {
	if err := s.ensureNoResult(ctx, userID, test.ID); err != nil {
		return nil, err
	}

	frozen := make([]int64, len(questionIDs))
	copy(frozen, questionIDs)

	a := &model.Attempt{
		ID:          uuid.New(),
		UserID:      userID,
		TestID:      test.ID,
		QuestionIDs: frozen,
		StartedAt:   now,
	}

	stored, err := s.backend.PutIfAbsent(ctx, a, test)
	if err != nil {
		return nil, fmt.Errorf("store attempt: %w", err)
	}
	if !stored {
		return nil, ErrAttemptAlreadyActive
	}

	// A finalize on another node may have closed the pair between the first
	// check and the put. Undo the put so the pair stays closed.
	if err := s.ensureNoResult(ctx, userID, test.ID); err != nil {
		if errors.Is(err, ErrAlreadyCompleted) {
			_ = s.backend.Delete(ctx, userID, test.ID)
		}
		return nil, err
	}

	return a, nil
}

// Get returns the live attempt or ErrNoActiveAttempt.
func (s *SessionStore) Get(ctx context.Context, userID, testID int64) (*model.Attempt, error) {
	return s.backend.Get(ctx, userID, testID)
}

// Destroy removes the attempt. Missing attempts are not an error.
func (s *SessionStore) Destroy(ctx context.Context, userID, testID int64) error {
	if err := s.backend.Delete(ctx, userID, testID); err != nil {
		return fmt.Errorf("destroy attempt: %w", err)
	}
	return nil
}

// Lock takes the per-pair lock exclusively, for create and finalize.
func (s *SessionStore) Lock(ctx context.Context, userID, testID int64) (func(), error) {
	return s.locks.Lock(ctx, attemptKey(userID, testID))
}

// RLock takes the per-pair lock in shared mode, for answer saves.
func (s *SessionStore) RLock(ctx context.Context, userID, testID int64) (func(), error) {
	return s.locks.RLock(ctx, attemptKey(userID, testID))
}

func (s *SessionStore) ensureNoResult(ctx context.Context, userID, testID int64) error {
	_, err := s.results.ExistingResult(ctx, userID, testID)
	switch {
	case err == nil:
		return ErrAlreadyCompleted
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return fmt.Errorf("check existing result: %w", err)
	}
}
