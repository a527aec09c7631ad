// Package memstore keeps attempt state in process memory. It suits a
// single-instance deployment and tests; state is lost on restart.
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/stemsi/exstem-session/internal/engine"
	"github.com/stemsi/exstem-session/internal/model"
)

type entry struct {
	attempt  model.Attempt
	deadline time.Time
}

// Attempts is an in-memory engine.AttemptBackend.
type Attempts struct {
	mu       sync.RWMutex
	attempts map[model.AttemptRef]entry
}

// NewAttempts creates an empty attempt map.
func NewAttempts() *Attempts {
	return &Attempts{attempts: make(map[model.AttemptRef]entry)}
}

// PutIfAbsent stores a copy of a unless the key is taken.
func (s *Attempts) PutIfAbsent(_ context.Context, a *model.Attempt, test *model.TestDefinition) (bool, error) {
	k := model.AttemptRef{UserID: a.UserID, TestID: a.TestID}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.attempts[k]; ok {
		return false, nil
	}
	cp := *a
	cp.QuestionIDs = slices.Clone(a.QuestionIDs)
	s.attempts[k] = entry{attempt: cp, deadline: engine.Deadline(&cp, test)}
	return true, nil
}

// Get returns a copy so callers cannot mutate the frozen set.
func (s *Attempts) Get(_ context.Context, userID, testID int64) (*model.Attempt, error) {
	s.mu.RLock()
	e, ok := s.attempts[model.AttemptRef{UserID: userID, TestID: testID}]
	s.mu.RUnlock()

	if !ok {
		return nil, engine.ErrNoActiveAttempt
	}
	a := e.attempt
	a.QuestionIDs = slices.Clone(a.QuestionIDs)
	return &a, nil
}

// Delete removes the attempt if present.
func (s *Attempts) Delete(_ context.Context, userID, testID int64) error {
	s.mu.Lock()
	delete(s.attempts, model.AttemptRef{UserID: userID, TestID: testID})
	s.mu.Unlock()
	return nil
}

// Due returns up to limit attempts whose deadline is at or before now,
// oldest deadline first.
func (s *Attempts) Due(_ context.Context, now time.Time, limit int64) ([]model.AttemptRef, error) {
	s.mu.RLock()
	type due struct {
		ref      model.AttemptRef
		deadline time.Time
	}
	var found []due
	for k, e := range s.attempts {
		if !e.deadline.After(now) {
			found = append(found, due{k, e.deadline})
		}
	}
	s.mu.RUnlock()

	sort.Slice(found, func(i, j int) bool { return found[i].deadline.Before(found[j].deadline) })

	out := make([]model.AttemptRef, 0, len(found))
	for i, d := range found {
		if limit > 0 && int64(i) >= limit {
			break
		}
		out = append(out, d.ref)
	}
	return out, nil
}

// Forget is a no-op: deadlines live with their attempts.
func (s *Attempts) Forget(context.Context, model.AttemptRef) error {
	return nil
}
