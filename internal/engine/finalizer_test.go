package engine_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/engine"
	"github.com/stemsi/exstem-session/internal/model"
	"github.com/stemsi/exstem-session/internal/store/memstore"
)

// stuckAttempts is an attempt backend whose deletes fail.
type stuckAttempts struct {
	*memstore.Attempts
	err error
}

func (s *stuckAttempts) Delete(context.Context, int64, int64) error {
	return s.err
}

func TestRecoveryLogsFailedCleanup(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var logs bytes.Buffer
	backend := &stuckAttempts{Attempts: memstore.NewAttempts(), err: errors.New("redis timeout")}
	eng := engine.NewEngine(h.catalog, h.bank, h.results, backend, memstore.NewLocker(), nil, zerolog.New(&logs))

	if _, err := eng.StartAttempt(ctx, 7, 1, t0); err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	stored := model.Result{ID: 5, UserID: 7, TestID: 1, Score: 1, TotalQuestions: 3, StartedAt: t0, CompletedAt: t0.Add(time.Minute)}
	h.results.putResult(stored)

	res, err := eng.SubmitAttempt(ctx, 7, 1, t0.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("SubmitAttempt: %v", err)
	}
	if res.ID != stored.ID {
		t.Fatalf("result = %+v, want stored result", res)
	}

	out := logs.String()
	if !strings.Contains(out, "Drop leftover attempt failed") || !strings.Contains(out, "redis timeout") {
		t.Fatalf("cleanup failure not logged: %s", out)
	}
}
