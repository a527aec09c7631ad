package worker

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/engine"
	"github.com/stemsi/exstem-session/internal/model"
)

type fakeIndex struct {
	due       []model.AttemptRef
	forgotten []model.AttemptRef
	err       error
}

func (f *fakeIndex) Due(_ context.Context, _ time.Time, limit int64) ([]model.AttemptRef, error) {
	if f.err != nil {
		return nil, f.err
	}
	if int64(len(f.due)) > limit {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeIndex) Forget(_ context.Context, ref model.AttemptRef) error {
	f.forgotten = append(f.forgotten, ref)
	return nil
}

type fakeExpirer struct {
	outcomes map[model.AttemptRef]error
	calls    []model.AttemptRef
}

func (f *fakeExpirer) ExpireAttempt(_ context.Context, userID, testID int64, _ time.Time) (*model.Result, bool, error) {
	ref := model.AttemptRef{UserID: userID, TestID: testID}
	f.calls = append(f.calls, ref)
	if err := f.outcomes[ref]; err != nil {
		return nil, false, err
	}
	return &model.Result{UserID: userID, TestID: testID}, true, nil
}

func TestSweep(t *testing.T) {
	closed := model.AttemptRef{UserID: 1, TestID: 1}
	evicted := model.AttemptRef{UserID: 2, TestID: 1}
	busy := model.AttemptRef{UserID: 3, TestID: 1}
	broken := model.AttemptRef{UserID: 4, TestID: 1}

	index := &fakeIndex{due: []model.AttemptRef{closed, evicted, busy, broken}}
	expirer := &fakeExpirer{outcomes: map[model.AttemptRef]error{
		evicted: engine.ErrNoActiveAttempt,
		busy:    engine.ErrLockNotAcquired,
		broken:  errors.New("db down"),
	}}

	w := NewExpiryWorker(index, expirer, time.Second, 10, zerolog.New(io.Discard))
	if got := w.Sweep(context.Background()); got != 1 {
		t.Fatalf("closed = %d, want 1", got)
	}

	if len(expirer.calls) != 4 {
		t.Fatalf("expire calls = %v", expirer.calls)
	}
	if len(index.forgotten) != 1 || index.forgotten[0] != evicted {
		t.Fatalf("forgotten = %v, want only the evicted attempt", index.forgotten)
	}
}

func TestSweepRespectsBatch(t *testing.T) {
	index := &fakeIndex{due: []model.AttemptRef{{UserID: 1, TestID: 1}, {UserID: 2, TestID: 1}, {UserID: 3, TestID: 1}}}
	expirer := &fakeExpirer{}

	w := NewExpiryWorker(index, expirer, time.Second, 2, zerolog.New(io.Discard))
	if got := w.Sweep(context.Background()); got != 2 {
		t.Fatalf("closed = %d, want 2", got)
	}
}

func TestSweepIndexFailure(t *testing.T) {
	index := &fakeIndex{err: errors.New("redis down")}
	expirer := &fakeExpirer{}

	w := NewExpiryWorker(index, expirer, time.Second, 10, zerolog.New(io.Discard))
	if got := w.Sweep(context.Background()); got != 0 || len(expirer.calls) != 0 {
		t.Fatalf("sweep with failing index closed %d, called %d", got, len(expirer.calls))
	}
}

func TestStartStopsWithContext(t *testing.T) {
	index := &fakeIndex{}
	w := NewExpiryWorker(index, &fakeExpirer{}, 5*time.Millisecond, 10, zerolog.New(io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
