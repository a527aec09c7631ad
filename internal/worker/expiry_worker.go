package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/engine"
	"github.com/stemsi/exstem-session/internal/model"
)

// DeadlineIndex lists live attempts whose deadline has passed.
type DeadlineIndex interface {
	Due(ctx context.Context, now time.Time, limit int64) ([]model.AttemptRef, error)
	Forget(ctx context.Context, ref model.AttemptRef) error
}

// Expirer finalizes an attempt once its deadline has passed.
type Expirer interface {
	ExpireAttempt(ctx context.Context, userID, testID int64, now time.Time) (*model.Result, bool, error)
}

// ExpiryWorker finalizes attempts whose participants walked away. Without
// it an abandoned attempt would only be scored on the participant's next
// request, which may never come.
type ExpiryWorker struct {
	index    DeadlineIndex
	expirer  Expirer
	interval time.Duration
	batch    int64
	now      func() time.Time
	log      zerolog.Logger
}

func NewExpiryWorker(index DeadlineIndex, expirer Expirer, interval time.Duration, batch int64, log zerolog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		index:    index,
		expirer:  expirer,
		interval: interval,
		batch:    batch,
		now:      time.Now,
		log:      log.With().Str("component", "expiry_worker").Logger(),
	}
}

// Start sweeps every interval until ctx ends.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("ExpiryWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ExpiryWorker stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep finalizes one batch of overdue attempts and returns how many it
// closed.
func (w *ExpiryWorker) Sweep(ctx context.Context) int {
	now := w.now()

	due, err := w.index.Due(ctx, now, w.batch)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Load due attempts failed")
		}
		return 0
	}

	closed := 0
	for _, ref := range due {
		if ctx.Err() != nil {
			break
		}

		_, done, err := w.expirer.ExpireAttempt(ctx, ref.UserID, ref.TestID, now)
		switch {
		case err == nil:
			if done {
				closed++
			}
		case errors.Is(err, engine.ErrNoActiveAttempt), errors.Is(err, engine.ErrNotFound):
			// Attempt evicted or test removed; the index entry is stale.
			if err := w.index.Forget(ctx, ref); err != nil {
				w.log.Warn().Err(err).Int64("user_id", ref.UserID).Int64("test_id", ref.TestID).Msg("Forget failed")
			}
		case errors.Is(err, engine.ErrLockNotAcquired):
			// A request is finalizing it right now.
		default:
			w.log.Error().Err(err).
				Int64("user_id", ref.UserID).
				Int64("test_id", ref.TestID).
				Msg("Expire attempt failed, will retry")
		}
	}

	if closed > 0 {
		w.log.Info().Int("closed", closed).Msg("Expired attempts finalized")
	}
	return closed
}
