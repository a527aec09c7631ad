package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/config"
	"github.com/stemsi/exstem-session/internal/engine"
)

// Events publishes attempt events on a per-test Redis channel and streams
// them back to monitors on any node.
type Events struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewEvents creates an event publisher.
func NewEvents(rdb *redis.Client, log zerolog.Logger) *Events {
	return &Events{rdb: rdb, log: log.With().Str("component", "attempt_events").Logger()}
}

// Publish sends ev to its test's monitor channel.
func (e *Events) Publish(ctx context.Context, ev engine.Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return e.rdb.Publish(ctx, config.CacheKey.TestMonitorChannel(ev.TestID), raw).Err()
}

// Subscribe streams one test's events until ctx ends, then closes the
// channel.
func (e *Events) Subscribe(ctx context.Context, testID int64) (<-chan engine.Event, error) {
	sub := e.rdb.Subscribe(ctx, config.CacheKey.TestMonitorChannel(testID))
	// Wait for the confirmation so events published right after we return
	// are not missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe to test %d: %w", testID, err)
	}

	out := make(chan engine.Event, 64)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev engine.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					e.log.Warn().Err(err).Str("channel", msg.Channel).Msg("Dropping malformed event")
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
