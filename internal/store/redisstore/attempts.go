// Package redisstore keeps attempt state, locks and attempt events in Redis
// so every API node sees the same live attempts.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-session/internal/config"
	"github.com/stemsi/exstem-session/internal/engine"
	"github.com/stemsi/exstem-session/internal/model"
)

// putAttempt stores the attempt only if the key is free and indexes its
// deadline in the same step.
var putAttempt = redis.NewScript(`
if redis.call('SET', KEYS[1], ARGV[1], 'NX', 'PX', ARGV[2]) then
	redis.call('ZADD', KEYS[2], ARGV[3], ARGV[4])
	return 1
end
return 0
`)

// Attempts is a Redis-backed engine.AttemptBackend.
type Attempts struct {
	rdb   *redis.Client
	grace time.Duration
}

// NewAttempts creates an attempt backend. Attempts outlive their deadline
// by grace before Redis drops them, leaving room for the sweeper.
func NewAttempts(rdb *redis.Client, grace time.Duration) *Attempts {
	return &Attempts{rdb: rdb, grace: grace}
}

// PutIfAbsent stores a unless an attempt already exists for its key.
func (s *Attempts) PutIfAbsent(ctx context.Context, a *model.Attempt, test *model.TestDefinition) (bool, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return false, fmt.Errorf("marshal attempt: %w", err)
	}

	deadline := engine.Deadline(a, test)
	ttl := test.Duration() + s.grace

	res, err := putAttempt.Run(ctx, s.rdb,
		[]string{config.CacheKey.AttemptKey(a.UserID, a.TestID), config.CacheKey.AttemptDeadlinesKey()},
		raw, ttl.Milliseconds(), deadline.UnixMilli(), member(a.UserID, a.TestID),
	).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// Get loads the attempt or returns engine.ErrNoActiveAttempt.
func (s *Attempts) Get(ctx context.Context, userID, testID int64) (*model.Attempt, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.AttemptKey(userID, testID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, engine.ErrNoActiveAttempt
	}
	if err != nil {
		return nil, err
	}

	var a model.Attempt
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("invalid attempt in cache: %w", err)
	}
	return &a, nil
}

// Delete removes the attempt and its deadline entry.
func (s *Attempts) Delete(ctx context.Context, userID, testID int64) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, config.CacheKey.AttemptKey(userID, testID))
	pipe.ZRem(ctx, config.CacheKey.AttemptDeadlinesKey(), member(userID, testID))
	_, err := pipe.Exec(ctx)
	return err
}

// Due returns up to limit attempts whose deadline is at or before now.
func (s *Attempts) Due(ctx context.Context, now time.Time, limit int64) ([]model.AttemptRef, error) {
	members, err := s.rdb.ZRangeByScore(ctx, config.CacheKey.AttemptDeadlinesKey(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, err
	}

	refs := make([]model.AttemptRef, 0, len(members))
	for _, m := range members {
		ref, err := parseMember(m)
		if err != nil {
			// Drop garbage so it does not block the head of the index.
			s.rdb.ZRem(ctx, config.CacheKey.AttemptDeadlinesKey(), m)
			continue
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func member(userID, testID int64) string {
	return fmt.Sprintf("%d:%d", userID, testID)
}

func parseMember(m string) (model.AttemptRef, error) {
	u, t, ok := strings.Cut(m, ":")
	if !ok {
		return model.AttemptRef{}, fmt.Errorf("malformed deadline member %q", m)
	}
	userID, err := strconv.ParseInt(u, 10, 64)
	if err != nil {
		return model.AttemptRef{}, err
	}
	testID, err := strconv.ParseInt(t, 10, 64)
	if err != nil {
		return model.AttemptRef{}, err
	}
	return model.AttemptRef{UserID: userID, TestID: testID}, nil
}

// Forget drops a deadline entry whose attempt no longer exists.
func (s *Attempts) Forget(ctx context.Context, ref model.AttemptRef) error {
	return s.rdb.ZRem(ctx, config.CacheKey.AttemptDeadlinesKey(), member(ref.UserID, ref.TestID)).Err()
}
