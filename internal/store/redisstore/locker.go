package redisstore

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/config"
	"github.com/stemsi/exstem-session/internal/engine"
)

// KEYS: writer, readers, wait. ARGV: token, now ms, ttl ms, wait ms.
// A writer that finds live readers sets the wait marker so no new reader
// gets in ahead of it.
var acquireExclusive = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[2], '-inf', ARGV[2])
if redis.call('ZCARD', KEYS[2]) > 0 then
	redis.call('SET', KEYS[3], '1', 'PX', ARGV[4])
	return 0
end
if redis.call('SET', KEYS[1], ARGV[1], 'NX', 'PX', ARGV[3]) then
	redis.call('DEL', KEYS[3])
	return 1
end
return 0
`)

// KEYS: writer, readers, wait. ARGV: token, now ms, ttl ms.
var acquireShared = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 or redis.call('EXISTS', KEYS[3]) == 1 then
	return 0
end
redis.call('ZREMRANGEBYSCORE', KEYS[2], '-inf', ARGV[2])
redis.call('ZADD', KEYS[2], ARGV[2] + ARGV[3], ARGV[1])
redis.call('PEXPIRE', KEYS[2], ARGV[3])
return 1
`)

// releaseLock deletes the lock only if we still own it.
var releaseLock = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

const (
	lockRetryInterval = 25 * time.Millisecond
	lockMaxWait       = 5 * time.Second
	// writerWaitMark outlives a few retry intervals so a blocked writer
	// keeps its claim between polls.
	writerWaitMark = 4 * lockRetryInterval
)

// Locker is a reader/writer token lock shared by all API nodes. The
// exclusive side is a SET NX PX key; shared holders live in a sorted set
// scored by expiry so a crashed node cannot wedge the pair.
type Locker struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

// NewLocker creates a Locker whose locks expire after ttl if never released.
func NewLocker(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *Locker {
	return &Locker{
		rdb: rdb,
		ttl: ttl,
		log: log.With().Str("component", "attempt_locker").Logger(),
	}
}

// Lock takes key exclusively, retrying until it is free, ctx ends, or
// lockMaxWait passes.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	keys := lockKeys(key)
	token := uuid.NewString()

	err := l.retry(ctx, func(ctx context.Context) (bool, error) {
		return acquireExclusive.Run(ctx, l.rdb, keys,
			token, nowMillis(), l.ttl.Milliseconds(), writerWaitMark.Milliseconds(),
		).Bool()
	})
	if err != nil {
		return nil, err
	}

	return l.releaser(ctx, keys[0], func(ctx context.Context) error {
		return releaseLock.Run(ctx, l.rdb, keys[:1], token).Err()
	}), nil
}

// RLock takes key in shared mode.
func (l *Locker) RLock(ctx context.Context, key string) (func(), error) {
	keys := lockKeys(key)
	token := uuid.NewString()

	err := l.retry(ctx, func(ctx context.Context) (bool, error) {
		return acquireShared.Run(ctx, l.rdb, keys,
			token, nowMillis(), l.ttl.Milliseconds(),
		).Bool()
	})
	if err != nil {
		return nil, err
	}

	return l.releaser(ctx, keys[1], func(ctx context.Context) error {
		return l.rdb.ZRem(ctx, keys[1], token).Err()
	}), nil
}

func (l *Locker) retry(ctx context.Context, try func(context.Context) (bool, error)) error {
	waitCtx, cancel := context.WithTimeout(ctx, lockMaxWait)
	defer cancel()

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for {
		ok, err := try(waitCtx)
		if err != nil && waitCtx.Err() == nil {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-waitCtx.Done():
			return engine.ErrLockNotAcquired
		case <-ticker.C:
		}
	}
}

func (l *Locker) releaser(ctx context.Context, lockKey string, release func(context.Context) error) func() {
	return func() {
		// Release even if the request context is already gone.
		relCtx, relCancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer relCancel()
		if err := release(relCtx); err != nil {
			l.log.Warn().Err(err).Str("key", lockKey).Msg("Release lock failed")
		}
	}
}

func lockKeys(pair string) []string {
	return []string{
		config.CacheKey.AttemptLockKey(pair),
		config.CacheKey.AttemptLockReadersKey(pair),
		config.CacheKey.AttemptLockWaitKey(pair),
	}
}

func nowMillis() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}
