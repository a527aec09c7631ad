package memstore

import (
	"context"
	"sync"

	"github.com/stemsi/exstem-session/internal/engine"
)

// Locker is a keyed reader/writer lock. A waiting writer blocks new readers
// so a steady stream of saves cannot starve a submit. Idle keys are released
// so the map does not grow with every pair ever locked.
type Locker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	readers        int
	writer         bool
	writersWaiting int
	refs           int
	changed        chan struct{}
}

// NewLocker creates an empty keyed lock.
func NewLocker() *Locker {
	return &Locker{slots: make(map[string]*slot)}
}

// Lock takes key exclusively, blocking until it is free or ctx ends.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	return l.acquire(ctx, key, true)
}

// RLock takes key in shared mode.
func (l *Locker) RLock(ctx context.Context, key string) (func(), error) {
	return l.acquire(ctx, key, false)
}

func (l *Locker) acquire(ctx context.Context, key string, exclusive bool) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{changed: make(chan struct{})}
		l.slots[key] = s
	}
	s.refs++
	if exclusive {
		s.writersWaiting++
	}

	for !l.tryTake(s, exclusive) {
		wait := s.changed
		l.mu.Unlock()

		select {
		case <-wait:
			l.mu.Lock()
		case <-ctx.Done():
			l.mu.Lock()
			if exclusive {
				s.writersWaiting--
				s.broadcast()
			}
			l.release(key, s)
			l.mu.Unlock()
			return nil, engine.ErrLockNotAcquired
		}
	}
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			if exclusive {
				s.writer = false
			} else {
				s.readers--
			}
			s.broadcast()
			l.release(key, s)
			l.mu.Unlock()
		})
	}, nil
}

// tryTake must be called with l.mu held.
func (l *Locker) tryTake(s *slot, exclusive bool) bool {
	if exclusive {
		if s.writer || s.readers > 0 {
			return false
		}
		s.writersWaiting--
		s.writer = true
		return true
	}
	if s.writer || s.writersWaiting > 0 {
		return false
	}
	s.readers++
	return true
}

func (s *slot) broadcast() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// release must be called with l.mu held.
func (l *Locker) release(key string, s *slot) {
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}
