package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserLoginKey returns the key holding the JTI of a user's active login.
// Written by the authentication service, read here for single-device checks.
func (r *CacheKeyStruct) UserLoginKey(userID int64) string {
	return fmt.Sprintf("login:%d", userID)
}

// AttemptKey returns the key of a user's live attempt on a test
func (r *CacheKeyStruct) AttemptKey(userID, testID int64) string {
	return fmt.Sprintf("user:%d:test:%d:attempt", userID, testID)
}

// AttemptLockKey returns the exclusive lock key guarding create/finalize of an attempt
func (r *CacheKeyStruct) AttemptLockKey(pair string) string {
	return fmt.Sprintf("lock:attempt:%s", pair)
}

// AttemptLockReadersKey returns the sorted set of shared holders of an attempt
// lock, scored by expiry in unix milliseconds
func (r *CacheKeyStruct) AttemptLockReadersKey(pair string) string {
	return fmt.Sprintf("lock:attempt:%s:readers", pair)
}

// AttemptLockWaitKey returns the marker a blocked writer sets to hold off new
// shared holders
func (r *CacheKeyStruct) AttemptLockWaitKey(pair string) string {
	return fmt.Sprintf("lock:attempt:%s:wait", pair)
}

// AttemptDeadlinesKey returns the sorted set of live attempts scored by deadline
func (r *CacheKeyStruct) AttemptDeadlinesKey() string {
	return "attempt:deadlines"
}

// SaveRateKey returns the counter key for a user's answer saves in a window
func (r *CacheKeyStruct) SaveRateKey(userID int64, window int64) string {
	return fmt.Sprintf("user:%d:save_rate:%d", userID, window)
}

// TestMonitorChannel returns the Redis PubSub channel for a test's attempt events
func (r *CacheKeyStruct) TestMonitorChannel(testID int64) string {
	return fmt.Sprintf("test:%d:monitor", testID)
}

var CacheKey = NewCacheKeyStruct()
