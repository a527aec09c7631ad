package engine

import "errors"

// Precondition violations. Always surfaced to the caller.
var (
	ErrNoActiveAttempt      = errors.New("no active attempt")
	ErrQuestionNotInAttempt = errors.New("question is not part of this attempt")
	ErrPositionOutOfRange   = errors.New("question position out of range")
)

// Lifecycle signals.
var (
	// ErrAlreadyCompleted means a Result exists for the pair; callers should
	// redirect to it instead of retrying.
	ErrAlreadyCompleted = errors.New("attempt already completed")
	// ErrAttemptAlreadyActive is returned by a second start for a live attempt.
	ErrAttemptAlreadyActive = errors.New("attempt already active")
	// ErrDeadlineExceeded tells the caller to submit instead of saving.
	ErrDeadlineExceeded = errors.New("attempt deadline exceeded")
)

var (
	ErrInsufficientQuestions = errors.New("not enough active questions for this test")
	ErrTestNotAvailable      = errors.New("test is not currently available")
	ErrNotFound              = errors.New("not found")
	ErrLockNotAcquired       = errors.New("attempt lock not acquired")
)
