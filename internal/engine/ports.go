package engine

import (
	"context"

	"github.com/stemsi/exstem-session/internal/model"
)

// QuestionBank is the read side of the question administration subsystem.
type QuestionBank interface {
	ActiveQuestions(ctx context.Context, categoryID int64) ([]model.Question, error)
	// QuestionByID returns ErrNotFound when the question does not exist.
	QuestionByID(ctx context.Context, id int64) (*model.Question, error)
}

// TestCatalog reads test definitions. Returns ErrNotFound for unknown IDs.
type TestCatalog interface {
	TestByID(ctx context.Context, id int64) (*model.TestDefinition, error)
}

// ResultStore is the durable store for answers and results.
type ResultStore interface {
	// ExistingResult returns ErrNotFound when the pair has no result.
	ExistingResult(ctx context.Context, userID, testID int64) (*model.Result, error)
	// InsertResult writes r unless a result already exists for the pair.
	// It returns the stored result and whether this call created it.
	InsertResult(ctx context.Context, r *model.Result) (*model.Result, bool, error)
	// UpsertAnswer atomically writes a by its (user, test, question) key.
	// It returns ErrAlreadyCompleted if the pair already has a result.
	UpsertAnswer(ctx context.Context, a *model.Answer) error
	AnswersFor(ctx context.Context, userID, testID int64) ([]model.Answer, error)
	// AnswerFor returns ErrNotFound when the question has not been answered.
	AnswerFor(ctx context.Context, userID, testID, questionID int64) (*model.Answer, error)
}

// AttemptBackend holds ephemeral attempt state keyed by (user, test).
type AttemptBackend interface {
	// PutIfAbsent stores a unless an attempt already exists for the key.
	// It reports whether a was stored.
	PutIfAbsent(ctx context.Context, a *model.Attempt, test *model.TestDefinition) (bool, error)
	// Get returns ErrNoActiveAttempt when no attempt exists.
	Get(ctx context.Context, userID, testID int64) (*model.Attempt, error)
	Delete(ctx context.Context, userID, testID int64) error
}

// Locker is a per-key reader/writer lock. Create and finalize hold it
// exclusively; answer saves share it, so saves run in parallel with each
// other but never overlap a finalize.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
	RLock(ctx context.Context, key string) (unlock func(), err error)
}

// EventPublisher receives attempt lifecycle events. Publishing is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}
