package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/stemsi/exstem-session/internal/model"
)

// QuestionSetResolver picks the frozen question list for a new attempt.
type QuestionSetResolver struct {
	bank    QuestionBank
	shuffle func(n int, swap func(i, j int))
}

// NewQuestionSetResolver creates a resolver backed by bank.
func NewQuestionSetResolver(bank QuestionBank) *QuestionSetResolver {
	return &QuestionSetResolver{bank: bank, shuffle: rand.Shuffle}
}

// Resolve returns exactly test.QuestionCount question IDs from the test's
// category. Randomized tests get a uniform permutation of the whole pool
// before truncation; fixed tests use ascending question ID.
func (r *QuestionSetResolver) Resolve(ctx context.Context, test *model.TestDefinition) ([]int64, error) {
	pool, err := r.bank.ActiveQuestions(ctx, test.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("load question pool: %w", err)
	}

	if test.QuestionCount <= 0 || len(pool) < test.QuestionCount {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrInsufficientQuestions, test.QuestionCount, len(pool))
	}

	ids := make([]int64, 0, len(pool))
	for _, q := range pool {
		ids = append(ids, q.ID)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)
	if len(ids) < test.QuestionCount {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrInsufficientQuestions, test.QuestionCount, len(ids))
	}

	if test.RandomizeQuestions {
		r.shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	}

	return slices.Clip(ids[:test.QuestionCount]), nil
}
