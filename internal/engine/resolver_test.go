package engine

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stemsi/exstem-session/internal/model"
)

type poolBank []model.Question

func (p poolBank) ActiveQuestions(_ context.Context, categoryID int64) ([]model.Question, error) {
	var out []model.Question
	for _, q := range p {
		if q.CategoryID == categoryID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (p poolBank) QuestionByID(_ context.Context, id int64) (*model.Question, error) {
	for _, q := range p {
		if q.ID == id {
			return &q, nil
		}
	}
	return nil, ErrNotFound
}

func pool(categoryID int64, ids ...int64) poolBank {
	var out poolBank
	for _, id := range ids {
		out = append(out, model.Question{ID: id, CategoryID: categoryID, IsActive: true})
	}
	return out
}

func TestResolveFixedOrderIsAscending(t *testing.T) {
	r := NewQuestionSetResolver(pool(3, 40, 10, 30, 20))
	test := &model.TestDefinition{CategoryID: 3, QuestionCount: 3}

	ids, err := r.Resolve(context.Background(), test)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := []int64{10, 20, 30}; !slices.Equal(ids, want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
}

func TestResolveRandomizedPermutesWholePool(t *testing.T) {
	r := NewQuestionSetResolver(pool(3, 1, 2, 3, 4, 5))
	// Reverse instead of a random shuffle so the truncation is observable.
	r.shuffle = func(n int, swap func(i, j int)) {
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}
	test := &model.TestDefinition{CategoryID: 3, QuestionCount: 2, RandomizeQuestions: true}

	ids, err := r.Resolve(context.Background(), test)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := []int64{5, 4}; !slices.Equal(ids, want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
}

func TestResolveRandomizedKeepsDistinctIDs(t *testing.T) {
	r := NewQuestionSetResolver(pool(3, 1, 2, 3, 4, 5, 6, 7, 8))
	test := &model.TestDefinition{CategoryID: 3, QuestionCount: 8, RandomizeQuestions: true}

	for i := 0; i < 20; i++ {
		ids, err := r.Resolve(context.Background(), test)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		sorted := slices.Clone(ids)
		slices.Sort(sorted)
		if want := []int64{1, 2, 3, 4, 5, 6, 7, 8}; !slices.Equal(sorted, want) {
			t.Fatalf("ids = %v is not a permutation of the pool", ids)
		}
	}
}

func TestResolveInsufficientQuestions(t *testing.T) {
	tests := []struct {
		name  string
		bank  poolBank
		count int
	}{
		{"empty pool", nil, 1},
		{"pool smaller than count", pool(3, 1, 2), 3},
		{"duplicates do not count twice", append(pool(3, 1, 2), pool(3, 2)...), 3},
		{"zero count", pool(3, 1, 2), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewQuestionSetResolver(tt.bank)
			_, err := r.Resolve(context.Background(), &model.TestDefinition{CategoryID: 3, QuestionCount: tt.count})
			if !errors.Is(err, ErrInsufficientQuestions) {
				t.Fatalf("err = %v, want ErrInsufficientQuestions", err)
			}
		})
	}
}
