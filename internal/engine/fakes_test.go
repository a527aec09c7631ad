package engine_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/engine"
	"github.com/stemsi/exstem-session/internal/model"
	"github.com/stemsi/exstem-session/internal/store/memstore"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fakeCatalog struct {
	tests map[int64]*model.TestDefinition
}

func (f *fakeCatalog) TestByID(_ context.Context, id int64) (*model.TestDefinition, error) {
	t, ok := f.tests[id]
	if !ok {
		return nil, engine.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

type fakeBank struct {
	mu        sync.Mutex
	questions map[int64]model.Question
}

func newFakeBank() *fakeBank {
	return &fakeBank{questions: make(map[int64]model.Question)}
}

// add registers questions ids with correct answer "A" in categoryID.
func (f *fakeBank) add(categoryID int64, ids ...int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.questions[id] = model.Question{
			ID:              id,
			CategoryID:      categoryID,
			QuestionText:    fmt.Sprintf("Question %d", id),
			AnswerOptions:   json.RawMessage(`["A","B","C","D"]`),
			CorrectAnswer:   "A",
			DifficultyLevel: model.DifficultyMedium,
			IsActive:        true,
		}
	}
}

func (f *fakeBank) deactivate(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.questions[id]
	q.IsActive = false
	f.questions[id] = q
}

// ActiveQuestions deliberately returns the pool in descending ID order so
// tests catch callers relying on storage order.
func (f *fakeBank) ActiveQuestions(_ context.Context, categoryID int64) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Question
	for _, q := range f.questions {
		if q.CategoryID == categoryID && q.IsActive {
			out = append(out, q)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].ID > out[i].ID {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakeBank) QuestionByID(_ context.Context, id int64) (*model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[id]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return &q, nil
}

type answerKey struct{ user, test, question int64 }
type pair struct{ user, test int64 }

type fakeResults struct {
	mu      sync.Mutex
	answers map[answerKey]model.Answer
	results map[pair]model.Result
	nextID  int64
	inserts int
	failAll error

	// afterAnswersRead runs once, after AnswersFor has taken its snapshot
	// and before it returns.
	afterAnswersRead func()
}

func newFakeResults() *fakeResults {
	return &fakeResults{
		answers: make(map[answerKey]model.Answer),
		results: make(map[pair]model.Result),
	}
}

func (f *fakeResults) ExistingResult(_ context.Context, userID, testID int64) (*model.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	r, ok := f.results[pair{userID, testID}]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return &r, nil
}

func (f *fakeResults) InsertResult(_ context.Context, r *model.Result) (*model.Result, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, false, f.failAll
	}
	k := pair{r.UserID, r.TestID}
	if existing, ok := f.results[k]; ok {
		return &existing, false, nil
	}
	f.nextID++
	f.inserts++
	stored := *r
	stored.ID = f.nextID
	f.results[k] = stored
	return &stored, true, nil
}

func (f *fakeResults) UpsertAnswer(_ context.Context, a *model.Answer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	if _, ok := f.results[pair{a.UserID, a.TestID}]; ok {
		return engine.ErrAlreadyCompleted
	}
	f.answers[answerKey{a.UserID, a.TestID, a.QuestionID}] = *a
	return nil
}

func (f *fakeResults) AnswersFor(_ context.Context, userID, testID int64) ([]model.Answer, error) {
	f.mu.Lock()
	if f.failAll != nil {
		f.mu.Unlock()
		return nil, f.failAll
	}
	var out []model.Answer
	for k, a := range f.answers {
		if k.user == userID && k.test == testID {
			out = append(out, a)
		}
	}
	hook := f.afterAnswersRead
	f.afterAnswersRead = nil
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}

func (f *fakeResults) AnswerFor(_ context.Context, userID, testID, questionID int64) (*model.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	a, ok := f.answers[answerKey{userID, testID, questionID}]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return &a, nil
}

func (f *fakeResults) putAnswer(a model.Answer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers[answerKey{a.UserID, a.TestID, a.QuestionID}] = a
}

func (f *fakeResults) onAnswersRead(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.afterAnswersRead = fn
}

func (f *fakeResults) putResult(r model.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[pair{r.UserID, r.TestID}] = r
}

func (f *fakeResults) insertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inserts
}

type recordingEvents struct {
	mu     sync.Mutex
	events []engine.Event
}

func (r *recordingEvents) Publish(_ context.Context, ev engine.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingEvents) count(typ engine.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

type harness struct {
	engine   *engine.Engine
	catalog  *fakeCatalog
	bank     *fakeBank
	results  *fakeResults
	attempts *memstore.Attempts
	events   *recordingEvents
}

// newHarness builds an engine over one test (ID 1, category 10, 30 minutes,
// open all day) and a pool of five questions 101..105.
func newHarness(t *testing.T, mutate ...func(*model.TestDefinition)) *harness {
	t.Helper()

	test := &model.TestDefinition{
		ID:                 1,
		Name:               "Go Basics",
		DurationMinutes:    30,
		CategoryID:         10,
		QuestionCount:      3,
		RandomizeQuestions: false,
		IsActive:           true,
		StartTime:          t0.Add(-time.Hour),
		EndTime:            t0.Add(8 * time.Hour),
	}
	for _, m := range mutate {
		m(test)
	}

	h := &harness{
		catalog:  &fakeCatalog{tests: map[int64]*model.TestDefinition{test.ID: test}},
		bank:     newFakeBank(),
		results:  newFakeResults(),
		attempts: memstore.NewAttempts(),
		events:   &recordingEvents{},
	}
	h.bank.add(10, 101, 102, 103, 104, 105)
	h.bank.add(20, 201, 202)

	h.engine = engine.NewEngine(h.catalog, h.bank, h.results, h.attempts, memstore.NewLocker(), h.events, zerolog.New(io.Discard))
	return h
}

func (h *harness) test(id int64) *model.TestDefinition {
	return h.catalog.tests[id]
}
