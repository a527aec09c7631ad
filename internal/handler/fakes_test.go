package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/auth"
	"github.com/stemsi/exstem-session/internal/engine"
	"github.com/stemsi/exstem-session/internal/middleware"
	"github.com/stemsi/exstem-session/internal/model"
	"github.com/stemsi/exstem-session/internal/store/memstore"
	"github.com/stemsi/exstem-session/internal/validator"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// fakeDB stands in for the Postgres repositories.
type fakeDB struct {
	mu        sync.Mutex
	tests     map[int64]model.TestDefinition
	questions map[int64]model.Question
	answers   map[string]model.Answer
	results   map[string]model.Result
	nextID    int64
}

func newFakeDB() *fakeDB {
	db := &fakeDB{
		tests:     make(map[int64]model.TestDefinition),
		questions: make(map[int64]model.Question),
		answers:   make(map[string]model.Answer),
		results:   make(map[string]model.Result),
	}
	db.tests[1] = model.TestDefinition{
		ID:              1,
		Name:            "Go Basics",
		StartTime:       t0.Add(-time.Hour),
		EndTime:         t0.Add(8 * time.Hour),
		DurationMinutes: 30,
		CategoryID:      10,
		CategoryName:    "Programming",
		QuestionCount:   3,
		IsActive:        true,
	}
	db.tests[2] = model.TestDefinition{
		ID:              2,
		Name:            "Tomorrow",
		StartTime:       t0.Add(24 * time.Hour),
		EndTime:         t0.Add(30 * time.Hour),
		DurationMinutes: 30,
		CategoryID:      10,
		QuestionCount:   3,
		IsActive:        true,
	}
	for id := int64(101); id <= 104; id++ {
		db.questions[id] = model.Question{
			ID:            id,
			CategoryID:    10,
			QuestionText:  fmt.Sprintf("Question %d", id),
			AnswerOptions: json.RawMessage(`["A","B","C"]`),
			CorrectAnswer: "A",
			IsActive:      true,
		}
	}
	return db
}

func key(parts ...int64) string { return fmt.Sprint(parts) }

func (db *fakeDB) TestByID(_ context.Context, id int64) (*model.TestDefinition, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.tests[id]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return &t, nil
}

func (db *fakeDB) ListAvailable(_ context.Context, now time.Time, limit, offset int) ([]model.TestDefinition, int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var open []model.TestDefinition
	for _, t := range db.tests {
		if t.IsAvailable(now) {
			open = append(open, t)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].ID < open[j].ID })
	total := len(open)
	if offset >= total {
		return nil, total, nil
	}
	end := min(offset+limit, total)
	return open[offset:end], total, nil
}

func (db *fakeDB) ActiveQuestions(_ context.Context, categoryID int64) ([]model.Question, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []model.Question
	for _, q := range db.questions {
		if q.CategoryID == categoryID && q.IsActive {
			out = append(out, q)
		}
	}
	return out, nil
}

func (db *fakeDB) QuestionByID(_ context.Context, id int64) (*model.Question, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	q, ok := db.questions[id]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return &q, nil
}

func (db *fakeDB) ExistingResult(_ context.Context, userID, testID int64) (*model.Result, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	r, ok := db.results[key(userID, testID)]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return &r, nil
}

func (db *fakeDB) InsertResult(_ context.Context, r *model.Result) (*model.Result, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	k := key(r.UserID, r.TestID)
	if existing, ok := db.results[k]; ok {
		return &existing, false, nil
	}
	db.nextID++
	stored := *r
	stored.ID = db.nextID
	db.results[k] = stored
	return &stored, true, nil
}

func (db *fakeDB) UpsertAnswer(_ context.Context, a *model.Answer) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.results[key(a.UserID, a.TestID)]; ok {
		return engine.ErrAlreadyCompleted
	}
	db.answers[key(a.UserID, a.TestID, a.QuestionID)] = *a
	return nil
}

func (db *fakeDB) AnswersFor(_ context.Context, userID, testID int64) ([]model.Answer, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []model.Answer
	for _, a := range db.answers {
		if a.UserID == userID && a.TestID == testID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (db *fakeDB) AnswerFor(_ context.Context, userID, testID, questionID int64) (*model.Answer, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	a, ok := db.answers[key(userID, testID, questionID)]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return &a, nil
}

func (db *fakeDB) ResultDetail(ctx context.Context, userID, testID int64) (*model.ResultDetail, error) {
	r, err := db.ExistingResult(ctx, userID, testID)
	if err != nil {
		return nil, err
	}
	t, err := db.TestByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	return &model.ResultDetail{Result: *r, TestName: t.Name, CategoryName: t.CategoryName}, nil
}

// clock is a settable time source shared by both handlers.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServer struct {
	router *gin.Engine
	db     *fakeDB
	clock  *clock
}

// withClaims stands in for the JWT middleware.
func withClaims(userID int64, typ auth.TokenType) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyClaims, &auth.Claims{UserID: userID, TokenType: typ})
		c.Next()
	}
}

// newTestServer mounts the participant routes for user 7.
func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)
	validator.Setup()

	log := zerolog.New(io.Discard)
	db := newFakeDB()
	clk := &clock{now: t0}
	eng := engine.NewEngine(db, db, db, memstore.NewAttempts(), memstore.NewLocker(), nil, log)

	attempts := NewAttemptHandler(eng, db, db, log)
	attempts.now = clk.Now
	tests := NewTestHandler(db, eng, log)
	tests.now = clk.Now

	r := gin.New()
	api := r.Group("/api/v1", withClaims(7, auth.TokenTypeParticipant))
	api.GET("/tests", tests.ListTests)
	api.GET("/tests/:test_id", tests.GetTest)
	api.GET("/tests/:test_id/result", attempts.GetResult)
	attempt := api.Group("/tests/:test_id/attempt")
	attempt.POST("", attempts.StartAttempt)
	attempt.GET("", attempts.GetStatus)
	attempt.GET("/question", attempts.ViewQuestion)
	attempt.PUT("/answers", attempts.SaveAnswer)
	attempt.POST("/submit", attempts.SubmitAttempt)

	return &testServer{router: r, db: db, clock: clk}
}
