package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/engine"
	"github.com/stemsi/exstem-session/internal/middleware"
	"github.com/stemsi/exstem-session/internal/model"
	"github.com/stemsi/exstem-session/internal/response"
	"github.com/stemsi/exstem-session/internal/validator"
)

// ResultReader loads a result together with its test and category names.
type ResultReader interface {
	ResultDetail(ctx context.Context, userID, testID int64) (*model.ResultDetail, error)
}

// AttemptHandler serves a participant's attempt on one test.
type AttemptHandler struct {
	engine  *engine.Engine
	tests   engine.TestCatalog
	results ResultReader
	now     func() time.Time
	log     zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(eng *engine.Engine, tests engine.TestCatalog, results ResultReader, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		engine:  eng,
		tests:   tests,
		results: results,
		now:     time.Now,
		log:     log.With().Str("component", "attempt_handler").Logger(),
	}
}

// attemptView is what a participant learns about a started attempt. The
// frozen question IDs stay on the server; clients navigate by position.
type attemptView struct {
	ID               string    `json:"attempt_id"`
	TestID           int64     `json:"test_id"`
	TotalQuestions   int       `json:"total_questions"`
	StartedAt        time.Time `json:"started_at"`
	Deadline         time.Time `json:"deadline"`
	RemainingSeconds int       `json:"remaining_seconds"`
}

type questionQuery struct {
	Question int `form:"question" binding:"omitempty,min=1"`
}

// StartAttempt godoc
// POST /api/v1/tests/:test_id/attempt
// Freezes the question set and starts the clock.
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	// Detached so a client disconnect cannot abandon a half-made attempt.
	ctx := context.WithoutCancel(c.Request.Context())
	now := h.now()

	a, err := h.engine.StartAttempt(ctx, claims.UserID, testID, now)
	if err != nil {
		failEngine(c, h.log, testID, err)
		return
	}

	test, err := h.tests.TestByID(ctx, testID)
	if err != nil {
		failEngine(c, h.log, testID, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"attempt": attemptView{
		ID:               a.ID.String(),
		TestID:           a.TestID,
		TotalQuestions:   len(a.QuestionIDs),
		StartedAt:        a.StartedAt,
		Deadline:         engine.Deadline(a, test),
		RemainingSeconds: engine.RemainingSeconds(a, test, now),
	}})
}

// GetStatus godoc
// GET /api/v1/tests/:test_id/attempt
// Returns the lobby status: AVAILABLE, IN_PROGRESS, COMPLETED or UNAVAILABLE.
func (h *AttemptHandler) GetStatus(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	test, err := h.tests.TestByID(c.Request.Context(), testID)
	if err != nil {
		failEngine(c, h.log, testID, err)
		return
	}

	status, err := h.engine.AttemptStatus(c.Request.Context(), claims.UserID, test, h.now())
	if err != nil {
		failEngine(c, h.log, testID, err)
		return
	}

	response.Success(c, http.StatusOK, status)
}

// ViewQuestion godoc
// GET /api/v1/tests/:test_id/attempt/question?question=N
// Returns question N (1-based, default 1). Past the deadline the attempt is
// finalized and the body carries the result instead.
func (h *AttemptHandler) ViewQuestion(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	var q questionQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if q.Question == 0 {
		q.Question = 1
	}

	state, err := h.engine.ViewQuestion(context.WithoutCancel(c.Request.Context()), claims.UserID, testID, q.Question, h.now())
	if err != nil {
		failEngine(c, h.log, testID, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// SaveAnswer godoc
// PUT /api/v1/tests/:test_id/attempt/answers
// Upserts the selection for one question of the attempt.
func (h *AttemptHandler) SaveAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	out, err := h.engine.SaveAnswer(context.WithoutCancel(c.Request.Context()), claims.UserID, testID, req.QuestionID, req.SelectedAnswer, h.now())
	if err != nil {
		failEngine(c, h.log, testID, err)
		return
	}

	response.Success(c, http.StatusOK, out)
}

// SubmitAttempt godoc
// POST /api/v1/tests/:test_id/attempt/submit
// Finalizes the attempt. Repeating the call returns the same result.
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	res, err := h.engine.SubmitAttempt(context.WithoutCancel(c.Request.Context()), claims.UserID, testID, h.now())
	if err != nil {
		failEngine(c, h.log, testID, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": res})
}

// GetResult godoc
// GET /api/v1/tests/:test_id/result
func (h *AttemptHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	res, err := h.results.ResultDetail(c.Request.Context(), claims.UserID, testID)
	if errors.Is(err, engine.ErrNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrResultNotFound)
		return
	}
	if err != nil {
		failEngine(c, h.log, testID, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": res})
}
