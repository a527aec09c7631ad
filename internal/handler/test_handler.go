package handler

import (
	"context"
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

// TestLister reads the tests a participant can see.
type TestLister interface {
	engine.TestCatalog
	ListAvailable(ctx context.Context, now time.Time, limit, offset int) ([]model.TestDefinition, int, error)
}

// TestHandler serves the participant lobby.
type TestHandler struct {
	tests  TestLister
	engine *engine.Engine
	now    func() time.Time
	log    zerolog.Logger
}

// NewTestHandler creates a new TestHandler.
func NewTestHandler(tests TestLister, eng *engine.Engine, log zerolog.Logger) *TestHandler {
	return &TestHandler{
		tests:  tests,
		engine: eng,
		now:    time.Now,
		log:    log.With().Str("component", "test_handler").Logger(),
	}
}

type listQuery struct {
	Page    int `form:"page" binding:"omitempty,min=1"`
	PerPage int `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// lobbyTest is a test plus the caller's status on it.
type lobbyTest struct {
	model.TestDefinition
	Attempt *engine.StatusView `json:"attempt"`
}

// ListTests godoc
// GET /api/v1/tests?page=1&per_page=20
// Lists tests open right now, newest first, with the caller's status on each.
func (h *TestHandler) ListTests(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var q listQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PerPage == 0 {
		q.PerPage = 20
	}

	ctx := c.Request.Context()
	now := h.now()

	tests, total, err := h.tests.ListAvailable(ctx, now, q.PerPage, (q.Page-1)*q.PerPage)
	if err != nil {
		h.log.Error().Err(err).Msg("List tests failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	out := make([]lobbyTest, 0, len(tests))
	for i := range tests {
		status, err := h.engine.AttemptStatus(ctx, claims.UserID, &tests[i], now)
		if err != nil {
			h.log.Error().Err(err).Int64("test_id", tests[i].ID).Msg("Attempt status failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}
		out = append(out, lobbyTest{TestDefinition: tests[i], Attempt: status})
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"tests": out},
		response.NewPagination(q.Page, q.PerPage, total))
}

// GetTest godoc
// GET /api/v1/tests/:test_id
// Returns the test details. A completed test redirects to its result.
func (h *TestHandler) GetTest(c *gin.Context) {
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
	if status.Status == engine.StatusCompleted {
		failEngine(c, h.log, testID, engine.ErrAlreadyCompleted)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": lobbyTest{TestDefinition: *test, Attempt: status}})
}
