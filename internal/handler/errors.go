package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/engine"
	"github.com/stemsi/exstem-session/internal/response"
)

func resultPath(testID int64) string {
	return fmt.Sprintf("/api/v1/tests/%d/result", testID)
}

func submitPath(testID int64) string {
	return fmt.Sprintf("/api/v1/tests/%d/attempt/submit", testID)
}

// failEngine maps engine errors onto the API envelope. Anything it does not
// recognise is a storage failure: logged and reported as retryable.
func failEngine(c *gin.Context, log zerolog.Logger, testID int64, err error) {
	switch {
	case errors.Is(err, engine.ErrAlreadyCompleted):
		response.FailWithRedirect(c, http.StatusConflict, response.ErrAlreadyCompleted, resultPath(testID))
	case errors.Is(err, engine.ErrDeadlineExceeded):
		response.FailWithRedirect(c, http.StatusConflict, response.ErrDeadlineExceeded, submitPath(testID))
	case errors.Is(err, engine.ErrAttemptAlreadyActive):
		response.Fail(c, http.StatusConflict, response.ErrAttemptAlreadyActive)
	case errors.Is(err, engine.ErrNoActiveAttempt):
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveAttempt)
	case errors.Is(err, engine.ErrQuestionNotInAttempt):
		response.Fail(c, http.StatusBadRequest, response.ErrQuestionNotInAttempt)
	case errors.Is(err, engine.ErrPositionOutOfRange):
		response.Fail(c, http.StatusBadRequest, response.ErrPositionOutOfRange)
	case errors.Is(err, engine.ErrTestNotAvailable):
		response.Fail(c, http.StatusForbidden, response.ErrTestNotAvailable)
	case errors.Is(err, engine.ErrInsufficientQuestions):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrInsufficientQuestions)
	case errors.Is(err, engine.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, engine.ErrLockNotAcquired):
		c.Header("Retry-After", "1")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrAttemptBusy)
	default:
		log.Error().Err(err).
			Str("request_id", response.RequestID(c)).
			Int64("test_id", testID).
			Msg("Attempt operation failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
