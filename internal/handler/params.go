package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-session/internal/response"
)

// parseTestID reads :test_id, writing a 400 and returning false when it is
// not a positive integer.
func parseTestID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("test_id"), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}
