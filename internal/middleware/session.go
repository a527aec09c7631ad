package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/auth"
	"github.com/stemsi/exstem-session/internal/response"
)

// CheckSingleDeviceSession validates the JWT's JTI against the active login in Redis.
// A participant who logged in on another device loses this one.
func CheckSingleDeviceSession(authService *auth.Service, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		if claims.TokenType != auth.TokenTypeParticipant {
			c.Next()
			return
		}

		err := authService.ValidateSession(c.Request.Context(), claims.UserID, claims.ID)
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, auth.ErrNoActiveLogin), errors.Is(err, auth.ErrSessionInvalidated):
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
		default:
			log.Error().Err(err).Int64("user_id", claims.UserID).Msg("Session check failed")
			response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
		}
	}
}
