package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-session/internal/auth"
	"github.com/stemsi/exstem-session/internal/response"
)

const (
	// ContextKeyClaims is the Gin context key for JWT claims.
	ContextKeyClaims = "claims"
)

var errTokenMissing = errors.New("authorization header or token query required")

// RequireParticipant validates a participant JWT from the Authorization header.
func RequireParticipant(authService *auth.Service) gin.HandlerFunc {
	return requireTokenType(authService, auth.TokenTypeParticipant, response.ErrParticipantAccessOnly)
}

// RequireProctor validates a proctor JWT. The ?token= fallback lets
// browsers authenticate WebSocket upgrades, which cannot carry headers.
func RequireProctor(authService *auth.Service) gin.HandlerFunc {
	return requireTokenType(authService, auth.TokenTypeProctor, response.ErrProctorAccessOnly)
}

func requireTokenType(authService *auth.Service, want auth.TokenType, wrongType response.ErrCode) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := extractAndValidateClaims(c, authService)
		if err != nil {
			code := response.ErrTokenInvalid
			if errors.Is(err, errTokenMissing) {
				code = response.ErrTokenRequired
			}
			response.AbortFail(c, http.StatusUnauthorized, code)
			return
		}

		if claims.TokenType != want {
			response.AbortFail(c, http.StatusForbidden, wrongType)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetClaims retrieves the JWT claims from the Gin context.
func GetClaims(c *gin.Context) *auth.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}

func extractAndValidateClaims(c *gin.Context, authService *auth.Service) (*auth.Claims, error) {
	tokenStr := ""

	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		scheme, token, ok := strings.Cut(authHeader, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			tokenStr = strings.TrimSpace(token)
		}
	}

	if tokenStr == "" {
		tokenStr = c.Query("token")
	}

	if tokenStr == "" {
		return nil, errTokenMissing
	}

	return authService.ValidateToken(tokenStr)
}
