// Package auth validates bearer tokens issued by the login service and
// enforces one active device per participant.
package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-session/internal/config"
)

// Common auth errors.
var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrNoActiveLogin      = errors.New("no active login")
	ErrSessionInvalidated = errors.New("session invalidated")
)

// TokenType distinguishes participants from proctors.
type TokenType string

const (
	TokenTypeParticipant TokenType = "participant"
	TokenTypeProctor     TokenType = "proctor"
)

// PermissionMonitorAttempts lets a proctor watch live attempts of a test.
const PermissionMonitorAttempts = "attempts:monitor"

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType   TokenType `json:"token_type"`
	UserID      int64     `json:"user_id"`
	Permissions []string  `json:"permissions,omitempty"` // Proctor only
}

// HasPermission reports whether the token carries code.
func (c *Claims) HasPermission(code string) bool {
	return slices.Contains(c.Permissions, code)
}

// Service validates tokens and login sessions.
type Service struct {
	secret []byte
	rdb    *redis.Client
}

// NewService creates a Service. rdb may be nil, which disables the
// single-device check.
func NewService(cfg *config.Config, rdb *redis.Client) *Service {
	return &Service{secret: []byte(cfg.JWTSecret), rdb: rdb}
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *Service) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	if claims.Subject != "" && claims.Subject != strconv.FormatInt(claims.UserID, 10) {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// ValidateSession checks that the token's JTI matches the login registered
// for the user. A second device logging in replaces the JTI, so the first
// device's requests fail from then on.
func (s *Service) ValidateSession(ctx context.Context, userID int64, jti string) error {
	if s.rdb == nil {
		return nil
	}

	stored, err := s.rdb.Get(ctx, config.CacheKey.UserLoginKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNoActiveLogin
		}
		return fmt.Errorf("check session: %w", err)
	}
	if stored != jti {
		return ErrSessionInvalidated
	}
	return nil
}
