package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stemsi/exstem-session/internal/auth"
	"github.com/stemsi/exstem-session/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func signed(t *testing.T, tokenType auth.TokenType, perms ...string) string {
	t.Helper()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		TokenType:   tokenType,
		UserID:      9,
		Permissions: perms,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestRequireTokenTypes(t *testing.T) {
	svc := auth.NewService(&config.Config{JWTSecret: "secret"}, nil)

	r := gin.New()
	r.GET("/participant", RequireParticipant(svc), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/monitor", RequireProctor(svc), RequirePermission(auth.PermissionMonitorAttempts), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no token", "/participant", "", http.StatusUnauthorized},
		{"bad token", "/participant", "Bearer nope", http.StatusUnauthorized},
		{"participant ok", "/participant", "Bearer " + signed(t, auth.TokenTypeParticipant), http.StatusNoContent},
		{"proctor on participant route", "/participant", "Bearer " + signed(t, auth.TokenTypeProctor), http.StatusForbidden},
		{"proctor without permission", "/monitor", "Bearer " + signed(t, auth.TokenTypeProctor), http.StatusForbidden},
		{"proctor with permission", "/monitor", "Bearer " + signed(t, auth.TokenTypeProctor, auth.PermissionMonitorAttempts), http.StatusNoContent},
		{"query token", "/monitor?token=" + signed(t, auth.TokenTypeProctor, auth.PermissionMonitorAttempts), "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestRateLimiterRefills(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.allow("a") || !rl.allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("a") {
		t.Fatal("third request should be limited")
	}
	if !rl.allow("b") {
		t.Fatal("other visitors have their own bucket")
	}

	now = now.Add(time.Minute)
	if !rl.allow("a") {
		t.Fatal("bucket should refill after the interval")
	}
}

func TestBrotliCompressesLargeBodies(t *testing.T) {
	r := gin.New()
	r.Use(Brotli())
	large := strings.Repeat("question ", 500)
	r.GET("/large", func(c *gin.Context) { c.String(http.StatusOK, large) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/large", nil)
	req.Header.Set("Accept-Encoding", "gzip, br;q=0.9")
	r.ServeHTTP(w, req)

	if w.Header().Get("Content-Encoding") != "br" {
		t.Fatalf("large body not compressed")
	}
	body, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if string(body) != large {
		t.Fatalf("round trip mismatch")
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/small", nil)
	req.Header.Set("Accept-Encoding", "br")
	r.ServeHTTP(w, req)
	if w.Header().Get("Content-Encoding") != "" || w.Body.String() != "ok" {
		t.Fatalf("small body should pass through, got %q", w.Body.String())
	}
}
