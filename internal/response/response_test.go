package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		page, perPage, total, wantPages int
	}{
		{1, 10, 0, 0},
		{1, 10, 10, 1},
		{2, 10, 11, 2},
		{1, 0, 5, 0},
	}
	for _, tt := range tests {
		p := NewPagination(tt.page, tt.perPage, tt.total)
		if p.TotalPages != tt.wantPages {
			t.Errorf("NewPagination(%d, %d, %d).TotalPages = %d, want %d", tt.page, tt.perPage, tt.total, p.TotalPages, tt.wantPages)
		}
	}
}

func TestEnvelopeCarriesRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ok", func(c *gin.Context) { Success(c, http.StatusOK, gin.H{"x": 1}) })
	r.GET("/done", func(c *gin.Context) {
		FailWithRedirect(c, http.StatusConflict, ErrAlreadyCompleted, "/api/v1/tests/1/result")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("X-Request-ID", "req-123")
	r.ServeHTTP(w, req)

	var ok Response
	if err := json.Unmarshal(w.Body.Bytes(), &ok); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ok.Metadata.RequestID != "req-123" || w.Header().Get("X-Request-ID") != "req-123" {
		t.Fatalf("request id not propagated: %+v", ok.Metadata)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/done", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("a", 200))
	r.ServeHTTP(w, req)

	var fail Response
	if err := json.Unmarshal(w.Body.Bytes(), &fail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.Code != http.StatusConflict || fail.Error == nil || fail.Error.Code != ErrAlreadyCompleted {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
	if fail.Error.Redirect != "/api/v1/tests/1/result" {
		t.Fatalf("redirect = %q", fail.Error.Redirect)
	}
	if len(fail.Metadata.RequestID) > maxRequestIDLen {
		t.Fatalf("oversized client request id was kept")
	}
}
