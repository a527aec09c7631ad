package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type answerBody struct {
	QuestionID     int64  `json:"question_id" binding:"required,min=1"`
	SelectedAnswer string `json:"selected_answer" binding:"required,notblank,max=8"`
}

func bindBody(t *testing.T, body string) map[string]string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	Setup()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var dst answerBody
	return Bind(c, &dst)
}

func TestBind(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"valid", `{"question_id":3,"selected_answer":"B"}`, ""},
		{"missing question", `{"selected_answer":"B"}`, "question_id"},
		{"zero question", `{"question_id":0,"selected_answer":"B"}`, "question_id"},
		{"blank answer", `{"question_id":3,"selected_answer":"   "}`, "selected_answer"},
		{"too long", `{"question_id":3,"selected_answer":"abcdefghij"}`, "selected_answer"},
		{"bad json", `{"question_id":`, "detail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := bindBody(t, tt.body)
			if tt.wantField == "" {
				if fields != nil {
					t.Fatalf("unexpected errors: %v", fields)
				}
				return
			}
			if _, ok := fields[tt.wantField]; !ok {
				t.Fatalf("errors = %v, want key %q", fields, tt.wantField)
			}
		})
	}
}
