package redisstore

import (
	"testing"

	"github.com/stemsi/exstem-session/internal/model"
)

func TestParseMember(t *testing.T) {
	tests := []struct {
		in      string
		want    model.AttemptRef
		wantErr bool
	}{
		{in: member(12, 34), want: model.AttemptRef{UserID: 12, TestID: 34}},
		{in: "1:2", want: model.AttemptRef{UserID: 1, TestID: 2}},
		{in: "12", wantErr: true},
		{in: "x:2", wantErr: true},
		{in: "1:y", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseMember(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseMember(%q) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseMember(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("parseMember(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
