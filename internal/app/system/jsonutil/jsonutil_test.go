package jsonutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestError_WritesStatusAndBody(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusConflict, "already exists", "row 2: duplicate")

	if rec.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusConflict)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: got %q", ct)
	}

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "already exists" {
		t.Errorf("error: got %q", body.Error)
	}
	if len(body.Details) != 1 || body.Details[0] != "row 2: duplicate" {
		t.Errorf("details: got %v", body.Details)
	}
}

func TestDecode(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"name":"ICU"}`, false},
		{"empty", ``, true},
		{"unknown field", `{"name":"ICU","extra":1}`, true},
		{"trailing data", `{"name":"ICU"}{"name":"ER"}`, true},
		{"malformed", `{"name":`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := Decode(req, &p)
			if (err != nil) != tt.wantErr {
				t.Errorf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
