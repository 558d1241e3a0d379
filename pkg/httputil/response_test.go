package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestWriteJSON tests status code and content type handling
func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := WriteJSON(rec, http.StatusCreated, map[string]string{"key": "value"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %v, want application/json", ct)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["key"] != "value" {
		t.Errorf("body = %v, want key=value", body)
	}
}

// TestErrorWriters tests the error helper status codes and body shape
func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name       string
		write      func(http.ResponseWriter)
		wantStatus int
	}{
		{name: "bad request", write: func(w http.ResponseWriter) { WriteBadRequest(w, "nope") }, wantStatus: 400},
		{name: "unauthorized", write: func(w http.ResponseWriter) { WriteUnauthorized(w, "nope") }, wantStatus: 401},
		{name: "forbidden", write: func(w http.ResponseWriter) { WriteForbidden(w, "nope") }, wantStatus: 403},
		{name: "not found", write: func(w http.ResponseWriter) { WriteNotFoundError(w, "nope") }, wantStatus: 404},
		{name: "conflict", write: func(w http.ResponseWriter) { WriteConflict(w, "nope") }, wantStatus: 409},
		{name: "internal", write: func(w http.ResponseWriter) { WriteInternalError(w, errors.New("nope")) }, wantStatus: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON body: %v", err)
			}
			if body["error"] != "nope" {
				t.Errorf(`body["error"] = %v, want "nope"`, body["error"])
			}
		})
	}
}

// TestWriteNoContent tests the empty 204 response
func TestWriteNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteNoContent(rec)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}
}
