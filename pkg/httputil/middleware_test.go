package httputil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/ironhack/taskithub/pkg/contextkeys"
	"github.com/ironhack/taskithub/pkg/observability"
)

// TestRequestIDMiddleware tests id generation and propagation
func TestRequestIDMiddleware(t *testing.T) {
	t.Run("generates an id when absent", func(t *testing.T) {
		var captured string
		handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = contextkeys.GetRequestID(r.Context())
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

		if captured == "" {
			t.Error("request id not set in context")
		}
		if rec.Header().Get("X-Request-ID") != captured {
			t.Errorf("header = %v, context = %v, want equal", rec.Header().Get("X-Request-ID"), captured)
		}
	})

	t.Run("propagates an incoming id", func(t *testing.T) {
		var captured string
		handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = contextkeys.GetRequestID(r.Context())
		}))

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Request-ID", "incoming-id")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if captured != "incoming-id" {
			t.Errorf("request id = %v, want incoming-id", captured)
		}
	})
}

// TestRecoveryMiddleware tests that panics become 500 responses
func TestRecoveryMiddleware(t *testing.T) {
	logger := observability.NewLogger(observability.ParseLevel("error"), io.Discard)
	handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

// TestChainOrder tests that the first middleware listed runs outermost
func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(tag("outer"), tag("inner"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	want := "outer,inner,handler"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("order = %v, want %v", got, want)
	}
}

// TestParsePathInt64 tests path parameter extraction through a mux route
func TestParsePathInt64(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantID  int64
		wantErr bool
	}{
		{name: "valid id", path: "/items/42", wantID: 42},
		{name: "non-numeric id", path: "/items/abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID int64
			var gotErr error

			router := mux.NewRouter()
			router.HandleFunc("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
				gotID, gotErr = ParsePathInt64(r, "id")
			})
			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", tt.path, nil))

			if (gotErr != nil) != tt.wantErr {
				t.Errorf("ParsePathInt64() error = %v, wantErr %v", gotErr, tt.wantErr)
			}
			if !tt.wantErr && gotID != tt.wantID {
				t.Errorf("ParsePathInt64() = %d, want %d", gotID, tt.wantID)
			}
		})
	}
}

// TestMaxBytesMiddleware tests request body size limiting
func TestMaxBytesMiddleware(t *testing.T) {
	handler := MaxBytesMiddleware(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			WriteBadRequest(w, "body too large")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("small body passes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("POST", "/", strings.NewReader("ok")))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("oversized body rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("POST", "/", strings.NewReader("way too long")))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}
