package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ironhack/taskithub/pkg/api"
	"github.com/ironhack/taskithub/pkg/observability"
	"github.com/ironhack/taskithub/pkg/storage"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	store := storage.NewMemoryStorage()
	logger := observability.NewLogger(observability.ParseLevel("error"), io.Discard)
	server := api.NewServer(store, logger, api.Options{
		TokenSecret:   []byte("test-secret"),
		TokenLifetime: time.Hour,
	})

	if err := server.BootstrapAdmin(context.Background(), "admin", "admin-pass"); err != nil {
		t.Fatalf("BootstrapAdmin() error = %v", err)
	}
	return server.Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, handler http.Handler, username, password string) string {
	t.Helper()

	rec := doJSON(t, handler, "POST", "/api/login", "", api.LoginRequest{
		Username: username,
		Password: password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp api.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("login returned empty access token")
	}
	return resp.AccessToken
}

// TestLogin tests the credential exchange endpoint
func TestLogin(t *testing.T) {
	handler := newTestServer(t)

	t.Run("valid credentials return a token", func(t *testing.T) {
		login(t, handler, "admin", "admin-pass")
	})

	t.Run("wrong password and unknown username are indistinguishable", func(t *testing.T) {
		wrongPass := doJSON(t, handler, "POST", "/api/login", "", api.LoginRequest{Username: "admin", Password: "nope"})
		unknown := doJSON(t, handler, "POST", "/api/login", "", api.LoginRequest{Username: "ghost", Password: "nope"})

		if wrongPass.Code != http.StatusUnauthorized {
			t.Errorf("wrong password status = %d, want 401", wrongPass.Code)
		}
		if unknown.Code != http.StatusUnauthorized {
			t.Errorf("unknown username status = %d, want 401", unknown.Code)
		}
		if wrongPass.Body.String() != unknown.Body.String() {
			t.Errorf("response bodies differ:\n%s\n%s", wrongPass.Body.String(), unknown.Body.String())
		}
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/login", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("login works with a stale token attached", func(t *testing.T) {
		rec := doJSON(t, handler, "POST", "/api/login", "garbage-token", api.LoginRequest{
			Username: "admin", Password: "admin-pass",
		})
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

// TestAccessControl tests the policy enforcement end to end
func TestAccessControl(t *testing.T) {
	handler := newTestServer(t)
	adminToken := login(t, handler, "admin", "admin-pass")

	// Create a regular user to exercise the USER authority
	rec := doJSON(t, handler, "POST", "/users", adminToken, api.CreateUserRequest{
		Name: "Alice", Username: "alice", Password: "alice-pass", Role: "USER",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user status = %d, body = %s", rec.Code, rec.Body.String())
	}
	userToken := login(t, handler, "alice", "alice-pass")

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       interface{}
		wantStatus int
	}{
		{
			name:       "anonymous cannot create departments",
			method:     "POST",
			path:       "/departments",
			body:       api.DepartmentRequest{Name: "Sales"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "anonymous cannot list users",
			method:     "GET",
			path:       "/users",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "user cannot create users",
			method:     "POST",
			path:       "/users",
			token:      userToken,
			body:       api.CreateUserRequest{Username: "eve", Password: "x"},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "user cannot delete users",
			method:     "DELETE",
			path:       "/users/1",
			token:      userToken,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "user cannot list departments",
			method:     "GET",
			path:       "/departments",
			token:      userToken,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "user can list tasks",
			method:     "GET",
			path:       "/tasks",
			token:      userToken,
			wantStatus: http.StatusOK,
		},
		{
			name:       "user can list users",
			method:     "GET",
			path:       "/users",
			token:      userToken,
			wantStatus: http.StatusOK,
		},
		{
			name:       "admin can list departments",
			method:     "GET",
			path:       "/departments",
			token:      adminToken,
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid token is rejected outright",
			method:     "GET",
			path:       "/tasks",
			token:      "tampered-token",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, handler, tt.method, tt.path, tt.token, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d, body = %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

// TestUserLifecycle tests user CRUD through the API
func TestUserLifecycle(t *testing.T) {
	handler := newTestServer(t)
	adminToken := login(t, handler, "admin", "admin-pass")

	rec := doJSON(t, handler, "POST", "/users", adminToken, api.CreateUserRequest{
		Name: "Alice", Username: "alice", Password: "alice-pass",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var created api.User
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created user: %v", err)
	}
	if created.Role != "USER" {
		t.Errorf("Role = %v, want USER default", created.Role)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("password")) {
		t.Error("create response leaks password material")
	}

	t.Run("duplicate username conflicts", func(t *testing.T) {
		rec := doJSON(t, handler, "POST", "/users", adminToken, api.CreateUserRequest{
			Username: "alice", Password: "other",
		})
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("get by username", func(t *testing.T) {
		rec := doJSON(t, handler, "GET", "/users/username/alice", adminToken, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("update changes password", func(t *testing.T) {
		rec := doJSON(t, handler, "PUT", "/users/2", adminToken, api.UpdateUserRequest{
			Name: "Alice B", Username: "alice", Password: "new-pass",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		login(t, handler, "alice", "new-pass")
	})

	t.Run("delete then 404", func(t *testing.T) {
		rec := doJSON(t, handler, "DELETE", "/users/2", adminToken, nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("delete status = %d", rec.Code)
		}
		rec = doJSON(t, handler, "GET", "/users/2", adminToken, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("get after delete status = %d, want 404", rec.Code)
		}
	})
}

// TestTaskLifecycle tests task CRUD and creator attribution
func TestTaskLifecycle(t *testing.T) {
	handler := newTestServer(t)
	adminToken := login(t, handler, "admin", "admin-pass")

	rec := doJSON(t, handler, "POST", "/tasks", adminToken, api.TaskRequest{
		Title:       "Ship release",
		Description: "cut the tag",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var task api.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	if task.CreatedByID == nil {
		t.Error("CreatedByID = nil, want the admin's id")
	}

	t.Run("update", func(t *testing.T) {
		rec := doJSON(t, handler, "PUT", "/tasks/1", adminToken, api.TaskRequest{
			Title: "Ship release", Description: "tag pushed", AssignedUserIDs: []int64{1},
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		var updated api.Task
		if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
			t.Fatalf("decode task: %v", err)
		}
		if len(updated.AssignedUserIDs) != 1 || updated.AssignedUserIDs[0] != 1 {
			t.Errorf("AssignedUserIDs = %v, want [1]", updated.AssignedUserIDs)
		}
	})

	t.Run("missing title is 400", func(t *testing.T) {
		rec := doJSON(t, handler, "POST", "/tasks", adminToken, api.TaskRequest{Description: "no title"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("delete then 404", func(t *testing.T) {
		rec := doJSON(t, handler, "DELETE", "/tasks/1", adminToken, nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("delete status = %d", rec.Code)
		}
		rec = doJSON(t, handler, "GET", "/tasks/1", adminToken, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("get after delete status = %d, want 404", rec.Code)
		}
	})
}

// TestDepartmentLifecycle tests department CRUD through the API
func TestDepartmentLifecycle(t *testing.T) {
	handler := newTestServer(t)
	adminToken := login(t, handler, "admin", "admin-pass")

	rec := doJSON(t, handler, "POST", "/departments", adminToken, api.DepartmentRequest{Name: "Engineering"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}

	t.Run("duplicate name conflicts", func(t *testing.T) {
		rec := doJSON(t, handler, "POST", "/departments", adminToken, api.DepartmentRequest{Name: "Engineering"})
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("rename", func(t *testing.T) {
		rec := doJSON(t, handler, "PUT", "/departments/1", adminToken, api.DepartmentRequest{Name: "Platform"})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("delete then 404", func(t *testing.T) {
		rec := doJSON(t, handler, "DELETE", "/departments/1", adminToken, nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("delete status = %d", rec.Code)
		}
		rec = doJSON(t, handler, "GET", "/departments/1", adminToken, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("get after delete status = %d, want 404", rec.Code)
		}
	})
}

// TestBootstrapAdminIdempotent tests that bootstrap never overwrites an
// existing account
func TestBootstrapAdminIdempotent(t *testing.T) {
	store := storage.NewMemoryStorage()
	logger := observability.NewLogger(observability.ParseLevel("error"), io.Discard)
	server := api.NewServer(store, logger, api.Options{TokenSecret: []byte("test-secret")})

	if err := server.BootstrapAdmin(context.Background(), "admin", "first-pass"); err != nil {
		t.Fatalf("BootstrapAdmin() error = %v", err)
	}
	if err := server.BootstrapAdmin(context.Background(), "admin", "second-pass"); err != nil {
		t.Fatalf("BootstrapAdmin() second run error = %v", err)
	}

	handler := server.Handler()
	login(t, handler, "admin", "first-pass")

	rec := doJSON(t, handler, "POST", "/api/login", "", api.LoginRequest{Username: "admin", Password: "second-pass"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("login with second password status = %d, want 401", rec.Code)
	}
}
