package api

import (
	"errors"
	"net/http"

	"github.com/ironhack/taskithub/pkg/auth"
	"github.com/ironhack/taskithub/pkg/httputil"
)

// CreateUserRequest is the payload for creating a user
type CreateUserRequest struct {
	Name         string `json:"name"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	Role         string `json:"role"`
	DepartmentID *int64 `json:"department_id,omitempty"`
}

// UpdateUserRequest is the payload for updating a user. Password is optional;
// when empty the stored hash is kept.
type UpdateUserRequest struct {
	Name         string `json:"name"`
	Username     string `json:"username"`
	Password     string `json:"password,omitempty"`
	Role         string `json:"role"`
	DepartmentID *int64 `json:"department_id,omitempty"`
}

// createUser handles POST /users
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Username, "username") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Password, "password") {
		return
	}
	if req.Role == "" {
		req.Role = string(auth.AuthorityUser)
	}
	if !validRole(req.Role) {
		httputil.WriteBadRequest(w, "role must be ADMIN or USER")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("failed to process password"))
		return
	}

	user := &User{
		Name:         req.Name,
		Username:     req.Username,
		PasswordHash: hash,
		Role:         req.Role,
		DepartmentID: req.DepartmentID,
	}
	if err := s.storage.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, ErrConflict) {
			httputil.WriteConflict(w, "username already exists")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteCreated(w, user)
}

// getUser handles GET /users/{id}
func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	user, err := s.storage.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "user not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, user)
}

// getUserByUsername handles GET /users/username/{username}
func (s *Server) getUserByUsername(w http.ResponseWriter, r *http.Request) {
	username := httputil.GetPathVars(r)["username"]

	user, err := s.storage.GetUserByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "user not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, user)
}

// listUsers handles GET /users
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.storage.ListUsers(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if users == nil {
		users = []*User{}
	}
	httputil.WriteSuccess(w, users)
}

// updateUser handles PUT /users/{id}
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Username, "username") {
		return
	}
	if req.Role != "" && !validRole(req.Role) {
		httputil.WriteBadRequest(w, "role must be ADMIN or USER")
		return
	}

	existing, err := s.storage.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "user not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	existing.Name = req.Name
	existing.Username = req.Username
	existing.DepartmentID = req.DepartmentID
	if req.Role != "" {
		existing.Role = req.Role
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			httputil.WriteInternalError(w, errors.New("failed to process password"))
			return
		}
		existing.PasswordHash = hash
	}

	if err := s.storage.UpdateUser(r.Context(), existing); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httputil.WriteNotFoundError(w, "user not found")
		case errors.Is(err, ErrConflict):
			httputil.WriteConflict(w, "username already exists")
		default:
			httputil.WriteInternalError(w, err)
		}
		return
	}

	httputil.WriteSuccess(w, existing)
}

// deleteUser handles DELETE /users/{id}
func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.storage.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "user not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func validRole(role string) bool {
	return role == string(auth.AuthorityAdmin) || role == string(auth.AuthorityUser)
}
