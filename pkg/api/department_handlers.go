package api

import (
	"errors"
	"net/http"

	"github.com/ironhack/taskithub/pkg/httputil"
)

// DepartmentRequest is the payload for creating or updating a department
type DepartmentRequest struct {
	Name string `json:"name"`
}

// createDepartment handles POST /departments
func (s *Server) createDepartment(w http.ResponseWriter, r *http.Request) {
	var req DepartmentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	department := &Department{Name: req.Name}
	if err := s.storage.CreateDepartment(r.Context(), department); err != nil {
		if errors.Is(err, ErrConflict) {
			httputil.WriteConflict(w, "department already exists")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteCreated(w, department)
}

// getDepartment handles GET /departments/{id}
func (s *Server) getDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	department, err := s.storage.GetDepartment(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "department not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, department)
}

// listDepartments handles GET /departments
func (s *Server) listDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := s.storage.ListDepartments(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if departments == nil {
		departments = []*Department{}
	}
	httputil.WriteSuccess(w, departments)
}

// updateDepartment handles PUT /departments/{id}
func (s *Server) updateDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req DepartmentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	existing, err := s.storage.GetDepartment(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "department not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	existing.Name = req.Name
	if err := s.storage.UpdateDepartment(r.Context(), existing); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httputil.WriteNotFoundError(w, "department not found")
		case errors.Is(err, ErrConflict):
			httputil.WriteConflict(w, "department already exists")
		default:
			httputil.WriteInternalError(w, err)
		}
		return
	}

	httputil.WriteSuccess(w, existing)
}

// deleteDepartment handles DELETE /departments/{id}
func (s *Server) deleteDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.storage.DeleteDepartment(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "department not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}
