package api

import (
	"errors"
	"net/http"

	"github.com/ironhack/taskithub/pkg/httputil"
	"github.com/ironhack/taskithub/pkg/middleware"
)

// TaskRequest is the payload for creating or updating a task
type TaskRequest struct {
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	AssignedUserIDs []int64 `json:"assigned_user_ids"`
	DepartmentID    *int64  `json:"department_id,omitempty"`
}

// createTask handles POST /tasks. The creator is taken from the authenticated
// identity, never from the payload.
func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Title, "title") {
		return
	}

	task := &Task{
		Title:           req.Title,
		Description:     req.Description,
		AssignedUserIDs: req.AssignedUserIDs,
		DepartmentID:    req.DepartmentID,
	}

	if identity := middleware.GetIdentity(r); identity != nil {
		creator, err := s.storage.GetUserByUsername(r.Context(), identity.Subject)
		if err == nil {
			task.CreatedByID = &creator.ID
		} else if !errors.Is(err, ErrNotFound) {
			httputil.WriteInternalError(w, err)
			return
		}
	}

	if err := s.storage.CreateTask(r.Context(), task); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteCreated(w, task)
}

// getTask handles GET /tasks/{id}
func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	task, err := s.storage.GetTask(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "task not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, task)
}

// listTasks handles GET /tasks
func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.storage.ListTasks(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*Task{}
	}
	httputil.WriteSuccess(w, tasks)
}

// updateTask handles PUT /tasks/{id}
func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req TaskRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Title, "title") {
		return
	}

	existing, err := s.storage.GetTask(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "task not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	existing.Title = req.Title
	existing.Description = req.Description
	existing.AssignedUserIDs = req.AssignedUserIDs
	existing.DepartmentID = req.DepartmentID

	if err := s.storage.UpdateTask(r.Context(), existing); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "task not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, existing)
}

// deleteTask handles DELETE /tasks/{id}
func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.storage.DeleteTask(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "task not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}
