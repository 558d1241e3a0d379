package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ironhack/taskithub/pkg/api"
	"github.com/ironhack/taskithub/pkg/auth"
)

// MemoryStorage is an in-process api.Storage backed by maps. It is the default
// backend and the one used by tests. Safe for concurrent use.
type MemoryStorage struct {
	mu sync.RWMutex

	users       map[int64]*api.User
	departments map[int64]*api.Department
	tasks       map[int64]*api.Task

	nextUserID       int64
	nextDepartmentID int64
	nextTaskID       int64
}

// NewMemoryStorage creates an empty in-memory store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:       make(map[int64]*api.User),
		departments: make(map[int64]*api.Department),
		tasks:       make(map[int64]*api.Task),
	}
}

// FindCredentialByUsername implements auth.CredentialLookup
func (s *MemoryStorage) FindCredentialByUsername(ctx context.Context, username string) (*auth.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Username == username {
			return &auth.Credential{
				Username:     user.Username,
				PasswordHash: user.PasswordHash,
				Authority:    auth.Authority(user.Role),
			}, nil
		}
	}
	return nil, api.ErrNotFound
}

// CreateUser adds a user, rejecting duplicate usernames
func (s *MemoryStorage) CreateUser(ctx context.Context, user *api.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username {
			return api.ErrConflict
		}
	}

	s.nextUserID++
	user.ID = s.nextUserID
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	s.users[user.ID] = &stored
	return nil
}

// GetUser returns the user with derived task assignments
func (s *MemoryStorage) GetUser(ctx context.Context, id int64) (*api.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, api.ErrNotFound
	}
	return s.userCopy(user), nil
}

// GetUserByUsername returns the user with the given username
func (s *MemoryStorage) GetUserByUsername(ctx context.Context, username string) (*api.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Username == username {
			return s.userCopy(user), nil
		}
	}
	return nil, api.ErrNotFound
}

// ListUsers returns all users ordered by id
func (s *MemoryStorage) ListUsers(ctx context.Context) ([]*api.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*api.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, s.userCopy(user))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// UpdateUser persists the full user record
func (s *MemoryStorage) UpdateUser(ctx context.Context, user *api.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return api.ErrNotFound
	}
	for _, other := range s.users {
		if other.ID != user.ID && other.Username == user.Username {
			return api.ErrConflict
		}
	}

	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = time.Now()
	stored := *user
	s.users[user.ID] = &stored
	return nil
}

// DeleteUser removes the user and detaches them from all tasks
func (s *MemoryStorage) DeleteUser(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return api.ErrNotFound
	}

	for _, task := range s.tasks {
		if task.CreatedByID != nil && *task.CreatedByID == id {
			task.CreatedByID = nil
		}
		task.AssignedUserIDs = removeID(task.AssignedUserIDs, id)
	}

	delete(s.users, id)
	return nil
}

// CreateDepartment adds a department, rejecting duplicate names
func (s *MemoryStorage) CreateDepartment(ctx context.Context, department *api.Department) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.departments {
		if existing.Name == department.Name {
			return api.ErrConflict
		}
	}

	s.nextDepartmentID++
	department.ID = s.nextDepartmentID
	now := time.Now()
	department.CreatedAt = now
	department.UpdatedAt = now

	stored := *department
	s.departments[department.ID] = &stored
	return nil
}

// GetDepartment returns the department with derived member and task lists
func (s *MemoryStorage) GetDepartment(ctx context.Context, id int64) (*api.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	department, ok := s.departments[id]
	if !ok {
		return nil, api.ErrNotFound
	}
	return s.departmentCopy(department), nil
}

// ListDepartments returns all departments ordered by id
func (s *MemoryStorage) ListDepartments(ctx context.Context) ([]*api.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	departments := make([]*api.Department, 0, len(s.departments))
	for _, department := range s.departments {
		departments = append(departments, s.departmentCopy(department))
	}
	sort.Slice(departments, func(i, j int) bool { return departments[i].ID < departments[j].ID })
	return departments, nil
}

// UpdateDepartment persists the department record
func (s *MemoryStorage) UpdateDepartment(ctx context.Context, department *api.Department) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.departments[department.ID]
	if !ok {
		return api.ErrNotFound
	}

	department.CreatedAt = existing.CreatedAt
	department.UpdatedAt = time.Now()
	stored := *department
	s.departments[department.ID] = &stored
	return nil
}

// DeleteDepartment removes the department and detaches users and tasks
func (s *MemoryStorage) DeleteDepartment(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.departments[id]; !ok {
		return api.ErrNotFound
	}

	for _, user := range s.users {
		if user.DepartmentID != nil && *user.DepartmentID == id {
			user.DepartmentID = nil
		}
	}
	for _, task := range s.tasks {
		if task.DepartmentID != nil && *task.DepartmentID == id {
			task.DepartmentID = nil
		}
	}

	delete(s.departments, id)
	return nil
}

// CreateTask adds a task
func (s *MemoryStorage) CreateTask(ctx context.Context, task *api.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTaskID++
	task.ID = s.nextTaskID
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	stored := *task
	stored.AssignedUserIDs = append([]int64(nil), task.AssignedUserIDs...)
	s.tasks[task.ID] = &stored
	return nil
}

// GetTask returns the task by id
func (s *MemoryStorage) GetTask(ctx context.Context, id int64) (*api.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, api.ErrNotFound
	}
	return taskCopy(task), nil
}

// ListTasks returns all tasks ordered by id
func (s *MemoryStorage) ListTasks(ctx context.Context) ([]*api.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]*api.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, taskCopy(task))
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

// UpdateTask persists the task record
func (s *MemoryStorage) UpdateTask(ctx context.Context, task *api.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[task.ID]
	if !ok {
		return api.ErrNotFound
	}

	task.CreatedAt = existing.CreatedAt
	task.UpdatedAt = time.Now()
	stored := *task
	stored.AssignedUserIDs = append([]int64(nil), task.AssignedUserIDs...)
	s.tasks[task.ID] = &stored
	return nil
}

// DeleteTask removes the task
func (s *MemoryStorage) DeleteTask(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return api.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

// HealthCheck always succeeds for the in-memory backend
func (s *MemoryStorage) HealthCheck(ctx context.Context) error { return nil }

// Close is a no-op for the in-memory backend
func (s *MemoryStorage) Close() error { return nil }

// userCopy clones a user and fills TaskIDs from current assignments.
// Caller must hold at least the read lock.
func (s *MemoryStorage) userCopy(user *api.User) *api.User {
	copied := *user
	copied.TaskIDs = nil
	for _, task := range s.tasks {
		for _, assignee := range task.AssignedUserIDs {
			if assignee == user.ID {
				copied.TaskIDs = append(copied.TaskIDs, task.ID)
			}
		}
	}
	sort.Slice(copied.TaskIDs, func(i, j int) bool { return copied.TaskIDs[i] < copied.TaskIDs[j] })
	return &copied
}

// departmentCopy clones a department and fills member and task id lists.
// Caller must hold at least the read lock.
func (s *MemoryStorage) departmentCopy(department *api.Department) *api.Department {
	copied := *department
	copied.UserIDs = nil
	copied.TaskIDs = nil
	for _, user := range s.users {
		if user.DepartmentID != nil && *user.DepartmentID == department.ID {
			copied.UserIDs = append(copied.UserIDs, user.ID)
		}
	}
	for _, task := range s.tasks {
		if task.DepartmentID != nil && *task.DepartmentID == department.ID {
			copied.TaskIDs = append(copied.TaskIDs, task.ID)
		}
	}
	sort.Slice(copied.UserIDs, func(i, j int) bool { return copied.UserIDs[i] < copied.UserIDs[j] })
	sort.Slice(copied.TaskIDs, func(i, j int) bool { return copied.TaskIDs[i] < copied.TaskIDs[j] })
	return &copied
}

func taskCopy(task *api.Task) *api.Task {
	copied := *task
	copied.AssignedUserIDs = append([]int64(nil), task.AssignedUserIDs...)
	return &copied
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
