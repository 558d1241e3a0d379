package storage

import (
	"context"
	"time"

	"github.com/ironhack/taskithub/pkg/api"
	"github.com/ironhack/taskithub/pkg/auth"
	"github.com/ironhack/taskithub/pkg/observability"
)

// InstrumentedStorage wraps an api.Storage and records per-operation counters
// and durations.
type InstrumentedStorage struct {
	inner   api.Storage
	backend string
	metrics *observability.Metrics
}

// NewInstrumentedStorage wraps store with operation metrics. The backend label
// should match Config.Type.
func NewInstrumentedStorage(store api.Storage, backend string, metrics *observability.Metrics) *InstrumentedStorage {
	return &InstrumentedStorage{inner: store, backend: backend, metrics: metrics}
}

func (s *InstrumentedStorage) record(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.StorageOperationsTotal.WithLabelValues(operation, s.backend, status).Inc()
	s.metrics.StorageOperationDuration.WithLabelValues(operation, s.backend).
		Observe(time.Since(start).Seconds())
}

func (s *InstrumentedStorage) FindCredentialByUsername(ctx context.Context, username string) (*auth.Credential, error) {
	start := time.Now()
	cred, err := s.inner.FindCredentialByUsername(ctx, username)
	s.record("find_credential", start, err)
	return cred, err
}

func (s *InstrumentedStorage) CreateUser(ctx context.Context, user *api.User) error {
	start := time.Now()
	err := s.inner.CreateUser(ctx, user)
	s.record("create_user", start, err)
	return err
}

func (s *InstrumentedStorage) GetUser(ctx context.Context, id int64) (*api.User, error) {
	start := time.Now()
	user, err := s.inner.GetUser(ctx, id)
	s.record("get_user", start, err)
	return user, err
}

func (s *InstrumentedStorage) GetUserByUsername(ctx context.Context, username string) (*api.User, error) {
	start := time.Now()
	user, err := s.inner.GetUserByUsername(ctx, username)
	s.record("get_user_by_username", start, err)
	return user, err
}

func (s *InstrumentedStorage) ListUsers(ctx context.Context) ([]*api.User, error) {
	start := time.Now()
	users, err := s.inner.ListUsers(ctx)
	s.record("list_users", start, err)
	return users, err
}

func (s *InstrumentedStorage) UpdateUser(ctx context.Context, user *api.User) error {
	start := time.Now()
	err := s.inner.UpdateUser(ctx, user)
	s.record("update_user", start, err)
	return err
}

func (s *InstrumentedStorage) DeleteUser(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.inner.DeleteUser(ctx, id)
	s.record("delete_user", start, err)
	return err
}

func (s *InstrumentedStorage) CreateDepartment(ctx context.Context, department *api.Department) error {
	start := time.Now()
	err := s.inner.CreateDepartment(ctx, department)
	s.record("create_department", start, err)
	return err
}

func (s *InstrumentedStorage) GetDepartment(ctx context.Context, id int64) (*api.Department, error) {
	start := time.Now()
	department, err := s.inner.GetDepartment(ctx, id)
	s.record("get_department", start, err)
	return department, err
}

func (s *InstrumentedStorage) ListDepartments(ctx context.Context) ([]*api.Department, error) {
	start := time.Now()
	departments, err := s.inner.ListDepartments(ctx)
	s.record("list_departments", start, err)
	return departments, err
}

func (s *InstrumentedStorage) UpdateDepartment(ctx context.Context, department *api.Department) error {
	start := time.Now()
	err := s.inner.UpdateDepartment(ctx, department)
	s.record("update_department", start, err)
	return err
}

func (s *InstrumentedStorage) DeleteDepartment(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.inner.DeleteDepartment(ctx, id)
	s.record("delete_department", start, err)
	return err
}

func (s *InstrumentedStorage) CreateTask(ctx context.Context, task *api.Task) error {
	start := time.Now()
	err := s.inner.CreateTask(ctx, task)
	s.record("create_task", start, err)
	return err
}

func (s *InstrumentedStorage) GetTask(ctx context.Context, id int64) (*api.Task, error) {
	start := time.Now()
	task, err := s.inner.GetTask(ctx, id)
	s.record("get_task", start, err)
	return task, err
}

func (s *InstrumentedStorage) ListTasks(ctx context.Context) ([]*api.Task, error) {
	start := time.Now()
	tasks, err := s.inner.ListTasks(ctx)
	s.record("list_tasks", start, err)
	return tasks, err
}

func (s *InstrumentedStorage) UpdateTask(ctx context.Context, task *api.Task) error {
	start := time.Now()
	err := s.inner.UpdateTask(ctx, task)
	s.record("update_task", start, err)
	return err
}

func (s *InstrumentedStorage) DeleteTask(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.inner.DeleteTask(ctx, id)
	s.record("delete_task", start, err)
	return err
}

func (s *InstrumentedStorage) HealthCheck(ctx context.Context) error {
	return s.inner.HealthCheck(ctx)
}

func (s *InstrumentedStorage) Close() error {
	return s.inner.Close()
}
