// Package postgres implements api.Storage on PostgreSQL via database/sql
// and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ironhack/taskithub/pkg/api"
	"github.com/ironhack/taskithub/pkg/auth"
)

// Config for the PostgreSQL backend
type Config struct {
	URL      string
	MaxConns int
	Timeout  time.Duration
}

// Storage implements api.Storage on PostgreSQL
type Storage struct {
	db *sql.DB
}

// NewStorage opens a connection pool, verifies connectivity, and applies the
// schema.
func NewStorage(cfg Config) (*Storage, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Storage{db: db}, nil
}

// NewStorageWithDB wraps an existing connection, used by tests
func NewStorageWithDB(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// FindCredentialByUsername implements auth.CredentialLookup
func (s *Storage) FindCredentialByUsername(ctx context.Context, username string) (*auth.Credential, error) {
	cred := &auth.Credential{}
	var role string
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password_hash, role FROM users WHERE username = $1
	`, username).Scan(&cred.Username, &cred.PasswordHash, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, api.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up credential: %w", err)
	}
	cred.Authority = auth.Authority(role)
	return cred, nil
}

// CreateUser inserts a user, returning api.ErrConflict for duplicate usernames
func (s *Storage) CreateUser(ctx context.Context, user *api.User) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (name, username, password_hash, role, department_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, user.Name, user.Username, user.PasswordHash, user.Role, user.DepartmentID).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if isUniqueViolation(err) {
		return api.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser returns the user with assigned task ids
func (s *Storage) GetUser(ctx context.Context, id int64) (*api.User, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

// GetUserByUsername returns the user with the given username
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*api.User, error) {
	return s.getUser(ctx, `WHERE username = $1`, username)
}

func (s *Storage) getUser(ctx context.Context, where string, arg interface{}) (*api.User, error) {
	user := &api.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, username, password_hash, role, department_id, created_at, updated_at
		FROM users `+where, arg).
		Scan(&user.ID, &user.Name, &user.Username, &user.PasswordHash, &user.Role,
			&user.DepartmentID, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, api.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	taskIDs, err := s.assignedTaskIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.TaskIDs = taskIDs
	return user, nil
}

// ListUsers returns all users ordered by id
func (s *Storage) ListUsers(ctx context.Context) ([]*api.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, username, password_hash, role, department_id, created_at, updated_at
		FROM users ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*api.User
	for rows.Next() {
		user := &api.User{}
		if err := rows.Scan(&user.ID, &user.Name, &user.Username, &user.PasswordHash,
			&user.Role, &user.DepartmentID, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, user := range users {
		taskIDs, err := s.assignedTaskIDs(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		user.TaskIDs = taskIDs
	}
	return users, nil
}

// UpdateUser persists the full user record
func (s *Storage) UpdateUser(ctx context.Context, user *api.User) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET name = $1, username = $2, password_hash = $3, role = $4,
		    department_id = $5, updated_at = NOW()
		WHERE id = $6
	`, user.Name, user.Username, user.PasswordHash, user.Role, user.DepartmentID, user.ID)
	if isUniqueViolation(err) {
		return api.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireRowAffected(result)
}

// DeleteUser removes the user; created-by references and assignments are
// detached by the schema's ON DELETE clauses.
func (s *Storage) DeleteUser(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireRowAffected(result)
}

// CreateDepartment inserts a department
func (s *Storage) CreateDepartment(ctx context.Context, department *api.Department) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO departments (name) VALUES ($1)
		RETURNING id, created_at, updated_at
	`, department.Name).Scan(&department.ID, &department.CreatedAt, &department.UpdatedAt)
	if isUniqueViolation(err) {
		return api.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create department: %w", err)
	}
	return nil
}

// GetDepartment returns the department with member and task id lists
func (s *Storage) GetDepartment(ctx context.Context, id int64) (*api.Department, error) {
	department := &api.Department{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at FROM departments WHERE id = $1
	`, id).Scan(&department.ID, &department.Name, &department.CreatedAt, &department.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, api.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}

	if department.UserIDs, err = s.collectIDs(ctx,
		`SELECT id FROM users WHERE department_id = $1 ORDER BY id`, id); err != nil {
		return nil, err
	}
	if department.TaskIDs, err = s.collectIDs(ctx,
		`SELECT id FROM tasks WHERE department_id = $1 ORDER BY id`, id); err != nil {
		return nil, err
	}
	return department, nil
}

// ListDepartments returns all departments ordered by id
func (s *Storage) ListDepartments(ctx context.Context) ([]*api.Department, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at FROM departments ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer rows.Close()

	var departments []*api.Department
	for rows.Next() {
		department := &api.Department{}
		if err := rows.Scan(&department.ID, &department.Name,
			&department.CreatedAt, &department.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		departments = append(departments, department)
	}
	return departments, rows.Err()
}

// UpdateDepartment persists the department record
func (s *Storage) UpdateDepartment(ctx context.Context, department *api.Department) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE departments SET name = $1, updated_at = NOW() WHERE id = $2
	`, department.Name, department.ID)
	if isUniqueViolation(err) {
		return api.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to update department: %w", err)
	}
	return requireRowAffected(result)
}

// DeleteDepartment removes the department; members and tasks are detached by
// the schema's ON DELETE SET NULL.
func (s *Storage) DeleteDepartment(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete department: %w", err)
	}
	return requireRowAffected(result)
}

// CreateTask inserts a task and its assignments
func (s *Storage) CreateTask(ctx context.Context, task *api.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO tasks (title, description, created_by, department_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, task.Title, task.Description, task.CreatedByID, task.DepartmentID).
		Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	for _, userID := range task.AssignedUserIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO task_assignees (task_id, user_id) VALUES ($1, $2)
		`, task.ID, userID); err != nil {
			return fmt.Errorf("failed to assign task: %w", err)
		}
	}

	return tx.Commit()
}

// GetTask returns the task with its assignee ids
func (s *Storage) GetTask(ctx context.Context, id int64) (*api.Task, error) {
	task := &api.Task{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, created_by, department_id, created_at, updated_at
		FROM tasks WHERE id = $1
	`, id).Scan(&task.ID, &task.Title, &task.Description, &task.CreatedByID,
		&task.DepartmentID, &task.CreatedAt, &task.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, api.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	if task.AssignedUserIDs, err = s.collectIDs(ctx,
		`SELECT user_id FROM task_assignees WHERE task_id = $1 ORDER BY user_id`, id); err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns all tasks ordered by id
func (s *Storage) ListTasks(ctx context.Context) ([]*api.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, created_by, department_id, created_at, updated_at
		FROM tasks ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*api.Task
	for rows.Next() {
		task := &api.Task{}
		if err := rows.Scan(&task.ID, &task.Title, &task.Description, &task.CreatedByID,
			&task.DepartmentID, &task.CreatedAt, &task.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, task := range tasks {
		if task.AssignedUserIDs, err = s.collectIDs(ctx,
			`SELECT user_id FROM task_assignees WHERE task_id = $1 ORDER BY user_id`, task.ID); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

// UpdateTask persists the task record and replaces its assignments
func (s *Storage) UpdateTask(ctx context.Context, task *api.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE tasks
		SET title = $1, description = $2, department_id = $3, updated_at = NOW()
		WHERE id = $4
	`, task.Title, task.Description, task.DepartmentID, task.ID)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if err := requireRowAffected(result); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_assignees WHERE task_id = $1`, task.ID); err != nil {
		return fmt.Errorf("failed to clear task assignments: %w", err)
	}
	for _, userID := range task.AssignedUserIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO task_assignees (task_id, user_id) VALUES ($1, $2)
		`, task.ID, userID); err != nil {
			return fmt.Errorf("failed to assign task: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteTask removes the task; assignments cascade
func (s *Storage) DeleteTask(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return requireRowAffected(result)
}

// HealthCheck pings the database
func (s *Storage) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) assignedTaskIDs(ctx context.Context, userID int64) ([]int64, error) {
	return s.collectIDs(ctx,
		`SELECT task_id FROM task_assignees WHERE user_id = $1 ORDER BY task_id`, userID)
}

func (s *Storage) collectIDs(ctx context.Context, query string, arg interface{}) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func requireRowAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return api.ErrNotFound
	}
	return nil
}
