// Package sqlite implements api.Storage on SQLite via database/sql and
// mattn/go-sqlite3, for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/ironhack/taskithub/pkg/api"
	"github.com/ironhack/taskithub/pkg/auth"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS departments (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		name          TEXT NOT NULL DEFAULT '',
		username      TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL,
		department_id INTEGER REFERENCES departments(id) ON DELETE SET NULL,
		created_at    TIMESTAMP NOT NULL,
		updated_at    TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		title         TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		created_by    INTEGER REFERENCES users(id) ON DELETE SET NULL,
		department_id INTEGER REFERENCES departments(id) ON DELETE SET NULL,
		created_at    TIMESTAMP NOT NULL,
		updated_at    TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS task_assignees (
		task_id INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		PRIMARY KEY (task_id, user_id)
	)`,
}

// Storage implements api.Storage on SQLite
type Storage struct {
	db *sql.DB
}

// NewStorage opens (or creates) the database file and applies the schema.
// Foreign keys are enabled so user/department deletes detach references the
// same way the PostgreSQL backend does.
func NewStorage(path string) (*Storage, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}
	return &Storage{db: db}, nil
}

// FindCredentialByUsername implements auth.CredentialLookup
func (s *Storage) FindCredentialByUsername(ctx context.Context, username string) (*auth.Credential, error) {
	cred := &auth.Credential{}
	var role string
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password_hash, role FROM users WHERE username = ?
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
	now := time.Now()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO users (name, username, password_hash, role, department_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, user.Name, user.Username, user.PasswordHash, user.Role, user.DepartmentID, now, now)
	if isUniqueViolation(err) {
		return api.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.ID, _ = result.LastInsertId()
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetUser returns the user with assigned task ids
func (s *Storage) GetUser(ctx context.Context, id int64) (*api.User, error) {
	return s.getUser(ctx, `WHERE id = ?`, id)
}

// GetUserByUsername returns the user with the given username
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*api.User, error) {
	return s.getUser(ctx, `WHERE username = ?`, username)
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

	taskIDs, err := s.collectIDs(ctx,
		`SELECT task_id FROM task_assignees WHERE user_id = ? ORDER BY task_id`, user.ID)
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
		if user.TaskIDs, err = s.collectIDs(ctx,
			`SELECT task_id FROM task_assignees WHERE user_id = ? ORDER BY task_id`, user.ID); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// UpdateUser persists the full user record
func (s *Storage) UpdateUser(ctx context.Context, user *api.User) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET name = ?, username = ?, password_hash = ?, role = ?, department_id = ?, updated_at = ?
		WHERE id = ?
	`, user.Name, user.Username, user.PasswordHash, user.Role, user.DepartmentID, time.Now(), user.ID)
	if isUniqueViolation(err) {
		return api.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireRowAffected(result)
}

// DeleteUser removes the user; references are detached by the foreign keys
func (s *Storage) DeleteUser(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireRowAffected(result)
}

// CreateDepartment inserts a department
func (s *Storage) CreateDepartment(ctx context.Context, department *api.Department) error {
	now := time.Now()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO departments (name, created_at, updated_at) VALUES (?, ?, ?)
	`, department.Name, now, now)
	if isUniqueViolation(err) {
		return api.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create department: %w", err)
	}
	department.ID, _ = result.LastInsertId()
	department.CreatedAt = now
	department.UpdatedAt = now
	return nil
}

// GetDepartment returns the department with member and task id lists
func (s *Storage) GetDepartment(ctx context.Context, id int64) (*api.Department, error) {
	department := &api.Department{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at FROM departments WHERE id = ?
	`, id).Scan(&department.ID, &department.Name, &department.CreatedAt, &department.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, api.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}

	if department.UserIDs, err = s.collectIDs(ctx,
		`SELECT id FROM users WHERE department_id = ? ORDER BY id`, id); err != nil {
		return nil, err
	}
	if department.TaskIDs, err = s.collectIDs(ctx,
		`SELECT id FROM tasks WHERE department_id = ? ORDER BY id`, id); err != nil {
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
		UPDATE departments SET name = ?, updated_at = ? WHERE id = ?
	`, department.Name, time.Now(), department.ID)
	if isUniqueViolation(err) {
		return api.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to update department: %w", err)
	}
	return requireRowAffected(result)
}

// DeleteDepartment removes the department
func (s *Storage) DeleteDepartment(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM departments WHERE id = ?`, id)
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

	now := time.Now()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO tasks (title, description, created_by, department_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, task.Title, task.Description, task.CreatedByID, task.DepartmentID, now, now)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	task.ID, _ = result.LastInsertId()
	task.CreatedAt = now
	task.UpdatedAt = now

	for _, userID := range task.AssignedUserIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO task_assignees (task_id, user_id) VALUES (?, ?)
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
		FROM tasks WHERE id = ?
	`, id).Scan(&task.ID, &task.Title, &task.Description, &task.CreatedByID,
		&task.DepartmentID, &task.CreatedAt, &task.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, api.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	if task.AssignedUserIDs, err = s.collectIDs(ctx,
		`SELECT user_id FROM task_assignees WHERE task_id = ? ORDER BY user_id`, id); err != nil {
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
			`SELECT user_id FROM task_assignees WHERE task_id = ? ORDER BY user_id`, task.ID); err != nil {
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
		UPDATE tasks SET title = ?, description = ?, department_id = ?, updated_at = ?
		WHERE id = ?
	`, task.Title, task.Description, task.DepartmentID, time.Now(), task.ID)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if err := requireRowAffected(result); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_assignees WHERE task_id = ?`, task.ID); err != nil {
		return fmt.Errorf("failed to clear task assignments: %w", err)
	}
	for _, userID := range task.AssignedUserIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO task_assignees (task_id, user_id) VALUES (?, ?)
		`, task.ID, userID); err != nil {
			return fmt.Errorf("failed to assign task: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteTask removes the task
func (s *Storage) DeleteTask(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return requireRowAffected(result)
}

// HealthCheck pings the database
func (s *Storage) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
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
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
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
