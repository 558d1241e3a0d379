package api

import (
	"context"
	"errors"

	"github.com/ironhack/taskithub/pkg/auth"
)

// Storage errors shared by all backends
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Storage is the persistence contract the API server depends on. It embeds
// auth.CredentialLookup so the credential issuer can read login material
// through the same backend.
type Storage interface {
	auth.CredentialLookup

	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	UpdateUser(ctx context.Context, user *User) error
	// DeleteUser removes the user and detaches them from tasks they created
	// or were assigned to, mirroring reassignment-on-delete semantics.
	DeleteUser(ctx context.Context, id int64) error

	// Departments
	CreateDepartment(ctx context.Context, department *Department) error
	GetDepartment(ctx context.Context, id int64) (*Department, error)
	ListDepartments(ctx context.Context) ([]*Department, error)
	UpdateDepartment(ctx context.Context, department *Department) error
	DeleteDepartment(ctx context.Context, id int64) error

	// Tasks
	CreateTask(ctx context.Context, task *Task) error
	GetTask(ctx context.Context, id int64) (*Task, error)
	ListTasks(ctx context.Context) ([]*Task, error)
	UpdateTask(ctx context.Context, task *Task) error
	DeleteTask(ctx context.Context, id int64) error

	// HealthCheck reports whether the backend is reachable
	HealthCheck(ctx context.Context) error
	// Close releases backend resources
	Close() error
}
