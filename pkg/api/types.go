package api

import "time"

// User represents an account that can log in and be assigned tasks
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never serialized
	Role         string    `json:"role"`
	DepartmentID *int64    `json:"department_id,omitempty"`
	TaskIDs      []int64   `json:"task_ids"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Department groups users and tasks
type Department struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	UserIDs   []int64   `json:"user_ids"`
	TaskIDs   []int64   `json:"task_ids"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Task is a unit of work created by one user and assigned to others
type Task struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	CreatedByID     *int64    `json:"created_by_id,omitempty"`
	AssignedUserIDs []int64   `json:"assigned_user_ids"`
	DepartmentID    *int64    `json:"department_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
