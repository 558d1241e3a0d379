package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied at startup; statements are idempotent
var schema = []string{
	`CREATE TABLE IF NOT EXISTS departments (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		name          TEXT NOT NULL DEFAULT '',
		username      TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL,
		department_id BIGINT REFERENCES departments(id) ON DELETE SET NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id            BIGSERIAL PRIMARY KEY,
		title         TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		created_by    BIGINT REFERENCES users(id) ON DELETE SET NULL,
		department_id BIGINT REFERENCES departments(id) ON DELETE SET NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS task_assignees (
		task_id BIGINT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		PRIMARY KEY (task_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_department ON users(department_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_department ON tasks(department_id)`,
	`CREATE INDEX IF NOT EXISTS idx_task_assignees_user ON task_assignees(user_id)`,
}

// migrate applies the schema
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
