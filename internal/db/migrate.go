package db

import (
	"database/sql"
	"fmt"
)

// Migrate runs all schema migrations. Every statement is idempotent so the
// full list is replayed on each open.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS time_sessions (
		id                 TEXT PRIMARY KEY,
		user_id            TEXT NOT NULL,
		project_id         TEXT NOT NULL,
		description        TEXT NOT NULL DEFAULT '',
		module             TEXT NOT NULL DEFAULT '',
		task_category      TEXT NOT NULL DEFAULT '',
		work_category      TEXT NOT NULL DEFAULT '',
		severity           TEXT NOT NULL DEFAULT ''
		                   CHECK(severity IN ('','low','medium','high','critical')),
		source             TEXT NOT NULL DEFAULT ''
		                   CHECK(source IN ('','manual','ticket','meeting','support')),
		ticket_ref         TEXT NOT NULL DEFAULT '',
		status             TEXT NOT NULL
		                   CHECK(status IN ('RUNNING','PAUSED','COMPLETED','CANCELLED')),
		start_time         TEXT NOT NULL,
		end_time           TEXT,
		pause_started_at   TEXT,
		paused_duration_ms INTEGER NOT NULL DEFAULT 0 CHECK(paused_duration_ms >= 0),
		work_log_id        TEXT,
		version            INTEGER NOT NULL DEFAULT 1 CHECK(version > 0),
		created_at         TEXT NOT NULL,
		updated_at         TEXT NOT NULL,
		CHECK((status = 'PAUSED') = (pause_started_at IS NOT NULL)),
		CHECK((status IN ('COMPLETED','CANCELLED')) = (end_time IS NOT NULL)),
		CHECK(work_log_id IS NULL OR status = 'COMPLETED')
	)`,

	`CREATE INDEX IF NOT EXISTS idx_time_sessions_user_status ON time_sessions(user_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_time_sessions_project ON time_sessions(project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_time_sessions_start ON time_sessions(start_time)`,

	`CREATE TABLE IF NOT EXISTS work_logs (
		id                 TEXT PRIMARY KEY,
		session_id         TEXT NOT NULL UNIQUE REFERENCES time_sessions(id),
		user_id            TEXT NOT NULL,
		project_id         TEXT NOT NULL,
		description        TEXT NOT NULL DEFAULT '',
		module             TEXT NOT NULL DEFAULT '',
		task_category      TEXT NOT NULL DEFAULT '',
		work_category      TEXT NOT NULL DEFAULT '',
		severity           TEXT NOT NULL DEFAULT '',
		source             TEXT NOT NULL DEFAULT '',
		ticket_ref         TEXT NOT NULL DEFAULT '',
		start_time         TEXT NOT NULL,
		end_time           TEXT NOT NULL,
		duration_ms        INTEGER NOT NULL CHECK(duration_ms >= 0),
		paused_duration_ms INTEGER NOT NULL DEFAULT 0 CHECK(paused_duration_ms >= 0),
		created_by         TEXT NOT NULL,
		created_at         TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_work_logs_user ON work_logs(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_work_logs_project ON work_logs(project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_work_logs_start ON work_logs(start_time)`,
}
