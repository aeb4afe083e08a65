package db

import (
	"database/sql"
	"fmt"
)

// migrations is an ordered list of SQL statements to run.
// Every statement is idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS technicians (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		first_name TEXT    NOT NULL,
		last_name  TEXT    NOT NULL,
		phone      TEXT    NOT NULL,
		email      TEXT    NOT NULL UNIQUE,
		specialty  TEXT    NOT NULL,
		active     INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS clients (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		first_name TEXT    NOT NULL,
		last_name  TEXT    NOT NULL,
		company    TEXT    NOT NULL DEFAULT '',
		phone      TEXT    NOT NULL,
		email      TEXT    NOT NULL DEFAULT '',
		address    TEXT    NOT NULL,
		city       TEXT    NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	// Dates and times are stored in fixed-width canonical form
	// (YYYY-MM-DD, HH:MM:SS) so text comparison is chronological.
	`CREATE TABLE IF NOT EXISTS visits (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		technician_id INTEGER NOT NULL REFERENCES technicians(id),
		client_id     INTEGER NOT NULL REFERENCES clients(id),
		visit_date    TEXT    NOT NULL CHECK (length(visit_date) = 10),
		start_time    TEXT    NOT NULL CHECK (length(start_time) = 8),
		end_time      TEXT    NOT NULL CHECK (length(end_time) = 8),
		service_type  TEXT    NOT NULL,
		description   TEXT    NOT NULL DEFAULT '',
		state         TEXT    NOT NULL DEFAULT 'scheduled'
		              CHECK (state IN ('scheduled', 'completed', 'cancelled')),
		notes         TEXT    NOT NULL DEFAULT '',
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME DEFAULT CURRENT_TIMESTAMP,
		CHECK (end_time > start_time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_visits_technician_date ON visits (technician_id, visit_date)`,
	`CREATE INDEX IF NOT EXISTS idx_visits_date_start ON visits (visit_date, start_time)`,
	`CREATE INDEX IF NOT EXISTS idx_visits_client ON visits (client_id)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		id           INTEGER  PRIMARY KEY AUTOINCREMENT,
		name         TEXT     NOT NULL,
		key_prefix   TEXT     NOT NULL,
		key_hash     TEXT     NOT NULL UNIQUE,
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_used_at DATETIME
	)`,
}

// migrate runs all migrations in order.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
