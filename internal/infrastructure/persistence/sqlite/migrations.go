package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

type migration struct {
	version int
	name    string
	up      string
}

var migrations = []migration{
	{1, "create_reference_tables", `
		CREATE TABLE IF NOT EXISTS houses (
			house_id   INTEGER PRIMARY KEY AUTOINCREMENT,
			house_name TEXT NOT NULL UNIQUE,
			color      TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS class_years (
			class_year_id INTEGER PRIMARY KEY AUTOINCREMENT,
			grad_year     INTEGER NOT NULL,
			class_name    TEXT NOT NULL,
			display_order INTEGER NOT NULL
		);
	`},
	{2, "create_students", `
		CREATE TABLE IF NOT EXISTS students (
			student_id    INTEGER PRIMARY KEY AUTOINCREMENT,
			fname         TEXT NOT NULL,
			lname         TEXT NOT NULL,
			email         TEXT NOT NULL DEFAULT '',
			house_id      INTEGER NOT NULL REFERENCES houses(house_id),
			class_year_id INTEGER NOT NULL REFERENCES class_years(class_year_id)
		);
		CREATE INDEX IF NOT EXISTS idx_students_house ON students(house_id);
		CREATE INDEX IF NOT EXISTS idx_students_class_year ON students(class_year_id);
		CREATE INDEX IF NOT EXISTS idx_students_lname ON students(lname COLLATE NOCASE);
	`},
	{3, "create_events", `
		CREATE TABLE IF NOT EXISTS events (
			event_id   INTEGER PRIMARY KEY AUTOINCREMENT,
			event_date TEXT NOT NULL,
			event_desc TEXT NOT NULL,
			event_type TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_events_date ON events(event_date DESC, event_id DESC);
		CREATE TABLE IF NOT EXISTS event_results (
			event_id      INTEGER NOT NULL REFERENCES events(event_id) ON DELETE CASCADE,
			house_id      INTEGER NOT NULL REFERENCES houses(house_id),
			points_earned INTEGER NOT NULL CHECK (points_earned >= 0),
			rank          INTEGER NOT NULL CHECK (rank >= 1),
			PRIMARY KEY (event_id, house_id)
		);
		CREATE INDEX IF NOT EXISTS idx_event_results_house ON event_results(house_id);
	`},
}

// migrate applies pending migrations, each in its own transaction, and
// returns how many ran.
func migrate(ctx context.Context, db *sql.DB) (int, error) {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		)
	`); err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return 0, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	count := 0
	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return count, fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		count++
	}
	return count, nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.up); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.version, m.name); err != nil {
		return err
	}
	return tx.Commit()
}
