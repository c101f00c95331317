package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents a database migration.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator applies embedded migrations and records them in schema_migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a new migrator with embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
		tableName:  "schema_migrations",
	}
}

// EnsureMigrationTable creates the migration tracking table if it doesn't exist.
func (m *Migrator) EnsureMigrationTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`, m.tableName)

	if _, err := m.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.conn.Query(ctx, fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = appliedAt
	}
	return applied, rows.Err()
}

// Migrate applies all pending migrations, each in its own transaction.
// It returns the number of migrations applied.
func (m *Migrator) Migrate(ctx context.Context) (int, error) {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return 0, err
	}

	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}

		err := m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}
			_, err := tx.Exec(ctx,
				fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName),
				mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return count, fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
		count++
	}

	return count, nil
}

// Status returns the migration status.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return nil, err
	}

	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Migration, len(m.migrations))
	copy(result, m.migrations)
	for i := range result {
		if at, ok := applied[result[i].Version]; ok {
			result[i].IsApplied = true
			result[i].AppliedAt = at
		}
	}
	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_reference_tables", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_students", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_events", UpSQL: migration003Up, DownSQL: migration003Down},
	}
}

const migration001Up = `
CREATE TABLE IF NOT EXISTS houses (
    house_id   BIGSERIAL PRIMARY KEY,
    house_name TEXT NOT NULL UNIQUE,
    color      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS class_years (
    class_year_id BIGSERIAL PRIMARY KEY,
    grad_year     INTEGER NOT NULL,
    class_name    TEXT NOT NULL,
    display_order INTEGER NOT NULL
);
`

const migration001Down = `
DROP TABLE IF EXISTS class_years;
DROP TABLE IF EXISTS houses;
`

const migration002Up = `
CREATE TABLE IF NOT EXISTS students (
    student_id    BIGSERIAL PRIMARY KEY,
    fname         TEXT NOT NULL,
    lname         TEXT NOT NULL,
    email         TEXT NOT NULL DEFAULT '',
    house_id      BIGINT NOT NULL REFERENCES houses(house_id),
    class_year_id BIGINT NOT NULL REFERENCES class_years(class_year_id)
);

CREATE INDEX IF NOT EXISTS idx_students_house ON students(house_id);
CREATE INDEX IF NOT EXISTS idx_students_class_year ON students(class_year_id);
CREATE INDEX IF NOT EXISTS idx_students_lname_lower ON students(lower(lname));
`

const migration002Down = `
DROP TABLE IF EXISTS students;
`

const migration003Up = `
CREATE TABLE IF NOT EXISTS events (
    event_id   BIGSERIAL PRIMARY KEY,
    event_date DATE NOT NULL,
    event_desc TEXT NOT NULL,
    event_type TEXT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_events_date ON events(event_date DESC, event_id DESC);

CREATE TABLE IF NOT EXISTS event_results (
    event_id      BIGINT NOT NULL REFERENCES events(event_id) ON DELETE CASCADE,
    house_id      BIGINT NOT NULL REFERENCES houses(house_id),
    points_earned INTEGER NOT NULL,
    rank          INTEGER NOT NULL,
    PRIMARY KEY (event_id, house_id),
    CONSTRAINT points_non_negative CHECK (points_earned >= 0),
    CONSTRAINT rank_positive CHECK (rank >= 1)
);

CREATE INDEX IF NOT EXISTS idx_event_results_house ON event_results(house_id);
`

const migration003Down = `
DROP TABLE IF EXISTS event_results;
DROP TABLE IF EXISTS events;
`
