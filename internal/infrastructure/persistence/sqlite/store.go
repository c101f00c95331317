// Package sqlite implements the embedded ledger on modernc.org/sqlite, a
// pure Go driver. It backs single-machine deployments and every package
// test that needs a real ledger.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/housepoints/house-points-hub/internal/domain/ledger"
	"github.com/housepoints/house-points-hub/internal/domain/shared"
	"github.com/housepoints/house-points-hub/pkg/logger"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Ledger implements ledger.Store on a single SQLite connection.
type Ledger struct {
	queries
	db  *sql.DB
	log *logger.Logger
}

var _ ledger.Store = (*Ledger)(nil)

// Open opens (creating if needed) the database at path, applies pragmas and
// migrates the schema.
func Open(ctx context.Context, path string, log *logger.Logger) (*Ledger, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	return open(ctx, "file:"+path, log)
}

// OpenMemory opens a private in-memory ledger. Each call gets its own
// database.
func OpenMemory(ctx context.Context, log *logger.Logger) (*Ledger, error) {
	return open(ctx, fmt.Sprintf("file:hp-%s?mode=memory&cache=shared", uuid.NewString()), log)
}

func open(ctx context.Context, dsn string, log *logger.Logger) (*Ledger, error) {
	if log == nil {
		log = logger.Default()
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: pragmas are per-connection and an in-memory database
	// lives exactly as long as its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if _, err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Ledger{queries: queries{q: db}, db: db, log: log.WithComponent("sqlite")}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DB returns the underlying *sql.DB.
func (l *Ledger) DB() *sql.DB {
	return l.db
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Ping checks the connection.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

// WithinTx runs fn in a transaction. fn must use the Tx it is given; the
// ledger's own read methods block until the transaction ends.
func (l *Ledger) WithinTx(ctx context.Context, fn ledger.TxFunc) (err error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return shared.WrapError("ledger", "WithinTx", shared.ErrStorage, "begin failed", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, &ledgerTx{queries: queries{q: tx}}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			l.log.Error("rollback failed", logger.Err(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return shared.WrapError("ledger", "WithinTx", shared.ErrStorage, "commit failed", err)
	}
	return nil
}

type ledgerTx struct {
	queries
}

var _ ledger.Tx = (*ledgerTx)(nil)

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
