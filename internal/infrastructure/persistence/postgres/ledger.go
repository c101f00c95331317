package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/housepoints/house-points-hub/internal/domain/event"
	"github.com/housepoints/house-points-hub/internal/domain/ledger"
	"github.com/housepoints/house-points-hub/internal/domain/shared"
	"github.com/housepoints/house-points-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER STORE
// ══════════════════════════════════════════════════════════════════════════════

// Ledger implements ledger.Store on a pgx pool.
type Ledger struct {
	queries
	conn *Connection
}

var _ ledger.Store = (*Ledger)(nil)

// NewLedger creates a Ledger. The schema must already be migrated.
func NewLedger(conn *Connection) *Ledger {
	return &Ledger{queries: queries{q: conn}, conn: conn}
}

// WithinTx runs fn in a read-committed transaction.
func (l *Ledger) WithinTx(ctx context.Context, fn ledger.TxFunc) error {
	err := l.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		return fn(ctx, &ledgerTx{queries: queries{q: tx}, tx: tx})
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrBeginFailed), errors.Is(err, ErrCommitFailed), errors.Is(err, ErrConnectionClosed):
		return shared.WrapError("ledger", "WithinTx", shared.ErrStorage, "transaction failed", err)
	default:
		return err
	}
}

// ledgerTx adds batch inserts on top of the shared query set.
type ledgerTx struct {
	queries
	tx pgx.Tx
}

var _ ledger.Tx = (*ledgerTx)(nil)

func (t *ledgerTx) InsertEvent(ctx context.Context, e *event.Event) error {
	const op = "InsertEvent"

	err := t.tx.QueryRow(ctx, `
		INSERT INTO events (event_date, event_desc, event_type, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING event_id
	`, e.Date, e.Description, string(e.Type), e.CreatedAt).Scan(&e.ID)
	if err != nil {
		return mapError("event", op, err)
	}

	batch := &pgx.Batch{}
	for _, r := range e.Results {
		batch.Queue(`
			INSERT INTO event_results (event_id, house_id, points_earned, rank)
			VALUES ($1, $2, $3, $4)
		`, e.ID, r.HouseID, r.Points, r.Rank)
	}

	br := t.tx.SendBatch(ctx, batch)
	for range e.Results {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return mapError("event", op, err)
		}
	}
	if err := br.Close(); err != nil {
		return mapError("event", op, err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

func mapError(domain, op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case IsForeignKeyViolation(err):
		return shared.WrapError(domain, op, shared.ErrReference, "referenced row does not exist", err)
	case IsUniqueViolation(err):
		return shared.WrapError(domain, op, shared.ErrValidation, "duplicate value", err)
	case IsCheckViolation(err):
		return shared.WrapError(domain, op, shared.ErrValidation, "value out of range", err)
	case IsTransient(err):
		return shared.Storage(domain, op, retry.Retryable(err))
	default:
		return shared.Storage(domain, op, err)
	}
}
