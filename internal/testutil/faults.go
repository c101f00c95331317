package testutil

import (
	"context"
	"errors"

	"github.com/housepoints/house-points-hub/internal/domain/event"
	"github.com/housepoints/house-points-hub/internal/domain/ledger"
	"github.com/housepoints/house-points-hub/internal/domain/student"
)

// ErrInjected is returned by FaultyStore at the configured step.
var ErrInjected = errors.New("injected failure")

// FaultyStore wraps a store and fails one Tx method after the wrapped call
// succeeded, so the transaction has real writes to roll back.
type FaultyStore struct {
	ledger.Store
	FailAt string // a Tx method name, e.g. "DeleteAllEvents"
}

// WithinTx hands fn a Tx that fails at FailAt.
func (s *FaultyStore) WithinTx(ctx context.Context, fn ledger.TxFunc) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return fn(ctx, &faultyTx{Tx: tx, failAt: s.FailAt})
	})
}

type faultyTx struct {
	ledger.Tx
	failAt string
}

func (t *faultyTx) fail(op string, err error) error {
	if err != nil {
		return err
	}
	if op == t.failAt {
		return ErrInjected
	}
	return nil
}

func (t *faultyTx) DeleteStudentsInClassYear(ctx context.Context, id int64) (int, error) {
	n, err := t.Tx.DeleteStudentsInClassYear(ctx, id)
	return n, t.fail("DeleteStudentsInClassYear", err)
}

func (t *faultyTx) DeleteAllResults(ctx context.Context) (int, error) {
	n, err := t.Tx.DeleteAllResults(ctx)
	return n, t.fail("DeleteAllResults", err)
}

func (t *faultyTx) DeleteAllEvents(ctx context.Context) (int, error) {
	n, err := t.Tx.DeleteAllEvents(ctx)
	return n, t.fail("DeleteAllEvents", err)
}

func (t *faultyTx) UpdateClassYear(ctx context.Context, c student.ClassYear) error {
	return t.fail("UpdateClassYear", t.Tx.UpdateClassYear(ctx, c))
}

func (t *faultyTx) InsertEvent(ctx context.Context, e *event.Event) error {
	return t.fail("InsertEvent", t.Tx.InsertEvent(ctx, e))
}

func (t *faultyTx) InsertStudent(ctx context.Context, s *student.Student) error {
	return t.fail("InsertStudent", t.Tx.InsertStudent(ctx, s))
}
