// Package ledger defines the storage contract for the house points ledger:
// houses, class years, students, events and event results.
//
// Implementations live in infrastructure/persistence. Every multi-step
// mutation goes through Store.WithinTx so that readers never observe a
// partial state; reads outside a transaction are read-committed.
package ledger

import (
	"context"

	"github.com/housepoints/house-points-hub/internal/domain/event"
	"github.com/housepoints/house-points-hub/internal/domain/house"
	"github.com/housepoints/house-points-hub/internal/domain/student"
)

// Reader is the read side of the ledger. Find* methods return a
// shared.ErrNotFound domain error when the row does not exist.
type Reader interface {
	// ──────────────────────────────────────────────────────────────────────────
	// Reference data
	// ──────────────────────────────────────────────────────────────────────────

	// ListHouses returns all houses ordered by name.
	ListHouses(ctx context.Context) ([]house.House, error)
	FindHouse(ctx context.Context, id int64) (house.House, error)

	// ListClassYears returns all class years ordered by display order.
	ListClassYears(ctx context.Context) ([]student.ClassYear, error)
	FindClassYear(ctx context.Context, id int64) (student.ClassYear, error)

	// ──────────────────────────────────────────────────────────────────────────
	// Students
	// ──────────────────────────────────────────────────────────────────────────

	// ListStudents returns every student ordered by house name, class
	// display order, last name, first name.
	ListStudents(ctx context.Context) ([]student.Profile, error)

	// SearchStudents matches term as a case-insensitive substring of first
	// name, last name, "first last" or email. Same order as ListStudents.
	SearchStudents(ctx context.Context, term string) ([]student.Profile, error)

	// FindStudentsByLastName is a case-insensitive exact match.
	FindStudentsByLastName(ctx context.Context, lastName string) ([]student.Profile, error)

	FindStudent(ctx context.Context, id int64) (student.Profile, error)

	// CountStudentsByHouse omits houses with no students.
	CountStudentsByHouse(ctx context.Context) (map[int64]int, error)

	// ──────────────────────────────────────────────────────────────────────────
	// Events
	// ──────────────────────────────────────────────────────────────────────────

	// ListEvents returns events by date descending, newest ID first on equal
	// dates. limit <= 0 means no limit.
	ListEvents(ctx context.Context, limit int) ([]event.Summary, error)

	// FindEvent returns the event with its results ordered by rank.
	FindEvent(ctx context.Context, id int64) (event.Event, error)

	// ListScoredResults returns every result row joined to its event type,
	// in one pass. This is the sole input of the standings computation.
	ListScoredResults(ctx context.Context) ([]event.ScoredResult, error)
}

// Tx is a ledger transaction. Writes that violate a foreign key return a
// shared.ErrReference domain error; other driver failures are
// shared.ErrStorage.
type Tx interface {
	Reader

	InsertHouse(ctx context.Context, h *house.House) error
	InsertClassYear(ctx context.Context, c *student.ClassYear) error
	UpdateClassYear(ctx context.Context, c student.ClassYear) error

	InsertStudent(ctx context.Context, s *student.Student) error
	// UpdateStudent and DeleteStudent return shared.ErrNotFound when no row matches.
	UpdateStudent(ctx context.Context, s student.Student) error
	DeleteStudent(ctx context.Context, id int64) error
	DeleteStudentsInClassYear(ctx context.Context, classYearID int64) (int, error)

	// InsertEvent stores the event and all of its results, setting e.ID.
	InsertEvent(ctx context.Context, e *event.Event) error
	// DeleteEvent removes the event and its results. It reports whether a
	// row existed.
	DeleteEvent(ctx context.Context, id int64) (bool, error)
	DeleteAllResults(ctx context.Context) (int, error)
	DeleteAllEvents(ctx context.Context) (int, error)
}

// TxFunc runs inside a transaction.
type TxFunc func(ctx context.Context, tx Tx) error

// Store is a ledger with scoped transactions.
//
// WithinTx begins a transaction, runs fn and commits exactly once if fn
// returns nil. If fn returns an error or panics, the transaction is rolled
// back and the error (or panic) propagates unchanged. A failed commit is
// reported as shared.ErrStorage and nothing is applied.
type Store interface {
	Reader
	WithinTx(ctx context.Context, fn TxFunc) error
}
