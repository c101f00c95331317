// Package testutil provides seeded in-memory ledgers and fault injection
// for package tests.
package testutil

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/housepoints/house-points-hub/internal/domain/event"
	"github.com/housepoints/house-points-hub/internal/domain/house"
	"github.com/housepoints/house-points-hub/internal/domain/ledger"
	"github.com/housepoints/house-points-hub/internal/domain/student"
	"github.com/housepoints/house-points-hub/internal/infrastructure/persistence/sqlite"
	"github.com/housepoints/house-points-hub/pkg/logger"
	"github.com/housepoints/house-points-hub/pkg/timeutil"
)

// SeniorYear is the graduation year of the seeded senior class.
const SeniorYear = 2025

// Now is the fixed time used by test clocks.
var Now = time.Date(2025, time.March, 14, 10, 30, 0, 0, time.UTC)

// Clock returns a FixedClock at Now.
func Clock() *timeutil.FixedClock {
	return timeutil.NewFixedClock(Now)
}

// NewLedger opens an empty, migrated in-memory ledger closed at test end.
func NewLedger(t testing.TB) *sqlite.Ledger {
	t.Helper()
	l, err := sqlite.OpenMemory(context.Background(), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

// Fixture is a ledger seeded with the four default houses and class years.
type Fixture struct {
	Store      *sqlite.Ledger
	Houses     map[string]house.House       // by name
	ClassYears map[string]student.ClassYear // by class name
}

// Seeded returns a ledger with the default houses and a senior class
// graduating in SeniorYear.
func Seeded(t testing.TB) *Fixture {
	t.Helper()
	return SeededWith(t, house.Defaults())
}

// SeededWith seeds the given houses instead of the defaults.
func SeededWith(t testing.TB, houses []house.House) *Fixture {
	t.Helper()
	f := &Fixture{
		Store:      NewLedger(t),
		Houses:     make(map[string]house.House),
		ClassYears: make(map[string]student.ClassYear),
	}

	err := f.Store.WithinTx(context.Background(), func(ctx context.Context, tx ledger.Tx) error {
		for _, h := range houses {
			if err := tx.InsertHouse(ctx, &h); err != nil {
				return err
			}
			f.Houses[h.Name] = h
		}
		for _, y := range student.DefaultClassYears(SeniorYear) {
			if err := tx.InsertClassYear(ctx, &y); err != nil {
				return err
			}
			f.ClassYears[y.ClassName] = y
		}
		return nil
	})
	require.NoError(t, err)
	return f
}

// House returns the ID of a seeded house.
func (f *Fixture) House(name string) int64 {
	h, ok := f.Houses[name]
	if !ok {
		panic("testutil: unknown house " + name)
	}
	return h.ID
}

// Class returns the ID of a seeded class year.
func (f *Fixture) Class(name string) int64 {
	y, ok := f.ClassYears[name]
	if !ok {
		panic("testutil: unknown class year " + name)
	}
	return y.ID
}

// AddStudent inserts a student directly.
func (f *Fixture) AddStudent(t testing.TB, first, last, houseName, className string) student.Student {
	t.Helper()
	s := student.Student{
		FirstName:   first,
		LastName:    last,
		Email:       first + "." + last + "@school.test",
		HouseID:     f.House(houseName),
		ClassYearID: f.Class(className),
	}
	err := f.Store.WithinTx(context.Background(), func(ctx context.Context, tx ledger.Tx) error {
		return tx.InsertStudent(ctx, &s)
	})
	require.NoError(t, err)
	return s
}

// AddEvent inserts an event directly. results maps house name to
// {points, rank}.
func (f *Fixture) AddEvent(t testing.TB, desc string, typ event.Type, results map[string][2]int) event.Event {
	t.Helper()
	e := event.Event{
		Date:        timeutil.DateOnly(Now),
		Description: desc,
		Type:        typ,
		CreatedAt:   Now,
	}
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		pr := results[name]
		e.Results = append(e.Results, event.Result{HouseID: f.House(name), Points: pr[0], Rank: pr[1]})
	}
	err := f.Store.WithinTx(context.Background(), func(ctx context.Context, tx ledger.Tx) error {
		return tx.InsertEvent(ctx, &e)
	})
	require.NoError(t, err)
	return e
}

// State is a full dump of the ledger, used to assert that a failed
// mutation left nothing behind.
type State struct {
	Houses     []house.House
	ClassYears []student.ClassYear
	Students   []student.Profile
	Events     []event.Event
}

// Dump reads the complete ledger.
func Dump(t testing.TB, r ledger.Reader) State {
	t.Helper()
	ctx := context.Background()

	var s State
	var err error
	s.Houses, err = r.ListHouses(ctx)
	require.NoError(t, err)
	s.ClassYears, err = r.ListClassYears(ctx)
	require.NoError(t, err)
	s.Students, err = r.ListStudents(ctx)
	require.NoError(t, err)

	summaries, err := r.ListEvents(ctx, 0)
	require.NoError(t, err)
	for _, sum := range summaries {
		e, err := r.FindEvent(ctx, sum.ID)
		require.NoError(t, err)
		s.Events = append(s.Events, e)
	}
	return s
}
