package command_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/housepoints/house-points-hub/internal/application/command"
	"github.com/housepoints/house-points-hub/internal/domain/house"
	"github.com/housepoints/house-points-hub/internal/domain/ledger"
	"github.com/housepoints/house-points-hub/internal/domain/shared"
	"github.com/housepoints/house-points-hub/internal/domain/student"
	"github.com/housepoints/house-points-hub/internal/testutil"
	"github.com/housepoints/house-points-hub/pkg/logger"
)

// seedSeason fills the fixture with 3 seniors, 3 underclassmen and 5 events.
func seedSeason(t *testing.T, f *testutil.Fixture) {
	t.Helper()
	f.AddStudent(t, "Sid", "Vance", "Athena", "Senior")
	f.AddStudent(t, "Sue", "Wong", "Apollo", "Senior")
	f.AddStudent(t, "Sol", "Yates", "Artemis", "Senior")
	f.AddStudent(t, "Jon", "Abel", "Athena", "Junior")
	f.AddStudent(t, "Pam", "Bell", "Poseidon", "Sophomore")
	f.AddStudent(t, "Fay", "Cole", "Apollo", "Freshman")

	f.AddEvent(t, "Quiz", "academic", map[string][2]int{"Athena": {50, 1}, "Apollo": {30, 2}})
	f.AddEvent(t, "Relay", "sports", map[string][2]int{"Artemis": {40, 1}, "Poseidon": {20, 2}})
	f.AddEvent(t, "Choir", "arts", map[string][2]int{"Poseidon": {25, 1}})
	f.AddEvent(t, "Late", "deduction", map[string][2]int{"Athena": {10, 1}})
	f.AddEvent(t, "Cleanup", "quick_points", map[string][2]int{"Apollo": {5, 1}})
}

func newRollover(store ledger.Store, locker shared.Locker) *command.SeasonRolloverHandler {
	return command.NewSeasonRolloverHandler(store, locker, testutil.Clock(), time.Minute, logger.Nop())
}

func TestSeasonRollover(t *testing.T) {
	ctx := context.Background()
	f := testutil.Seeded(t)
	seedSeason(t, f)

	yearsBefore, err := f.Store.ListClassYears(ctx)
	require.NoError(t, err)

	res, err := newRollover(f.Store, shared.NewLocalLocker()).Handle(ctx, command.SeasonRolloverCommand{Confirmation: "RESET"})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 2025, res.GraduatedClass.GraduationYear)
	assert.Equal(t, 3, res.StudentsRemoved)
	assert.Equal(t, 5, res.EventsRemoved)
	assert.Equal(t, 7, res.ResultsRemoved)

	students, err := f.Store.ListStudents(ctx)
	require.NoError(t, err)
	require.Len(t, students, 3)
	for _, s := range students {
		assert.NotContains(t, []string{"Vance", "Wong", "Yates"}, s.LastName)
	}

	events, err := f.Store.ListEvents(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
	rows, err := f.Store.ListScoredResults(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	yearsAfter, err := f.Store.ListClassYears(ctx)
	require.NoError(t, err)
	require.Len(t, yearsAfter, len(yearsBefore))
	for i, y := range yearsAfter {
		assert.Equal(t, yearsBefore[i].ID, y.ID)
		assert.Equal(t, yearsBefore[i].GraduationYear-1, y.GraduationYear)
		want, _ := student.ClassNameForOrder(y.DisplayOrder)
		assert.Equal(t, want, y.ClassName)
	}
	assert.Equal(t, yearsAfter, res.ClassYears)

	// Houses are reference data and survive.
	houses, err := f.Store.ListHouses(ctx)
	require.NoError(t, err)
	assert.Len(t, houses, 4)
}

func TestSeasonRollover_WrongToken(t *testing.T) {
	ctx := context.Background()
	f := testutil.Seeded(t)
	seedSeason(t, f)
	before := testutil.Dump(t, f.Store)

	h := newRollover(f.Store, shared.NewLocalLocker())
	for _, token := range []string{"", "reset", "RESET ", "yes"} {
		_, err := h.Handle(ctx, command.SeasonRolloverCommand{Confirmation: token})
		assert.ErrorIs(t, err, shared.ErrRolloverCancelled, "token %q", token)
		assert.True(t, shared.IsValidation(err))
	}
	assert.Equal(t, before, testutil.Dump(t, f.Store))
}

func TestSeasonRollover_RollsBackOnFailure(t *testing.T) {
	for _, step := range []string{"DeleteStudentsInClassYear", "DeleteAllResults", "DeleteAllEvents", "UpdateClassYear"} {
		t.Run(step, func(t *testing.T) {
			ctx := context.Background()
			f := testutil.Seeded(t)
			seedSeason(t, f)
			before := testutil.Dump(t, f.Store)

			store := &testutil.FaultyStore{Store: f.Store, FailAt: step}
			_, err := newRollover(store, shared.NewLocalLocker()).Handle(ctx, command.SeasonRolloverCommand{Confirmation: "RESET"})
			require.ErrorIs(t, err, testutil.ErrInjected)

			assert.Equal(t, before, testutil.Dump(t, f.Store))
		})
	}
}

func TestSeasonRollover_LockHeld(t *testing.T) {
	ctx := context.Background()
	f := testutil.Seeded(t)
	seedSeason(t, f)
	before := testutil.Dump(t, f.Store)

	locker := shared.NewLocalLocker()
	held, err := locker.TryAcquire(ctx, command.RolloverLockKey, time.Minute)
	require.NoError(t, err)

	h := newRollover(f.Store, locker)
	_, err = h.Handle(ctx, command.SeasonRolloverCommand{Confirmation: "RESET"})
	assert.True(t, shared.IsConcurrentModification(err), "got %v", err)
	assert.Equal(t, before, testutil.Dump(t, f.Store))

	require.NoError(t, held.Release(ctx))
	_, err = h.Handle(ctx, command.SeasonRolloverCommand{Confirmation: "RESET"})
	require.NoError(t, err)

	// The handler released its own lock.
	again, err := locker.TryAcquire(ctx, command.RolloverLockKey, time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestSeasonRollover_AmbiguousSenior(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewLedger(t)
	err := store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		for _, y := range []student.ClassYear{
			{ClassName: "Senior", GraduationYear: 2025, DisplayOrder: 1},
			{ClassName: "Senior B", GraduationYear: 2025, DisplayOrder: 5},
		} {
			if err := tx.InsertClassYear(ctx, &y); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	_, err = newRollover(store, shared.NewLocalLocker()).Handle(ctx, command.SeasonRolloverCommand{Confirmation: "RESET"})
	assert.True(t, shared.IsValidation(err), "got %v", err)
}

func TestSeasonRollover_ExtraClassYearsKeepName(t *testing.T) {
	ctx := context.Background()
	f := testutil.Seeded(t)
	extra := student.ClassYear{ClassName: "Post-Grad", GraduationYear: 2030, DisplayOrder: 9}
	require.NoError(t, f.Store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.InsertClassYear(ctx, &extra)
	}))

	_, err := newRollover(f.Store, shared.NewLocalLocker()).Handle(ctx, command.SeasonRolloverCommand{Confirmation: "RESET"})
	require.NoError(t, err)

	got, err := f.Store.FindClassYear(ctx, extra.ID)
	require.NoError(t, err)
	assert.Equal(t, "Post-Grad", got.ClassName)
	assert.Equal(t, 2029, got.GraduationYear)
}

func TestSetupCompetition(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewLedger(t)
	h := command.NewSetupCompetitionHandler(store, testutil.Clock(), logger.Nop())

	res, err := h.Handle(ctx, command.SetupCompetitionCommand{})
	require.NoError(t, err)
	assert.Len(t, res.HousesCreated, 4)
	require.Len(t, res.ClassYearsCreated, 4)
	assert.Equal(t, 2025, res.ClassYearsCreated[0].GraduationYear)
	assert.Equal(t, "Freshman", res.ClassYearsCreated[3].ClassName)
	assert.Equal(t, 2028, res.ClassYearsCreated[3].GraduationYear)

	again, err := h.Handle(ctx, command.SetupCompetitionCommand{Houses: []house.House{{Name: "Extra"}}})
	require.NoError(t, err)
	assert.True(t, again.AlreadySetUp())

	houses, err := store.ListHouses(ctx)
	require.NoError(t, err)
	assert.Len(t, houses, 4)
}

func TestSeniorGradYear(t *testing.T) {
	assert.Equal(t, 2025, command.SeniorGradYear(time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2026, command.SeniorGradYear(time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)))
}
