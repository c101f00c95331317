package query_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/housepoints/house-points-hub/internal/application/query"
	"github.com/housepoints/house-points-hub/internal/domain/house"
	"github.com/housepoints/house-points-hub/internal/domain/leaderboard"
	"github.com/housepoints/house-points-hub/internal/domain/shared"
	"github.com/housepoints/house-points-hub/internal/testutil"
	"github.com/housepoints/house-points-hub/pkg/logger"
)

func abcFixture(t *testing.T) *testutil.Fixture {
	t.Helper()
	f := testutil.SeededWith(t, []house.House{
		{Name: "C", Color: "#333"},
		{Name: "B", Color: "#222"},
		{Name: "A", Color: "#111"},
	})
	f.AddEvent(t, "Round 1", "sports", map[string][2]int{"A": {70, 1}, "B": {60, 2}, "C": {50, 3}})
	f.AddEvent(t, "Round 2", "sports", map[string][2]int{"A": {30, 2}, "B": {40, 1}})
	return f
}

func TestLeaderboard_TieScenario(t *testing.T) {
	ctx := context.Background()
	f := abcFixture(t)
	h := query.NewStandingsHandler(f.Store, logger.Nop())

	entries, err := h.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, []string{"A", "B", "C"}, []string{entries[0].House, entries[1].House, entries[2].House})
	assert.Equal(t, []int{100, 100, 50}, []int{entries[0].TotalPoints, entries[1].TotalPoints, entries[2].TotalPoints})
	assert.Equal(t, []int{1, 2, 3}, []int{entries[0].Rank, entries[1].Rank, entries[2].Rank})

	assert.Equal(t, 2, entries[0].EventsParticipated)
	assert.Equal(t, 1, entries[0].Wins)
	assert.Equal(t, 1, entries[0].Second)
	assert.Equal(t, 1, entries[2].Third)
	assert.Equal(t, "#111", entries[0].Color)

	gaps, err := h.StandingsWithGap(ctx)
	require.NoError(t, err)
	require.NotNil(t, gaps[0].PointsAheadOfNext)
	assert.Equal(t, 0, *gaps[0].PointsAheadOfNext)
	require.NotNil(t, gaps[1].PointsAheadOfNext)
	assert.Equal(t, 50, *gaps[1].PointsAheadOfNext)
	assert.Nil(t, gaps[2].PointsAheadOfNext)
}

func TestLeaderboard_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := abcFixture(t)
	h := query.NewStandingsHandler(f.Store, logger.Nop())

	first, err := h.Leaderboard(ctx)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := h.Leaderboard(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestLeaderboard_SumAndGapProperties(t *testing.T) {
	ctx := context.Background()
	f := testutil.Seeded(t)
	f.AddEvent(t, "Quiz", "academic", map[string][2]int{"Athena": {40, 1}, "Apollo": {35, 2}, "Artemis": {20, 3}, "Poseidon": {5, 4}})
	f.AddEvent(t, "Noise", "deduction", map[string][2]int{"Apollo": {15, 1}})
	f.AddEvent(t, "Helpers", "quick_points", map[string][2]int{"Poseidon": {12, 1}})
	f.AddEvent(t, "Mess", "deduction", map[string][2]int{"Athena": {60, 1}, "Artemis": {3, 2}})

	h := query.NewStandingsHandler(f.Store, logger.Nop())
	entries, err := h.Leaderboard(ctx)
	require.NoError(t, err)

	rows, err := f.Store.ListScoredResults(ctx)
	require.NoError(t, err)
	want := 0
	for _, r := range rows {
		if r.EventType == "deduction" {
			want -= r.Points
		} else {
			want += r.Points
		}
	}
	got := 0
	for _, e := range entries {
		got += e.TotalPoints
	}
	assert.Equal(t, want, got)

	gaps, err := h.StandingsWithGap(ctx)
	require.NoError(t, err)
	for i := 0; i < len(gaps)-1; i++ {
		require.NotNil(t, gaps[i].PointsAheadOfNext)
		assert.Equal(t, entries[i].TotalPoints-entries[i+1].TotalPoints, *gaps[i].PointsAheadOfNext)
		assert.GreaterOrEqual(t, *gaps[i].PointsAheadOfNext, 0)
	}
	assert.Nil(t, gaps[len(gaps)-1].PointsAheadOfNext)

	// Athena: 40 - 60 = -20 puts it last.
	assert.Equal(t, "Athena", entries[3].House)
	assert.Equal(t, -20, entries[3].TotalPoints)
}

func TestTotalPoints(t *testing.T) {
	ctx := context.Background()
	f := abcFixture(t)
	h := query.NewStandingsHandler(f.Store, logger.Nop())

	total, err := h.TotalPoints(ctx, f.House("C"))
	require.NoError(t, err)
	assert.Equal(t, 50, total)

	_, err = h.TotalPoints(ctx, 999)
	assert.True(t, shared.IsNotFound(err))
}

func TestWinner(t *testing.T) {
	ctx := context.Background()

	t.Run("no houses", func(t *testing.T) {
		h := query.NewStandingsHandler(testutil.NewLedger(t), logger.Nop())
		w, err := h.Winner(ctx)
		require.NoError(t, err)
		assert.Nil(t, w)
	})

	t.Run("no events picks first by name", func(t *testing.T) {
		f := testutil.Seeded(t)
		h := query.NewStandingsHandler(f.Store, logger.Nop())
		w, err := h.Winner(ctx)
		require.NoError(t, err)
		require.NotNil(t, w)
		assert.Equal(t, "Apollo", w.House)
		assert.Equal(t, 0, w.TotalPoints)
	})

	t.Run("leader", func(t *testing.T) {
		f := abcFixture(t)
		h := query.NewStandingsHandler(f.Store, logger.Nop())
		w, err := h.Winner(ctx)
		require.NoError(t, err)
		require.NotNil(t, w)
		assert.Equal(t, leaderboard.Entry{
			Rank: 1, HouseID: f.House("A"), House: "A", Color: "#111",
			TotalPoints: 100, EventsParticipated: 2, Wins: 1, Second: 1,
		}, *w)
	})
}
