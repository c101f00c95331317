package leaderboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/housepoints/house-points-hub/internal/domain/event"
	"github.com/housepoints/house-points-hub/internal/domain/house"
)

var houses = []house.House{
	{ID: 1, Name: "Athena", Color: "#6A0DAD"},
	{ID: 2, Name: "Poseidon", Color: "#1E90FF"},
	{ID: 3, Name: "Artemis", Color: "#2E8B57"},
	{ID: 4, Name: "Apollo", Color: "#FFB300"},
}

func row(eventID, houseID int64, typ event.Type, points, rank int) event.ScoredResult {
	return event.ScoredResult{EventID: eventID, HouseID: houseID, EventType: typ, Points: points, Rank: rank}
}

func TestBuild_OrdersByTotalThenName(t *testing.T) {
	rows := []event.ScoredResult{
		row(1, 1, "sports", 50, 1),
		row(1, 2, "sports", 30, 2),
		row(2, 2, "arts", 20, 1),
		row(3, 3, event.TypeDeduction, 10, 1),
	}

	entries := Build(houses, rows)
	require.Len(t, entries, 4)

	// Athena 50, Poseidon 50 (tie → name), Apollo 0, Artemis -10
	assert.Equal(t, "Athena", entries[0].House)
	assert.Equal(t, "Poseidon", entries[1].House)
	assert.Equal(t, "Apollo", entries[2].House)
	assert.Equal(t, "Artemis", entries[3].House)
	assert.Equal(t, -10, entries[3].TotalPoints)

	for i, e := range entries {
		assert.Equal(t, i+1, e.Rank)
	}

	assert.Equal(t, 2, entries[1].EventsParticipated)
	assert.Equal(t, 1, entries[1].Wins)
	assert.Equal(t, 1, entries[1].Second)
	// deduction rows still count toward rank tallies
	assert.Equal(t, 1, entries[3].Wins)
	assert.Equal(t, 1, entries[3].EventsParticipated)
}

func TestBuild_TieOnNameBrokenByID(t *testing.T) {
	twins := []house.House{{ID: 9, Name: "Twin"}, {ID: 3, Name: "Twin"}}
	entries := Build(twins, nil)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(3), entries[0].HouseID)
	assert.Equal(t, int64(9), entries[1].HouseID)
}

func TestBuild_IgnoresUnknownHouses(t *testing.T) {
	entries := Build(houses[:1], []event.ScoredResult{row(1, 99, "sports", 10, 1)})
	require.Len(t, entries, 1)
	assert.Zero(t, entries[0].TotalPoints)
}

func TestBuild_FourthPlaceAndBeyond(t *testing.T) {
	entries := Build(houses[:1], []event.ScoredResult{
		row(1, 1, "sports", 1, 4),
		row(2, 1, "sports", 1, 5),
		row(3, 1, "sports", 1, 3),
	})
	assert.Equal(t, 1, entries[0].Fourth)
	assert.Equal(t, 1, entries[0].Third)
	assert.Equal(t, 3, entries[0].EventsParticipated)
}

func TestSumProperty(t *testing.T) {
	rows := []event.ScoredResult{
		row(1, 1, "sports", 70, 1),
		row(1, 2, "sports", 40, 2),
		row(2, 4, event.TypeDeduction, 15, 1),
		row(3, 3, event.TypeQuickPoints, 5, 1),
		row(4, 1, event.TypeDeduction, 100, 1),
	}
	sum := 0
	for _, e := range Build(houses, rows) {
		sum += e.TotalPoints
	}
	assert.Equal(t, LedgerSum(rows), sum)
	assert.Equal(t, 70+40-15+5-100, sum)
}

func TestTotals(t *testing.T) {
	totals := Totals([]event.ScoredResult{
		row(1, 1, "sports", 10, 1),
		row(2, 1, event.TypeDeduction, 4, 1),
		row(2, 2, "sports", 3, 2),
	})
	assert.Equal(t, map[int64]int{1: 6, 2: 3}, totals)
}

func TestWithGaps(t *testing.T) {
	entries := []Entry{{TotalPoints: 100}, {TotalPoints: 100}, {TotalPoints: 50}, {TotalPoints: -5}}
	gaps := WithGaps(entries)
	require.Len(t, gaps, 4)
	assert.Equal(t, 0, *gaps[0].PointsAheadOfNext)
	assert.Equal(t, 50, *gaps[1].PointsAheadOfNext)
	assert.Equal(t, 55, *gaps[2].PointsAheadOfNext)
	assert.Nil(t, gaps[3].PointsAheadOfNext)

	assert.Empty(t, WithGaps(nil))
}

func TestWinner(t *testing.T) {
	assert.Nil(t, Winner(nil))

	entries := Build(houses, nil)
	w := Winner(entries)
	require.NotNil(t, w)
	assert.Equal(t, "Apollo", w.House)

	// The winner is a copy.
	w.TotalPoints = 999
	assert.Zero(t, entries[0].TotalPoints)
}

func TestAnalyze(t *testing.T) {
	rows := []event.ScoredResult{
		row(1, 1, "sports", 30, 1),
		row(2, 1, "arts", 10, 3),
		row(3, 1, event.TypeDeduction, 5, 1),
		row(1, 2, "sports", 20, 2),
	}
	stats := Analyze(houses, rows, map[int64]int{1: 7, 2: 2})
	require.Len(t, stats, 4)

	athena := stats[0]
	assert.Equal(t, "Athena", athena.House)
	assert.Equal(t, 35, athena.TotalPoints)
	assert.Equal(t, map[event.Type]int{"sports": 30, "arts": 10, event.TypeDeduction: -5}, athena.PointsByType)
	assert.InDelta(t, 5.0/3.0, athena.AverageRank, 1e-9)
	assert.InDelta(t, 5.0, athena.PointsPerStudent, 1e-9)

	apollo := stats[2]
	assert.Equal(t, "Apollo", apollo.House)
	assert.Zero(t, apollo.AverageRank)
	assert.Zero(t, apollo.PointsPerStudent)
	assert.NotNil(t, apollo.PointsByType)
}
