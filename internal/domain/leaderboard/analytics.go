package leaderboard

import (
	"github.com/housepoints/house-points-hub/internal/domain/event"
	"github.com/housepoints/house-points-hub/internal/domain/house"
)

// HouseStats is the per-house breakdown shown by the stats report.
type HouseStats struct {
	Entry
	PointsByType     map[event.Type]int
	AverageRank      float64 // 0 when the house has no results
	Students         int
	PointsPerStudent float64 // 0 when the house has no students
}

// Analyze extends the leaderboard with type breakdowns, average rank and
// per-student figures. Output follows leaderboard order.
func Analyze(houses []house.House, rows []event.ScoredResult, studentCounts map[int64]int) []HouseStats {
	entries := Build(houses, rows)

	byType := make(map[int64]map[event.Type]int, len(houses))
	rankSum := make(map[int64]int, len(houses))
	rankN := make(map[int64]int, len(houses))
	for _, row := range rows {
		m, ok := byType[row.HouseID]
		if !ok {
			m = make(map[event.Type]int)
			byType[row.HouseID] = m
		}
		m[row.EventType] += row.Signed()
		rankSum[row.HouseID] += row.Rank
		rankN[row.HouseID]++
	}

	out := make([]HouseStats, len(entries))
	for i, e := range entries {
		s := HouseStats{
			Entry:        e,
			PointsByType: byType[e.HouseID],
			Students:     studentCounts[e.HouseID],
		}
		if s.PointsByType == nil {
			s.PointsByType = map[event.Type]int{}
		}
		if n := rankN[e.HouseID]; n > 0 {
			s.AverageRank = float64(rankSum[e.HouseID]) / float64(n)
		}
		if s.Students > 0 {
			s.PointsPerStudent = float64(e.TotalPoints) / float64(s.Students)
		}
		out[i] = s
	}
	return out
}
