package query

import (
	"context"

	"github.com/housepoints/house-points-hub/internal/domain/leaderboard"
	"github.com/housepoints/house-points-hub/internal/domain/ledger"
	"github.com/housepoints/house-points-hub/pkg/logger"
	"github.com/housepoints/house-points-hub/pkg/retry"
)

// CompetitionStats is the analytics report.
type CompetitionStats struct {
	Houses        []leaderboard.HouseStats // leaderboard order
	TotalEvents   int
	TotalStudents int
	TotalPoints   int // signed sum over all results
}

// StatsHandler computes CompetitionStats.
type StatsHandler struct {
	store   ledger.Reader
	retrier *retry.Retrier
	log     *logger.Logger
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(store ledger.Reader, log *logger.Logger) *StatsHandler {
	return &StatsHandler{store: store, retrier: retry.ReadRetrier(), log: log.WithComponent("query.stats")}
}

// Handle builds the report.
func (h *StatsHandler) Handle(ctx context.Context) (*CompetitionStats, error) {
	return retry.DoWithData(ctx, h.retrier, func(ctx context.Context) (*CompetitionStats, error) {
		houses, err := h.store.ListHouses(ctx)
		if err != nil {
			return nil, err
		}
		rows, err := h.store.ListScoredResults(ctx)
		if err != nil {
			return nil, err
		}
		counts, err := h.store.CountStudentsByHouse(ctx)
		if err != nil {
			return nil, err
		}
		events, err := h.store.ListEvents(ctx, 0)
		if err != nil {
			return nil, err
		}

		stats := &CompetitionStats{
			Houses:      leaderboard.Analyze(houses, rows, counts),
			TotalEvents: len(events),
			TotalPoints: leaderboard.LedgerSum(rows),
		}
		for _, n := range counts {
			stats.TotalStudents += n
		}

		h.log.Debug("stats computed", logger.Int("events", stats.TotalEvents), logger.Int("students", stats.TotalStudents))
		return stats, nil
	})
}
