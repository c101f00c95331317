// Package query contains the read operations. Queries never modify state
// and never cache: every call recomputes from the ledger.
package query

import (
	"context"

	"github.com/housepoints/house-points-hub/internal/domain/event"
	"github.com/housepoints/house-points-hub/internal/domain/house"
	"github.com/housepoints/house-points-hub/internal/domain/leaderboard"
	"github.com/housepoints/house-points-hub/internal/domain/ledger"
	"github.com/housepoints/house-points-hub/pkg/logger"
	"github.com/housepoints/house-points-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// STANDINGS
// Totals, leaderboard, winner and gaps. Every method performs one houses read
// and one grouped pass over the scored results.
// ══════════════════════════════════════════════════════════════════════════════

// StandingsHandler answers the standings queries.
type StandingsHandler struct {
	store   ledger.Reader
	retrier *retry.Retrier
	log     *logger.Logger
}

// NewStandingsHandler creates a new StandingsHandler.
func NewStandingsHandler(store ledger.Reader, log *logger.Logger) *StandingsHandler {
	return &StandingsHandler{
		store:   store,
		retrier: retry.ReadRetrier(),
		log:     log.WithComponent("query.standings"),
	}
}

type snapshot struct {
	houses []house.House
	rows   []event.ScoredResult
}

func (h *StandingsHandler) load(ctx context.Context) (snapshot, error) {
	return retry.DoWithData(ctx, h.retrier, func(ctx context.Context) (snapshot, error) {
		houses, err := h.store.ListHouses(ctx)
		if err != nil {
			return snapshot{}, err
		}
		rows, err := h.store.ListScoredResults(ctx)
		if err != nil {
			return snapshot{}, err
		}
		return snapshot{houses: houses, rows: rows}, nil
	})
}

// TotalPoints returns the signed total of one house. An unknown house is a
// NotFoundError; a house without results has 0.
func (h *StandingsHandler) TotalPoints(ctx context.Context, houseID int64) (int, error) {
	total, err := retry.DoWithData(ctx, h.retrier, func(ctx context.Context) (int, error) {
		if _, err := h.store.FindHouse(ctx, houseID); err != nil {
			return 0, err
		}
		rows, err := h.store.ListScoredResults(ctx)
		if err != nil {
			return 0, err
		}
		return leaderboard.Totals(rows)[houseID], nil
	})
	if err != nil {
		return 0, err
	}
	h.log.Debug("total points computed", logger.HouseID(houseID), logger.Int("total", total))
	return total, nil
}

// Leaderboard returns every house ranked by total points.
func (h *StandingsHandler) Leaderboard(ctx context.Context) ([]leaderboard.Entry, error) {
	snap, err := h.load(ctx)
	if err != nil {
		return nil, err
	}
	entries := leaderboard.Build(snap.houses, snap.rows)
	h.log.Debug("leaderboard computed", logger.Int("houses", len(entries)), logger.Int("rows", len(snap.rows)))
	return entries, nil
}

// Winner returns the leading house, or nil when no houses exist.
func (h *StandingsHandler) Winner(ctx context.Context) (*leaderboard.Entry, error) {
	entries, err := h.Leaderboard(ctx)
	if err != nil {
		return nil, err
	}
	return leaderboard.Winner(entries), nil
}

// StandingsWithGap returns the leaderboard with each house's lead over the
// next one.
func (h *StandingsHandler) StandingsWithGap(ctx context.Context) ([]leaderboard.Standing, error) {
	entries, err := h.Leaderboard(ctx)
	if err != nil {
		return nil, err
	}
	return leaderboard.WithGaps(entries), nil
}
