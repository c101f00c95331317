package command

import (
	"context"
	"strings"
	"time"

	"github.com/housepoints/house-points-hub/internal/domain/event"
	"github.com/housepoints/house-points-hub/internal/domain/ledger"
	"github.com/housepoints/house-points-hub/internal/domain/shared"
	"github.com/housepoints/house-points-hub/pkg/logger"
	"github.com/housepoints/house-points-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD QUICK POINTS COMMAND
// Ad-hoc awards and deductions. Each non-zero delta becomes its own
// single-result event dated today in the school timezone.
// ══════════════════════════════════════════════════════════════════════════════

// Award is one house's point change. Negative deltas are deductions.
type Award struct {
	HouseID int64 `validate:"gt=0"`
	Delta   int
}

// RecordQuickPointsCommand applies several awards under one reason.
type RecordQuickPointsCommand struct {
	Reason string  `validate:"required,max=200"`
	Awards []Award `validate:"required,min=1,dive"`
}

// Validate validates the command. Zero deltas are allowed individually but
// at least one award must change something.
func (c RecordQuickPointsCommand) Validate() error {
	if err := shared.ValidateStruct("points", "Record", c); err != nil {
		return err
	}
	for _, a := range c.Awards {
		if a.Delta != 0 {
			return nil
		}
	}
	return shared.ErrNoPointChanges
}

// QuickPointsEvent describes one created event.
type QuickPointsEvent struct {
	EventID int64
	HouseID int64
	Type    event.Type
	Points  int // stored, non-negative
	Delta   int // signed, as requested
}

// RecordQuickPointsResult lists created events in award order, zero
// deltas omitted.
type RecordQuickPointsResult struct {
	Events []QuickPointsEvent
}

// EventIDs returns the IDs of the created events.
func (r *RecordQuickPointsResult) EventIDs() []int64 {
	ids := make([]int64, len(r.Events))
	for i, e := range r.Events {
		ids[i] = e.EventID
	}
	return ids
}

// RecordQuickPointsHandler handles RecordQuickPointsCommand.
type RecordQuickPointsHandler struct {
	store ledger.Store
	clock timeutil.Clock
	log   *logger.Logger
}

// NewRecordQuickPointsHandler creates a new RecordQuickPointsHandler.
func NewRecordQuickPointsHandler(store ledger.Store, clock timeutil.Clock, log *logger.Logger) *RecordQuickPointsHandler {
	return &RecordQuickPointsHandler{store: store, clock: clock, log: log.WithComponent("command.quick_points")}
}

// Handle records every non-zero award in one transaction.
func (h *RecordQuickPointsHandler) Handle(ctx context.Context, cmd RecordQuickPointsCommand) (*RecordQuickPointsResult, error) {
	cmd.Reason = strings.TrimSpace(cmd.Reason)
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := h.clock.Now()
	today := timeutil.DateOnly(now)

	result := &RecordQuickPointsResult{}
	err := h.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		result.Events = result.Events[:0]
		for _, a := range cmd.Awards {
			if a.Delta == 0 {
				continue
			}
			hs, err := tx.FindHouse(ctx, a.HouseID)
			if err != nil {
				return asReference(err, "points", "Record", "house %d does not exist", a.HouseID)
			}

			e := quickPointsEvent(today, cmd.Reason, hs.ID, a.Delta)
			e.CreatedAt = now.UTC()
			e.Results[0].HouseName = hs.Name
			if err := tx.InsertEvent(ctx, &e); err != nil {
				return err
			}
			result.Events = append(result.Events, QuickPointsEvent{
				EventID: e.ID,
				HouseID: hs.ID,
				Type:    e.Type,
				Points:  e.Results[0].Points,
				Delta:   a.Delta,
			})
		}
		return nil
	})
	if err != nil {
		h.log.Error("failed to record quick points", logger.Err(err), logger.Int("awards", len(cmd.Awards)))
		return nil, err
	}

	for _, qe := range result.Events {
		h.log.Info("quick points recorded",
			logger.EventID(qe.EventID),
			logger.HouseID(qe.HouseID),
			logger.Int("delta", qe.Delta),
		)
	}
	return result, nil
}

// quickPointsEvent maps a signed delta to a stored event: negative deltas
// become deductions holding the absolute value, both with rank 1.
func quickPointsEvent(date time.Time, reason string, houseID int64, delta int) event.Event {
	typ, points := event.TypeQuickPoints, delta
	if delta < 0 {
		typ, points = event.TypeDeduction, -delta
	}
	return event.Event{
		Date:        date,
		Description: reason,
		Type:        typ,
		Results:     []event.Result{{HouseID: houseID, Points: points, Rank: 1}},
	}
}
