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
// ADD EVENT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// AddEventCommand records a scored event with one result per participating
// house. Points are stored as given; a "deduction" type subtracts them.
type AddEventCommand struct {
	Date        time.Time  `validate:"required"`
	Description string     `validate:"required,max=200"`
	Type        event.Type `validate:"required,max=50"`
	Results     []event.Result
}

// Validate validates the command, including the result set.
func (c AddEventCommand) Validate() error {
	if len(c.Results) == 0 {
		return shared.ErrNoResults
	}
	if err := shared.ValidateStruct("event", "Add", c); err != nil {
		return err
	}
	if problems := event.ValidateResults(c.Results); len(problems) > 0 {
		return shared.Validationf("event", "Add", "invalid results: %s", event.JoinProblems(problems))
	}
	return nil
}

// AddEventResult contains the stored event.
type AddEventResult struct {
	Event event.Event
}

// AddEventHandler handles AddEventCommand.
type AddEventHandler struct {
	store ledger.Store
	clock timeutil.Clock
	log   *logger.Logger
}

// NewAddEventHandler creates a new AddEventHandler.
func NewAddEventHandler(store ledger.Store, clock timeutil.Clock, log *logger.Logger) *AddEventHandler {
	return &AddEventHandler{store: store, clock: clock, log: log.WithComponent("command.add_event")}
}

// Handle stores the event and all of its results atomically. A result for
// an unknown house is a ReferenceError and nothing is stored.
func (h *AddEventHandler) Handle(ctx context.Context, cmd AddEventCommand) (*AddEventResult, error) {
	cmd.Description = strings.TrimSpace(cmd.Description)
	cmd.Type = event.Type(strings.TrimSpace(string(cmd.Type)))
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	e := event.Event{
		Date:        timeutil.DateOnly(cmd.Date),
		Description: cmd.Description,
		Type:        cmd.Type,
		CreatedAt:   h.clock.Now().UTC(),
		Results:     append([]event.Result(nil), cmd.Results...),
	}

	err := h.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		for i, r := range e.Results {
			hs, err := tx.FindHouse(ctx, r.HouseID)
			if err != nil {
				return asReference(err, "event", "Add", "house %d does not exist", r.HouseID)
			}
			e.Results[i].HouseName = hs.Name
		}
		return tx.InsertEvent(ctx, &e)
	})
	if err != nil {
		h.log.Error("failed to add event", logger.Err(err), logger.String("type", string(cmd.Type)))
		return nil, err
	}

	h.log.Info("event added",
		logger.EventID(e.ID),
		logger.String("type", string(e.Type)),
		logger.Int("results", len(e.Results)),
	)
	return &AddEventResult{Event: e}, nil
}
