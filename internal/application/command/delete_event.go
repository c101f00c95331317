package command

import (
	"context"

	"github.com/housepoints/house-points-hub/internal/domain/ledger"
	"github.com/housepoints/house-points-hub/pkg/logger"
)

// DeleteEventCommand removes an event and, by cascade, its results.
type DeleteEventCommand struct {
	EventID int64
}

// DeleteEventResult reports whether anything was removed.
type DeleteEventResult struct {
	Deleted bool
}

// DeleteEventHandler handles DeleteEventCommand.
type DeleteEventHandler struct {
	store ledger.Store
	log   *logger.Logger
}

// NewDeleteEventHandler creates a new DeleteEventHandler.
func NewDeleteEventHandler(store ledger.Store, log *logger.Logger) *DeleteEventHandler {
	return &DeleteEventHandler{store: store, log: log.WithComponent("command.delete_event")}
}

// Handle executes the command. Deleting a missing event is a no-op, and
// ids that can never exist are missing by definition.
func (h *DeleteEventHandler) Handle(ctx context.Context, cmd DeleteEventCommand) (*DeleteEventResult, error) {
	if cmd.EventID <= 0 {
		h.log.Debug("event already absent", logger.EventID(cmd.EventID))
		return &DeleteEventResult{Deleted: false}, nil
	}

	var deleted bool
	err := h.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		deleted, err = tx.DeleteEvent(ctx, cmd.EventID)
		return err
	})
	if err != nil {
		h.log.Error("failed to delete event", logger.Err(err), logger.EventID(cmd.EventID))
		return nil, err
	}

	if deleted {
		h.log.Info("event deleted", logger.EventID(cmd.EventID))
	} else {
		h.log.Debug("event already absent", logger.EventID(cmd.EventID))
	}
	return &DeleteEventResult{Deleted: deleted}, nil
}
