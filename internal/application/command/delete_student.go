package command

import (
	"context"

	"github.com/housepoints/house-points-hub/internal/domain/ledger"
	"github.com/housepoints/house-points-hub/internal/domain/shared"
	"github.com/housepoints/house-points-hub/internal/domain/student"
	"github.com/housepoints/house-points-hub/pkg/logger"
)

// DeleteStudentCommand removes one student.
type DeleteStudentCommand struct {
	StudentID int64
}

// Validate validates the command.
func (c DeleteStudentCommand) Validate() error {
	if c.StudentID <= 0 {
		return shared.Validationf("student", "Delete", "student id must be positive, got %d", c.StudentID)
	}
	return nil
}

// DeleteStudentResult returns the removed student.
type DeleteStudentResult struct {
	Student student.Profile
}

// DeleteStudentHandler handles DeleteStudentCommand.
type DeleteStudentHandler struct {
	store ledger.Store
	log   *logger.Logger
}

// NewDeleteStudentHandler creates a new DeleteStudentHandler.
func NewDeleteStudentHandler(store ledger.Store, log *logger.Logger) *DeleteStudentHandler {
	return &DeleteStudentHandler{store: store, log: log.WithComponent("command.delete_student")}
}

// Handle executes the command. Unlike event deletion, a missing student is
// reported as a NotFoundError.
func (h *DeleteStudentHandler) Handle(ctx context.Context, cmd DeleteStudentCommand) (*DeleteStudentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var removed student.Profile
	err := h.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		p, err := tx.FindStudent(ctx, cmd.StudentID)
		if err != nil {
			return err
		}
		removed = p
		return tx.DeleteStudent(ctx, cmd.StudentID)
	})
	if err != nil {
		h.log.Error("failed to delete student", logger.Err(err), logger.StudentID(cmd.StudentID))
		return nil, err
	}

	h.log.Info("student deleted", logger.StudentID(cmd.StudentID), logger.HouseID(removed.HouseID))
	return &DeleteStudentResult{Student: removed}, nil
}
