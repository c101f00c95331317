package command

import (
	"context"

	"github.com/housepoints/house-points-hub/internal/domain/ledger"
	"github.com/housepoints/house-points-hub/internal/domain/shared"
	"github.com/housepoints/house-points-hub/internal/domain/student"
	"github.com/housepoints/house-points-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE STUDENT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// UpdateStudentCommand changes the non-nil fields of an existing student.
// The student as it looks after the change is held to the same rules as a
// new enrollment.
type UpdateStudentCommand struct {
	StudentID int64 `validate:"gt=0"`
	Changes   student.Update
}

// Validate validates the command.
func (c UpdateStudentCommand) Validate() error {
	if err := shared.ValidateStruct("student", "Update", c); err != nil {
		return err
	}
	if c.Changes.IsEmpty() {
		return shared.Validationf("student", "Update", "no fields to update")
	}
	return nil
}

// UpdateStudentResult contains the student before and after the update.
type UpdateStudentResult struct {
	Before student.Student
	After  student.Student
}

// UpdateStudentHandler handles UpdateStudentCommand.
type UpdateStudentHandler struct {
	store ledger.Store
	log   *logger.Logger
}

// NewUpdateStudentHandler creates a new UpdateStudentHandler.
func NewUpdateStudentHandler(store ledger.Store, log *logger.Logger) *UpdateStudentHandler {
	return &UpdateStudentHandler{store: store, log: log.WithComponent("command.update_student")}
}

// Handle executes the command. A missing student is a NotFoundError.
func (h *UpdateStudentHandler) Handle(ctx context.Context, cmd UpdateStudentCommand) (*UpdateStudentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var result UpdateStudentResult
	err := h.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		current, err := tx.FindStudent(ctx, cmd.StudentID)
		if err != nil {
			return err
		}

		next := cmd.Changes.Apply(current.Student)
		if err := shared.ValidateStruct("student", "Update", enrollmentOf(next)); err != nil {
			return err
		}
		if err := requireReferences(ctx, tx, "Update", next.HouseID, next.ClassYearID); err != nil {
			return err
		}
		if err := tx.UpdateStudent(ctx, next); err != nil {
			return err
		}

		result = UpdateStudentResult{Before: current.Student, After: next}
		return nil
	})
	if err != nil {
		h.log.Error("failed to update student", logger.Err(err), logger.StudentID(cmd.StudentID))
		return nil, err
	}

	h.log.Info("student updated",
		logger.StudentID(cmd.StudentID),
		logger.Bool("house_changed", result.Before.HouseID != result.After.HouseID),
	)
	return &result, nil
}
