package command

import (
	"context"

	"github.com/housepoints/house-points-hub/internal/domain/ledger"
	"github.com/housepoints/house-points-hub/internal/domain/shared"
	"github.com/housepoints/house-points-hub/internal/domain/student"
	"github.com/housepoints/house-points-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADD STUDENTS FROM HOMEROOM
// A whole homeroom is enrolled into one house and class year at once.
// ══════════════════════════════════════════════════════════════════════════════

// NewStudent is one row of a homeroom bulk add.
type NewStudent struct {
	FirstName string `validate:"required,max=100"`
	LastName  string `validate:"required,max=100"`
	Email     string `validate:"max=254"`
}

// AddStudentsCommand enrolls several students into one house and class year.
type AddStudentsCommand struct {
	HouseID     int64        `validate:"gt=0"`
	ClassYearID int64        `validate:"gt=0"`
	Students    []NewStudent `validate:"required,min=1,dive"`
}

// Validate validates the command.
func (c AddStudentsCommand) Validate() error {
	return shared.ValidateStruct("student", "AddBulk", c)
}

// AddStudentsResult lists the stored students in input order.
type AddStudentsResult struct {
	Students []student.Student
}

// AddStudentsHandler handles AddStudentsCommand. Either every student is
// stored or none is.
type AddStudentsHandler struct {
	store ledger.Store
	log   *logger.Logger
}

// NewAddStudentsHandler creates a new AddStudentsHandler.
func NewAddStudentsHandler(store ledger.Store, log *logger.Logger) *AddStudentsHandler {
	return &AddStudentsHandler{store: store, log: log.WithComponent("command.add_students")}
}

// Handle executes the command.
func (h *AddStudentsHandler) Handle(ctx context.Context, cmd AddStudentsCommand) (*AddStudentsResult, error) {
	batch := make([]student.Student, len(cmd.Students))
	for i, ns := range cmd.Students {
		s := student.Student{
			FirstName:   ns.FirstName,
			LastName:    ns.LastName,
			Email:       ns.Email,
			HouseID:     cmd.HouseID,
			ClassYearID: cmd.ClassYearID,
		}
		s.Normalize()
		batch[i] = s
		cmd.Students[i] = NewStudent{FirstName: s.FirstName, LastName: s.LastName, Email: s.Email}
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	err := h.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if err := requireReferences(ctx, tx, "AddBulk", cmd.HouseID, cmd.ClassYearID); err != nil {
			return err
		}
		for i := range batch {
			if err := tx.InsertStudent(ctx, &batch[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		h.log.Error("failed to add homeroom students",
			logger.Err(err),
			logger.HouseID(cmd.HouseID),
			logger.Int("count", len(batch)),
		)
		return nil, err
	}

	h.log.Info("homeroom students added",
		logger.HouseID(cmd.HouseID),
		logger.ClassYearID(cmd.ClassYearID),
		logger.Int("count", len(batch)),
	)
	return &AddStudentsResult{Students: batch}, nil
}
