// Package command contains the write operations on the ledger. Every
// handler runs its mutation inside a single ledger transaction.
package command

import (
	"context"
	"errors"

	"github.com/housepoints/house-points-hub/internal/domain/ledger"
	"github.com/housepoints/house-points-hub/internal/domain/shared"
	"github.com/housepoints/house-points-hub/internal/domain/student"
	"github.com/housepoints/house-points-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADD STUDENT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// AddStudentCommand enrolls one student. Duplicate emails are allowed.
type AddStudentCommand struct {
	FirstName   string `validate:"required,max=100"`
	LastName    string `validate:"required,max=100"`
	Email       string `validate:"max=254"`
	HouseID     int64  `validate:"gt=0"`
	ClassYearID int64  `validate:"gt=0"`
}

// Validate validates the command.
func (c AddStudentCommand) Validate() error {
	return shared.ValidateStruct("student", "Add", c)
}

func (c AddStudentCommand) student() student.Student {
	s := student.Student{
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		HouseID:     c.HouseID,
		ClassYearID: c.ClassYearID,
	}
	s.Normalize()
	return s
}

// enrollmentOf is the inverse of student(): it lets an updated student be
// checked against the enrollment tags.
func enrollmentOf(s student.Student) AddStudentCommand {
	return AddStudentCommand{
		FirstName:   s.FirstName,
		LastName:    s.LastName,
		Email:       s.Email,
		HouseID:     s.HouseID,
		ClassYearID: s.ClassYearID,
	}
}

// AddStudentResult contains the stored student.
type AddStudentResult struct {
	Student student.Student
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AddStudentHandler handles AddStudentCommand.
type AddStudentHandler struct {
	store ledger.Store
	log   *logger.Logger
}

// NewAddStudentHandler creates a new AddStudentHandler.
func NewAddStudentHandler(store ledger.Store, log *logger.Logger) *AddStudentHandler {
	return &AddStudentHandler{store: store, log: log.WithComponent("command.add_student")}
}

// Handle executes the command. An unknown house or class year is a
// ReferenceError.
func (h *AddStudentHandler) Handle(ctx context.Context, cmd AddStudentCommand) (*AddStudentResult, error) {
	// Normalize before validating so that "  " counts as empty.
	s := cmd.student()
	cmd.FirstName, cmd.LastName, cmd.Email = s.FirstName, s.LastName, s.Email
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	err := h.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if err := requireReferences(ctx, tx, "Add", s.HouseID, s.ClassYearID); err != nil {
			return err
		}
		return tx.InsertStudent(ctx, &s)
	})
	if err != nil {
		h.log.Error("failed to add student", logger.Err(err), logger.HouseID(cmd.HouseID))
		return nil, err
	}

	h.log.Info("student added",
		logger.StudentID(s.ID),
		logger.HouseID(s.HouseID),
		logger.ClassYearID(s.ClassYearID),
	)
	return &AddStudentResult{Student: s}, nil
}

// requireReferences turns a missing house or class year into a
// ReferenceError before the insert reaches the foreign keys.
func requireReferences(ctx context.Context, tx ledger.Reader, op string, houseID, classYearID int64) error {
	if _, err := tx.FindHouse(ctx, houseID); err != nil {
		return asReference(err, "student", op, "house %d does not exist", houseID)
	}
	if _, err := tx.FindClassYear(ctx, classYearID); err != nil {
		return asReference(err, "student", op, "class year %d does not exist", classYearID)
	}
	return nil
}

func asReference(err error, domain, op, format string, id int64) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.Referencef(domain, op, format, id)
	}
	return err
}
