package command_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/housepoints/house-points-hub/internal/application/command"
	"github.com/housepoints/house-points-hub/internal/domain/shared"
	"github.com/housepoints/house-points-hub/internal/domain/student"
	"github.com/housepoints/house-points-hub/internal/testutil"
	"github.com/housepoints/house-points-hub/pkg/logger"
)

func ptr[T any](v T) *T { return &v }

func TestAddStudent(t *testing.T) {
	ctx := context.Background()
	f := testutil.Seeded(t)
	h := command.NewAddStudentHandler(f.Store, logger.Nop())

	res, err := h.Handle(ctx, command.AddStudentCommand{
		FirstName:   "  Jane ",
		LastName:    "Doe",
		Email:       "jane@school.test",
		HouseID:     f.House("Athena"),
		ClassYearID: f.Class("Junior"),
	})
	require.NoError(t, err)
	require.NotZero(t, res.Student.ID)
	assert.Equal(t, "Jane", res.Student.FirstName)

	p, err := f.Store.FindStudent(ctx, res.Student.ID)
	require.NoError(t, err)
	assert.Equal(t, "Athena", p.HouseName)
	assert.Equal(t, "Junior", p.ClassName)
	assert.Equal(t, "jane@school.test", p.Email)
}

func TestAddStudent_DuplicateEmailAllowed(t *testing.T) {
	ctx := context.Background()
	f := testutil.Seeded(t)
	h := command.NewAddStudentHandler(f.Store, logger.Nop())

	cmd := command.AddStudentCommand{
		FirstName: "Sam", LastName: "Lee", Email: "shared@school.test",
		HouseID: f.House("Apollo"), ClassYearID: f.Class("Freshman"),
	}
	_, err := h.Handle(ctx, cmd)
	require.NoError(t, err)

	cmd.FirstName = "Sara"
	_, err = h.Handle(ctx, cmd)
	require.NoError(t, err)

	all, err := f.Store.ListStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAddStudent_Errors(t *testing.T) {
	ctx := context.Background()
	f := testutil.Seeded(t)
	h := command.NewAddStudentHandler(f.Store, logger.Nop())

	valid := command.AddStudentCommand{
		FirstName: "Ann", LastName: "Park",
		HouseID: f.House("Artemis"), ClassYearID: f.Class("Senior"),
	}

	tests := []struct {
		name  string
		mod   func(c *command.AddStudentCommand)
		check func(error) bool
	}{
		{"unknown house", func(c *command.AddStudentCommand) { c.HouseID = 999 }, shared.IsReference},
		{"unknown class year", func(c *command.AddStudentCommand) { c.ClassYearID = 999 }, shared.IsReference},
		{"blank first name", func(c *command.AddStudentCommand) { c.FirstName = "   " }, shared.IsValidation},
		{"missing last name", func(c *command.AddStudentCommand) { c.LastName = "" }, shared.IsValidation},
		{"zero house", func(c *command.AddStudentCommand) { c.HouseID = 0 }, shared.IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := valid
			tt.mod(&cmd)
			_, err := h.Handle(ctx, cmd)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error kind: %v", err)
		})
	}

	all, err := f.Store.ListStudents(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAddStudents_Homeroom(t *testing.T) {
	ctx := context.Background()
	f := testutil.Seeded(t)
	h := command.NewAddStudentsHandler(f.Store, logger.Nop())

	res, err := h.Handle(ctx, command.AddStudentsCommand{
		HouseID:     f.House("Poseidon"),
		ClassYearID: f.Class("Freshman"),
		Students: []command.NewStudent{
			{FirstName: "Ava", LastName: "Stone"},
			{FirstName: "Ben", LastName: "Ng"},
			{FirstName: "Cal", LastName: "Ortiz"},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Students, 3)
	for _, s := range res.Students {
		assert.NotZero(t, s.ID)
		assert.Equal(t, f.House("Poseidon"), s.HouseID)
	}

	counts, err := f.Store.CountStudentsByHouse(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{f.House("Poseidon"): 3}, counts)
}

func TestAddStudents_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	f := testutil.Seeded(t)
	before := testutil.Dump(t, f.Store)

	store := &testutil.FaultyStore{Store: f.Store, FailAt: "InsertStudent"}
	h := command.NewAddStudentsHandler(store, logger.Nop())

	_, err := h.Handle(ctx, command.AddStudentsCommand{
		HouseID:     f.House("Poseidon"),
		ClassYearID: f.Class("Freshman"),
		Students:    []command.NewStudent{{FirstName: "Ava", LastName: "Stone"}},
	})
	require.ErrorIs(t, err, testutil.ErrInjected)
	assert.Equal(t, before, testutil.Dump(t, f.Store))
}

func TestAddStudents_Validation(t *testing.T) {
	ctx := context.Background()
	f := testutil.Seeded(t)
	h := command.NewAddStudentsHandler(f.Store, logger.Nop())

	_, err := h.Handle(ctx, command.AddStudentsCommand{
		HouseID: f.House("Poseidon"), ClassYearID: f.Class("Freshman"),
	})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(ctx, command.AddStudentsCommand{
		HouseID: f.House("Poseidon"), ClassYearID: f.Class("Freshman"),
		Students: []command.NewStudent{{FirstName: "Ava", LastName: "Stone"}, {FirstName: "", LastName: "Ng"}},
	})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(ctx, command.AddStudentsCommand{
		HouseID: 404, ClassYearID: f.Class("Freshman"),
		Students: []command.NewStudent{{FirstName: "Ava", LastName: "Stone"}},
	})
	assert.True(t, shared.IsReference(err))
}

func TestUpdateStudent(t *testing.T) {
	ctx := context.Background()
	f := testutil.Seeded(t)
	s := f.AddStudent(t, "Jane", "Doe", "Athena", "Junior")
	h := command.NewUpdateStudentHandler(f.Store, logger.Nop())

	res, err := h.Handle(ctx, command.UpdateStudentCommand{
		StudentID: s.ID,
		Changes:   student.Update{HouseID: ptr(f.House("Apollo")), Email: ptr("jd@school.test")},
	})
	require.NoError(t, err)
	assert.Equal(t, f.House("Athena"), res.Before.HouseID)
	assert.Equal(t, f.House("Apollo"), res.After.HouseID)

	p, err := f.Store.FindStudent(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Apollo", p.HouseName)
	assert.Equal(t, "jd@school.test", p.Email)
	assert.Equal(t, "Jane", p.FirstName)
}

func TestUpdateStudent_Errors(t *testing.T) {
	ctx := context.Background()
	f := testutil.Seeded(t)
	s := f.AddStudent(t, "Jane", "Doe", "Athena", "Junior")
	h := command.NewUpdateStudentHandler(f.Store, logger.Nop())

	_, err := h.Handle(ctx, command.UpdateStudentCommand{StudentID: 9999, Changes: student.Update{FirstName: ptr("X")}})
	assert.True(t, shared.IsNotFound(err), "got %v", err)

	_, err = h.Handle(ctx, command.UpdateStudentCommand{StudentID: s.ID, Changes: student.Update{HouseID: ptr(int64(9999))}})
	assert.True(t, shared.IsReference(err), "got %v", err)

	_, err = h.Handle(ctx, command.UpdateStudentCommand{StudentID: s.ID})
	assert.True(t, shared.IsValidation(err), "got %v", err)

	_, err = h.Handle(ctx, command.UpdateStudentCommand{StudentID: s.ID, Changes: student.Update{LastName: ptr(" ")}})
	assert.True(t, shared.IsValidation(err), "got %v", err)

	_, err = h.Handle(ctx, command.UpdateStudentCommand{StudentID: 0, Changes: student.Update{FirstName: ptr("X")}})
	assert.True(t, shared.IsValidation(err), "got %v", err)

	_, err = h.Handle(ctx, command.UpdateStudentCommand{StudentID: s.ID, Changes: student.Update{HouseID: ptr(int64(0))}})
	assert.True(t, shared.IsValidation(err), "got %v", err)

	_, err = h.Handle(ctx, command.UpdateStudentCommand{StudentID: s.ID, Changes: student.Update{FirstName: ptr(strings.Repeat("a", 101))}})
	require.True(t, shared.IsValidation(err), "got %v", err)
	assert.Contains(t, err.Error(), "FirstName (max=100)")

	_, err = h.Handle(ctx, command.UpdateStudentCommand{StudentID: s.ID, Changes: student.Update{Email: ptr(strings.Repeat("e", 250) + "@x.io")}})
	require.True(t, shared.IsValidation(err), "got %v", err)
	assert.Contains(t, err.Error(), "Email (max=254)")

	p, err := f.Store.FindStudent(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Athena", p.HouseName)
	assert.Equal(t, "Doe", p.LastName)
}

func TestDeleteStudent(t *testing.T) {
	ctx := context.Background()
	f := testutil.Seeded(t)
	s := f.AddStudent(t, "Jane", "Doe", "Athena", "Junior")
	h := command.NewDeleteStudentHandler(f.Store, logger.Nop())

	res, err := h.Handle(ctx, command.DeleteStudentCommand{StudentID: s.ID})
	require.NoError(t, err)
	assert.Equal(t, "Jane", res.Student.FirstName)

	_, err = f.Store.FindStudent(ctx, s.ID)
	assert.True(t, shared.IsNotFound(err))

	_, err = h.Handle(ctx, command.DeleteStudentCommand{StudentID: s.ID})
	assert.True(t, shared.IsNotFound(err), "deleting twice must report not found, got %v", err)
}
