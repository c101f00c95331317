package query_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/housepoints/house-points-hub/internal/application/query"
	"github.com/housepoints/house-points-hub/internal/domain/shared"
	"github.com/housepoints/house-points-hub/internal/domain/student"
	"github.com/housepoints/house-points-hub/internal/testutil"
	"github.com/housepoints/house-points-hub/pkg/logger"
)

func newSuggester(f *testutil.Fixture) *query.SuggestHouseHandler {
	advisor := student.NewAdvisor("9", map[string]string{
		"101": "Athena", "102": "Poseidon", "103": "Artemis", "104": "Apollo",
	})
	return query.NewSuggestHouseHandler(f.Store, advisor, logger.Nop())
}

func TestSuggestHouse_JaneDoe(t *testing.T) {
	ctx := context.Background()
	f := testutil.Seeded(t)
	f.AddStudent(t, "Jane", "Doe", "Artemis", "Junior")
	f.AddStudent(t, "Max", "Roe", "Athena", "Junior")

	s, err := newSuggester(f).Handle(ctx, query.SuggestHouseQuery{FirstName: "John", LastName: "Doe", Grade: "10"})
	require.NoError(t, err)

	require.NotNil(t, s.HouseID)
	assert.Equal(t, f.House("Artemis"), *s.HouseID)
	assert.Equal(t, "Artemis", s.HouseName)
	assert.Equal(t, student.RuleSibling, s.Rule)
	assert.Contains(t, s.Reason, "Jane Doe")
	assert.Equal(t, []student.Sibling{{FirstName: "Jane", HouseName: "Artemis", ClassName: "Junior"}}, s.Siblings)
}

func TestSuggestHouse_SiblingMatchFoldsAccentedCase(t *testing.T) {
	ctx := context.Background()
	f := testutil.Seeded(t)
	f.AddStudent(t, "Ana", "Ñúñez", "Athena", "Junior")
	f.AddStudent(t, "Max", "Roe", "Apollo", "Junior")

	s, err := newSuggester(f).Handle(ctx, query.SuggestHouseQuery{FirstName: "Luis", LastName: "ÑÚÑEZ", Grade: "10"})
	require.NoError(t, err)
	assert.Equal(t, student.RuleSibling, s.Rule)
	assert.Equal(t, "Athena", s.HouseName)
	require.Len(t, s.Siblings, 1)
	assert.Equal(t, "Ana", s.Siblings[0].FirstName)
}

func TestSuggestHouse_HomeroomWins(t *testing.T) {
	ctx := context.Background()
	f := testutil.Seeded(t)
	f.AddStudent(t, "Jane", "Doe", "Artemis", "Junior")

	s, err := newSuggester(f).Handle(ctx, query.SuggestHouseQuery{LastName: "Doe", Grade: "9", Homeroom: "102"})
	require.NoError(t, err)
	assert.Equal(t, student.RuleHomeroom, s.Rule)
	assert.Equal(t, "Poseidon", s.HouseName)
	assert.Empty(t, s.Siblings)
}

func TestSuggestHouse_SiblingTieBrokenByBalance(t *testing.T) {
	ctx := context.Background()
	f := testutil.Seeded(t)
	f.AddStudent(t, "Ann", "Kay", "Athena", "Senior")
	f.AddStudent(t, "Bob", "Kay", "Apollo", "Junior")
	f.AddStudent(t, "Extra", "One", "Athena", "Freshman")

	s, err := newSuggester(f).Handle(ctx, query.SuggestHouseQuery{LastName: "kay", Grade: "11"})
	require.NoError(t, err)
	assert.Equal(t, student.RuleSibling, s.Rule)
	assert.Equal(t, "Apollo", s.HouseName)
	assert.Contains(t, s.Reason, "Athena")
	assert.Contains(t, s.Reason, "Apollo")
	assert.Contains(t, s.Reason, "fewest total students")
	assert.Len(t, s.Siblings, 2)
}

func TestSuggestHouse_Balance(t *testing.T) {
	ctx := context.Background()
	f := testutil.Seeded(t)
	f.AddStudent(t, "A", "One", "Athena", "Senior")
	f.AddStudent(t, "B", "Two", "Athena", "Senior")
	f.AddStudent(t, "C", "Three", "Apollo", "Senior")

	s, err := newSuggester(f).Handle(ctx, query.SuggestHouseQuery{LastName: "New", Grade: "12"})
	require.NoError(t, err)
	assert.Equal(t, student.RuleBalance, s.Rule)
	assert.Equal(t, "Apollo", s.HouseName)
	assert.Empty(t, s.Siblings)
}

func TestSuggestHouse_NoStudents(t *testing.T) {
	ctx := context.Background()
	f := testutil.Seeded(t)

	s, err := newSuggester(f).Handle(ctx, query.SuggestHouseQuery{LastName: "New", Grade: "12"})
	require.NoError(t, err)
	assert.Nil(t, s.HouseID)
	assert.Equal(t, student.RuleNone, s.Rule)
	assert.NotEmpty(t, s.Reason)
}

func TestSuggestHouse_RequiresLastName(t *testing.T) {
	f := testutil.Seeded(t)
	_, err := newSuggester(f).Handle(context.Background(), query.SuggestHouseQuery{Grade: "9"})
	assert.True(t, shared.IsValidation(err))
}
