package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeSign(t *testing.T) {
	assert.Equal(t, -1, TypeDeduction.Sign())
	assert.Equal(t, 1, TypeQuickPoints.Sign())
	assert.Equal(t, 1, Type("sports").Sign())
	// only the exact tag is a deduction
	assert.Equal(t, 1, Type("Deduction").Sign())

	assert.True(t, TypeDeduction.IsReserved())
	assert.False(t, Type("arts").IsReserved())
}

func TestSigned(t *testing.T) {
	assert.Equal(t, -30, ScoredResult{EventType: TypeDeduction, Points: 30}.Signed())
	assert.Equal(t, 30, ScoredResult{EventType: "sports", Points: 30}.Signed())
	assert.Zero(t, ScoredResult{EventType: TypeDeduction}.Signed())
}

func TestValidateResults(t *testing.T) {
	assert.Empty(t, ValidateResults([]Result{{HouseID: 1, Points: 0, Rank: 1}, {HouseID: 2, Points: 5, Rank: 1}}))

	problems := ValidateResults(nil)
	require.Len(t, problems, 1)
	assert.Equal(t, "at least one result is required", JoinProblems(problems))

	problems = ValidateResults([]Result{
		{HouseID: 1, Points: -1, Rank: 1},
		{HouseID: 2, Points: 1, Rank: 0},
		{HouseID: 1, Points: 1, Rank: 2},
	})
	require.Len(t, problems, 3)
	assert.Equal(t,
		"result 1: points must be >= 0, got -1; result 2: rank must be >= 1, got 0; result 3: house 1 already listed in result 1",
		JoinProblems(problems))
}
