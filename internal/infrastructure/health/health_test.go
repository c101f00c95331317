package health_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/housepoints/house-points-hub/internal/infrastructure/health"
	"github.com/housepoints/house-points-hub/internal/testutil"
)

func TestChecker_Empty(t *testing.T) {
	st := health.NewChecker(time.Second).Check(context.Background())
	assert.True(t, st.Healthy)
	assert.Empty(t, st.Results)
}

func TestChecker_AggregatesSortedResults(t *testing.T) {
	c := health.NewChecker(time.Second)
	c.Add("redis", func(context.Context) error { return errors.New("connection refused") })
	c.Add("ledger", func(context.Context) error { return nil })
	c.Add("boom", func(context.Context) error { panic("x") })

	st := c.Check(context.Background())
	assert.False(t, st.Healthy)
	assert.Equal(t, "failing: boom, redis", st.Message)

	require.Len(t, st.Results, 3)
	assert.Equal(t, "boom", st.Results[0].Name)
	assert.Equal(t, "check panicked", st.Results[0].Message)
	assert.Equal(t, "ledger", st.Results[1].Name)
	assert.True(t, st.Results[1].Healthy)
	assert.Equal(t, "connection refused", st.Results[2].Message)
}

func TestChecker_Timeout(t *testing.T) {
	c := health.NewChecker(20 * time.Millisecond)
	c.Add("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	st := c.Check(context.Background())
	require.Len(t, st.Results, 1)
	assert.False(t, st.Healthy)
	assert.Equal(t, "timed out", st.Results[0].Message)
}

func TestChecker_TimeoutWhenCheckIgnoresContext(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	c := health.NewChecker(20 * time.Millisecond)
	c.Add("stuck", func(context.Context) error {
		<-release
		return nil
	})
	c.Add("ledger", func(context.Context) error { return nil })

	start := time.Now()
	st := c.Check(context.Background())
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Len(t, st.Results, 2)
	assert.False(t, st.Healthy)
	assert.Equal(t, "failing: stuck", st.Message)
	assert.Equal(t, "timed out", st.Results[1].Message)
}

func TestChecker_ReplacesByName(t *testing.T) {
	c := health.NewChecker(time.Second)
	c.Add("ledger", func(context.Context) error { return errors.New("down") })
	c.Add("ledger", func(context.Context) error { return nil })

	st := c.Check(context.Background())
	assert.True(t, st.Healthy)
	assert.Len(t, st.Results, 1)
}

func TestSeededCheck(t *testing.T) {
	ctx := context.Background()

	empty := testutil.NewLedger(t)
	assert.ErrorIs(t, health.SeededCheck(empty)(ctx), health.ErrNotSetUp)
	assert.NoError(t, health.PingCheck(empty)(ctx))

	f := testutil.Seeded(t)
	assert.NoError(t, health.SeededCheck(f.Store)(ctx))
}
