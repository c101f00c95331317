//go:build integration

package redis_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/housepoints/house-points-hub/internal/domain/shared"
	"github.com/housepoints/house-points-hub/internal/infrastructure/persistence/redis"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate redis: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	cfg := redis.DefaultConfig()
	cfg.Addr = fmt.Sprintf("%s:%s", host, port.Port())
	client, err := redis.NewClient(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestLocker_Redis(t *testing.T) {
	ctx := context.Background()
	client := startRedis(t)
	locker := redis.NewLocker(client)

	first, err := locker.TryAcquire(ctx, "season-rollover", time.Minute)
	require.NoError(t, err)

	_, err = locker.TryAcquire(ctx, "season-rollover", time.Minute)
	assert.True(t, shared.IsConcurrentModification(err), "got %v", err)

	other, err := locker.TryAcquire(ctx, "other", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, first.Release(ctx))
	require.NoError(t, first.Release(ctx))

	again, err := locker.TryAcquire(ctx, "season-rollover", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLocker_Redis_ExpiredLockIsNotStolenBack(t *testing.T) {
	ctx := context.Background()
	client := startRedis(t)
	locker := redis.NewLocker(client)

	stale, err := locker.TryAcquire(ctx, "k", 50*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(150 * time.Millisecond)

	fresh, err := locker.TryAcquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	// the stale holder must not release the new owner's lock
	require.NoError(t, stale.Release(ctx))
	_, err = locker.TryAcquire(ctx, "k", time.Minute)
	assert.True(t, shared.IsConcurrentModification(err))

	require.NoError(t, fresh.Release(ctx))
}
