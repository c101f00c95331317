package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/housepoints/house-points-hub/internal/domain/shared"
)

// TTLDistributedLock is the default lock TTL.
const TTLDistributedLock = 30 * time.Second

// releaseScript deletes the key only if it still holds our token, so an
// expired lock re-acquired by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker implements shared.Locker with SET NX PX and a random token.
type Locker struct {
	client *Client
}

var _ shared.Locker = (*Locker)(nil)

// NewLocker creates a Locker on client.
func NewLocker(client *Client) *Locker {
	return &Locker{client: client}
}

func (l *Locker) TryAcquire(ctx context.Context, resource string, ttl time.Duration) (shared.Unlocker, error) {
	if ttl <= 0 {
		ttl = TTLDistributedLock
	}
	key := l.client.LockKey(resource)
	token := uuid.NewString()

	ok, err := l.client.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, shared.WrapError("lock", "Acquire", shared.ErrStorage, "redis lock failed", err)
	}
	if !ok {
		return nil, shared.NewDomainError("lock", "Acquire", shared.ErrConcurrentModification,
			fmt.Sprintf("%s is locked by another process", resource))
	}
	return &redisUnlock{rdb: l.client.rdb, key: key, token: token}, nil
}

type redisUnlock struct {
	rdb   *redis.Client
	key   string
	token string
}

func (u *redisUnlock) Release(ctx context.Context) error {
	err := releaseScript.Run(ctx, u.rdb, []string{u.key}, u.token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis: release lock %s: %w", u.key, err)
	}
	return nil
}
