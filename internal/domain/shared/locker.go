package shared

import (
	"context"
	"sync"
	"time"
)

// Locker grants exclusive, expiring ownership of a named resource.
// TryAcquire returns ErrConcurrentModification when the key is held.
type Locker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (Unlocker, error)
}

// Unlocker releases a held lock. Releasing an expired lock is a no-op.
type Unlocker interface {
	Release(ctx context.Context) error
}

// LocalLocker is a process-local Locker for single-instance deployments
// and tests.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

// NewLocalLocker creates an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		held: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (l *LocalLocker) TryAcquire(_ context.Context, key string, ttl time.Duration) (Unlocker, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if exp, ok := l.held[key]; ok && now.Before(exp) {
		return nil, WrapError("lock", "Acquire", ErrConcurrentModification, "lock is held", nil)
	}
	exp := now.Add(ttl)
	l.held[key] = exp
	return &localUnlock{l: l, key: key, exp: exp}, nil
}

type localUnlock struct {
	l   *LocalLocker
	key string
	exp time.Time
}

func (u *localUnlock) Release(context.Context) error {
	u.l.mu.Lock()
	defer u.l.mu.Unlock()
	if cur, ok := u.l.held[u.key]; ok && cur.Equal(u.exp) {
		delete(u.l.held, u.key)
	}
	return nil
}
