package shared

import (
	"context"
	"errors"
	"time"
)

// ErrLockHeld is returned when another process currently holds the lock
var ErrLockHeld = errors.New("lock is held by another process")

// SyncLock provides mutual exclusion for batch runs. The engine is strictly
// serial: at most one synchronization batch may run at a time, across all
// instances. Acquire returns an opaque token that must be presented back to
// Release, so a slow process cannot release a lock it no longer owns.
type SyncLock interface {
	// Acquire takes the named lock for at most ttl. Returns ErrLockHeld
	// when someone else holds it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (token string, err error)

	// Release frees the named lock if token still owns it.
	Release(ctx context.Context, name, token string) error
}
