package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/channelport/backend/internal/domain/shared"
)

// lockEntry is one held lock with its owner token and expiry
type lockEntry struct {
	token     string
	expiresAt time.Time
}

// InMemorySyncLock implements SyncLock using an in-memory map
// This is suitable for single-instance deployments and testing
type InMemorySyncLock struct {
	mu    sync.Mutex
	locks map[string]lockEntry
}

// NewInMemorySyncLock creates a new in-memory sync lock
func NewInMemorySyncLock() *InMemorySyncLock {
	return &InMemorySyncLock{
		locks: make(map[string]lockEntry),
	}
}

// Acquire takes the named lock if it is free or expired
func (l *InMemorySyncLock) Acquire(ctx context.Context, name string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, exists := l.locks[name]; exists && time.Now().Before(e.expiresAt) {
		return "", shared.ErrLockHeld
	}

	token := uuid.NewString()
	l.locks[name] = lockEntry{
		token:     token,
		expiresAt: time.Now().Add(ttl),
	}
	return token, nil
}

// Release frees the lock only when token still owns it
func (l *InMemorySyncLock) Release(ctx context.Context, name, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, exists := l.locks[name]; exists && e.token == token {
		delete(l.locks, name)
	}
	return nil
}

// Ensure InMemorySyncLock implements SyncLock
var _ shared.SyncLock = (*InMemorySyncLock)(nil)
