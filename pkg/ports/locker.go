package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock.
type UnlockFunc func(ctx context.Context) error

// DocumentLocker provides mutual exclusion for writers of the same document
// when several workbench processes share one store.
type DocumentLocker interface {
	// Lock blocks until the lock on key is acquired or ctx is done.
	// The lock expires after ttl if never released.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
