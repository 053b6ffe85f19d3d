// Package lock serializes imports per user.
//
// Two imports for the same user racing each other could both see "no entry
// for date X" and both create one, so the import engine holds a lock keyed by
// user for the whole run. RedisLocker works across API and worker processes;
// LocalLocker covers single-process deployments without Redis.
package lock

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrLocked is returned by Acquire when another holder owns the key.
var ErrLocked = errors.New("lock held")

// Locker acquires a non-blocking, exclusive lock on key.
// Acquire returns ErrLocked immediately if the key is already held.
// The returned release func is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// ImportKey is the lock key guarding imports for one user.
func ImportKey(userID uuid.UUID) string {
	return "import:user:" + userID.String()
}
