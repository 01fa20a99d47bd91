package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock obtained from a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes submissions to one session across replicas.
// The in-process queue of a Session only covers a single process; replicas
// sharing a TranscriptStore need this to keep transcript pairs adjacent.
type DistributedLocker interface {
	// Lock blocks until the lock for key is held or ctx ends.
	// The lock expires after ttl if the holder never releases it.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
