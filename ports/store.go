package ports

import (
	"context"
	"time"
)

// Store is the key-value contract backing refresh records and round
// state. Implementations return core.ErrRecordNotFound for an absent
// key and wrap every infrastructure failure in core.ErrStoreUnavailable
// so callers can fail closed.
type Store interface {
	// Put upserts a key with absolute expiry, overwriting silently.
	Put(ctx context.Context, key, value string, ttl time.Duration) error

	// Get retrieves a value by key.
	Get(ctx context.Context, key string) (string, error)

	// Delete removes a key. Deleting an absent key is not an error;
	// the returned bool reports whether the key existed.
	Delete(ctx context.Context, key string) (bool, error)

	// DeleteAllMatching removes every key under the prefix and reports
	// how many were actually removed.
	DeleteAllMatching(ctx context.Context, prefix string) (int, error)

	// Ping probes liveness. An unreachable store gates the whole
	// system: issuance and validation fail closed on fault.
	Ping(ctx context.Context) error
}
