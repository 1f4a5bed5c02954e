package storage

import "context"

// Store is the durable key-value capability the chat repository is built on.
// Values are opaque JSON payloads; an absent key is a normal "not yet
// initialized" state, not an error. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}
