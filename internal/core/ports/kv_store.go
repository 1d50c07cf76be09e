package ports

import "context"

// KVStore is the raw persistent store. Get returns nil, nil for a missing
// key. There are no transactions and no range queries.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}
