package ports

import (
	"context"

	"github.com/ark-network/noted/internal/core/domain"
)

type Locker interface {
	// WithLock runs fn while no other WithLock on the same key is in flight.
	WithLock(ctx context.Context, key string, fn func() error) error
}

// KeepFunc tells a rebuild whether an indexed hash that is missing from the
// desired buckets must be kept anyway.
type KeepFunc func(ctx context.Context, value uint64, hash string) (bool, error)

type ValueIndex interface {
	Add(ctx context.Context, asset, owner string, value uint64, hash string) (bool, error)
	Remove(ctx context.Context, asset, owner string, value uint64, hash string) (bool, error)
	Load(ctx context.Context, asset, owner string) ([]domain.ValueBucket, error)
	Rebuild(
		ctx context.Context, asset, owner string,
		buckets []domain.ValueBucket, keep KeepFunc,
	) error
}

type IndexStore interface {
	Locker
	KeyRef(ctx context.Context, longID string) (string, error)
	PutAccount(ctx context.Context, account domain.Account) error
	GetAccount(ctx context.Context, address string) (*domain.Account, error)
	ValueIndex() ValueIndex
	Purge()
	Close() error
}
