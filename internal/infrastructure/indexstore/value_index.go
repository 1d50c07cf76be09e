package indexstore

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/ark-network/noted/internal/core/domain"
	"github.com/ark-network/noted/internal/core/ports"
)

// ValueIndex groups the note hashes of an (asset, owner) pair by value.
// Buckets live at vi/<asset>/<owner>/<value>, the sorted list of non empty
// bucket values at vl/<asset>/<owner>. Locks are always taken bucket first,
// value list second.
type ValueIndex struct {
	store *Store
}

func (s *Store) ValueIndex() ports.ValueIndex {
	return &ValueIndex{s}
}

func (v *ValueIndex) Add(
	ctx context.Context, asset, owner string, value uint64, hash string,
) (bool, error) {
	bucketKey, listKey, err := v.keys(ctx, asset, owner, value)
	if err != nil {
		return false, err
	}

	var added bool
	err = v.store.WithLock(ctx, bucketKey, func() error {
		var err error
		added, _, err = v.store.pushLocked(ctx, owner, bucketKey, hash)
		if err != nil || !added {
			return err
		}
		return v.updateValues(ctx, owner, listKey, func(values []uint64) ([]uint64, bool) {
			return insertValue(values, value)
		})
	})
	return added, err
}

func (v *ValueIndex) Remove(
	ctx context.Context, asset, owner string, value uint64, hash string,
) (bool, error) {
	bucketKey, listKey, err := v.keys(ctx, asset, owner, value)
	if err != nil {
		return false, err
	}

	var removed bool
	err = v.store.WithLock(ctx, bucketKey, func() error {
		var (
			left int
			err  error
		)
		removed, left, err = v.store.removeLocked(ctx, owner, bucketKey, hash)
		if err != nil || !removed || left > 0 {
			return err
		}
		return v.updateValues(ctx, owner, listKey, func(values []uint64) ([]uint64, bool) {
			return deleteValue(values, value)
		})
	})
	return removed, err
}

// Load returns the non empty buckets of the pair in ascending value order,
// hashes in insertion order.
func (v *ValueIndex) Load(ctx context.Context, asset, owner string) ([]domain.ValueBucket, error) {
	prefix, err := v.prefix(ctx, asset, owner)
	if err != nil {
		return nil, err
	}

	values, err := v.values(ctx, owner, listKeyFor(prefix))
	if err != nil {
		return nil, err
	}

	buckets := make([]domain.ValueBucket, 0, len(values))
	for _, value := range values {
		hashes, err := v.store.GetList(ctx, owner, bucketKeyFor(prefix, value))
		if err != nil {
			return nil, err
		}
		if len(hashes) <= 0 {
			continue
		}
		buckets = append(buckets, domain.ValueBucket{Value: value, Hashes: hashes})
	}
	return buckets, nil
}

// Rebuild rewrites the pair so that it contains exactly the given buckets.
// Hashes already indexed keep their position. A hash found in the index but
// not in buckets survives only if keep says so. A hash of buckets not yet
// indexed is added only if keep confirms it under the bucket lock, so a
// stale snapshot cannot bring back a note destroyed meanwhile.
func (v *ValueIndex) Rebuild(
	ctx context.Context, asset, owner string, buckets []domain.ValueBucket,
	keep ports.KeepFunc,
) error {
	prefix, err := v.prefix(ctx, asset, owner)
	if err != nil {
		return err
	}
	listKey := listKeyFor(prefix)

	desired := make(map[uint64][]string, len(buckets))
	for _, b := range buckets {
		desired[b.Value] = append(desired[b.Value], b.Hashes...)
	}

	current, err := v.values(ctx, owner, listKey)
	if err != nil {
		return err
	}
	all := append([]uint64{}, current...)
	for value := range desired {
		all, _ = insertValue(all, value)
	}

	for _, value := range all {
		bucketKey := bucketKeyFor(prefix, value)
		if err := v.store.WithLock(ctx, bucketKey, func() error {
			existing, err := v.store.GetList(ctx, owner, bucketKey)
			if err != nil {
				return err
			}
			next, err := mergeBucket(ctx, value, existing, desired[value], keep)
			if err != nil {
				return err
			}
			if slices.Equal(existing, next) {
				return nil
			}
			return v.store.Set(ctx, owner, bucketKey, next)
		}); err != nil {
			return err
		}
	}

	return v.store.WithLock(ctx, listKey, func() error {
		current, err := v.values(ctx, owner, listKey)
		if err != nil {
			return err
		}
		values := append([]uint64{}, current...)
		for _, value := range all {
			values, _ = insertValue(values, value)
		}

		nonEmpty := make([]uint64, 0, len(values))
		for _, value := range values {
			hashes, err := v.store.GetList(ctx, owner, bucketKeyFor(prefix, value))
			if err != nil {
				return err
			}
			if len(hashes) > 0 {
				nonEmpty = append(nonEmpty, value)
			}
		}
		if slices.Equal(current, nonEmpty) {
			return nil
		}
		return v.store.Set(ctx, owner, listKey, nonEmpty)
	})
}

// must be called holding the lock of the bucket.
func (v *ValueIndex) updateValues(
	ctx context.Context, owner, listKey string,
	fn func([]uint64) ([]uint64, bool),
) error {
	return v.store.WithLock(ctx, listKey, func() error {
		values, err := v.values(ctx, owner, listKey)
		if err != nil {
			return err
		}
		next, changed := fn(values)
		if !changed {
			return nil
		}
		return v.store.Set(ctx, owner, listKey, next)
	})
}

func (v *ValueIndex) values(ctx context.Context, owner, listKey string) ([]uint64, error) {
	values := make([]uint64, 0)
	if _, err := v.store.Get(ctx, owner, listKey, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func (v *ValueIndex) keys(
	ctx context.Context, asset, owner string, value uint64,
) (string, string, error) {
	prefix, err := v.prefix(ctx, asset, owner)
	if err != nil {
		return "", "", err
	}
	return bucketKeyFor(prefix, value), listKeyFor(prefix), nil
}

func (v *ValueIndex) prefix(ctx context.Context, asset, owner string) (string, error) {
	if _, err := v.store.keysFor(owner); err != nil {
		return "", err
	}
	assetRef, err := v.store.KeyRef(ctx, asset)
	if err != nil {
		return "", err
	}
	ownerRef, err := v.store.KeyRef(ctx, owner)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s", assetRef, ownerRef), nil
}

func bucketKeyFor(prefix string, value uint64) string {
	return fmt.Sprintf("vi/%s/%d", prefix, value)
}

func listKeyFor(prefix string) string {
	return fmt.Sprintf("vl/%s", prefix)
}

func insertValue(values []uint64, value uint64) ([]uint64, bool) {
	i := sort.Search(len(values), func(i int) bool { return values[i] >= value })
	if i < len(values) && values[i] == value {
		return values, false
	}
	values = append(values, 0)
	copy(values[i+1:], values[i:])
	values[i] = value
	return values, true
}

func deleteValue(values []uint64, value uint64) ([]uint64, bool) {
	i := sort.Search(len(values), func(i int) bool { return values[i] >= value })
	if i >= len(values) || values[i] != value {
		return values, false
	}
	return append(values[:i], values[i+1:]...), true
}

func mergeBucket(
	ctx context.Context, value uint64, existing, desired []string,
	keep ports.KeepFunc,
) ([]string, error) {
	wanted := make(map[string]bool, len(desired))
	for _, h := range desired {
		wanted[h] = true
	}

	next := make([]string, 0, len(desired))
	seen := make(map[string]bool, len(existing))
	for _, h := range existing {
		if seen[h] {
			continue
		}
		if !wanted[h] {
			ok, err := keep(ctx, value, h)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		seen[h] = true
		next = append(next, h)
	}
	for _, h := range desired {
		if seen[h] {
			continue
		}
		seen[h] = true
		ok, err := keep(ctx, value, h)
		if err != nil {
			return nil, err
		}
		if ok {
			next = append(next, h)
		}
	}
	return next, nil
}
