package indexstore_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/ark-network/noted/internal/core/domain"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const asset = "0xasset"

func TestValueIndex(t *testing.T) {
	store, _ := newStore(t)
	index := store.ValueIndex()

	notes := []struct {
		value uint64
		hash  string
	}{
		{10, "n4"}, {1, "n2"}, {4, "n6"}, {1, "n3"}, {0, "n1"}, {0, "n5"},
	}
	for _, n := range notes {
		added, err := index.Add(ctx, asset, "alice", n.value, n.hash)
		require.NoError(t, err)
		require.True(t, added)
	}

	added, err := index.Add(ctx, asset, "alice", 4, "n6")
	require.NoError(t, err)
	require.False(t, added)

	buckets, err := index.Load(ctx, asset, "alice")
	require.NoError(t, err)
	require.Equal(t, []domain.ValueBucket{
		{Value: 0, Hashes: []string{"n1", "n5"}},
		{Value: 1, Hashes: []string{"n2", "n3"}},
		{Value: 4, Hashes: []string{"n6"}},
		{Value: 10, Hashes: []string{"n4"}},
	}, buckets)

	removed, err := index.Remove(ctx, asset, "alice", 4, "n6")
	require.NoError(t, err)
	require.True(t, removed)
	removed, err = index.Remove(ctx, asset, "alice", 4, "n6")
	require.NoError(t, err)
	require.False(t, removed)
	removed, err = index.Remove(ctx, asset, "alice", 1, "n2")
	require.NoError(t, err)
	require.True(t, removed)

	buckets, err = index.Load(ctx, asset, "alice")
	require.NoError(t, err)
	require.Equal(t, []domain.ValueBucket{
		{Value: 0, Hashes: []string{"n1", "n5"}},
		{Value: 1, Hashes: []string{"n3"}},
		{Value: 10, Hashes: []string{"n4"}},
	}, buckets)

	buckets, err = index.Load(ctx, asset, "bob")
	require.NoError(t, err)
	require.Empty(t, buckets)
}

func TestValueIndexConcurrentAdd(t *testing.T) {
	store, _ := newStore(t)
	index := store.ValueIndex()

	eg := new(errgroup.Group)
	for i := 0; i < 40; i++ {
		value := uint64(i % 4)
		hash := fmt.Sprintf("note-%02d", i)
		eg.Go(func() error {
			_, err := index.Add(ctx, asset, "bob", value, hash)
			return err
		})
	}
	require.NoError(t, eg.Wait())

	buckets, err := index.Load(ctx, asset, "bob")
	require.NoError(t, err)
	require.Len(t, buckets, 4)

	count := 0
	for i, b := range buckets {
		require.Equal(t, uint64(i), b.Value)
		count += len(b.Hashes)
	}
	require.Equal(t, 40, count)
}

func TestValueIndexRebuild(t *testing.T) {
	store, kv := newStore(t)
	index := store.ValueIndex()

	for _, n := range []struct {
		value uint64
		hash  string
	}{{5, "a"}, {5, "stale"}, {7, "fresh"}, {9, "gone"}} {
		_, err := index.Add(ctx, asset, "alice", n.value, n.hash)
		require.NoError(t, err)
	}

	// "destroyed" is part of the snapshot but no longer spendable.
	spendable := map[string]bool{"a": true, "b": true, "c": true, "fresh": true}
	keep := func(_ context.Context, _ uint64, hash string) (bool, error) {
		return spendable[hash], nil
	}
	snapshot := []domain.ValueBucket{
		{Value: 5, Hashes: []string{"b", "a", "destroyed"}},
		{Value: 3, Hashes: []string{"c"}},
	}
	err := index.Rebuild(ctx, asset, "alice", snapshot, keep)
	require.NoError(t, err)

	expected := []domain.ValueBucket{
		{Value: 3, Hashes: []string{"c"}},
		{Value: 5, Hashes: []string{"a", "b"}},
		{Value: 7, Hashes: []string{"fresh"}},
	}
	buckets, err := index.Load(ctx, asset, "alice")
	require.NoError(t, err)
	require.Equal(t, expected, buckets)

	writes := kv.writes.Load()
	err = index.Rebuild(ctx, asset, "alice", snapshot, keep)
	require.NoError(t, err)
	require.Equal(t, writes, kv.writes.Load())

	buckets, err = index.Load(ctx, asset, "alice")
	require.NoError(t, err)
	require.Equal(t, expected, buckets)
}
