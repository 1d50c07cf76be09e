package indexstore_test

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ark-network/noted/internal/core/domain"
	"github.com/ark-network/noted/internal/core/ports"
	"github.com/ark-network/noted/internal/infrastructure/indexstore"
	"github.com/ark-network/noted/internal/infrastructure/keyring"
	inmemorykv "github.com/ark-network/noted/internal/infrastructure/kv/inmemory"
	naclsealer "github.com/ark-network/noted/internal/infrastructure/sealer/nacl"
	"github.com/ark-network/noted/pkg/keylock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const namespace = "test"

var ctx = context.Background()

// countingKV records the writes that reach the raw store.
type countingKV struct {
	ports.KVStore
	writes atomic.Int64
}

func (c *countingKV) Set(ctx context.Context, key string, value []byte) error {
	c.writes.Add(1)
	return c.KVStore.Set(ctx, key, value)
}

func newStore(t *testing.T) (*indexstore.Store, *countingKV) {
	return newStoreWithConfig(t, indexstore.Config{Namespace: namespace, CacheSize: 16})
}

func newStoreWithConfig(
	t *testing.T, cfg indexstore.Config,
) (*indexstore.Store, *countingKV) {
	alice, err := keyring.Generate("alice")
	require.NoError(t, err)
	bob, err := keyring.Generate("bob")
	require.NoError(t, err)
	kr, err := keyring.New(alice, bob)
	require.NoError(t, err)

	raw, err := inmemorykv.NewStore()
	require.NoError(t, err)
	kv := &countingKV{KVStore: raw}

	store, err := indexstore.New(kv, naclsealer.NewSealer(), kr, keylock.New(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, kv
}

func TestPushRemove(t *testing.T) {
	store, _ := newStore(t)

	pushed, err := store.PushValue(ctx, "alice", "list", "a")
	require.NoError(t, err)
	require.True(t, pushed)
	pushed, err = store.PushValue(ctx, "alice", "list", "b")
	require.NoError(t, err)
	require.True(t, pushed)
	pushed, err = store.PushValue(ctx, "alice", "list", "a")
	require.NoError(t, err)
	require.False(t, pushed)

	list, err := store.GetList(ctx, "alice", "list")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, list)

	removed, err := store.RemoveValue(ctx, "alice", "list", "a")
	require.NoError(t, err)
	require.True(t, removed)
	removed, err = store.RemoveValue(ctx, "alice", "list", "a")
	require.NoError(t, err)
	require.False(t, removed)

	list, err = store.GetList(ctx, "alice", "list")
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, list)

	list, err = store.GetList(ctx, "alice", "missing")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestConcurrentPush(t *testing.T) {
	store, _ := newStore(t)

	count := 50
	eg := new(errgroup.Group)
	for i := 0; i < count; i++ {
		item := fmt.Sprintf("item-%02d", i)
		eg.Go(func() error {
			_, err := store.PushValue(ctx, "bob", "list", item)
			return err
		})
	}
	require.NoError(t, eg.Wait())

	list, err := store.GetList(ctx, "bob", "list")
	require.NoError(t, err)
	require.Len(t, list, count)

	sort.Strings(list)
	for i, item := range list {
		require.Equal(t, fmt.Sprintf("item-%02d", i), item)
	}
}

func TestDecryptionFailure(t *testing.T) {
	t.Run("corrupted value", func(t *testing.T) {
		store, kv := newStore(t)

		garbage := []byte("not a sealed box")
		require.NoError(t, kv.Set(ctx, namespace+"/list", garbage))

		var out []string
		_, err := store.Get(ctx, "alice", "list", &out)
		require.ErrorIs(t, err, domain.ErrDecryption)

		pushed, err := store.PushValue(ctx, "alice", "list", "a")
		require.ErrorIs(t, err, domain.ErrDecryption)
		require.False(t, pushed)

		raw, err := kv.Get(ctx, namespace+"/list")
		require.NoError(t, err)
		require.Equal(t, garbage, raw)
	})

	t.Run("wrong owner key", func(t *testing.T) {
		store, _ := newStore(t)

		require.NoError(t, store.Set(ctx, "alice", "secret", []string{"a"}))

		var out []string
		_, err := store.Get(ctx, "bob", "secret", &out)
		require.ErrorIs(t, err, domain.ErrDecryption)

		var decErr domain.DecryptionError
		require.ErrorAs(t, err, &decErr)
		require.Equal(t, "secret", decErr.Key)
	})

	t.Run("unknown owner", func(t *testing.T) {
		store, _ := newStore(t)

		_, err := store.PushValue(ctx, "carol", "list", "a")
		require.ErrorIs(t, err, domain.ErrUnknownOwner)
	})
}

func TestPlaintextCache(t *testing.T) {
	store, _ := newStore(t)

	require.NoError(t, store.Set(ctx, "alice", "value", uint64(42)))

	for i := 0; i < 3; i++ {
		var v uint64
		found, err := store.Get(ctx, "alice", "value", &v)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, uint64(42), v)
	}

	plaintexts, _ := store.CacheStats()
	require.Equal(t, uint64(3), plaintexts.Hits)

	store.Purge()
	var v uint64
	found, err := store.Get(ctx, "alice", "value", &v)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(42), v)
}

func TestKeyRef(t *testing.T) {
	store, kv := newStore(t)

	refs := make(map[string]string)
	for _, id := range []string{"asset-1", "0xabcdef", "asset-2"} {
		ref, err := store.KeyRef(ctx, id)
		require.NoError(t, err)
		require.NotEmpty(t, ref)
		refs[id] = ref
	}
	require.Len(t, map[string]bool{
		refs["asset-1"]: true, refs["0xabcdef"]: true, refs["asset-2"]: true,
	}, 3)

	store.Purge()
	ref, err := store.KeyRef(ctx, "0xabcdef")
	require.NoError(t, err)
	require.Equal(t, refs["0xabcdef"], ref)

	raw, err := kv.Get(ctx, namespace+"/ref/#seq")
	require.NoError(t, err)
	require.NotNil(t, raw)

	_, err = store.KeyRef(ctx, "")
	require.Error(t, err)
}

func TestAccounts(t *testing.T) {
	store, kv := newStore(t)

	account, err := store.GetAccount(ctx, "0xabc")
	require.NoError(t, err)
	require.Nil(t, account)
	require.Zero(t, kv.writes.Load())

	expected := domain.Account{Address: "0xabc", PublicKey: "02aa"}
	require.NoError(t, store.PutAccount(ctx, expected))

	account, err = store.GetAccount(ctx, "0xabc")
	require.NoError(t, err)
	require.NotNil(t, account)
	require.Equal(t, expected, *account)
}

func TestLockTimeout(t *testing.T) {
	store, kv := newStoreWithConfig(t, indexstore.Config{
		Namespace: namespace, LockTimeout: 50 * time.Millisecond,
	})

	t.Run("push value", func(t *testing.T) {
		err := store.WithLock(ctx, "list", func() error {
			pushed, err := store.PushValue(ctx, "alice", "list", "a")
			require.False(t, pushed)
			return err
		})
		require.ErrorIs(t, err, keylock.ErrLockTimeout)

		raw, err := kv.Get(ctx, namespace+"/list")
		require.NoError(t, err)
		require.Nil(t, raw)
	})

	t.Run("value index add", func(t *testing.T) {
		assetRef, err := store.KeyRef(ctx, asset)
		require.NoError(t, err)
		ownerRef, err := store.KeyRef(ctx, "alice")
		require.NoError(t, err)
		bucketKey := fmt.Sprintf("vi/%s/%s/%d", assetRef, ownerRef, 5)

		index := store.ValueIndex()
		writes := kv.writes.Load()
		err = store.WithLock(ctx, bucketKey, func() error {
			added, err := index.Add(ctx, asset, "alice", 5, "n1")
			require.False(t, added)
			return err
		})
		require.ErrorIs(t, err, keylock.ErrLockTimeout)
		require.Equal(t, writes, kv.writes.Load())

		buckets, err := index.Load(ctx, asset, "alice")
		require.NoError(t, err)
		require.Empty(t, buckets)
	})
}
