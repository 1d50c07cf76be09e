package keylock

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func waiting(k *KeyedMutex, key string) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	q, ok := k.queues[key]
	if !ok {
		return 0
	}
	return len(q.waiters)
}

func TestWithLockSerializesSameKey(t *testing.T) {
	k := New()
	ctx := context.Background()

	counter := 0
	g := &errgroup.Group{}
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			return k.WithLock(ctx, "index", func() error {
				v := counter
				runtime.Gosched()
				counter = v + 1
				return nil
			})
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, 50, counter)
	require.Zero(t, k.Len())
}

func TestLockIsFIFO(t *testing.T) {
	k := New()
	ctx := context.Background()

	require.NoError(t, k.Lock(ctx, "key"))

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = k.WithLock(ctx, "key", func() error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}(i)
		require.Eventually(t, func() bool {
			return waiting(k, "key") == i+1
		}, time.Second, time.Millisecond)
	}

	k.Unlock("key")
	wg.Wait()

	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
	require.Zero(t, k.Len())
}

func TestDistinctKeysDoNotBlock(t *testing.T) {
	k := New()
	require.NoError(t, k.Lock(context.Background(), "a"))
	defer k.Unlock("a")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := k.WithLock(ctx, "b", func() error { return nil })
	require.NoError(t, err)
	require.Equal(t, 1, k.Len())
}

func TestLockTimeout(t *testing.T) {
	k := New()
	require.NoError(t, k.Lock(context.Background(), "key"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	called := false
	err := k.WithLock(ctx, "key", func() error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrLockTimeout)
	require.False(t, called)
	require.Zero(t, waiting(k, "key"))

	k.Unlock("key")
	require.Zero(t, k.Len())
}

func TestReleaseOnFailure(t *testing.T) {
	k := New()
	ctx := context.Background()

	t.Run("error", func(t *testing.T) {
		boom := errors.New("boom")
		err := k.WithLock(ctx, "key", func() error { return boom })
		require.ErrorIs(t, err, boom)
		require.Zero(t, k.Len())
	})

	t.Run("panic", func(t *testing.T) {
		require.Panics(t, func() {
			_ = k.WithLock(ctx, "key", func() error { panic("boom") })
		})
		require.Zero(t, k.Len())
	})

	t.Run("unlock of free key", func(t *testing.T) {
		require.Panics(t, func() { k.Unlock("free") })
	})
}
