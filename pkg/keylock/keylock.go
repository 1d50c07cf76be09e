// Package keylock serializes read-modify-write sequences on a single logical
// key. Callers on the same key are served in arrival order, callers on
// distinct keys never wait on each other.
package keylock

import (
	"context"
	"errors"
	"fmt"

	"github.com/sasha-s/go-deadlock"
)

var ErrLockTimeout = errors.New("timed out waiting for key lock")

type waitQueue struct {
	waiters []chan struct{}
}

type KeyedMutex struct {
	mu     deadlock.Mutex
	queues map[string]*waitQueue
}

func New() *KeyedMutex {
	return &KeyedMutex{queues: make(map[string]*waitQueue)}
}

// Lock acquires key. If ctx is done before the lock is handed over,
// ErrLockTimeout is returned and the caller does not hold the key.
func (k *KeyedMutex) Lock(ctx context.Context, key string) error {
	k.mu.Lock()
	q, held := k.queues[key]
	if !held {
		k.queues[key] = &waitQueue{}
		k.mu.Unlock()
		return nil
	}

	ch := make(chan struct{})
	q.waiters = append(q.waiters, ch)
	k.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	for i, w := range q.waiters {
		if w == ch {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
	}

	// The holder handed the key over while we were giving up, pass it on.
	k.release(key)
	return fmt.Errorf("%w: %s", ErrLockTimeout, key)
}

func (k *KeyedMutex) Unlock(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.release(key)
}

// WithLock runs fn while holding key. The key is released whether fn
// returns an error, succeeds or panics.
func (k *KeyedMutex) WithLock(
	ctx context.Context, key string, fn func() error,
) error {
	if err := k.Lock(ctx, key); err != nil {
		return err
	}
	defer k.Unlock(key)

	return fn()
}

// Len returns the number of keys currently held.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.queues)
}

// must be called with k.mu held.
func (k *KeyedMutex) release(key string) {
	q, ok := k.queues[key]
	if !ok {
		panic(fmt.Sprintf("keylock: unlock of unlocked key %q", key))
	}
	if len(q.waiters) <= 0 {
		delete(k.queues, key)
		return
	}

	next := q.waiters[0]
	q.waiters[0] = nil
	q.waiters = q.waiters[1:]
	close(next)
}
