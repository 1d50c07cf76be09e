package indexstore

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/ark-network/noted/internal/core/domain"
	"github.com/ark-network/noted/internal/core/ports"
	"github.com/ark-network/noted/pkg/keylock"
	"github.com/ark-network/noted/pkg/lru"
	"github.com/fxamacker/cbor/v2"
)

const defaultCacheSize = 1024

type Config struct {
	// Namespace prefixes every key, one per network.
	Namespace   string
	CacheSize   int
	LockTimeout time.Duration
}

// Store is a logical key-value store on top of a raw ports.KVStore. Values
// are cbor encoded and sealed for the owner's public key. Every
// read-modify-write goes through the shared keyed lock.
type Store struct {
	kv      ports.KVStore
	sealer  ports.Sealer
	keyring ports.Keyring
	locker  *keylock.KeyedMutex

	// sha256(pubkey || ciphertext) -> plaintext
	plaintexts *lru.Cache[[32]byte, []byte]
	refs       *lru.Cache[string, string]

	namespace   string
	lockTimeout time.Duration
}

func New(
	kv ports.KVStore, sealer ports.Sealer, keyring ports.Keyring,
	locker *keylock.KeyedMutex, cfg Config,
) (*Store, error) {
	if kv == nil || sealer == nil || keyring == nil || locker == nil {
		return nil, fmt.Errorf("missing index store dependency")
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	plaintexts, err := lru.New[[32]byte, []byte](size)
	if err != nil {
		return nil, err
	}
	refs, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}

	return &Store{
		kv:          kv,
		sealer:      sealer,
		keyring:     keyring,
		locker:      locker,
		plaintexts:  plaintexts,
		refs:        refs,
		namespace:   cfg.Namespace,
		lockTimeout: cfg.LockTimeout,
	}, nil
}

// Get decodes the value at key into out and reports whether the key exists.
// An empty owner selects the session key pair.
func (s *Store) Get(ctx context.Context, owner, key string, out interface{}) (bool, error) {
	keys, err := s.keysFor(owner)
	if err != nil {
		return false, err
	}

	sealed, err := s.kv.Get(ctx, s.storageKey(key))
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if sealed == nil {
		return false, nil
	}

	digest := cacheKey(keys, sealed)
	plaintext, ok := s.plaintexts.Get(digest)
	if !ok {
		plaintext, err = s.sealer.Open(*keys, sealed)
		if err != nil {
			return false, domain.DecryptionError{Key: key, Err: err}
		}
		s.plaintexts.Add(digest, plaintext)
	}

	if err := cbor.Unmarshal(plaintext, out); err != nil {
		return false, domain.DecryptionError{Key: key, Err: err}
	}
	return true, nil
}

func (s *Store) Set(ctx context.Context, owner, key string, value interface{}) error {
	keys, err := s.keysFor(owner)
	if err != nil {
		return err
	}

	plaintext, err := cbor.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	sealed, err := s.sealer.Seal(keys.PublicKey, plaintext)
	if err != nil {
		return fmt.Errorf("failed to seal %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, s.storageKey(key), sealed); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}

	s.plaintexts.Add(cacheKey(keys, sealed), plaintext)
	return nil
}

// PushValue appends item to the list at indexKey unless already present.
func (s *Store) PushValue(ctx context.Context, owner, indexKey, item string) (bool, error) {
	var pushed bool
	err := s.WithLock(ctx, indexKey, func() error {
		var err error
		pushed, _, err = s.pushLocked(ctx, owner, indexKey, item)
		return err
	})
	return pushed, err
}

// RemoveValue drops the first occurrence of item from the list at indexKey.
// Nothing is written if item is missing.
func (s *Store) RemoveValue(ctx context.Context, owner, indexKey, item string) (bool, error) {
	var removed bool
	err := s.WithLock(ctx, indexKey, func() error {
		var err error
		removed, _, err = s.removeLocked(ctx, owner, indexKey, item)
		return err
	})
	return removed, err
}

func (s *Store) GetList(ctx context.Context, owner, key string) ([]string, error) {
	list := make([]string, 0)
	if _, err := s.Get(ctx, owner, key, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// WithLock runs fn holding the lock of the given logical key.
func (s *Store) WithLock(ctx context.Context, key string, fn func() error) error {
	if s.lockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.lockTimeout)
		defer cancel()
	}
	return s.locker.WithLock(ctx, s.storageKey(key), fn)
}

// Purge drops every cached plaintext and key ref.
func (s *Store) Purge() {
	s.plaintexts.Purge()
	s.refs.Purge()
}

func (s *Store) CacheStats() (plaintexts, refs lru.Stats) {
	return s.plaintexts.Stats(), s.refs.Stats()
}

func (s *Store) Close() error {
	s.Purge()
	return s.kv.Close()
}

// must be called holding the lock of key.
func (s *Store) pushLocked(
	ctx context.Context, owner, key, item string,
) (bool, int, error) {
	list, err := s.GetList(ctx, owner, key)
	if err != nil {
		return false, 0, err
	}
	for _, v := range list {
		if v == item {
			return false, len(list), nil
		}
	}

	list = append(list, item)
	if err := s.Set(ctx, owner, key, list); err != nil {
		return false, 0, err
	}
	return true, len(list), nil
}

// must be called holding the lock of key.
func (s *Store) removeLocked(
	ctx context.Context, owner, key, item string,
) (bool, int, error) {
	list, err := s.GetList(ctx, owner, key)
	if err != nil {
		return false, 0, err
	}
	for i, v := range list {
		if v != item {
			continue
		}
		list = append(list[:i], list[i+1:]...)
		if err := s.Set(ctx, owner, key, list); err != nil {
			return false, 0, err
		}
		return true, len(list), nil
	}
	return false, len(list), nil
}

func (s *Store) keysFor(owner string) (*ports.KeyPair, error) {
	if len(owner) <= 0 {
		return s.keyring.Default(), nil
	}
	return s.keyring.KeyPair(owner)
}

func (s *Store) storageKey(key string) string {
	if len(s.namespace) <= 0 {
		return key
	}
	return s.namespace + "/" + key
}

func cacheKey(keys *ports.KeyPair, sealed []byte) [32]byte {
	h := sha256.New()
	_, _ = h.Write(keys.PublicKey[:])
	_, _ = h.Write(sealed)

	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	return digest
}
