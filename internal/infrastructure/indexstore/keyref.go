package indexstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/ark-network/noted/internal/core/domain"
)

const (
	keyRefLock   = "ref/#lock"
	keyRefSeqKey = "ref/#seq"
)

// KeyRef maps a long identifier (address, asset id, note hash) to a short
// storage key. Refs are allocated once and never change.
func (s *Store) KeyRef(ctx context.Context, longID string) (string, error) {
	ref, found, err := s.existingRef(ctx, longID)
	if err != nil || found {
		return ref, err
	}

	key := refKey(longID)
	if err := s.WithLock(ctx, keyRefLock, func() error {
		ref, found, err = s.lookupRef(ctx, key)
		if err != nil || found {
			return err
		}

		var seq uint64
		if _, err := s.Get(ctx, "", keyRefSeqKey, &seq); err != nil {
			return err
		}
		seq++
		if err := s.Set(ctx, "", keyRefSeqKey, seq); err != nil {
			return err
		}

		ref = strconv.FormatUint(seq, 36)
		return s.Set(ctx, "", key, ref)
	}); err != nil {
		return "", err
	}

	s.refs.Add(longID, ref)
	return ref, nil
}

func (s *Store) existingRef(ctx context.Context, longID string) (string, bool, error) {
	if len(longID) <= 0 {
		return "", false, fmt.Errorf("missing identifier")
	}
	if ref, ok := s.refs.Get(longID); ok {
		return ref, true, nil
	}
	ref, found, err := s.lookupRef(ctx, refKey(longID))
	if err != nil || !found {
		return "", false, err
	}
	s.refs.Add(longID, ref)
	return ref, true, nil
}

func (s *Store) lookupRef(ctx context.Context, key string) (string, bool, error) {
	var ref string
	found, err := s.Get(ctx, "", key, &ref)
	if err != nil {
		return "", false, err
	}
	return ref, found, nil
}

func (s *Store) PutAccount(ctx context.Context, account domain.Account) error {
	ref, err := s.KeyRef(ctx, account.Address)
	if err != nil {
		return err
	}
	key := accountKey(ref)

	return s.WithLock(ctx, key, func() error {
		var current domain.Account
		found, err := s.Get(ctx, "", key, &current)
		if err != nil {
			return err
		}
		if found && current == account {
			return nil
		}
		return s.Set(ctx, "", key, account)
	})
}

// GetAccount returns nil if the address was never registered. It never
// allocates a ref.
func (s *Store) GetAccount(ctx context.Context, address string) (*domain.Account, error) {
	ref, found, err := s.existingRef(ctx, address)
	if err != nil || !found {
		return nil, err
	}

	var account domain.Account
	found, err = s.Get(ctx, "", accountKey(ref), &account)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &account, nil
}

// The long identifier is hashed so it never shows up in clear in the
// underlying store.
func refKey(longID string) string {
	digest := sha256.Sum256([]byte(longID))
	return "ref/" + hex.EncodeToString(digest[:])
}

func accountKey(ref string) string {
	return "acct/" + ref
}
