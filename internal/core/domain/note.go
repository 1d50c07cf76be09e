package domain

import (
	"fmt"
	"strings"
)

type NoteStatus uint8

const (
	NoteStatusUnknown NoteStatus = iota
	NoteStatusOffChain
	NoteStatusCreated
	NoteStatusDestroyed
)

func (s NoteStatus) String() string {
	switch s {
	case NoteStatusOffChain:
		return "offchain"
	case NoteStatusCreated:
		return "created"
	case NoteStatusDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

func ParseNoteStatus(s string) (NoteStatus, error) {
	switch strings.ToLower(s) {
	case "offchain":
		return NoteStatusOffChain, nil
	case "created":
		return NoteStatusCreated, nil
	case "destroyed":
		return NoteStatusDestroyed, nil
	default:
		return NoteStatusUnknown, fmt.Errorf("unknown note status %s", s)
	}
}

type Note struct {
	Hash      string
	Value     uint64
	Asset     string
	Owner     string
	Status    NoteStatus
	Metadata  []byte
	// Unix nanoseconds. CreatedAt is strictly increasing in insertion order.
	CreatedAt int64
	UpdatedAt int64
}

func (n Note) IsDestroyed() bool {
	return n.Status == NoteStatusDestroyed
}

// IsPlaceholder is true for a note known only through a destruction event.
func (n Note) IsPlaceholder() bool {
	return len(n.Asset) <= 0 && len(n.Owner) <= 0
}

func (n Note) Spendable() bool {
	return !n.IsDestroyed() && !n.IsPlaceholder()
}

// Merge applies the mutable fields of next on top of n. Status only moves
// forward, asset, owner and value are checked for consistency and may only
// be filled in when n is a placeholder.
func (n Note) Merge(next Note) (Note, error) {
	merged := n

	if n.IsPlaceholder() {
		merged.Asset = next.Asset
		merged.Owner = next.Owner
		merged.Value = next.Value
	} else if !next.IsPlaceholder() {
		if n.Asset != next.Asset {
			return n, ConsistencyError{n.Hash, "asset", n.Asset, next.Asset}
		}
		if n.Owner != next.Owner {
			return n, ConsistencyError{n.Hash, "owner", n.Owner, next.Owner}
		}
		if n.Value != next.Value {
			return n, ConsistencyError{
				n.Hash, "value", fmt.Sprint(n.Value), fmt.Sprint(next.Value),
			}
		}
	}

	if next.Status > merged.Status {
		merged.Status = next.Status
	}
	if len(next.Metadata) > 0 {
		merged.Metadata = next.Metadata
	}
	return merged, nil
}

type NoteFilter struct {
	Asset    string
	Owner    string
	Statuses []NoteStatus
}

func (f NoteFilter) Match(n Note) bool {
	if len(f.Asset) > 0 && f.Asset != n.Asset {
		return false
	}
	if len(f.Owner) > 0 && f.Owner != n.Owner {
		return false
	}
	if len(f.Statuses) <= 0 {
		return true
	}
	for _, s := range f.Statuses {
		if s == n.Status {
			return true
		}
	}
	return false
}
