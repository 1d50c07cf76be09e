package application

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ark-network/noted/internal/core/domain"
	"github.com/ark-network/noted/internal/core/ports"
)

// Ledger is the system of record for notes. Every write is serialized on
// the lock of the note hash.
type Ledger struct {
	notes  domain.NoteRepository
	locker ports.Locker

	lastStamp atomic.Int64
}

func NewLedger(notes domain.NoteRepository, locker ports.Locker) *Ledger {
	return &Ledger{notes: notes, locker: locker}
}

// Upsert creates the note or merges its mutable fields into the known one.
// onChange, if not nil, runs after the write even when nothing changed, so
// that a redelivered event can repair derived state.
// The note is persisted before onChange runs: if onChange fails the error is
// returned but the write stays, and derived state lags behind the ledger
// until the event is redelivered or the index is rebuilt.
func (l *Ledger) Upsert(
	ctx context.Context, note domain.Note, onChange ChangeFunc,
) (*domain.Note, error) {
	if len(note.Hash) <= 0 {
		return nil, fmt.Errorf("missing note hash")
	}
	return l.apply(ctx, note, onChange)
}

// Destroy moves the note to its terminal status. An unknown hash is recorded
// as a destroyed placeholder so that a late creation cannot revive it.
func (l *Ledger) Destroy(
	ctx context.Context, hash string, onChange ChangeFunc,
) (*domain.Note, error) {
	if len(hash) <= 0 {
		return nil, fmt.Errorf("missing note hash")
	}
	return l.apply(ctx, domain.Note{Hash: hash, Status: domain.NoteStatusDestroyed}, onChange)
}

func (l *Ledger) Get(ctx context.Context, hash string) (*domain.Note, error) {
	return l.notes.Get(ctx, hash)
}

func (l *Ledger) Query(ctx context.Context, filter domain.NoteFilter) ([]domain.Note, error) {
	return l.notes.Find(ctx, filter)
}

func (l *Ledger) apply(
	ctx context.Context, note domain.Note, onChange ChangeFunc,
) (*domain.Note, error) {
	var result domain.Note
	err := l.locker.WithLock(ctx, noteLockKey(note.Hash), func() error {
		prev, err := l.notes.Get(ctx, note.Hash)
		if err != nil {
			if !errors.Is(err, domain.ErrNoteNotFound) {
				return err
			}
			prev = nil
		}

		now := l.timestamp()
		if prev == nil {
			result = note
			result.CreatedAt = now
			result.UpdatedAt = now
			if err := l.notes.Insert(ctx, result); err != nil {
				return fmt.Errorf("failed to insert note %s: %w", note.Hash, err)
			}
		} else {
			result, err = prev.Merge(note)
			if err != nil {
				return err
			}
			if !sameNote(*prev, result) {
				result.UpdatedAt = now
				if err := l.notes.Update(ctx, result); err != nil {
					return fmt.Errorf("failed to update note %s: %w", note.Hash, err)
				}
			}
		}

		if onChange == nil {
			return nil
		}
		return onChange(ctx, prev, result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Spendable reports whether hash is still a spendable note of the pair with
// the given value. It is meant to confirm index entries against the ledger.
func (l *Ledger) Spendable(asset, owner string) ports.KeepFunc {
	return func(ctx context.Context, value uint64, hash string) (bool, error) {
		note, err := l.notes.Get(ctx, hash)
		if err != nil {
			if errors.Is(err, domain.ErrNoteNotFound) {
				return false, nil
			}
			return false, err
		}
		return note.Spendable() && note.Asset == asset && note.Owner == owner &&
			note.Value == value, nil
	}
}

// timestamp never returns the same value twice, notes created within the
// clock resolution still sort in insertion order.
func (l *Ledger) timestamp() int64 {
	for {
		last := l.lastStamp.Load()
		now := time.Now().UnixNano()
		if now <= last {
			now = last + 1
		}
		if l.lastStamp.CompareAndSwap(last, now) {
			return now
		}
	}
}

func sameNote(a, b domain.Note) bool {
	return a.Hash == b.Hash &&
		a.Value == b.Value &&
		a.Asset == b.Asset &&
		a.Owner == b.Owner &&
		a.Status == b.Status &&
		string(a.Metadata) == string(b.Metadata)
}

func noteLockKey(hash string) string {
	return "note/" + hash
}
