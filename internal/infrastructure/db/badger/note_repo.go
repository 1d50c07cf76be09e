package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ark-network/noted/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const noteStoreDir = "notes"

type noteRepository struct {
	store *holdStore
}

func NewNoteRepository(config ...interface{}) (domain.NoteRepository, error) {
	store, err := openStore(noteStoreDir, config...)
	if err != nil {
		return nil, fmt.Errorf("failed to open note store: %s", err)
	}
	return &noteRepository{store}, nil
}

func (r *noteRepository) Get(_ context.Context, hash string) (*domain.Note, error) {
	var note domain.Note
	if err := r.store.Get(hash, &note); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNoteNotFound, hash)
		}
		return nil, err
	}
	return &note, nil
}

func (r *noteRepository) Insert(_ context.Context, note domain.Note) error {
	return withRetry(func() error {
		return r.store.Insert(note.Hash, note)
	})
}

func (r *noteRepository) Update(_ context.Context, note domain.Note) error {
	err := withRetry(func() error {
		return r.store.Update(note.Hash, note)
	})
	if errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrNoteNotFound, note.Hash)
	}
	return err
}

func (r *noteRepository) Find(
	_ context.Context, filter domain.NoteFilter,
) ([]domain.Note, error) {
	notes := make([]domain.Note, 0)
	if err := r.store.Find(&notes, noteQuery(filter)); err != nil {
		return nil, err
	}

	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].CreatedAt == notes[j].CreatedAt {
			return notes[i].Hash < notes[j].Hash
		}
		return notes[i].CreatedAt < notes[j].CreatedAt
	})
	return notes, nil
}

func (r *noteRepository) Close() {
	r.store.Close()
}

func noteQuery(filter domain.NoteFilter) *badgerhold.Query {
	var query *badgerhold.Query
	where := func(field string) *badgerhold.Criterion {
		if query == nil {
			return badgerhold.Where(field)
		}
		return query.And(field)
	}

	if len(filter.Asset) > 0 {
		query = where("Asset").Eq(filter.Asset)
	}
	if len(filter.Owner) > 0 {
		query = where("Owner").Eq(filter.Owner)
	}
	if len(filter.Statuses) > 0 {
		query = where("Status").In(badgerhold.Slice(filter.Statuses)...)
	}

	if query == nil {
		return &badgerhold.Query{}
	}
	return query
}
