package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ark-network/noted/internal/core/domain"
)

const (
	selectNote = `
SELECT hash, value, asset, owner, status, metadata, created_at, updated_at
FROM note`

	insertNote = `
INSERT INTO note (
	hash, value, asset, owner, status, metadata, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	updateNote = `
UPDATE note SET
	value = ?, asset = ?, owner = ?, status = ?, metadata = ?, updated_at = ?
WHERE hash = ?`
)

type noteRepository struct {
	db *sql.DB
}

func NewNoteRepository(config ...interface{}) (domain.NoteRepository, error) {
	db, err := dbFromConfig(config...)
	if err != nil {
		return nil, fmt.Errorf("cannot open note repository: %w", err)
	}
	return &noteRepository{db}, nil
}

func (r *noteRepository) Get(ctx context.Context, hash string) (*domain.Note, error) {
	row := r.db.QueryRowContext(ctx, selectNote+" WHERE hash = ?", hash)
	note, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNoteNotFound, hash)
		}
		return nil, err
	}
	return note, nil
}

func (r *noteRepository) Insert(ctx context.Context, note domain.Note) error {
	return execTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(
			ctx, insertNote,
			note.Hash, int64(note.Value), note.Asset, note.Owner,
			int64(note.Status), note.Metadata, note.CreatedAt, note.UpdatedAt,
		)
		return err
	})
}

func (r *noteRepository) Update(ctx context.Context, note domain.Note) error {
	return execTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(
			ctx, updateNote,
			int64(note.Value), note.Asset, note.Owner, int64(note.Status),
			note.Metadata, note.UpdatedAt, note.Hash,
		)
		if err != nil {
			return err
		}
		count, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if count <= 0 {
			return fmt.Errorf("%w: %s", domain.ErrNoteNotFound, note.Hash)
		}
		return nil
	})
}

func (r *noteRepository) Find(
	ctx context.Context, filter domain.NoteFilter,
) ([]domain.Note, error) {
	conditions := make([]string, 0)
	args := make([]interface{}, 0)
	if len(filter.Asset) > 0 {
		conditions = append(conditions, "asset = ?")
		args = append(args, filter.Asset)
	}
	if len(filter.Owner) > 0 {
		conditions = append(conditions, "owner = ?")
		args = append(args, filter.Owner)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			placeholders = append(placeholders, "?")
			args = append(args, int64(s))
		}
		conditions = append(
			conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")),
		)
	}

	query := selectNote
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at, hash"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]domain.Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *note)
	}
	return notes, rows.Err()
}

func (r *noteRepository) Close() {
	_ = r.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanNote(row scanner) (*domain.Note, error) {
	var (
		note          domain.Note
		value, status int64
	)
	if err := row.Scan(
		&note.Hash, &value, &note.Asset, &note.Owner, &status,
		&note.Metadata, &note.CreatedAt, &note.UpdatedAt,
	); err != nil {
		return nil, err
	}
	// values are stored as their int64 bit pattern.
	note.Value = uint64(value)
	note.Status = domain.NoteStatus(status)
	return &note, nil
}
