package domain

import "context"

type NoteRepository interface {
	Get(ctx context.Context, hash string) (*Note, error)
	Insert(ctx context.Context, note Note) error
	Update(ctx context.Context, note Note) error
	Find(ctx context.Context, filter NoteFilter) ([]Note, error)
	Close()
}

type AssetRepository interface {
	Get(ctx context.Context, id string) (*Asset, error)
	Upsert(ctx context.Context, asset Asset) error
	List(ctx context.Context) ([]Asset, error)
	Close()
}
