package ports

import "github.com/ark-network/noted/internal/core/domain"

type RepoManager interface {
	Notes() domain.NoteRepository
	Assets() domain.AssetRepository
	Close()
}
