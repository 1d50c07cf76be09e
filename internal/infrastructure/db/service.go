package db

import (
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/ark-network/noted/internal/core/domain"
	"github.com/ark-network/noted/internal/core/ports"
	badgerdb "github.com/ark-network/noted/internal/infrastructure/db/badger"
	sqlitedb "github.com/ark-network/noted/internal/infrastructure/db/sqlite"
)

var (
	noteStoreTypes = map[string]func(...interface{}) (domain.NoteRepository, error){
		"badger": badgerdb.NewNoteRepository,
		"sqlite": sqlitedb.NewNoteRepository,
	}
	assetStoreTypes = map[string]func(...interface{}) (domain.AssetRepository, error){
		"badger": badgerdb.NewAssetRepository,
		"sqlite": sqlitedb.NewAssetRepository,
	}
)

const (
	sqliteDbFile = "sqlite.db"
)

type ServiceConfig struct {
	DataStoreType string

	// badger expects {baseDir, badger.Logger}, sqlite {baseDir}.
	DataStoreConfig []interface{}
}

type service struct {
	noteStore  domain.NoteRepository
	assetStore domain.AssetRepository
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	noteStoreFactory, ok := noteStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	assetStoreFactory, ok := assetStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}

	storeConfig := config.DataStoreConfig
	if config.DataStoreType == "sqlite" {
		db, err := openSqlite(config.DataStoreConfig)
		if err != nil {
			return nil, err
		}
		storeConfig = []interface{}{db}
	}

	noteStore, err := noteStoreFactory(storeConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create note store: %w", err)
	}
	assetStore, err := assetStoreFactory(storeConfig...)
	if err != nil {
		noteStore.Close()
		return nil, fmt.Errorf("failed to create asset store: %w", err)
	}

	return &service{noteStore, assetStore}, nil
}

func (s *service) Notes() domain.NoteRepository {
	return s.noteStore
}

func (s *service) Assets() domain.AssetRepository {
	return s.assetStore
}

func (s *service) Close() {
	s.noteStore.Close()
	s.assetStore.Close()
}

func openSqlite(config []interface{}) (*sql.DB, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok || len(baseDir) <= 0 {
		return nil, fmt.Errorf("invalid config, expected base directory at 0")
	}

	db, err := sqlitedb.OpenDb(filepath.Join(baseDir, sqliteDbFile))
	if err != nil {
		return nil, err
	}
	if err := sqlitedb.MigrateUp(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite: %w", err)
	}
	return db, nil
}
