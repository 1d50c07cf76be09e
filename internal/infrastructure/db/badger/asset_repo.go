package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ark-network/noted/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const assetStoreDir = "assets"

type assetRepository struct {
	store *holdStore
}

func NewAssetRepository(config ...interface{}) (domain.AssetRepository, error) {
	store, err := openStore(assetStoreDir, config...)
	if err != nil {
		return nil, fmt.Errorf("failed to open asset store: %s", err)
	}
	return &assetRepository{store}, nil
}

func (r *assetRepository) Get(_ context.Context, id string) (*domain.Asset, error) {
	var asset domain.Asset
	if err := r.store.Get(id, &asset); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAssetNotFound, id)
		}
		return nil, err
	}
	return &asset, nil
}

func (r *assetRepository) Upsert(_ context.Context, asset domain.Asset) error {
	return withRetry(func() error {
		return r.store.Upsert(asset.Id, asset)
	})
}

func (r *assetRepository) List(_ context.Context) ([]domain.Asset, error) {
	assets := make([]domain.Asset, 0)
	if err := r.store.Find(&assets, &badgerhold.Query{}); err != nil {
		return nil, err
	}
	sort.Slice(assets, func(i, j int) bool {
		return assets[i].Id < assets[j].Id
	})
	return assets, nil
}

func (r *assetRepository) Close() {
	r.store.Close()
}
