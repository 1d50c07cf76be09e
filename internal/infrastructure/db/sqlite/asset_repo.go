package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ark-network/noted/internal/core/domain"
)

const (
	selectAsset = `
SELECT id, linked_token, scaling_factor, created_at, updated_at FROM asset`

	upsertAsset = `
INSERT INTO asset (id, linked_token, scaling_factor, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	linked_token = excluded.linked_token,
	scaling_factor = excluded.scaling_factor,
	updated_at = excluded.updated_at`
)

type assetRepository struct {
	db *sql.DB
}

func NewAssetRepository(config ...interface{}) (domain.AssetRepository, error) {
	db, err := dbFromConfig(config...)
	if err != nil {
		return nil, fmt.Errorf("cannot open asset repository: %w", err)
	}
	return &assetRepository{db}, nil
}

func (r *assetRepository) Get(ctx context.Context, id string) (*domain.Asset, error) {
	row := r.db.QueryRowContext(ctx, selectAsset+" WHERE id = ?", id)
	asset, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAssetNotFound, id)
		}
		return nil, err
	}
	return asset, nil
}

func (r *assetRepository) Upsert(ctx context.Context, asset domain.Asset) error {
	return execTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(
			ctx, upsertAsset,
			asset.Id, asset.LinkedToken, int64(asset.ScalingFactor),
			asset.CreatedAt, asset.UpdatedAt,
		)
		return err
	})
}

func (r *assetRepository) List(ctx context.Context) ([]domain.Asset, error) {
	rows, err := r.db.QueryContext(ctx, selectAsset+" ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assets := make([]domain.Asset, 0)
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *asset)
	}
	return assets, rows.Err()
}

func (r *assetRepository) Close() {
	_ = r.db.Close()
}

func scanAsset(row scanner) (*domain.Asset, error) {
	var (
		asset         domain.Asset
		scalingFactor int64
	)
	if err := row.Scan(
		&asset.Id, &asset.LinkedToken, &scalingFactor, &asset.CreatedAt, &asset.UpdatedAt,
	); err != nil {
		return nil, err
	}
	asset.ScalingFactor = uint64(scalingFactor)
	return &asset, nil
}
