package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/alexmgee/patron-hub/internal/domain"
)

type AssetStore struct {
	db *sqlx.DB
}

func NewAssetStore(db *sqlx.DB) *AssetStore {
	return &AssetStore{db: db}
}

func (s *AssetStore) ListByContent(ctx context.Context, contentItemID int64) ([]domain.ContentAsset, error) {
	query := `
		SELECT id, content_item_id, url, file_name_hint, asset_type, status,
			last_error, downloaded_at, created_at, updated_at
		FROM content_assets
		WHERE content_item_id = $1
		ORDER BY id`

	var assets []domain.ContentAsset
	err := s.db.SelectContext(ctx, &assets, query, contentItemID)
	return assets, err
}

// Insert adds a discovered asset and reports false when the URL is already
// known for the item.
func (s *AssetStore) Insert(ctx context.Context, asset *domain.ContentAsset) (bool, error) {
	query := `
		INSERT INTO content_assets (content_item_id, url, file_name_hint, asset_type, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (content_item_id, url) DO NOTHING
		RETURNING id`

	err := s.db.QueryRowContext(ctx, query,
		asset.ContentItemID,
		asset.URL,
		asset.FileNameHint,
		asset.AssetType,
		asset.Status,
	).Scan(&asset.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *AssetStore) MarkDownloaded(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE content_assets SET
			status = 'downloaded',
			last_error = NULL,
			downloaded_at = $2,
			updated_at = NOW()
		WHERE id = $1`,
		id, at,
	)
	return err
}

func (s *AssetStore) MarkFailed(ctx context.Context, id int64, message string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE content_assets SET
			status = 'failed',
			last_error = $2,
			updated_at = NOW()
		WHERE id = $1`,
		id, message,
	)
	return err
}
