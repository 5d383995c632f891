package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/alexmgee/patron-hub/internal/domain"
)

type DownloadStore struct {
	db *sqlx.DB
}

func NewDownloadStore(db *sqlx.DB) *DownloadStore {
	return &DownloadStore{db: db}
}

// Upsert keys download rows on (content_item_id, local_path), so re-archiving
// refreshes the existing row instead of adding another.
func (s *DownloadStore) Upsert(ctx context.Context, download *domain.Download) error {
	query := `
		INSERT INTO downloads (
			content_item_id, file_name, file_type, mime_type, size_bytes, local_path, downloaded_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		ON CONFLICT (content_item_id, local_path) DO UPDATE SET
			file_name = EXCLUDED.file_name,
			file_type = EXCLUDED.file_type,
			mime_type = EXCLUDED.mime_type,
			size_bytes = EXCLUDED.size_bytes,
			downloaded_at = EXCLUDED.downloaded_at
		RETURNING id`

	return s.db.QueryRowContext(ctx, query,
		download.ContentItemID,
		download.FileName,
		download.FileType,
		download.MimeType,
		download.SizeBytes,
		download.LocalPath,
		download.DownloadedAt,
	).Scan(&download.ID)
}

func (s *DownloadStore) ListByContent(ctx context.Context, contentItemID int64) ([]domain.Download, error) {
	query := `
		SELECT id, content_item_id, file_name, file_type, mime_type, size_bytes, local_path, downloaded_at
		FROM downloads
		WHERE content_item_id = $1
		ORDER BY downloaded_at DESC, id DESC`

	downloads := []domain.Download{}
	err := s.db.SelectContext(ctx, &downloads, query, contentItemID)
	return downloads, err
}
