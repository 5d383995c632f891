package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/alexmgee/patron-hub/internal/domain"
)

type contentRow struct {
	ID             int64          `db:"id"`
	SubscriptionID int64          `db:"subscription_id"`
	ExternalID     string         `db:"external_id"`
	Title          string         `db:"title"`
	Description    *string        `db:"description"`
	ContentType    string         `db:"content_type"`
	ExternalURL    *string        `db:"external_url"`
	DownloadURL    *string        `db:"download_url"`
	FileNameHint   *string        `db:"file_name_hint"`
	PublishedAt    *time.Time     `db:"published_at"`
	Tags           pq.StringArray `db:"tags"`
	IsSeen         bool           `db:"is_seen"`
	SeenAt         *time.Time     `db:"seen_at"`
	IsArchived     bool           `db:"is_archived"`
	ArchiveError   *string        `db:"archive_error"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (r contentRow) toDomain() domain.ContentItem {
	return domain.ContentItem{
		ID:             r.ID,
		SubscriptionID: r.SubscriptionID,
		ExternalID:     r.ExternalID,
		Title:          r.Title,
		Description:    r.Description,
		ContentType:    domain.ContentType(r.ContentType),
		ExternalURL:    r.ExternalURL,
		DownloadURL:    r.DownloadURL,
		FileNameHint:   r.FileNameHint,
		PublishedAt:    r.PublishedAt,
		Tags:           []string(r.Tags),
		IsSeen:         r.IsSeen,
		SeenAt:         r.SeenAt,
		IsArchived:     r.IsArchived,
		ArchiveError:   r.ArchiveError,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type ContentStore struct {
	db *sqlx.DB
}

func NewContentStore(db *sqlx.DB) *ContentStore {
	return &ContentStore{db: db}
}

// Upsert keys items on (subscription_id, external_id) and reports whether the
// row was inserted. A download URL already resolved is kept when the post no
// longer carries one.
func (s *ContentStore) Upsert(ctx context.Context, item *domain.ContentItem) (int64, bool, error) {
	query := `
		INSERT INTO content_items (
			subscription_id, external_id, title, description, content_type,
			external_url, download_url, file_name_hint, published_at, tags
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		ON CONFLICT (subscription_id, external_id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			content_type = EXCLUDED.content_type,
			external_url = EXCLUDED.external_url,
			download_url = COALESCE(EXCLUDED.download_url, content_items.download_url),
			file_name_hint = COALESCE(EXCLUDED.file_name_hint, content_items.file_name_hint),
			published_at = EXCLUDED.published_at,
			tags = EXCLUDED.tags,
			updated_at = NOW()
		RETURNING id, (xmax = 0) AS inserted`

	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}

	var (
		id       int64
		inserted bool
	)
	err := executor(ctx, s.db).QueryRowxContext(ctx, query,
		item.SubscriptionID,
		item.ExternalID,
		item.Title,
		item.Description,
		item.ContentType,
		item.ExternalURL,
		item.DownloadURL,
		item.FileNameHint,
		item.PublishedAt,
		pq.Array(tags),
	).Scan(&id, &inserted)
	if err != nil {
		return 0, false, err
	}
	return id, inserted, nil
}

func (s *ContentStore) Get(ctx context.Context, id int64) (*domain.ContentItem, error) {
	var row contentRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM content_items WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	item := row.toDomain()
	return &item, nil
}

func (s *ContentStore) GetArchiveTarget(ctx context.Context, id int64) (*domain.ArchiveTarget, error) {
	query := `
		SELECT ci.*, s.platform, c.slug AS creator_slug, s.auto_download_enabled
		FROM content_items ci
		INNER JOIN subscriptions s ON s.id = ci.subscription_id
		INNER JOIN creators c ON c.id = s.creator_id
		WHERE ci.id = $1`

	var row struct {
		contentRow
		Platform            string `db:"platform"`
		CreatorSlug         string `db:"creator_slug"`
		AutoDownloadEnabled bool   `db:"auto_download_enabled"`
	}
	err := s.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &domain.ArchiveTarget{
		Item:                row.toDomain(),
		Platform:            domain.Platform(row.Platform),
		CreatorSlug:         row.CreatorSlug,
		AutoDownloadEnabled: row.AutoDownloadEnabled,
	}, nil
}

func (s *ContentStore) SetDownloadURL(ctx context.Context, id int64, downloadURL string, fileNameHint *string) error {
	return s.update(ctx, `
		UPDATE content_items SET
			download_url = $2,
			file_name_hint = COALESCE($3, file_name_hint),
			updated_at = NOW()
		WHERE id = $1`,
		id, downloadURL, fileNameHint,
	)
}

// MarkArchived also marks the item seen, keeping the first seen time.
func (s *ContentStore) MarkArchived(ctx context.Context, id int64, archiveError *string) error {
	return s.update(ctx, `
		UPDATE content_items SET
			is_archived = TRUE,
			archive_error = $2,
			is_seen = TRUE,
			seen_at = COALESCE(seen_at, NOW()),
			updated_at = NOW()
		WHERE id = $1`,
		id, archiveError,
	)
}

func (s *ContentStore) SetArchiveError(ctx context.Context, id int64, message string) error {
	return s.update(ctx,
		"UPDATE content_items SET archive_error = $2, updated_at = NOW() WHERE id = $1",
		id, message,
	)
}

func (s *ContentStore) MarkSeen(ctx context.Context, id int64, at time.Time) error {
	return s.update(ctx, `
		UPDATE content_items SET
			is_seen = TRUE,
			seen_at = COALESCE(seen_at, $2),
			updated_at = NOW()
		WHERE id = $1`,
		id, at,
	)
}

func (s *ContentStore) update(ctx context.Context, query string, args ...any) error {
	res, err := executor(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
