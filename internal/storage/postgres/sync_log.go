package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/alexmgee/patron-hub/internal/domain"
)

type SyncLogStore struct {
	db *sqlx.DB
}

func NewSyncLogStore(db *sqlx.DB) *SyncLogStore {
	return &SyncLogStore{db: db}
}

func (s *SyncLogStore) Insert(ctx context.Context, entry *domain.SyncLog) error {
	query := `
		INSERT INTO sync_logs (
			subscription_id, started_at, completed_at, status, items_found, items_downloaded, errors
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		RETURNING id`

	errs := entry.Errors
	if errs == nil {
		errs = []string{}
	}
	return s.db.QueryRowContext(ctx, query,
		entry.SubscriptionID,
		entry.StartedAt,
		entry.CompletedAt,
		entry.Status,
		entry.ItemsFound,
		entry.ItemsDownloaded,
		pq.Array(errs),
	).Scan(&entry.ID)
}

// ListBySubscription returns the newest logs first.
func (s *SyncLogStore) ListBySubscription(ctx context.Context, subscriptionID int64, limit int) ([]domain.SyncLog, error) {
	query := `
		SELECT id, subscription_id, started_at, completed_at, status, items_found, items_downloaded, errors
		FROM sync_logs
		WHERE subscription_id = $1
		ORDER BY started_at DESC, id DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, subscriptionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []domain.SyncLog{}
	for rows.Next() {
		var (
			entry domain.SyncLog
			errs  pq.StringArray
		)
		err := rows.Scan(
			&entry.ID,
			&entry.SubscriptionID,
			&entry.StartedAt,
			&entry.CompletedAt,
			&entry.Status,
			&entry.ItemsFound,
			&entry.ItemsDownloaded,
			&errs,
		)
		if err != nil {
			return nil, err
		}
		entry.Errors = []string(errs)
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

func syncProgressSince(ctx context.Context, db *sqlx.DB, since time.Time) (domain.SyncProgress, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status IN ('success', 'failed')),
			COUNT(*) FILTER (WHERE status = 'success'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COALESCE(SUM(items_found), 0),
			COALESCE(SUM(items_downloaded), 0)
		FROM sync_logs
		WHERE started_at >= $1`

	var p domain.SyncProgress
	err := db.QueryRowContext(ctx, query, since).Scan(
		&p.SubscriptionsCompleted,
		&p.SubscriptionsSucceeded,
		&p.SubscriptionsFailed,
		&p.ItemsFound,
		&p.ItemsDownloaded,
	)
	return p, err
}
