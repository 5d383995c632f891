package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/alexmgee/patron-hub/internal/domain"
)

// ProgressStore answers the read-only queries behind sync status.
type ProgressStore struct {
	db *sqlx.DB
}

func NewProgressStore(db *sqlx.DB) *ProgressStore {
	return &ProgressStore{db: db}
}

func (s *ProgressStore) SyncProgressSince(ctx context.Context, since time.Time) (domain.SyncProgress, error) {
	return syncProgressSince(ctx, s.db, since)
}

func (s *ProgressStore) CountSyncable(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM subscriptions WHERE sync_enabled AND status = 'active'")
	return n, err
}

func (s *ProgressStore) HarvestCounts(ctx context.Context) (domain.HarvestCounts, error) {
	return harvestCounts(ctx, s.db)
}
