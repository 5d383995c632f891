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

const subscriptionColumns = `
	id, creator_id, platform, external_id, tier_name, cost_cents, currency, billing_cycle,
	status, member_since, sync_enabled, auto_download_enabled, last_synced_at, created_at, updated_at`

type SubscriptionStore struct {
	db *sqlx.DB
}

func NewSubscriptionStore(db *sqlx.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

// Upsert keys subscriptions on (platform, external_id) and reports whether the
// row was inserted. The sync and auto-download flags are only set on insert so
// user choices survive a re-sync.
func (s *SubscriptionStore) Upsert(ctx context.Context, sub *domain.Subscription) (int64, bool, error) {
	query := `
		INSERT INTO subscriptions (
			creator_id, platform, external_id, tier_name, cost_cents, currency,
			billing_cycle, status, member_since, sync_enabled, auto_download_enabled
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		ON CONFLICT (platform, external_id) DO UPDATE SET
			creator_id = EXCLUDED.creator_id,
			tier_name = EXCLUDED.tier_name,
			cost_cents = EXCLUDED.cost_cents,
			currency = EXCLUDED.currency,
			billing_cycle = EXCLUDED.billing_cycle,
			status = EXCLUDED.status,
			member_since = COALESCE(EXCLUDED.member_since, subscriptions.member_since),
			updated_at = NOW()
		RETURNING id, (xmax = 0) AS inserted`

	var (
		id       int64
		inserted bool
	)
	err := executor(ctx, s.db).QueryRowxContext(ctx, query,
		sub.CreatorID,
		sub.Platform,
		sub.ExternalID,
		sub.TierName,
		sub.CostCents,
		sub.Currency,
		sub.BillingCycle,
		sub.Status,
		sub.MemberSince,
		sub.SyncEnabled,
		sub.AutoDownloadEnabled,
	).Scan(&id, &inserted)
	if err != nil {
		return 0, false, err
	}
	return id, inserted, nil
}

// ListSyncable returns the active, sync-enabled subscriptions among externalIDs.
func (s *SubscriptionStore) ListSyncable(ctx context.Context, platform domain.Platform, externalIDs []string) ([]domain.Subscription, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}

	query := `SELECT` + subscriptionColumns + `
		FROM subscriptions
		WHERE platform = $1 AND external_id = ANY($2) AND sync_enabled AND status = 'active'
		ORDER BY id`

	var subs []domain.Subscription
	err := s.db.SelectContext(ctx, &subs, query, platform, pq.Array(externalIDs))
	return subs, err
}

func (s *SubscriptionStore) Get(ctx context.Context, id int64) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := s.db.GetContext(ctx, &sub, `SELECT`+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *SubscriptionStore) MarkSynced(ctx context.Context, id int64, at time.Time) error {
	_, err := executor(ctx, s.db).ExecContext(ctx,
		"UPDATE subscriptions SET last_synced_at = $2, updated_at = NOW() WHERE id = $1",
		id, at,
	)
	return err
}

// UpdateSettings applies a partial update and returns the stored row.
func (s *SubscriptionStore) UpdateSettings(ctx context.Context, id int64, settings domain.SubscriptionSettings) (*domain.Subscription, error) {
	query := `
		UPDATE subscriptions SET
			sync_enabled = COALESCE($2, sync_enabled),
			auto_download_enabled = COALESCE($3, auto_download_enabled),
			tier_name = COALESCE($4, tier_name),
			cost_cents = COALESCE($5, cost_cents),
			currency = COALESCE($6, currency),
			updated_at = NOW()
		WHERE id = $1
		RETURNING` + subscriptionColumns

	var sub domain.Subscription
	err := sqlx.GetContext(ctx, executor(ctx, s.db), &sub, query,
		id,
		settings.SyncEnabled,
		settings.AutoDownloadEnabled,
		settings.TierName,
		settings.CostCents,
		settings.Currency,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
