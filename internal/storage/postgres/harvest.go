package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/alexmgee/patron-hub/internal/domain"
)

const jobColumns = `
	id, content_item_id, kind, status, attempt_count, last_attempt_at,
	next_attempt_at, last_error, created_at, updated_at`

type HarvestStore struct {
	db *sqlx.DB
}

func NewHarvestStore(db *sqlx.DB) *HarvestStore {
	return &HarvestStore{db: db}
}

// Enqueue creates the job or resets an existing one to a fresh pending state.
func (s *HarvestStore) Enqueue(ctx context.Context, contentItemID int64, kind domain.HarvestKind, now time.Time) error {
	query := `
		INSERT INTO harvest_jobs (content_item_id, kind, status, next_attempt_at, created_at, updated_at)
		VALUES ($1, $2, 'pending', $3, $3, $3)
		ON CONFLICT (content_item_id, kind) DO UPDATE SET
			status = 'pending',
			attempt_count = 0,
			next_attempt_at = EXCLUDED.next_attempt_at,
			last_error = NULL,
			updated_at = EXCLUDED.updated_at`

	_, err := s.db.ExecContext(ctx, query, contentItemID, kind, now)
	return err
}

// EnqueueIfAbsent creates the job only when none exists for the pair, leaving
// finished or exhausted jobs untouched.
func (s *HarvestStore) EnqueueIfAbsent(ctx context.Context, contentItemID int64, kind domain.HarvestKind, now time.Time) (bool, error) {
	query := `
		INSERT INTO harvest_jobs (content_item_id, kind, status, next_attempt_at, created_at, updated_at)
		VALUES ($1, $2, 'pending', $3, $3, $3)
		ON CONFLICT (content_item_id, kind) DO NOTHING
		RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, query, contentItemID, kind, now).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Claim moves the oldest eligible job of kind to running in one statement.
// A running job is eligible again only once its lease has expired. Rows locked
// by a concurrent claim are skipped, so no job is handed out twice.
func (s *HarvestStore) Claim(ctx context.Context, kind domain.HarvestKind, maxAttempts int, lease time.Duration, now time.Time) (*domain.ClaimedJob, error) {
	query := `
		WITH next AS (
			SELECT id
			FROM harvest_jobs
			WHERE kind = $1
				AND attempt_count < $2
				AND (
					(status = 'pending' AND (next_attempt_at IS NULL OR next_attempt_at <= $3))
					OR (status = 'running' AND last_attempt_at <= $4)
				)
			ORDER BY created_at, id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE harvest_jobs j SET
			status = 'running',
			attempt_count = j.attempt_count + 1,
			last_attempt_at = $3,
			updated_at = $3
		FROM next, content_items ci
		WHERE j.id = next.id AND ci.id = j.content_item_id
		RETURNING j.id, j.content_item_id, j.kind, j.status, j.attempt_count, j.last_attempt_at,
			j.next_attempt_at, j.last_error, j.created_at, j.updated_at,
			ci.external_id, ci.external_url, ci.title`

	var row struct {
		domain.HarvestJob
		ExternalID  string  `db:"external_id"`
		ExternalURL *string `db:"external_url"`
		Title       string  `db:"title"`
	}
	err := sqlx.GetContext(ctx, executor(ctx, s.db), &row, query, kind, maxAttempts, now, now.Add(-lease))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &domain.ClaimedJob{
		Job:         row.HarvestJob,
		ExternalID:  row.ExternalID,
		ExternalURL: row.ExternalURL,
		Title:       row.Title,
	}, nil
}

func (s *HarvestStore) Get(ctx context.Context, id int64) (*domain.HarvestJob, error) {
	var job domain.HarvestJob
	err := s.db.GetContext(ctx, &job, `SELECT`+jobColumns+` FROM harvest_jobs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *HarvestStore) MarkDone(ctx context.Context, id int64, now time.Time) error {
	return s.update(ctx, `
		UPDATE harvest_jobs SET
			status = 'done',
			next_attempt_at = NULL,
			last_error = NULL,
			updated_at = $2
		WHERE id = $1`,
		id, now,
	)
}

func (s *HarvestStore) Reschedule(ctx context.Context, id int64, next time.Time, message string) error {
	return s.update(ctx, `
		UPDATE harvest_jobs SET
			status = 'pending',
			next_attempt_at = $2,
			last_error = $3,
			updated_at = NOW()
		WHERE id = $1`,
		id, next, message,
	)
}

func (s *HarvestStore) MarkFailed(ctx context.Context, id int64, message string) error {
	return s.update(ctx, `
		UPDATE harvest_jobs SET
			status = 'failed',
			next_attempt_at = NULL,
			last_error = $2,
			updated_at = NOW()
		WHERE id = $1`,
		id, message,
	)
}

func (s *HarvestStore) update(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
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

func harvestCounts(ctx context.Context, db *sqlx.DB) (domain.HarvestCounts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'running'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM harvest_jobs`

	var counts domain.HarvestCounts
	err := db.QueryRowContext(ctx, query).Scan(&counts.Pending, &counts.Running, &counts.Failed)
	return counts, err
}
