package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// RunLock is a single-row advisory lock guarding sync runs across processes.
// A holder that stops heartbeating loses the lock once expires_at passes.
type RunLock struct {
	db *sqlx.DB
}

func NewRunLock(db *sqlx.DB) *RunLock {
	return &RunLock{db: db}
}

func (l *RunLock) Acquire(ctx context.Context, owner string, ttl time.Duration, now time.Time) (bool, error) {
	query := `
		INSERT INTO sync_runs (id, owner, started_at, heartbeat_at, expires_at)
		VALUES (1, $1, $2, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			owner = EXCLUDED.owner,
			started_at = EXCLUDED.started_at,
			heartbeat_at = EXCLUDED.heartbeat_at,
			expires_at = EXCLUDED.expires_at
		WHERE sync_runs.owner IS NULL OR sync_runs.expires_at < EXCLUDED.started_at
		RETURNING owner`

	var got string
	err := l.db.QueryRowContext(ctx, query, owner, now, now.Add(ttl)).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return got == owner, nil
}

// Heartbeat extends the lock and reports false when owner no longer holds it.
func (l *RunLock) Heartbeat(ctx context.Context, owner string, ttl time.Duration, now time.Time) (bool, error) {
	res, err := l.db.ExecContext(ctx,
		"UPDATE sync_runs SET heartbeat_at = $2, expires_at = $3 WHERE id = 1 AND owner = $1",
		owner, now, now.Add(ttl),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (l *RunLock) Release(ctx context.Context, owner string) error {
	_, err := l.db.ExecContext(ctx,
		"UPDATE sync_runs SET owner = NULL, expires_at = NULL WHERE id = 1 AND owner = $1",
		owner,
	)
	return err
}
