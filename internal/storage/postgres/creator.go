package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/alexmgee/patron-hub/internal/domain"
)

type CreatorStore struct {
	db *sqlx.DB
}

func NewCreatorStore(db *sqlx.DB) *CreatorStore {
	return &CreatorStore{db: db}
}

// Upsert keys creators on slug and reports whether the row was inserted.
// Links are only overwritten by non-null values.
func (s *CreatorStore) Upsert(ctx context.Context, creator *domain.Creator) (int64, bool, error) {
	query := `
		INSERT INTO creators (name, slug, avatar_url, profile_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			avatar_url = COALESCE(EXCLUDED.avatar_url, creators.avatar_url),
			profile_url = COALESCE(EXCLUDED.profile_url, creators.profile_url),
			updated_at = NOW()
		RETURNING id, (xmax = 0) AS inserted`

	var (
		id       int64
		inserted bool
	)
	err := executor(ctx, s.db).QueryRowxContext(ctx, query,
		creator.Name,
		creator.Slug,
		creator.AvatarURL,
		creator.ProfileURL,
	).Scan(&id, &inserted)
	if err != nil {
		return 0, false, err
	}
	return id, inserted, nil
}
