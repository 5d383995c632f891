package api

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"github.com/alexmgee/patron-hub/internal/domain"
	"github.com/alexmgee/patron-hub/internal/settings"
)

type SyncRunner interface {
	Start(ctx context.Context) error
	Status(ctx context.Context) domain.SyncStatus
}

type Archiver interface {
	Archive(ctx context.Context, contentItemID int64) (*domain.ArchiveResult, error)
}

type ContentStore interface {
	Get(ctx context.Context, id int64) (*domain.ContentItem, error)
	MarkSeen(ctx context.Context, id int64, at time.Time) error
}

type DownloadStore interface {
	ListByContent(ctx context.Context, contentItemID int64) ([]domain.Download, error)
}

type SubscriptionStore interface {
	Get(ctx context.Context, id int64) (*domain.Subscription, error)
	UpdateSettings(ctx context.Context, id int64, update domain.SubscriptionSettings) (*domain.Subscription, error)
}

type SyncLogStore interface {
	ListBySubscription(ctx context.Context, subscriptionID int64, limit int) ([]domain.SyncLog, error)
}

type SettingsManager interface {
	Resolve(ctx context.Context) (domain.Settings, error)
	View(ctx context.Context) (*settings.View, error)
	Update(ctx context.Context, update settings.Update) (domain.Settings, error)
}

type HarvestQueue interface {
	Enqueue(ctx context.Context, contentItemID int64, kind domain.HarvestKind) error
	Claim(ctx context.Context, kind domain.HarvestKind) (*domain.ClaimedJob, error)
	Complete(ctx context.Context, jobID int64, ok bool, message string) error
}

type AssetIntake interface {
	Add(ctx context.Context, contentItemID int64, discovered []domain.DiscoveredAsset) (int, int, error)
}

type Importer interface {
	ImportJSON(ctx context.Context, payload domain.ImportPayload) (*domain.ImportResult, error)
	CreateSubscription(ctx context.Context, in domain.NewSubscription) (*domain.CreatedSubscription, error)
}
