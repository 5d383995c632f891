package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"github.com/alexmgee/patron-hub/internal/domain"
	"github.com/alexmgee/patron-hub/internal/downloader"
)

type CreatorStore interface {
	Upsert(ctx context.Context, creator *domain.Creator) (int64, bool, error)
}

type SubscriptionStore interface {
	Upsert(ctx context.Context, sub *domain.Subscription) (int64, bool, error)
	ListSyncable(ctx context.Context, platform domain.Platform, externalIDs []string) ([]domain.Subscription, error)
	MarkSynced(ctx context.Context, id int64, at time.Time) error
	UpdateSettings(ctx context.Context, id int64, settings domain.SubscriptionSettings) (*domain.Subscription, error)
}

type ContentStore interface {
	Upsert(ctx context.Context, item *domain.ContentItem) (int64, bool, error)
	GetArchiveTarget(ctx context.Context, id int64) (*domain.ArchiveTarget, error)
	SetDownloadURL(ctx context.Context, id int64, downloadURL string, fileNameHint *string) error
	MarkArchived(ctx context.Context, id int64, archiveError *string) error
	SetArchiveError(ctx context.Context, id int64, message string) error
	MarkSeen(ctx context.Context, id int64, at time.Time) error
}

type AssetStore interface {
	ListByContent(ctx context.Context, contentItemID int64) ([]domain.ContentAsset, error)
	Insert(ctx context.Context, asset *domain.ContentAsset) (bool, error)
	MarkDownloaded(ctx context.Context, id int64, at time.Time) error
	MarkFailed(ctx context.Context, id int64, message string) error
}

type DownloadStore interface {
	Upsert(ctx context.Context, download *domain.Download) error
}

type HarvestStore interface {
	Enqueue(ctx context.Context, contentItemID int64, kind domain.HarvestKind, now time.Time) error
	EnqueueIfAbsent(ctx context.Context, contentItemID int64, kind domain.HarvestKind, now time.Time) (bool, error)
	Claim(ctx context.Context, kind domain.HarvestKind, maxAttempts int, lease time.Duration, now time.Time) (*domain.ClaimedJob, error)
	Get(ctx context.Context, id int64) (*domain.HarvestJob, error)
	MarkDone(ctx context.Context, id int64, now time.Time) error
	Reschedule(ctx context.Context, id int64, next time.Time, message string) error
	MarkFailed(ctx context.Context, id int64, message string) error
}

type SyncLogStore interface {
	Insert(ctx context.Context, log *domain.SyncLog) error
}

type SettingsProvider interface {
	Resolve(ctx context.Context) (domain.Settings, error)
}

type Source interface {
	Platform() domain.Platform
	FetchMemberships(ctx context.Context, cookie string) ([]domain.Membership, error)
	FetchPosts(ctx context.Context, cookie, campaignID string) ([]domain.Post, error)
}

type MediaResolver interface {
	ResolveMedia(ctx context.Context, cookie, postID, postURL string) (domain.ResolvedMedia, error)
}

type PageFetcher interface {
	FetchPostPage(ctx context.Context, cookie, postURL string) (string, error)
}

type Downloader interface {
	Download(ctx context.Context, req downloader.Request) (*downloader.Result, error)
}

type Archiver interface {
	Archive(ctx context.Context, contentItemID int64) (*domain.ArchiveResult, error)
}

type BacklogProcessor interface {
	ProcessBacklog(ctx context.Context) (int, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, event domain.ContentEvent) error
	Close() error
}

// Mirror copies an archived file to secondary storage under its archive-relative key.
type Mirror interface {
	Put(ctx context.Context, key, path, contentType string) error
}
