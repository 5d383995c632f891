package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/alexmgee/patron-hub/internal/domain"
)

const (
	maxSlugBase  = 60
	maxSlug      = 80
	billingCycle = "monthly"
)

type SyncService struct {
	sources       []Source
	creators      CreatorStore
	subscriptions SubscriptionStore
	content       ContentStore
	jobs          HarvestStore
	syncLogs      SyncLogStore
	settings      SettingsProvider
	archiver      Archiver
	backlog       BacklogProcessor
	txManager     TransactionManager
	publisher     Publisher
	logger        *slog.Logger
	now           func() time.Time
}

func NewSyncService(
	sources []Source,
	creators CreatorStore,
	subscriptions SubscriptionStore,
	content ContentStore,
	jobs HarvestStore,
	syncLogs SyncLogStore,
	settings SettingsProvider,
	archiver Archiver,
	backlog BacklogProcessor,
	txManager TransactionManager,
	publisher Publisher,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{
		sources:       sources,
		creators:      creators,
		subscriptions: subscriptions,
		content:       content,
		jobs:          jobs,
		syncLogs:      syncLogs,
		settings:      settings,
		archiver:      archiver,
		backlog:       backlog,
		txManager:     txManager,
		publisher:     publisher,
		logger:        logger.With("component", "sync"),
		now:           time.Now,
	}
}

// Sync runs one pass over every source: memberships are upserted, posts of
// each syncable subscription are upserted, and posts without a download URL
// are queued for resolution. Per-item failures are collected in the stats.
func (s *SyncService) Sync(ctx context.Context) (*domain.SyncStats, error) {
	startTime := s.now()
	settings, err := s.settings.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve settings: %w", err)
	}
	if !settings.HasCookie() {
		return nil, domain.ErrNoCookie
	}

	s.logger.Info("starting sync",
		"sources", len(s.sources),
		"auto_download", settings.AutoDownload,
	)

	stats := &domain.SyncStats{Errors: []string{}}
	for _, src := range s.sources {
		if err := s.syncSource(ctx, src, settings, stats); err != nil {
			if errors.Is(err, domain.ErrUnsupportedPlatform) {
				s.logger.Debug("skipping source", "platform", src.Platform())
				continue
			}
			stats.Duration = s.now().Sub(startTime)
			return stats, err
		}
	}

	if s.backlog != nil {
		resolved, err := s.backlog.ProcessBacklog(ctx)
		stats.JobsResolved = resolved
		if err != nil {
			stats.AddError(fmt.Sprintf("harvest backlog: %v", err))
		}
	}

	stats.Duration = s.now().Sub(startTime)

	s.logger.Info("sync completed",
		"memberships", stats.MembershipsDiscovered,
		"subscriptions", stats.SubscriptionsSynced,
		"posts_found", stats.PostsFound,
		"inserted", stats.PostsInserted,
		"updated", stats.PostsUpdated,
		"downloaded", stats.ItemsDownloaded,
		"jobs_queued", stats.JobsQueued,
		"errors", len(stats.Errors),
		"duration", stats.Duration,
	)

	return stats, nil
}

func (s *SyncService) syncSource(ctx context.Context, src Source, settings domain.Settings, stats *domain.SyncStats) error {
	platform := src.Platform()
	cookie := ""
	if platform == domain.PlatformPatreon {
		cookie = settings.PatreonCookie
	}

	memberships, err := src.FetchMemberships(ctx, cookie)
	if err != nil {
		return fmt.Errorf("fetch %s memberships: %w", platform, err)
	}
	stats.MembershipsDiscovered += len(memberships)
	if len(memberships) == 0 {
		return nil
	}

	externalIDs := make([]string, 0, len(memberships))
	for _, m := range memberships {
		if err := s.upsertMembership(ctx, platform, m); err != nil {
			stats.AddError(fmt.Sprintf("membership %s: %v", m.CampaignID, err))
			continue
		}
		externalIDs = append(externalIDs, m.CampaignID)
	}

	subs, err := s.subscriptions.ListSyncable(ctx, platform, externalIDs)
	if err != nil {
		return fmt.Errorf("list syncable subscriptions: %w", err)
	}

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if sub.Status != domain.SubscriptionActive {
			s.logger.Debug("skipping inactive subscription", "subscription_id", sub.ID, "status", sub.Status)
			continue
		}
		s.syncSubscription(ctx, src, cookie, sub, settings.AutoDownload, stats)
	}
	return nil
}

// upsertMembership writes the creator and subscription of one membership.
// Existing subscriptions keep their sync and auto-download flags.
func (s *SyncService) upsertMembership(ctx context.Context, platform domain.Platform, m domain.Membership) error {
	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		creatorID, _, err := s.creators.Upsert(txCtx, &domain.Creator{
			Name:       m.CreatorName,
			Slug:       CreatorSlug(firstNonEmpty(m.CreatorName, m.CampaignName), m.CampaignID),
			AvatarURL:  m.AvatarURL,
			ProfileURL: m.ProfileURL,
		})
		if err != nil {
			return fmt.Errorf("upsert creator: %w", err)
		}

		_, _, err = s.subscriptions.Upsert(txCtx, &domain.Subscription{
			CreatorID:           creatorID,
			Platform:            platform,
			ExternalID:          m.CampaignID,
			TierName:            m.TierName,
			CostCents:           m.CostCents,
			Currency:            m.Currency,
			BillingCycle:        billingCycle,
			Status:              m.Status,
			MemberSince:         m.MemberSince,
			SyncEnabled:         true,
			AutoDownloadEnabled: true,
		})
		if err != nil {
			return fmt.Errorf("upsert subscription: %w", err)
		}
		return nil
	})
}

func (s *SyncService) syncSubscription(ctx context.Context, src Source, cookie string, sub domain.Subscription, autoDownload bool, stats *domain.SyncStats) {
	logger := s.logger.With("subscription_id", sub.ID, "campaign_id", sub.ExternalID)
	entry := &domain.SyncLog{
		SubscriptionID: sub.ID,
		StartedAt:      s.now(),
		Status:         domain.SyncLogSuccess,
		Errors:         []string{},
	}

	// A failed page still leaves the posts read before it.
	posts, fetchErr := src.FetchPosts(ctx, cookie, sub.ExternalID)
	entry.ItemsFound = len(posts)
	stats.PostsFound += len(posts)

	for _, post := range posts {
		downloaded, err := s.syncPost(ctx, sub, post, autoDownload && sub.AutoDownloadEnabled, stats)
		if err != nil {
			entry.Errors = append(entry.Errors, err.Error())
			continue
		}
		if downloaded {
			entry.ItemsDownloaded++
			stats.ItemsDownloaded++
		}
	}

	if fetchErr != nil {
		entry.Status = domain.SyncLogFailed
		entry.Errors = append(entry.Errors, fetchErr.Error())
		stats.AddError(fmt.Sprintf("subscription %d: %v", sub.ID, fetchErr))
		logger.Warn("subscription sync failed", "error", fetchErr)
	} else if err := s.subscriptions.MarkSynced(ctx, sub.ID, s.now()); err != nil {
		entry.Errors = append(entry.Errors, err.Error())
		stats.AddError(fmt.Sprintf("subscription %d: mark synced: %v", sub.ID, err))
	} else {
		stats.SubscriptionsSynced++
	}

	completed := s.now()
	entry.CompletedAt = &completed
	if err := s.syncLogs.Insert(ctx, entry); err != nil {
		logger.Error("write sync log", "error", err)
	}

	logger.Info("subscription synced",
		"status", entry.Status,
		"items_found", entry.ItemsFound,
		"items_downloaded", entry.ItemsDownloaded,
		"errors", len(entry.Errors),
	)
}

// syncPost upserts one post and either archives it or queues its download
// URL for resolution. It reports whether an asset was downloaded.
func (s *SyncService) syncPost(ctx context.Context, sub domain.Subscription, post domain.Post, autoDownload bool, stats *domain.SyncStats) (bool, error) {
	item := contentFromPost(sub.ID, post)
	id, inserted, err := s.content.Upsert(ctx, item)
	if err != nil {
		return false, fmt.Errorf("upsert post %s: %w", post.ExternalID, err)
	}
	item.ID = id

	action := "updated"
	if inserted {
		action = "created"
		stats.PostsInserted++
	} else {
		stats.PostsUpdated++
	}
	s.publish(ctx, action, item)

	if post.DownloadURL == nil {
		created, err := s.jobs.EnqueueIfAbsent(ctx, id, domain.KindDownloadURLResolve, s.now())
		if err != nil {
			return false, fmt.Errorf("queue post %s: %w", post.ExternalID, err)
		}
		if created {
			stats.JobsQueued++
		}
		return false, nil
	}

	if !autoDownload {
		return false, nil
	}
	result, err := s.archiver.Archive(ctx, id)
	if err != nil {
		return false, fmt.Errorf("archive failed for content %d: %w", id, err)
	}
	return result.Downloaded, nil
}

func (s *SyncService) publish(ctx context.Context, action string, item *domain.ContentItem) {
	if s.publisher == nil {
		return
	}
	event := domain.ContentEvent{
		Action:         action,
		ContentItemID:  item.ID,
		SubscriptionID: item.SubscriptionID,
		ExternalID:     item.ExternalID,
		Title:          item.Title,
		Timestamp:      s.now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish content event", "content_item_id", item.ID, "error", err)
	}
}

func contentFromPost(subscriptionID int64, post domain.Post) *domain.ContentItem {
	tags := post.Tags
	if tags == nil {
		tags = []string{}
	}
	return &domain.ContentItem{
		SubscriptionID: subscriptionID,
		ExternalID:     post.ExternalID,
		Title:          post.Title,
		Description:    post.Description,
		ContentType:    post.ContentType,
		ExternalURL:    post.ExternalURL,
		DownloadURL:    post.DownloadURL,
		FileNameHint:   post.FileNameHint,
		PublishedAt:    post.PublishedAt,
		Tags:           tags,
	}
}

// CreatorSlug builds the stable creator key "name-campaignId".
func CreatorSlug(name, campaignID string) string {
	base := slugify(name)
	if base == "" {
		base = "patreon-creator"
	}
	slug := base + "-" + campaignID
	if len(slug) > maxSlug {
		slug = slug[:maxSlug]
	}
	return slug
}

func slugify(input string) string {
	stripMarks := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, input)
	if err != nil {
		folded = input
	}
	folded = strings.ToLower(strings.TrimSpace(folded))

	var b strings.Builder
	dash := false
	for _, r := range folded {
		switch {
		case r == '\'' || r == '"':
			continue
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}

	slug := strings.TrimRight(b.String(), "-")
	if len(slug) > maxSlugBase {
		slug = strings.TrimRight(slug[:maxSlugBase], "-")
	}
	return slug
}
