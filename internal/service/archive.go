package service

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/alexmgee/patron-hub/internal/archive"
	"github.com/alexmgee/patron-hub/internal/domain"
	"github.com/alexmgee/patron-hub/internal/downloader"
	"github.com/alexmgee/patron-hub/internal/source/patreon"
)

const (
	maxArchiveErrors = 3
	patreonReferer   = "https://www.patreon.com/home"
)

var httpURL = regexp.MustCompile(`(?i)^https?://`)

// ArchiveService writes the on-disk copy of a content item: a sanitized
// post.html snapshot plus every known asset, recorded as download rows.
type ArchiveService struct {
	content    ContentStore
	assets     AssetStore
	downloads  DownloadStore
	pages      PageFetcher
	downloader Downloader
	settings   SettingsProvider
	mirror     Mirror
	publisher  Publisher
	logger     *slog.Logger
	now        func() time.Time
}

func NewArchiveService(
	content ContentStore,
	assets AssetStore,
	downloads DownloadStore,
	pages PageFetcher,
	dl Downloader,
	settings SettingsProvider,
	mirror Mirror,
	publisher Publisher,
	logger *slog.Logger,
) *ArchiveService {
	return &ArchiveService{
		content:    content,
		assets:     assets,
		downloads:  downloads,
		pages:      pages,
		downloader: dl,
		settings:   settings,
		mirror:     mirror,
		publisher:  publisher,
		logger:     logger.With("component", "archive"),
		now:        time.Now,
	}
}

// Archive archives one content item. When the run fails as a whole the error
// is also stored on the item so it stays visible without logs.
func (s *ArchiveService) Archive(ctx context.Context, contentItemID int64) (*domain.ArchiveResult, error) {
	if contentItemID <= 0 {
		return nil, domain.ErrInvalidID
	}

	result, err := s.archive(ctx, contentItemID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			if serr := s.content.SetArchiveError(ctx, contentItemID, truncate(err.Error(), maxJobErrorLength)); serr != nil {
				s.logger.Error("store archive error", "content_item_id", contentItemID, "error", serr)
			}
		}
		return nil, err
	}
	return result, nil
}

type assetCandidate struct {
	assetID   int64
	url       string
	hint      *string
	assetType string
	status    domain.AssetStatus
}

func (s *ArchiveService) archive(ctx context.Context, contentItemID int64) (*domain.ArchiveResult, error) {
	target, err := s.content.GetArchiveTarget(ctx, contentItemID)
	if err != nil {
		return nil, fmt.Errorf("load content item %d: %w", contentItemID, err)
	}
	settings, err := s.settings.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve settings: %w", err)
	}
	if settings.HasCookie() {
		cookie, err := patreon.NormalizeCookie(settings.PatreonCookie)
		if err != nil {
			return nil, fmt.Errorf("patreon cookie: %w", err)
		}
		settings.PatreonCookie = cookie
	}

	logger := s.logger.With("content_item_id", contentItemID)
	root := settings.ArchiveDir
	dir := archive.ContentDir(root, *target, s.now())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create content dir: %w", err)
	}

	snapshotPath, err := s.writeSnapshot(ctx, target, settings, dir)
	if err != nil {
		return nil, err
	}
	snapshotLocal := archive.RelativePath(root, snapshotPath)
	mime := archive.SnapshotMimeType
	if err := s.record(ctx, root, contentItemID, snapshotPath, archive.SnapshotFileName, archive.SnapshotFileType, &mime); err != nil {
		return nil, err
	}

	candidates, err := s.candidates(ctx, target)
	if err != nil {
		return nil, err
	}

	cookie, referer := "", ""
	if target.Platform == domain.PlatformPatreon {
		cookie, referer = settings.PatreonCookie, patreonReferer
	}

	downloaded := false
	var failures []string
	for _, c := range candidates {
		if !httpURL.MatchString(c.url) || c.status == domain.AssetDownloaded {
			continue
		}

		res, err := s.downloader.Download(ctx, downloader.Request{
			URL:          c.url,
			Dir:          dir,
			FileNameHint: c.hint,
			Cookie:       cookie,
			Referer:      referer,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("asset download failed", "url", c.url, "error", err)
			failures = append(failures, err.Error())
			if c.assetID > 0 {
				if err := s.assets.MarkFailed(ctx, c.assetID, err.Error()); err != nil {
					return nil, fmt.Errorf("mark asset %d failed: %w", c.assetID, err)
				}
			}
			continue
		}

		mimeType := ptrOrNil(res.MimeType)
		if err := s.record(ctx, root, contentItemID, res.AbsolutePath, res.FileName, c.assetType, mimeType); err != nil {
			return nil, err
		}
		downloaded = true
		if c.assetID > 0 {
			if err := s.assets.MarkDownloaded(ctx, c.assetID, s.now()); err != nil {
				return nil, fmt.Errorf("mark asset %d downloaded: %w", c.assetID, err)
			}
		}
	}

	var archiveErr *string
	if len(failures) > 0 {
		summary := strings.Join(failures[:min(len(failures), maxArchiveErrors)], " | ")
		archiveErr = &summary
	}
	if err := s.content.MarkArchived(ctx, contentItemID, archiveErr); err != nil {
		return nil, fmt.Errorf("mark archived: %w", err)
	}

	logger.Info("content archived",
		"local_path", snapshotLocal,
		"assets", len(candidates),
		"failed", len(failures),
	)
	s.publish(ctx, target)

	return &domain.ArchiveResult{LocalPath: snapshotLocal, Downloaded: downloaded}, nil
}

func (s *ArchiveService) writeSnapshot(ctx context.Context, target *domain.ArchiveTarget, settings domain.Settings, dir string) (string, error) {
	item := target.Item
	sourceURL := ""
	if item.ExternalURL != nil {
		sourceURL = *item.ExternalURL
	}

	var body template.HTML
	switch {
	case item.Description != nil && strings.TrimSpace(*item.Description) != "":
		clean, err := archive.BodyFromDescription(*item.Description)
		if err != nil {
			return "", err
		}
		body = clean
	case target.Platform == domain.PlatformPatreon && sourceURL != "":
		if !settings.HasCookie() {
			return "", fmt.Errorf("snapshot post page: %w", domain.ErrNoCookie)
		}
		page, err := s.pages.FetchPostPage(ctx, settings.PatreonCookie, sourceURL)
		if err != nil {
			return "", fmt.Errorf("snapshot post page: %w", err)
		}
		body = archive.BodyFromPage(page, sourceURL)
	}

	published := s.now()
	if item.PublishedAt != nil {
		published = *item.PublishedAt
	}
	html, err := archive.RenderSnapshot(archive.SnapshotPage{
		Title:       item.Title,
		PublishedAt: published,
		SourceURL:   sourceURL,
		Body:        body,
	})
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, archive.SnapshotFileName)
	if err := os.WriteFile(path, html, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// candidates merges discovered assets with the item's single download URL,
// deduplicated by URL.
func (s *ArchiveService) candidates(ctx context.Context, target *domain.ArchiveTarget) ([]assetCandidate, error) {
	assets, err := s.assets.ListByContent(ctx, target.Item.ID)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}

	seen := make(map[string]bool, len(assets)+1)
	out := make([]assetCandidate, 0, len(assets)+1)
	for _, a := range assets {
		if seen[a.URL] {
			continue
		}
		seen[a.URL] = true
		out = append(out, assetCandidate{
			assetID:   a.ID,
			url:       a.URL,
			hint:      a.FileNameHint,
			assetType: firstNonEmpty(a.AssetType, string(domain.ContentAttachment)),
			status:    a.Status,
		})
	}

	item := target.Item
	if item.DownloadURL != nil && *item.DownloadURL != "" && !seen[*item.DownloadURL] {
		out = append(out, assetCandidate{
			url:       *item.DownloadURL,
			hint:      item.FileNameHint,
			assetType: firstNonEmpty(string(item.ContentType), string(domain.ContentAttachment)),
			status:    domain.AssetDiscovered,
		})
	}
	return out, nil
}

// record upserts the download row for a file and mirrors it when configured.
func (s *ArchiveService) record(ctx context.Context, root string, contentItemID int64, path, fileName, fileType string, mimeType *string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", fileName, err)
	}
	local := archive.RelativePath(root, path)

	err = s.downloads.Upsert(ctx, &domain.Download{
		ContentItemID: contentItemID,
		FileName:      fileName,
		FileType:      fileType,
		MimeType:      mimeType,
		SizeBytes:     info.Size(),
		LocalPath:     local,
		DownloadedAt:  s.now(),
	})
	if err != nil {
		return fmt.Errorf("record download %s: %w", local, err)
	}

	if s.mirror != nil {
		contentType := ""
		if mimeType != nil {
			contentType = *mimeType
		}
		if err := s.mirror.Put(ctx, local, path, contentType); err != nil {
			s.logger.Warn("mirror upload failed", "local_path", local, "error", err)
		}
	}
	return nil
}

func (s *ArchiveService) publish(ctx context.Context, target *domain.ArchiveTarget) {
	if s.publisher == nil {
		return
	}
	event := domain.ContentEvent{
		Action:         "archived",
		ContentItemID:  target.Item.ID,
		SubscriptionID: target.Item.SubscriptionID,
		ExternalID:     target.Item.ExternalID,
		Title:          target.Item.Title,
		Timestamp:      s.now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish archived event", "content_item_id", target.Item.ID, "error", err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func ptrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
