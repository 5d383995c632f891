package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/alexmgee/patron-hub/internal/domain"
)

// AssetIntake stores file candidates reported by an external harvester.
type AssetIntake struct {
	assets AssetStore
	logger *slog.Logger
}

func NewAssetIntake(assets AssetStore, logger *slog.Logger) *AssetIntake {
	return &AssetIntake{
		assets: assets,
		logger: logger.With("component", "asset_intake"),
	}
}

// Add records discovered assets for a content item. Entries without an http
// URL are skipped and known URLs are ignored. It returns how many entries
// were attempted and how many were new.
func (a *AssetIntake) Add(ctx context.Context, contentItemID int64, discovered []domain.DiscoveredAsset) (int, int, error) {
	if contentItemID <= 0 {
		return 0, 0, domain.ErrInvalidID
	}

	attempted, inserted := 0, 0
	for _, d := range discovered {
		url := strings.TrimSpace(d.URL)
		if !strings.HasPrefix(url, "http") {
			continue
		}
		attempted++

		assetType := strings.ToLower(strings.TrimSpace(d.AssetType))
		if assetType == "" {
			assetType = string(domain.ContentAttachment)
		}

		created, err := a.assets.Insert(ctx, &domain.ContentAsset{
			ContentItemID: contentItemID,
			URL:           url,
			FileNameHint:  d.FileNameHint,
			AssetType:     assetType,
			Status:        domain.AssetDiscovered,
		})
		if err != nil {
			if ctx.Err() != nil {
				return attempted, inserted, ctx.Err()
			}
			a.logger.Warn("store discovered asset", "content_item_id", contentItemID, "url", url, "error", err)
			continue
		}
		if created {
			inserted++
		}
	}

	a.logger.Info("assets received",
		"content_item_id", contentItemID,
		"attempted", attempted,
		"inserted", inserted,
	)
	return attempted, inserted, nil
}
