package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alexmgee/patron-hub/internal/domain"
)

const (
	defaultCurrency = "USD"

	importExternalPrefix = "import:"
	manualExternalPrefix = "manual:"
)

var billingCycles = []string{"monthly", "yearly", "one-time"}

var importTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// ImportService adds creators, subscriptions and content that no sync source
// reports: a JSON export from another tool, or a subscription typed in by hand.
type ImportService struct {
	creators      CreatorStore
	subscriptions SubscriptionStore
	content       ContentStore
	txManager     TransactionManager
	logger        *slog.Logger
	now           func() time.Time
}

func NewImportService(
	creators CreatorStore,
	subscriptions SubscriptionStore,
	content ContentStore,
	txManager TransactionManager,
	logger *slog.Logger,
) *ImportService {
	return &ImportService{
		creators:      creators,
		subscriptions: subscriptions,
		content:       content,
		txManager:     txManager,
		logger:        logger.With("component", "import"),
		now:           time.Now,
	}
}

// ImportJSON writes every creator of the payload in its own transaction.
// Creators without a name are skipped. Content already imported for the same
// title and publish time is counted as skipped. The payload is checked in full
// before anything is written.
func (s *ImportService) ImportJSON(ctx context.Context, payload domain.ImportPayload) (*domain.ImportResult, error) {
	if err := validatePayload(payload); err != nil {
		return nil, err
	}

	result := &domain.ImportResult{}
	for _, c := range payload.Creators {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		name := strings.TrimSpace(c.Name)
		slug := strings.TrimSpace(c.Slug)
		if slug == "" {
			slug = slugify(name)
		}
		if name == "" || slug == "" {
			continue
		}

		var delta domain.ImportResult
		err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			var err error
			delta, err = s.importCreator(txCtx, name, slug, c)
			return err
		})
		if err != nil {
			return result, fmt.Errorf("import creator %s: %w", slug, err)
		}
		result.Add(delta)
	}

	s.logger.Info("json import completed",
		"creators_created", result.CreatorsCreated,
		"subscriptions_created", result.SubscriptionsCreated,
		"content_created", result.ContentItemsCreated,
		"content_skipped", result.ContentItemsSkipped,
	)
	return result, nil
}

func (s *ImportService) importCreator(ctx context.Context, name, slug string, c domain.ImportCreator) (domain.ImportResult, error) {
	var out domain.ImportResult

	creatorID, inserted, err := s.creators.Upsert(ctx, &domain.Creator{
		Name:       name,
		Slug:       slug,
		AvatarURL:  c.AvatarURL,
		ProfileURL: c.WebsiteURL,
	})
	if err != nil {
		return out, fmt.Errorf("upsert creator: %w", err)
	}
	if inserted {
		out.CreatorsCreated++
	} else {
		out.CreatorsUpdated++
	}

	in := c.Subscription
	if in == nil || in.Platform == "" {
		return out, nil
	}

	status := in.Status
	if status == "" {
		status = domain.SubscriptionActive
	}
	subID, inserted, err := s.subscriptions.Upsert(ctx, &domain.Subscription{
		CreatorID:           creatorID,
		Platform:            in.Platform,
		ExternalID:          importExternalPrefix + slug,
		TierName:            in.TierName,
		CostCents:           clampCost(in.CostCents),
		Currency:            normalizeCurrency(in.Currency),
		BillingCycle:        firstNonEmpty(in.BillingCycle, billingCycle),
		Status:              status,
		MemberSince:         parseImportTime(in.MemberSince),
		SyncEnabled:         boolOr(in.SyncEnabled, true),
		AutoDownloadEnabled: boolOr(in.AutoDownloadEnabled, true),
	})
	if err != nil {
		return out, fmt.Errorf("upsert subscription: %w", err)
	}
	if inserted {
		out.SubscriptionsCreated++
	} else {
		out.SubscriptionsUpdated++
		// Upsert keeps the stored flags; an import states them explicitly.
		flags := domain.SubscriptionSettings{
			SyncEnabled:         in.SyncEnabled,
			AutoDownloadEnabled: in.AutoDownloadEnabled,
		}
		if !flags.Empty() {
			if _, err := s.subscriptions.UpdateSettings(ctx, subID, flags); err != nil {
				return out, fmt.Errorf("update subscription flags: %w", err)
			}
		}
	}

	now := s.now()
	for _, item := range c.Content {
		title := strings.TrimSpace(item.Title)
		if title == "" || !item.ContentType.Valid() {
			continue
		}
		published := parseImportTime(item.PublishedAt)

		id, inserted, err := s.content.Upsert(ctx, &domain.ContentItem{
			SubscriptionID: subID,
			ExternalID:     importedContentID(title, published),
			Title:          title,
			Description:    item.Description,
			ContentType:    item.ContentType,
			ExternalURL:    item.ExternalURL,
			PublishedAt:    published,
			Tags:           item.Tags,
		})
		if err != nil {
			return out, fmt.Errorf("upsert content %q: %w", title, err)
		}
		if !inserted {
			out.ContentItemsSkipped++
			continue
		}
		out.ContentItemsCreated++

		if item.IsSeen {
			if err := s.content.MarkSeen(ctx, id, now); err != nil {
				return out, fmt.Errorf("mark content %d seen: %w", id, err)
			}
		}
	}
	return out, nil
}

// CreateSubscription records a subscription entered by hand. An existing
// creator with the same slug is reused. Gumroad has no sync source, so its
// subscriptions start with sync disabled.
func (s *ImportService) CreateSubscription(ctx context.Context, in domain.NewSubscription) (*domain.CreatedSubscription, error) {
	name := strings.TrimSpace(in.CreatorName)
	slug := strings.TrimSpace(in.CreatorSlug)
	switch {
	case name == "":
		return nil, fmt.Errorf("%w: creatorName required", domain.ErrInvalidInput)
	case slug == "":
		return nil, fmt.Errorf("%w: creatorSlug required", domain.ErrInvalidInput)
	case in.Platform == "":
		return nil, fmt.Errorf("%w: platform required", domain.ErrInvalidInput)
	case !in.Platform.Valid():
		return nil, fmt.Errorf("%w: unknown platform %q", domain.ErrInvalidInput, in.Platform)
	}

	var tier *string
	if in.TierName != nil {
		if t := strings.TrimSpace(*in.TierName); t != "" {
			tier = &t
		}
	}

	now := s.now().UTC()
	out := &domain.CreatedSubscription{}
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		creatorID, _, err := s.creators.Upsert(txCtx, &domain.Creator{Name: name, Slug: slug})
		if err != nil {
			return fmt.Errorf("upsert creator: %w", err)
		}

		subID, inserted, err := s.subscriptions.Upsert(txCtx, &domain.Subscription{
			CreatorID:           creatorID,
			Platform:            in.Platform,
			ExternalID:          manualExternalPrefix + slug,
			TierName:            tier,
			CostCents:           max(in.CostCents, 0),
			Currency:            normalizeCurrency(in.Currency),
			BillingCycle:        billingCycle,
			Status:              domain.SubscriptionActive,
			MemberSince:         &now,
			SyncEnabled:         in.Platform != domain.PlatformGumroad,
			AutoDownloadEnabled: true,
		})
		if err != nil {
			return fmt.Errorf("upsert subscription: %w", err)
		}

		out.CreatorID, out.SubscriptionID, out.Created = creatorID, subID, inserted
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("subscription added by hand",
		"creator_id", out.CreatorID,
		"subscription_id", out.SubscriptionID,
		"platform", in.Platform,
		"created", out.Created,
	)
	return out, nil
}

func validatePayload(payload domain.ImportPayload) error {
	for _, c := range payload.Creators {
		sub := c.Subscription
		if sub == nil || sub.Platform == "" {
			continue
		}
		if !sub.Platform.Valid() {
			return fmt.Errorf("%w: creator %q has unknown platform %q", domain.ErrInvalidInput, c.Name, sub.Platform)
		}
		if sub.Status != "" && !sub.Status.Valid() {
			return fmt.Errorf("%w: creator %q has unknown status %q", domain.ErrInvalidInput, c.Name, sub.Status)
		}
		if sub.BillingCycle != "" && !slices.Contains(billingCycles, sub.BillingCycle) {
			return fmt.Errorf("%w: creator %q has unknown billing cycle %q", domain.ErrInvalidInput, c.Name, sub.BillingCycle)
		}
	}
	return nil
}

// importedContentID derives a stable key from title and publish time so a
// re-import finds the rows it wrote before.
func importedContentID(title string, published *time.Time) string {
	key := title + "\n"
	if published != nil {
		key += published.UTC().Format(time.RFC3339)
	}
	return importExternalPrefix + uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

func parseImportTime(raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	value := strings.TrimSpace(*raw)
	for _, layout := range importTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func clampCost(cost *float64) int {
	if cost == nil || math.IsNaN(*cost) || math.IsInf(*cost, 0) {
		return 0
	}
	return max(int(math.Trunc(*cost)), 0)
}

func normalizeCurrency(raw string) string {
	currency := strings.ToUpper(strings.TrimSpace(raw))
	if currency == "" {
		return defaultCurrency
	}
	if len(currency) > 3 {
		currency = currency[:3]
	}
	return currency
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
