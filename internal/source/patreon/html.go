package patreon

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/alexmgee/patron-hub/internal/domain"
	"github.com/alexmgee/patron-hub/internal/jsonapi"
)

const (
	maxScrapedCampaigns = 200
	overrideWindow      = 1200
)

var accountPages = []string{"/memberships", "/home", "/settings/memberships"}

var (
	campaignIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`/api/campaigns/(\d+)`),
		regexp.MustCompile(`"campaign_id"\s*:\s*(\d+)`),
		regexp.MustCompile(`campaign_id=(\d+)`),
		regexp.MustCompile(`"campaign"\s*:\s*\{\s*"data"\s*:\s*\{\s*"id"\s*:\s*"(\d+)"`),
	}
	campaignIDField  = regexp.MustCompile(`"campaign_id"\s*:\s*(\d+)`)
	amountField      = regexp.MustCompile(`"currently_entitled_amount_cents"\s*:\s*(\d+)`)
	currencyField    = regexp.MustCompile(`"currency"\s*:\s*"([A-Z]{3})"`)
	tierTitleField   = regexp.MustCompile(`"tier_title"\s*:\s*"([^"]{1,120})"`)
	entitledTierName = regexp.MustCompile(`"currently_entitled_tiers"[\s\S]{0,300}?"title"\s*:\s*"([^"]{1,120})"`)
	escapedSlash     = regexp.MustCompile(`(?i)\\u002F`)
)

// pricingHint is what inline page JSON reveals about a membership's price.
type pricingHint struct {
	CostCents int
	Currency  string
	TierName  string
}

func (h pricingHint) merge(other pricingHint) pricingHint {
	if h.CostCents <= 0 {
		h.CostCents = other.CostCents
	}
	if h.Currency == "" {
		h.Currency = other.Currency
	}
	if h.TierName == "" {
		h.TierName = other.TierName
	}
	return h
}

// decodeEscaped undoes the escaping used when URLs sit inside inline JSON.
func decodeEscaped(s string) string {
	s = escapedSlash.ReplaceAllString(s, "/")
	s = strings.ReplaceAll(s, `\/`, "/")
	return strings.ReplaceAll(s, "&amp;", "&")
}

// extractCampaignIDs returns campaign ids in order of first appearance.
func extractCampaignIDs(page string) []string {
	decoded := decodeEscaped(page)
	seen := make(map[string]bool)
	var ids []string
	for _, re := range campaignIDPatterns {
		for _, m := range re.FindAllStringSubmatch(decoded, -1) {
			if seen[m[1]] {
				continue
			}
			seen[m[1]] = true
			ids = append(ids, m[1])
		}
	}
	return ids
}

// extractPricingHints looks near each campaign_id for the amount, currency
// and tier the account pays.
func extractPricingHints(page string) map[string]pricingHint {
	decoded := decodeEscaped(page)
	out := make(map[string]pricingHint)
	for _, loc := range campaignIDField.FindAllStringSubmatchIndex(decoded, -1) {
		id := decoded[loc[2]:loc[3]]
		end := min(len(decoded), loc[0]+overrideWindow)
		window := decoded[loc[0]:end]

		var hint pricingHint
		if m := amountField.FindStringSubmatch(window); m != nil {
			hint.CostCents, _ = strconv.Atoi(m[1])
		}
		if m := currencyField.FindStringSubmatch(window); m != nil {
			hint.Currency = m[1]
		}
		if m := tierTitleField.FindStringSubmatch(window); m != nil {
			hint.TierName = m[1]
		} else if m := entitledTierName.FindStringSubmatch(window); m != nil {
			hint.TierName = m[1]
		}

		out[id] = out[id].merge(hint)
	}
	return out
}

func (s *Source) membershipsFromHTML(ctx context.Context, cookie string) Result[[]domain.Membership] {
	var ids []string
	seen := make(map[string]bool)
	hints := make(map[string]pricingHint)
	var lastErr error
	fetched := false

	for _, page := range accountPages {
		body, err := s.client.getHTML(ctx, cookie, page)
		if err != nil {
			if classify(err) == ReasonFatal {
				return failed[[]domain.Membership](err)
			}
			s.logger.Debug("account page fetch failed", "page", page, "error", err)
			lastErr = err
			continue
		}
		fetched = true

		for _, id := range extractCampaignIDs(body) {
			if !seen[id] && len(ids) < maxScrapedCampaigns {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		for id, hint := range extractPricingHints(body) {
			hints[id] = hints[id].merge(hint)
		}
	}

	if !fetched {
		return failed[[]domain.Membership](lastErr)
	}

	var out []domain.Membership
	for _, id := range ids {
		m, err := s.campaignAsMembership(ctx, cookie, id, hints[id])
		if err != nil {
			if classify(err) == ReasonFatal {
				return failed[[]domain.Membership](err)
			}
			s.logger.Debug("campaign fetch failed", "campaign_id", id, "error", err)
			continue
		}
		out = append(out, m)
	}
	return foundOrEmpty(out)
}

func (s *Source) campaignAsMembership(ctx context.Context, cookie, campaignID string, hint pricingHint) (domain.Membership, error) {
	id := url.PathEscape(campaignID)
	res := s.client.getFirst(ctx, cookie,
		"/api/campaigns/"+id+"?include=creator&json-api-version=1.0",
		"/api/campaigns/"+id+"?json-api-version=1.0",
	)
	if res.Reason != ReasonOK {
		return domain.Membership{}, res.Err
	}

	campaign, ok := res.Value.Primary()
	if !ok {
		return domain.Membership{}, domain.ErrNotFound
	}
	creator, _ := jsonapi.NewGraph(res.Value).First(campaign, "creator")

	m := campaignMembership(campaignID, campaign, creator, "Patreon Campaign "+campaignID)
	m.CostCents = max(0, hint.CostCents)
	m.TierName = ptr(hint.TierName)
	if hint.Currency != "" {
		m.Currency = hint.Currency
	}
	return m, nil
}
