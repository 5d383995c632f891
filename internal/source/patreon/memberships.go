package patreon

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/alexmgee/patron-hub/internal/domain"
	"github.com/alexmgee/patron-hub/internal/jsonapi"
)

var currentUserEndpoints = []string{
	"/api/current_user?include=memberships.campaign.creator,memberships.currently_entitled_tiers&json-api-version=1.0",
	"/api/current_user?include=memberships&json-api-version=1.0",
}

// FetchMemberships discovers the memberships of the cookie's account. When the
// primary response yields nothing it degrades through fetching memberships by
// reference, scanning the included side table, and scraping account pages.
func (s *Source) FetchMemberships(ctx context.Context, rawCookie string) ([]domain.Membership, error) {
	cookie, err := NormalizeCookie(rawCookie)
	if err != nil {
		return nil, err
	}
	if cookie == "" {
		return nil, domain.ErrNoCookie
	}

	var stageErrs []error
	reached := false

	primary := s.client.getFirst(ctx, cookie, currentUserEndpoints...)
	switch primary.Reason {
	case ReasonFatal:
		return nil, primary.Err
	case ReasonUpstream:
		stageErrs = append(stageErrs, fmt.Errorf("current user: %w", primary.Err))
	case ReasonOK:
		reached = true
		doc := primary.Value
		if direct := parseMemberships(doc); len(direct) > 0 {
			return dedupeMemberships(direct), nil
		}

		stages := []struct {
			name string
			run  func() Result[[]domain.Membership]
		}{
			{"fetch by reference", func() Result[[]domain.Membership] { return s.membershipsByRef(ctx, cookie, doc) }},
			{"scan included", func() Result[[]domain.Membership] { return scanIncludedMemberships(doc) }},
		}
		for _, stage := range stages {
			res := stage.run()
			if !res.Proceed() {
				if res.Reason == ReasonFatal {
					return nil, res.Err
				}
				s.logger.Info("memberships resolved", "stage", stage.name, "count", len(res.Value))
				return dedupeMemberships(res.Value), nil
			}
			s.logger.Debug("membership stage yielded nothing", "stage", stage.name, "reason", res.Reason)
		}
	}

	scraped := s.membershipsFromHTML(ctx, cookie)
	switch scraped.Reason {
	case ReasonFatal:
		return nil, scraped.Err
	case ReasonOK:
		s.logger.Info("memberships resolved", "stage", "html", "count", len(scraped.Value))
		return dedupeMemberships(scraped.Value), nil
	case ReasonEmpty:
		reached = true
	case ReasonUpstream:
		stageErrs = append(stageErrs, fmt.Errorf("html fallback: %w", scraped.Err))
	}

	if !reached {
		return nil, fmt.Errorf("resolve memberships: %w", errors.Join(stageErrs...))
	}
	return nil, nil
}

// parseMemberships reads memberships from a document in its primary shapes:
// embedded in the root's memberships relationship, referenced and present in
// included, or returned directly as data rows.
func parseMemberships(doc *jsonapi.Document) []domain.Membership {
	root, ok := doc.Primary()
	if !ok {
		return nil
	}
	g := jsonapi.NewGraph(doc)

	var rows []jsonapi.Resource
	if rel, ok := root.Relationships["memberships"]; ok {
		embedded := jsonapi.Filter(rel.Data, func(r jsonapi.Resource) bool {
			return r.Embedded() && r.HasRelated("campaign")
		})
		if len(embedded) > 0 {
			rows = embedded
		} else {
			for _, ref := range root.Refs("memberships") {
				if member, ok := g.Get(ref); ok {
					rows = append(rows, member)
				}
			}
		}
	}
	if len(rows) == 0 {
		rows = jsonapi.Filter(doc.Data, func(r jsonapi.Resource) bool {
			return isMembershipType(r.Type) && r.HasRelated("campaign")
		})
	}

	return mapMemberships(g, rows)
}

func mapMemberships(g *jsonapi.Graph, rows []jsonapi.Resource) []domain.Membership {
	var out []domain.Membership
	for _, member := range rows {
		if m, ok := membershipFromResource(g, member); ok {
			out = append(out, m)
		}
	}
	return out
}

func (s *Source) membershipsByRef(ctx context.Context, cookie string, doc *jsonapi.Document) Result[[]domain.Membership] {
	root, _ := doc.Primary()
	refs := root.Refs("memberships")
	if len(refs) == 0 {
		return nothing[[]domain.Membership]()
	}

	var out []domain.Membership
	var lastErr error
	for _, ref := range refs {
		res := s.client.getFirst(ctx, cookie, membershipEndpoints(ref)...)
		switch res.Reason {
		case ReasonFatal:
			return failed[[]domain.Membership](res.Err)
		case ReasonUpstream:
			lastErr = res.Err
			s.logger.Debug("membership fetch failed", "ref", ref.Key(), "error", res.Err)
			continue
		}
		out = append(out, parseMemberships(res.Value)...)
	}

	if len(out) == 0 && lastErr != nil {
		return failed[[]domain.Membership](lastErr)
	}
	return foundOrEmpty(out)
}

func membershipEndpoints(ref jsonapi.Ref) []string {
	const query = "?include=campaign.creator,currently_entitled_tiers&json-api-version=1.0"
	id := url.PathEscape(ref.ID)
	plural := ref.Type + "s"
	if strings.HasSuffix(ref.Type, "s") {
		plural = ref.Type + "es"
	}

	var out []string
	if ref.Type == "member" {
		out = append(out, "/api/members/"+id+query)
	}
	return append(out,
		"/api/"+ref.Type+"/"+id+query,
		"/api/"+plural+"/"+id+query,
	)
}

func scanIncludedMemberships(doc *jsonapi.Document) Result[[]domain.Membership] {
	root, _ := doc.Primary()
	g := jsonapi.NewGraph(doc)
	rows := jsonapi.Filter(doc.Included, func(r jsonapi.Resource) bool {
		return isMembershipType(r.Type) && belongsToUser(r, root.ID) && r.HasRelated("campaign")
	})
	return foundOrEmpty(mapMemberships(g, rows))
}

func isMembershipType(t string) bool {
	return strings.Contains(strings.ToLower(t), "member")
}

// belongsToUser accepts memberships that do not point back at any user.
func belongsToUser(member jsonapi.Resource, userID string) bool {
	if userID == "" {
		return true
	}
	var owners []jsonapi.Ref
	for _, rel := range []string{"patron", "user", "me"} {
		owners = append(owners, member.Refs(rel)...)
	}
	if len(owners) == 0 {
		return true
	}
	for _, owner := range owners {
		if owner.ID == userID {
			return true
		}
	}
	return false
}

func membershipFromResource(g *jsonapi.Graph, member jsonapi.Resource) (domain.Membership, bool) {
	campaignRefs := member.Refs("campaign")
	if len(campaignRefs) == 0 {
		return domain.Membership{}, false
	}
	campaign, ok := g.First(member, "campaign")
	if !ok {
		return domain.Membership{}, false
	}
	creator, _ := g.First(campaign, "creator")

	var tier jsonapi.Resource
	if tiers := g.Related(member, "currently_entitled_tiers"); len(tiers) > 0 {
		tier = tiers[0]
	}

	m := campaignMembership(campaignRefs[0].ID, campaign, creator, "Patreon Creator")
	m.TierName = tier.StringPtr("title")
	if cents, ok := member.Int("currently_entitled_amount_cents"); ok {
		m.CostCents = cents
	} else if cents, ok := tier.Int("amount_cents"); ok {
		m.CostCents = cents
	}
	if currency := member.String("currency"); currency != "" {
		m.Currency = currency
	}
	m.Status = inferStatus(member.String("patron_status"))
	m.MemberSince = member.Time("pledge_relationship_start")
	return m, true
}

// campaignMembership fills the creator and campaign identity of a membership.
func campaignMembership(campaignID string, campaign, creator jsonapi.Resource, fallbackName string) domain.Membership {
	creatorName := firstNonEmpty(
		creator.String("full_name"),
		campaign.String("creator_name"),
		campaign.String("name"),
		fallbackName,
	)
	return domain.Membership{
		CampaignID:   campaignID,
		CreatorName:  creatorName,
		CampaignName: firstNonEmpty(campaign.String("creation_name"), campaign.String("name"), creatorName),
		ProfileURL:   ptr(firstNonEmpty(campaign.String("url"), creator.String("url"))),
		AvatarURL:    ptr(firstNonEmpty(creator.String("image_url"), campaign.String("image_url"))),
		Currency:     firstNonEmpty(campaign.String("currency"), "USD"),
		Status:       domain.SubscriptionActive,
	}
}

func inferStatus(raw string) domain.SubscriptionStatus {
	switch {
	case raw == "", raw == "active_patron", raw == "former_patron":
		return domain.SubscriptionActive
	case strings.Contains(raw, "declined"), strings.Contains(raw, "pending"):
		return domain.SubscriptionPaused
	case strings.Contains(raw, "cancel"):
		return domain.SubscriptionCancelled
	}
	return domain.SubscriptionActive
}

func dedupeMemberships(in []domain.Membership) []domain.Membership {
	seen := make(map[string]bool, len(in))
	out := make([]domain.Membership, 0, len(in))
	for _, m := range in {
		if m.CampaignID == "" || seen[m.CampaignID] {
			continue
		}
		seen[m.CampaignID] = true
		out = append(out, m)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
