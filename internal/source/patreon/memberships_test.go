package patreon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexmgee/patron-hub/internal/domain"
)

const (
	campaignJSON = `{"type": "campaign", "id": "7",
		"attributes": {"name": "Jane's Studio", "url": "https://www.patreon.com/jane"},
		"relationships": {"creator": {"data": {"type": "user", "id": "c1"}}}}`
	creatorJSON = `{"type": "user", "id": "c1",
		"attributes": {"full_name": "Jane Artist", "image_url": "https://c10.patreonusercontent.com/jane.png"}}`
	tierJSON   = `{"type": "tier", "id": "t1", "attributes": {"title": "Gold", "amount_cents": 900}}`
	memberBody = `"attributes": {"currently_entitled_amount_cents": 500, "patron_status": "active_patron",
			"pledge_relationship_start": "2023-01-15T00:00:00Z"},
		"relationships": {
			"campaign": {"data": {"type": "campaign", "id": "7"}},
			"currently_entitled_tiers": {"data": [{"type": "tier", "id": "t1"}]},
			"user": {"data": {"type": "user", "id": "42"}}
		}`
	memberJSON = `{"type": "member", "id": "m1", ` + memberBody + `}`
)

func expectedMembership() domain.Membership {
	since := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)
	profile := "https://www.patreon.com/jane"
	avatar := "https://c10.patreonusercontent.com/jane.png"
	tier := "Gold"
	return domain.Membership{
		CampaignID:   "7",
		CreatorName:  "Jane Artist",
		CampaignName: "Jane's Studio",
		ProfileURL:   &profile,
		AvatarURL:    &avatar,
		TierName:     &tier,
		CostCents:    500,
		Currency:     "USD",
		Status:       domain.SubscriptionActive,
		MemberSince:  &since,
	}
}

func TestFetchMemberships_ShapesAgree(t *testing.T) {
	shapes := map[string]struct {
		currentUser string
		members     map[string]string
	}{
		"embedded": {
			currentUser: `{"data": {"type": "user", "id": "42", "relationships": {
				"memberships": {"data": [` + memberJSON + `]}}},
				"included": [` + campaignJSON + `,` + creatorJSON + `,` + tierJSON + `]}`,
		},
		"refs with included": {
			currentUser: `{"data": {"type": "user", "id": "42", "relationships": {
				"memberships": {"data": [{"type": "member", "id": "m1"}]}}},
				"included": [` + memberJSON + `,` + campaignJSON + `,` + creatorJSON + `,` + tierJSON + `]}`,
		},
		"refs only": {
			currentUser: `{"data": {"type": "user", "id": "42", "relationships": {
				"memberships": {"data": [{"type": "member", "id": "m1"}]}}}}`,
			members: map[string]string{
				"/api/members/m1": `{"data": ` + memberJSON + `,
					"included": [` + campaignJSON + `,` + creatorJSON + `,` + tierJSON + `]}`,
			},
		},
		"included scan": {
			currentUser: `{"data": {"type": "user", "id": "42", "relationships": {}},
				"included": [` + memberJSON + `,` + campaignJSON + `,` + creatorJSON + `,` + tierJSON + `,
				{"type": "member", "id": "other", "attributes": {},
				 "relationships": {"campaign": {"data": {"type": "campaign", "id": "7"}}, "user": {"data": {"type": "user", "id": "99"}}}}]}`,
		},
	}

	for name, shape := range shapes {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/api/current_user" {
					assert.Equal(t, "session_id=abc", r.Header.Get("Cookie"))
					assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
					writeJSON(w, shape.currentUser)
					return
				}
				if body, ok := shape.members[r.URL.Path]; ok {
					writeJSON(w, body)
					return
				}
				http.NotFound(w, r)
			}))
			defer srv.Close()

			got, err := newTestSource(t, srv, 40).FetchMemberships(context.Background(), "abc")
			require.NoError(t, err)
			assert.Equal(t, []domain.Membership{expectedMembership()}, got)
		})
	}
}

func TestFetchMemberships_HTMLFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/current_user":
			writeJSON(w, `{"data": {"type": "user", "id": "42"}}`)
		case "/memberships":
			_, _ = w.Write([]byte(`<script>window.__DATA__ = {"campaign_id": 99, "currently_entitled_amount_cents": 300,
				"currency": "EUR", "tier_title": "Fan", "link": "https:\/\/www.patreon.com\/api\/campaigns\/99"};</script>`))
		case "/home":
			http.Error(w, "nope", http.StatusInternalServerError)
		case "/settings/memberships":
			_, _ = w.Write([]byte(`<a href="/checkout?campaign_id=99">again</a>`))
		case "/api/campaigns/99":
			assert.Contains(t, r.URL.RawQuery, "include=creator")
			writeJSON(w, `{"data": {"type": "campaign", "id": "99", "attributes": {"creation_name": "Comics"},
				"relationships": {"creator": {"data": {"type": "user", "id": "5"}}}},
				"included": [{"type": "user", "id": "5", "attributes": {"full_name": "Bob"}}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	got, err := newTestSource(t, srv, 40).FetchMemberships(context.Background(), "session_id=abc; other=1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	m := got[0]
	assert.Equal(t, "99", m.CampaignID)
	assert.Equal(t, "Bob", m.CreatorName)
	assert.Equal(t, "Comics", m.CampaignName)
	assert.Equal(t, 300, m.CostCents)
	assert.Equal(t, "EUR", m.Currency)
	require.NotNil(t, m.TierName)
	assert.Equal(t, "Fan", *m.TierName)
	assert.Equal(t, domain.SubscriptionActive, m.Status)
}

func TestFetchMemberships_AllStagesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	got, err := newTestSource(t, srv, 40).FetchMemberships(context.Background(), "abc")
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), "502")
}

func TestFetchMemberships_NoMembershipsIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/current_user" {
			writeJSON(w, `{"data": {"type": "user", "id": "42"}}`)
			return
		}
		_, _ = w.Write([]byte("<html>nothing here</html>"))
	}))
	defer srv.Close()

	got, err := newTestSource(t, srv, 40).FetchMemberships(context.Background(), "abc")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetchMemberships_RejectsNonASCIICookie(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	_, err := newTestSource(t, srv, 40).FetchMemberships(context.Background(), "session_id=abc…")
	assert.ErrorIs(t, err, ErrInvalidCookie)
	assert.Zero(t, calls.Load())
}

func TestNormalizeCookie(t *testing.T) {
	got, err := NormalizeCookie("  abc123 ")
	require.NoError(t, err)
	assert.Equal(t, "session_id=abc123", got)

	got, err = NormalizeCookie("session_id=x; device=y")
	require.NoError(t, err)
	assert.Equal(t, "session_id=x; device=y", got)

	_, err = NormalizeCookie("session_id=ü")
	assert.ErrorIs(t, err, ErrInvalidCookie)
	assert.True(t, strings.Contains(ErrInvalidCookie.Error(), "re-copy"))
}

func TestInferStatus(t *testing.T) {
	assert.Equal(t, domain.SubscriptionActive, inferStatus(""))
	assert.Equal(t, domain.SubscriptionActive, inferStatus("former_patron"))
	assert.Equal(t, domain.SubscriptionPaused, inferStatus("declined_patron"))
	assert.Equal(t, domain.SubscriptionPaused, inferStatus("pending"))
	assert.Equal(t, domain.SubscriptionCancelled, inferStatus("cancelled"))
}

func TestExtractPricingHints(t *testing.T) {
	page := `{"campaign_id": 5, "currently_entitled_tiers": [{"id": "1", "title": "Silver"}], "currency": "GBP"}
		... {"campaign_id": 5, "currently_entitled_amount_cents": 0}
		... {"campaign_id": 6, "currently_entitled_amount_cents": 1200}`

	hints := extractPricingHints(page)
	assert.Equal(t, "Silver", hints["5"].TierName)
	assert.Equal(t, "GBP", hints["5"].Currency)
	assert.Equal(t, 1200, hints["6"].CostCents)
	assert.Equal(t, []string{"5", "6"}, extractCampaignIDs(page))
}
