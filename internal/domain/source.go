package domain

import "time"

// Membership is a user's paid relationship to a creator campaign as reported upstream.
type Membership struct {
	CampaignID   string
	CreatorName  string
	CampaignName string
	ProfileURL   *string
	AvatarURL    *string
	TierName     *string
	CostCents    int
	Currency     string
	Status       SubscriptionStatus
	MemberSince  *time.Time
}

type Post struct {
	ExternalID   string
	Title        string
	Description  *string
	ContentType  ContentType
	ExternalURL  *string
	DownloadURL  *string
	FileNameHint *string
	PublishedAt  *time.Time
	Tags         []string
}

type ResolvedMedia struct {
	DownloadURL  string
	FileNameHint *string
	Source       MediaSource
}

func (m ResolvedMedia) Found() bool {
	return m.Source != MediaNone && m.DownloadURL != ""
}

type ContentEvent struct {
	Action         string    `json:"action"` // "created", "updated" or "archived"
	ContentItemID  int64     `json:"contentItemId"`
	SubscriptionID int64     `json:"subscriptionId"`
	ExternalID     string    `json:"externalId"`
	Title          string    `json:"title"`
	Timestamp      time.Time `json:"timestamp"`
}
