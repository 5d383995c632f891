package domain

// ImportPayload is the JSON document accepted by the bulk import endpoint.
type ImportPayload struct {
	Creators []ImportCreator `json:"creators"`
}

type ImportCreator struct {
	Name         string              `json:"name"`
	Slug         string              `json:"slug"`
	AvatarURL    *string             `json:"avatarUrl"`
	WebsiteURL   *string             `json:"websiteUrl"`
	Subscription *ImportSubscription `json:"subscription"`
	Content      []ImportContent     `json:"content"`
}

type ImportSubscription struct {
	Platform            Platform           `json:"platform"`
	TierName            *string            `json:"tierName"`
	CostCents           *float64           `json:"costCents"`
	Currency            string             `json:"currency"`
	BillingCycle        string             `json:"billingCycle"`
	Status              SubscriptionStatus `json:"status"`
	MemberSince         *string            `json:"memberSince"`
	SyncEnabled         *bool              `json:"syncEnabled"`
	AutoDownloadEnabled *bool              `json:"autoDownloadEnabled"`
}

type ImportContent struct {
	Title       string      `json:"title"`
	Description *string     `json:"description"`
	ContentType ContentType `json:"contentType"`
	PublishedAt *string     `json:"publishedAt"`
	Tags        []string    `json:"tags"`
	ExternalURL *string     `json:"externalUrl"`
	IsSeen      bool        `json:"isSeen"`
}

type ImportResult struct {
	CreatorsCreated      int `json:"creatorsCreated"`
	CreatorsUpdated      int `json:"creatorsUpdated"`
	SubscriptionsCreated int `json:"subscriptionsCreated"`
	SubscriptionsUpdated int `json:"subscriptionsUpdated"`
	ContentItemsCreated  int `json:"contentItemsCreated"`
	ContentItemsSkipped  int `json:"contentItemsSkipped"`
}

func (r *ImportResult) Add(other ImportResult) {
	r.CreatorsCreated += other.CreatorsCreated
	r.CreatorsUpdated += other.CreatorsUpdated
	r.SubscriptionsCreated += other.SubscriptionsCreated
	r.SubscriptionsUpdated += other.SubscriptionsUpdated
	r.ContentItemsCreated += other.ContentItemsCreated
	r.ContentItemsSkipped += other.ContentItemsSkipped
}

// NewSubscription is a subscription entered by hand for a creator that sync
// does not discover.
type NewSubscription struct {
	CreatorName string
	CreatorSlug string
	Platform    Platform
	TierName    *string
	CostCents   int
	Currency    string
}

type CreatedSubscription struct {
	CreatorID      int64
	SubscriptionID int64
	Created        bool
}
