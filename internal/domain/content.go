package domain

import "time"

type Creator struct {
	ID         int64     `db:"id"`
	Name       string    `db:"name"`
	Slug       string    `db:"slug"`
	AvatarURL  *string   `db:"avatar_url"`
	ProfileURL *string   `db:"profile_url"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type Subscription struct {
	ID                  int64              `db:"id"`
	CreatorID           int64              `db:"creator_id"`
	Platform            Platform           `db:"platform"`
	ExternalID          string             `db:"external_id"`
	TierName            *string            `db:"tier_name"`
	CostCents           int                `db:"cost_cents"`
	Currency            string             `db:"currency"`
	BillingCycle        string             `db:"billing_cycle"`
	Status              SubscriptionStatus `db:"status"`
	MemberSince         *time.Time         `db:"member_since"`
	SyncEnabled         bool               `db:"sync_enabled"`
	AutoDownloadEnabled bool               `db:"auto_download_enabled"`
	LastSyncedAt        *time.Time         `db:"last_synced_at"`
	CreatedAt           time.Time          `db:"created_at"`
	UpdatedAt           time.Time          `db:"updated_at"`
}

// SubscriptionSettings is a partial update; nil fields are left untouched.
type SubscriptionSettings struct {
	SyncEnabled         *bool
	AutoDownloadEnabled *bool
	TierName            *string
	CostCents           *int
	Currency            *string
}

func (s SubscriptionSettings) Empty() bool {
	return s.SyncEnabled == nil && s.AutoDownloadEnabled == nil && s.TierName == nil &&
		s.CostCents == nil && s.Currency == nil
}

type ContentItem struct {
	ID             int64
	SubscriptionID int64
	ExternalID     string
	Title          string
	Description    *string
	ContentType    ContentType
	ExternalURL    *string
	DownloadURL    *string
	FileNameHint   *string
	PublishedAt    *time.Time
	Tags           []string
	IsSeen         bool
	SeenAt         *time.Time
	IsArchived     bool
	ArchiveError   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ContentAsset struct {
	ID            int64       `db:"id"`
	ContentItemID int64       `db:"content_item_id"`
	URL           string      `db:"url"`
	FileNameHint  *string     `db:"file_name_hint"`
	AssetType     string      `db:"asset_type"`
	Status        AssetStatus `db:"status"`
	LastError     *string     `db:"last_error"`
	DownloadedAt  *time.Time  `db:"downloaded_at"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

type Download struct {
	ID            int64     `db:"id" json:"id"`
	ContentItemID int64     `db:"content_item_id" json:"contentItemId"`
	FileName      string    `db:"file_name" json:"fileName"`
	FileType      string    `db:"file_type" json:"fileType"`
	MimeType      *string   `db:"mime_type" json:"mimeType"`
	SizeBytes     int64     `db:"size_bytes" json:"sizeBytes"`
	LocalPath     string    `db:"local_path" json:"localPath"`
	DownloadedAt  time.Time `db:"downloaded_at" json:"downloadedAt"`
}

// ArchiveTarget is a content item joined with the identity needed to place it on disk.
type ArchiveTarget struct {
	Item                ContentItem
	Platform            Platform
	CreatorSlug         string
	AutoDownloadEnabled bool
}

type ArchiveResult struct {
	LocalPath  string `json:"localPath"`
	Downloaded bool   `json:"downloaded"`
}

// DiscoveredAsset is a file candidate reported by an external harvester.
type DiscoveredAsset struct {
	URL          string  `json:"url"`
	FileNameHint *string `json:"fileNameHint"`
	AssetType    string  `json:"assetType"`
}
