package domain

type Platform string

const (
	PlatformPatreon  Platform = "patreon"
	PlatformSubstack Platform = "substack"
	PlatformGumroad  Platform = "gumroad"
	PlatformDiscord  Platform = "discord"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformPatreon, PlatformSubstack, PlatformGumroad, PlatformDiscord:
		return true
	}
	return false
}

type ContentType string

const (
	ContentVideo      ContentType = "video"
	ContentImage      ContentType = "image"
	ContentPDF        ContentType = "pdf"
	ContentAudio      ContentType = "audio"
	ContentArticle    ContentType = "article"
	ContentAttachment ContentType = "attachment"
)

func (t ContentType) Valid() bool {
	switch t {
	case ContentVideo, ContentImage, ContentPDF, ContentAudio, ContentArticle, ContentAttachment:
		return true
	}
	return false
}

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPaused    SubscriptionStatus = "paused"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

func (s SubscriptionStatus) Valid() bool {
	return s == SubscriptionActive || s == SubscriptionPaused || s == SubscriptionCancelled
}

type AssetStatus string

const (
	AssetDiscovered AssetStatus = "discovered"
	AssetDownloaded AssetStatus = "downloaded"
	AssetFailed     AssetStatus = "failed"
)

type HarvestStatus string

const (
	HarvestPending HarvestStatus = "pending"
	HarvestRunning HarvestStatus = "running"
	HarvestDone    HarvestStatus = "done"
	HarvestFailed  HarvestStatus = "failed"
)

type HarvestKind string

const (
	KindDownloadURLResolve    HarvestKind = "download_url_resolve"
	KindHeadlessAssetDiscover HarvestKind = "headless_asset_discover"
)

func (k HarvestKind) Valid() bool {
	return k == KindDownloadURLResolve || k == KindHeadlessAssetDiscover
}

type SyncLogStatus string

const (
	SyncLogRunning SyncLogStatus = "running"
	SyncLogSuccess SyncLogStatus = "success"
	SyncLogFailed  SyncLogStatus = "failed"
)

// MediaSource names the resolver step that produced a download URL.
type MediaSource string

const (
	MediaFromAPIPost  MediaSource = "api-post"
	MediaFromPostHTML MediaSource = "post-html"
	MediaNone         MediaSource = "none"
)
