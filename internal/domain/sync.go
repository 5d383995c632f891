package domain

import "time"

// SyncStats holds statistics about a sync run.
type SyncStats struct {
	MembershipsDiscovered int           `json:"membershipsDiscovered"`
	SubscriptionsSynced   int           `json:"subscriptionsSynced"`
	PostsFound            int           `json:"postsFound"`
	PostsInserted         int           `json:"postsInserted"`
	PostsUpdated          int           `json:"postsUpdated"`
	ItemsDownloaded       int           `json:"itemsDownloaded"`
	JobsQueued            int           `json:"jobsQueued"`
	JobsResolved          int           `json:"jobsResolved"`
	Errors                []string      `json:"errors"`
	Duration              time.Duration `json:"duration"`
}

func (s *SyncStats) AddError(err string) {
	s.Errors = append(s.Errors, err)
}

type SyncLog struct {
	ID              int64         `db:"id" json:"id"`
	SubscriptionID  int64         `db:"subscription_id" json:"subscriptionId"`
	StartedAt       time.Time     `db:"started_at" json:"startedAt"`
	CompletedAt     *time.Time    `db:"completed_at" json:"completedAt"`
	Status          SyncLogStatus `db:"status" json:"status"`
	ItemsFound      int           `db:"items_found" json:"itemsFound"`
	ItemsDownloaded int           `db:"items_downloaded" json:"itemsDownloaded"`
	Errors          []string      `db:"-" json:"errors"`
}

// SyncProgress summarises sync logs written since a run started.
type SyncProgress struct {
	SubscriptionsCompleted int `json:"subscriptionsCompleted"`
	SubscriptionsSucceeded int `json:"subscriptionsSucceeded"`
	SubscriptionsFailed    int `json:"subscriptionsFailed"`
	ItemsFound             int `json:"itemsFound"`
	ItemsDownloaded        int `json:"itemsDownloaded"`
}

// RunProgress is the live view of the current or most recent run.
type RunProgress struct {
	SyncProgress
	SubscriptionsTotal int           `json:"subscriptionsTotal"`
	Harvest            HarvestCounts `json:"harvest"`
	ElapsedSeconds     int           `json:"elapsedSeconds"`
}

type SyncStatus struct {
	Running    bool         `json:"running"`
	StartedAt  *time.Time   `json:"startedAt"`
	FinishedAt *time.Time   `json:"finishedAt"`
	LastResult *SyncStats   `json:"lastResult"`
	LastError  *string      `json:"lastError"`
	Progress   *RunProgress `json:"progress"`
	Summary    string       `json:"summary"`
}

// Settings are the runtime knobs resolved from environment and persisted values.
type Settings struct {
	ArchiveDir    string `json:"archiveDir"`
	PatreonCookie string `json:"-"`
	AutoDownload  bool   `json:"autoDownloadEnabled"`
	AutoSync      bool   `json:"autoSyncEnabled"`
}

func (s Settings) HasCookie() bool {
	return s.PatreonCookie != ""
}
