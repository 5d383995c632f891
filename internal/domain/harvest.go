package domain

import "time"

type HarvestJob struct {
	ID            int64         `db:"id" json:"id"`
	ContentItemID int64         `db:"content_item_id" json:"contentItemId"`
	Kind          HarvestKind   `db:"kind" json:"kind"`
	Status        HarvestStatus `db:"status" json:"status"`
	AttemptCount  int           `db:"attempt_count" json:"attemptCount"`
	LastAttemptAt *time.Time    `db:"last_attempt_at" json:"lastAttemptAt"`
	NextAttemptAt *time.Time    `db:"next_attempt_at" json:"nextAttemptAt"`
	LastError     *string       `db:"last_error" json:"lastError"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updatedAt"`
}

// ClaimedJob is what a worker receives from a successful claim.
type ClaimedJob struct {
	Job         HarvestJob
	ExternalID  string
	ExternalURL *string
	Title       string
}

type HarvestCounts struct {
	Pending int `json:"pending"`
	Running int `json:"running"`
	Failed  int `json:"failed"`
}
