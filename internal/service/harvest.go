package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexmgee/patron-hub/internal/config"
	"github.com/alexmgee/patron-hub/internal/domain"
)

const (
	maxJobErrorLength = 500
	baseRetryMinutes  = 5
	maxRetryMinutes   = 720
	missingURLError   = "Missing externalUrl on content item."
	defaultJobError   = "harvest job failed"
	noMediaError      = "no downloadable media found"
)

// Backoff is the delay before retrying a job that has failed attemptCount
// times: 5 minutes doubling per attempt, capped at 12 hours.
func Backoff(attemptCount int) time.Duration {
	minutes := baseRetryMinutes
	for i := 1; i < attemptCount && minutes < maxRetryMinutes; i++ {
		minutes *= 2
	}
	return time.Duration(min(minutes, maxRetryMinutes)) * time.Minute
}

// HarvestQueue is the durable work queue for deferred media resolution. Jobs
// are delivered at least once and retried with Backoff until MaxAttempts.
type HarvestQueue struct {
	jobs     HarvestStore
	content  ContentStore
	resolver MediaResolver
	archiver Archiver
	settings SettingsProvider
	logger   *slog.Logger
	config   config.HarvestConfig
	now      func() time.Time
}

func NewHarvestQueue(
	jobs HarvestStore,
	content ContentStore,
	resolver MediaResolver,
	archiver Archiver,
	settings SettingsProvider,
	logger *slog.Logger,
	cfg config.HarvestConfig,
) *HarvestQueue {
	return &HarvestQueue{
		jobs:     jobs,
		content:  content,
		resolver: resolver,
		archiver: archiver,
		settings: settings,
		logger:   logger.With("component", "harvest"),
		config:   cfg,
		now:      time.Now,
	}
}

// Enqueue schedules a job for immediate processing. An existing job for the
// same item and kind is reset to pending instead of duplicated.
func (q *HarvestQueue) Enqueue(ctx context.Context, contentItemID int64, kind domain.HarvestKind) error {
	if contentItemID <= 0 {
		return domain.ErrInvalidID
	}
	if !kind.Valid() {
		return fmt.Errorf("unknown harvest kind %q", kind)
	}
	if err := q.jobs.Enqueue(ctx, contentItemID, kind, q.now()); err != nil {
		return fmt.Errorf("enqueue %s job: %w", kind, err)
	}
	return nil
}

// Claim hands out the oldest eligible job of a kind, or nil when none is due.
// Headless jobs whose item has no page to render fail on the spot.
func (q *HarvestQueue) Claim(ctx context.Context, kind domain.HarvestKind) (*domain.ClaimedJob, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown harvest kind %q", kind)
	}

	for {
		claimed, err := q.jobs.Claim(ctx, kind, q.config.MaxAttempts, q.config.Lease, q.now())
		if err != nil {
			return nil, fmt.Errorf("claim %s job: %w", kind, err)
		}
		if claimed == nil {
			return nil, nil
		}
		if kind != domain.KindHeadlessAssetDiscover || (claimed.ExternalURL != nil && *claimed.ExternalURL != "") {
			return claimed, nil
		}

		q.logger.Warn("failing job without external url",
			"job_id", claimed.Job.ID,
			"content_item_id", claimed.Job.ContentItemID,
		)
		if err := q.jobs.MarkFailed(ctx, claimed.Job.ID, missingURLError); err != nil {
			return nil, fmt.Errorf("fail job %d: %w", claimed.Job.ID, err)
		}
	}
}

// Complete records the outcome of a claimed job. Failures are rescheduled
// until the attempt budget is spent, then the job is failed for good.
func (q *HarvestQueue) Complete(ctx context.Context, jobID int64, ok bool, message string) error {
	if jobID <= 0 {
		return domain.ErrInvalidID
	}
	job, err := q.jobs.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("get job %d: %w", jobID, err)
	}

	now := q.now()
	if ok {
		return q.jobs.MarkDone(ctx, jobID, now)
	}

	if message == "" {
		message = defaultJobError
	}
	message = truncate(message, maxJobErrorLength)

	if job.AttemptCount >= q.config.MaxAttempts {
		q.logger.Warn("harvest job exhausted",
			"job_id", jobID,
			"kind", job.Kind,
			"attempts", job.AttemptCount,
			"error", message,
		)
		return q.jobs.MarkFailed(ctx, jobID, message)
	}
	return q.jobs.Reschedule(ctx, jobID, now.Add(Backoff(job.AttemptCount)), message)
}

// ProcessBacklog resolves queued download URLs in-process. It returns the
// number of jobs that produced a URL. A failing job never stops the pass.
func (q *HarvestQueue) ProcessBacklog(ctx context.Context) (int, error) {
	settings, err := q.settings.Resolve(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolve settings: %w", err)
	}

	resolved := 0
	for i := 0; i < q.config.BacklogBatch; i++ {
		if err := ctx.Err(); err != nil {
			return resolved, err
		}

		job, err := q.Claim(ctx, domain.KindDownloadURLResolve)
		if err != nil {
			return resolved, err
		}
		if job == nil {
			break
		}

		ok, err := q.resolveJob(ctx, job, settings)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return resolved, err
			}
			q.logger.Warn("harvest job failed", "job_id", job.Job.ID, "error", err)
			if cerr := q.Complete(ctx, job.Job.ID, false, err.Error()); cerr != nil {
				return resolved, cerr
			}
			continue
		}
		if ok {
			resolved++
		}
	}

	if resolved > 0 {
		q.logger.Info("harvest backlog processed", "resolved", resolved)
	}
	return resolved, nil
}

func (q *HarvestQueue) resolveJob(ctx context.Context, job *domain.ClaimedJob, settings domain.Settings) (bool, error) {
	itemID := job.Job.ContentItemID
	postURL := ""
	if job.ExternalURL != nil {
		postURL = *job.ExternalURL
	}
	media, err := q.resolver.ResolveMedia(ctx, settings.PatreonCookie, job.ExternalID, postURL)
	if err != nil {
		return false, fmt.Errorf("resolve media: %w", err)
	}

	if !media.Found() {
		if q.config.HeadlessEnabled {
			if _, err := q.jobs.EnqueueIfAbsent(ctx, itemID, domain.KindHeadlessAssetDiscover, q.now()); err != nil {
				return false, fmt.Errorf("enqueue headless job: %w", err)
			}
		}
		return false, q.Complete(ctx, job.Job.ID, false, noMediaError)
	}

	if err := q.content.SetDownloadURL(ctx, itemID, media.DownloadURL, media.FileNameHint); err != nil {
		return false, fmt.Errorf("store download url: %w", err)
	}
	if err := q.Complete(ctx, job.Job.ID, true, ""); err != nil {
		return false, err
	}

	q.logger.Info("download url resolved",
		"content_item_id", itemID,
		"source", media.Source,
	)

	if settings.AutoDownload {
		q.autoArchive(ctx, itemID)
	}
	return true, nil
}

func (q *HarvestQueue) autoArchive(ctx context.Context, itemID int64) {
	target, err := q.content.GetArchiveTarget(ctx, itemID)
	if err != nil {
		q.logger.Warn("load content for archive", "content_item_id", itemID, "error", err)
		return
	}
	if !target.AutoDownloadEnabled {
		return
	}
	if _, err := q.archiver.Archive(ctx, itemID); err != nil {
		q.logger.Warn("archive after resolve failed", "content_item_id", itemID, "error", err)
	}
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}
