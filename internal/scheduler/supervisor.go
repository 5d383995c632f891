package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alexmgee/patron-hub/internal/domain"
)

const releaseTimeout = 10 * time.Second

// RunLock is the persisted guard that keeps two processes from syncing at once.
type RunLock interface {
	Acquire(ctx context.Context, owner string, ttl time.Duration, now time.Time) (bool, error)
	Heartbeat(ctx context.Context, owner string, ttl time.Duration, now time.Time) (bool, error)
	Release(ctx context.Context, owner string) error
}

type ProgressReader interface {
	SyncProgressSince(ctx context.Context, since time.Time) (domain.SyncProgress, error)
	CountSyncable(ctx context.Context) (int, error)
	HarvestCounts(ctx context.Context) (domain.HarvestCounts, error)
}

type runState int

const (
	stateIdle runState = iota
	stateRunning
)

// Supervisor owns the lifecycle of background sync runs: at most one at a time,
// with the outcome of the last run kept for status queries.
type Supervisor struct {
	syncer     Syncer
	lock       RunLock
	progress   ProgressReader
	runTimeout time.Duration
	lockTTL    time.Duration
	logger     *slog.Logger
	now        func() time.Time

	mu         sync.Mutex
	state      runState
	startedAt  *time.Time
	finishedAt *time.Time
	lastResult *domain.SyncStats
	lastError  *string
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

func NewSupervisor(syncer Syncer, lock RunLock, progress ProgressReader, runTimeout, lockTTL time.Duration, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		syncer:     syncer,
		lock:       lock,
		progress:   progress,
		runTimeout: runTimeout,
		lockTTL:    lockTTL,
		logger:     logger.With("component", "supervisor"),
		now:        time.Now,
	}
}

// Start launches a sync run in the background. The run outlives ctx's
// cancellation; use Shutdown to stop it.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state == stateRunning {
		s.mu.Unlock()
		return domain.ErrSyncRunning
	}
	s.state = stateRunning
	s.mu.Unlock()

	owner := uuid.NewString()
	acquired, err := s.lock.Acquire(ctx, owner, s.lockTTL, s.now())
	if err != nil || !acquired {
		s.mu.Lock()
		s.state = stateIdle
		s.mu.Unlock()
		if err != nil {
			return fmt.Errorf("acquire run lock: %w", err)
		}
		return domain.ErrSyncRunning
	}

	started := s.now()
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.runTimeout)

	s.mu.Lock()
	s.startedAt = &started
	s.finishedAt = nil
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Info("sync run started", "owner", owner)
	s.wg.Add(1)
	go s.run(runCtx, cancel, owner, started)
	return nil
}

func (s *Supervisor) run(ctx context.Context, cancel context.CancelFunc, owner string, started time.Time) {
	defer s.wg.Done()
	defer cancel()

	stop := make(chan struct{})
	var heartbeat sync.WaitGroup
	heartbeat.Add(1)
	go func() {
		defer heartbeat.Done()
		s.heartbeat(ctx, owner, stop)
	}()

	stats, err := s.syncer.Sync(ctx)

	close(stop)
	heartbeat.Wait()

	releaseCtx, releaseCancel := context.WithTimeout(context.Background(), releaseTimeout)
	if rerr := s.lock.Release(releaseCtx, owner); rerr != nil {
		s.logger.Error("release run lock", "owner", owner, "error", rerr)
	}
	releaseCancel()

	finished := s.now()
	s.mu.Lock()
	s.state = stateIdle
	s.finishedAt = &finished
	s.lastResult = stats
	s.lastError = nil
	if err != nil {
		msg := err.Error()
		s.lastError = &msg
	}
	s.cancel = nil
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("sync run failed", "owner", owner, "error", err)
		return
	}
	s.logger.Info("sync run finished", "owner", owner, "duration", finished.Sub(started))
}

func (s *Supervisor) heartbeat(ctx context.Context, owner string, stop <-chan struct{}) {
	interval := max(s.lockTTL/3, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			held, err := s.lock.Heartbeat(ctx, owner, s.lockTTL, s.now())
			if err != nil {
				s.logger.Warn("run lock heartbeat failed", "owner", owner, "error", err)
				continue
			}
			if !held {
				s.logger.Warn("run lock lost", "owner", owner)
			}
		}
	}
}

func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateRunning
}

// Status reports the current or most recent run. Progress is read from
// persisted sync logs and the harvest queue, so it is best-effort.
func (s *Supervisor) Status(ctx context.Context) domain.SyncStatus {
	s.mu.Lock()
	status := domain.SyncStatus{
		Running:    s.state == stateRunning,
		StartedAt:  s.startedAt,
		FinishedAt: s.finishedAt,
		LastResult: s.lastResult,
		LastError:  s.lastError,
	}
	s.mu.Unlock()

	if status.StartedAt == nil {
		status.Summary = "idle"
		return status
	}

	progress, err := s.readProgress(ctx, *status.StartedAt, status.FinishedAt)
	if err != nil {
		s.logger.Warn("read sync progress", "error", err)
		status.Summary = "progress unavailable"
		return status
	}
	status.Progress = progress
	status.Summary = Summary(*progress)
	return status
}

func (s *Supervisor) readProgress(ctx context.Context, startedAt time.Time, finishedAt *time.Time) (*domain.RunProgress, error) {
	synced, err := s.progress.SyncProgressSince(ctx, startedAt)
	if err != nil {
		return nil, err
	}
	total, err := s.progress.CountSyncable(ctx)
	if err != nil {
		return nil, err
	}
	harvest, err := s.progress.HarvestCounts(ctx)
	if err != nil {
		return nil, err
	}

	end := s.now()
	if finishedAt != nil {
		end = *finishedAt
	}
	return &domain.RunProgress{
		SyncProgress:       synced,
		SubscriptionsTotal: total,
		Harvest:            harvest,
		ElapsedSeconds:     int(max(end.Sub(startedAt), 0) / time.Second),
	}, nil
}

func Summary(p domain.RunProgress) string {
	return fmt.Sprintf("%d/%d subscriptions, items found %d, downloaded %d, harvest pending/running/failed %d/%d/%d (%ds elapsed)",
		p.SubscriptionsCompleted, p.SubscriptionsTotal,
		p.ItemsFound, p.ItemsDownloaded,
		p.Harvest.Pending, p.Harvest.Running, p.Harvest.Failed,
		p.ElapsedSeconds,
	)
}

// Shutdown cancels the active run, if any, and waits for it to finish.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
