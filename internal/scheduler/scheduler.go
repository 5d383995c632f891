package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alexmgee/patron-hub/internal/domain"
)

// Syncer runs one full sync pass.
type Syncer interface {
	Sync(ctx context.Context) (*domain.SyncStats, error)
}

// Trigger starts a background run; Supervisor implements it.
type Trigger interface {
	Start(ctx context.Context) error
}

type SettingsProvider interface {
	Resolve(ctx context.Context) (domain.Settings, error)
}

// Scheduler kicks off a sync on every tick while auto-sync is enabled and a
// Patreon cookie is configured.
type Scheduler struct {
	trigger  Trigger
	settings SettingsProvider
	interval time.Duration
	logger   *slog.Logger
}

func NewScheduler(trigger Trigger, settings SettingsProvider, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		trigger:  trigger,
		settings: settings,
		interval: interval,
		logger:   logger.With("component", "scheduler"),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	settings, err := s.settings.Resolve(ctx)
	if err != nil {
		s.logger.Error("resolve settings", "error", err)
		return
	}
	if !settings.AutoSync || !settings.HasCookie() {
		s.logger.Debug("auto-sync skipped", "auto_sync", settings.AutoSync, "cookie", settings.HasCookie())
		return
	}

	err = s.trigger.Start(ctx)
	switch {
	case errors.Is(err, domain.ErrSyncRunning):
		s.logger.Info("auto-sync skipped, run in progress")
	case err != nil:
		s.logger.Error("auto-sync failed to start", "error", err)
	}
}
