// Package patreon reads memberships and posts from Patreon's undocumented
// JSON:API using the account's session cookie.
package patreon

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alexmgee/patron-hub/internal/domain"
)

type Config struct {
	BaseURL        string
	UserAgent      string
	Timeout        time.Duration
	PageCount      int
	MaxPages       int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// Transport overrides the default HTTP transport.
	Transport http.RoundTripper
}

type Source struct {
	client    *client
	pageCount int
	maxPages  int
	logger    *slog.Logger
}

func New(cfg Config, logger *slog.Logger) (*Source, error) {
	logger = logger.With("platform", domain.PlatformPatreon)
	c, err := newClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.PageCount <= 0 {
		cfg.PageCount = 30
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 40
	}
	return &Source{
		client:    c,
		pageCount: cfg.PageCount,
		maxPages:  cfg.MaxPages,
		logger:    logger,
	}, nil
}

func (s *Source) Platform() domain.Platform {
	return domain.PlatformPatreon
}
