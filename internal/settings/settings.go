// Package settings resolves runtime settings. A process environment variable
// always wins over the persisted value, which wins over the configured default.
package settings

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alexmgee/patron-hub/internal/domain"
)

const (
	KeyArchiveDir    = "archive_dir"
	KeyPatreonCookie = "patreon_cookie"
	KeyAutoDownload  = "auto_download_enabled"
	KeyAutoSync      = "auto_sync_enabled"
)

var envKeys = map[string]string{
	KeyArchiveDir:    "PATRON_HUB_ARCHIVE_DIR",
	KeyPatreonCookie: "PATRON_HUB_PATREON_COOKIE",
	KeyAutoDownload:  "PATRON_HUB_AUTO_DOWNLOAD",
	KeyAutoSync:      "PATRON_HUB_AUTO_SYNC",
}

type Store interface {
	GetAll(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
}

// Update is a partial change; nil fields are left untouched.
type Update struct {
	ArchiveDir    *string `json:"archiveDir"`
	PatreonCookie *string `json:"patreonCookie"`
	AutoDownload  *bool   `json:"autoDownloadEnabled"`
	AutoSync      *bool   `json:"autoSyncEnabled"`
}

// View is the settings shape shown to clients. The cookie itself is never echoed.
type View struct {
	domain.Settings
	CookieConfigured bool     `json:"patreonCookieConfigured"`
	EnvOverrides     []string `json:"envOverrides"`
}

type Resolver struct {
	store    Store
	defaults domain.Settings
	getenv   func(string) string
}

func NewResolver(store Store, defaults domain.Settings) *Resolver {
	return &Resolver{
		store:    store,
		defaults: defaults,
		getenv:   os.Getenv,
	}
}

func (r *Resolver) Resolve(ctx context.Context) (domain.Settings, error) {
	persisted, err := r.store.GetAll(ctx)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	s := r.defaults
	s.ArchiveDir = r.stringValue(persisted, KeyArchiveDir, s.ArchiveDir)
	s.PatreonCookie = r.stringValue(persisted, KeyPatreonCookie, s.PatreonCookie)
	s.AutoDownload = r.boolValue(persisted, KeyAutoDownload, s.AutoDownload)
	s.AutoSync = r.boolValue(persisted, KeyAutoSync, s.AutoSync)
	return s, nil
}

// Update persists the given values and returns the resolved result. Values
// shadowed by an environment variable are still stored.
func (r *Resolver) Update(ctx context.Context, u Update) (domain.Settings, error) {
	values := make(map[string]string, 4)
	if u.ArchiveDir != nil {
		values[KeyArchiveDir] = strings.TrimSpace(*u.ArchiveDir)
	}
	if u.PatreonCookie != nil {
		values[KeyPatreonCookie] = strings.TrimSpace(*u.PatreonCookie)
	}
	if u.AutoDownload != nil {
		values[KeyAutoDownload] = strconv.FormatBool(*u.AutoDownload)
	}
	if u.AutoSync != nil {
		values[KeyAutoSync] = strconv.FormatBool(*u.AutoSync)
	}

	for _, key := range []string{KeyArchiveDir, KeyPatreonCookie, KeyAutoDownload, KeyAutoSync} {
		v, ok := values[key]
		if !ok {
			continue
		}
		if err := r.store.Set(ctx, key, v); err != nil {
			return domain.Settings{}, fmt.Errorf("save setting %s: %w", key, err)
		}
	}
	return r.Resolve(ctx)
}

func (r *Resolver) View(ctx context.Context) (*View, error) {
	s, err := r.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	overrides := []string{}
	for _, key := range []string{KeyArchiveDir, KeyPatreonCookie, KeyAutoDownload, KeyAutoSync} {
		if strings.TrimSpace(r.getenv(envKeys[key])) != "" {
			overrides = append(overrides, key)
		}
	}
	return &View{Settings: s, CookieConfigured: s.HasCookie(), EnvOverrides: overrides}, nil
}

// An empty persisted string counts as unset.
func (r *Resolver) stringValue(persisted map[string]string, key, fallback string) string {
	if v := strings.TrimSpace(r.getenv(envKeys[key])); v != "" {
		return v
	}
	if v := strings.TrimSpace(persisted[key]); v != "" {
		return v
	}
	return fallback
}

func (r *Resolver) boolValue(persisted map[string]string, key string, fallback bool) bool {
	if b, err := strconv.ParseBool(strings.TrimSpace(r.getenv(envKeys[key]))); err == nil {
		return b
	}
	if b, err := strconv.ParseBool(strings.TrimSpace(persisted[key])); err == nil {
		return b
	}
	return fallback
}
