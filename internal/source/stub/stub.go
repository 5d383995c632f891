// Package stub holds placeholder adapters for platforms that can be tracked
// but not yet synced.
package stub

import (
	"context"
	"fmt"

	"github.com/alexmgee/patron-hub/internal/domain"
)

type Source struct {
	platform domain.Platform
}

func New(platform domain.Platform) *Source {
	return &Source{platform: platform}
}

// All returns a stub for every known platform other than Patreon.
func All() []*Source {
	return []*Source{
		New(domain.PlatformSubstack),
		New(domain.PlatformGumroad),
		New(domain.PlatformDiscord),
	}
}

func (s *Source) Platform() domain.Platform {
	return s.platform
}

func (s *Source) FetchMemberships(ctx context.Context, cookie string) ([]domain.Membership, error) {
	return nil, s.unsupported()
}

func (s *Source) FetchPosts(ctx context.Context, cookie, campaignID string) ([]domain.Post, error) {
	return nil, s.unsupported()
}

func (s *Source) unsupported() error {
	return fmt.Errorf("%s: %w", s.platform, domain.ErrUnsupportedPlatform)
}
