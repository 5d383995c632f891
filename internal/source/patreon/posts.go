package patreon

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/alexmgee/patron-hub/internal/archive"
	"github.com/alexmgee/patron-hub/internal/domain"
	"github.com/alexmgee/patron-hub/internal/jsonapi"
)

const mediaInclude = "attachments_media,media,images,audio,file,user"

// mediaRelationships are searched first, in this order, for a direct file URL.
var mediaRelationships = []string{"attachments_media", "attachments", "media", "images", "audio", "file"}

// nonMediaRelationships point at resources whose url attribute is a page, not a file.
var nonMediaRelationships = map[string]bool{
	"user":              true,
	"campaign":          true,
	"access_rules":      true,
	"user_defined_tags": true,
	"poll":              true,
}

var directURL = regexp.MustCompile(`(?i)^https?://`)

// FetchPosts lists every post of a campaign, newest first, walking at most
// maxPages pages. Posts repeated across pages keep their first occurrence.
// A failure after the first page returns the posts collected so far along
// with the error.
func (s *Source) FetchPosts(ctx context.Context, rawCookie, campaignID string) ([]domain.Post, error) {
	cookie, err := NormalizeCookie(rawCookie)
	if err != nil {
		return nil, err
	}

	id := url.QueryEscape(campaignID)
	first := s.client.getFirst(ctx, cookie,
		fmt.Sprintf("/api/posts?filter[campaign_id]=%s&filter[contains_exclusive_posts]=true&include=%s&sort=-published_at&page[count]=%d&json-api-version=1.0", id, mediaInclude, s.pageCount),
		fmt.Sprintf("/api/posts?filter[campaign_id]=%s&sort=-published_at&page[count]=%d&json-api-version=1.0", id, s.pageCount),
	)
	if first.Reason != ReasonOK {
		return nil, fmt.Errorf("fetch posts for campaign %s: %w", campaignID, first.Err)
	}

	doc := first.Value
	var posts []domain.Post
	for page := 1; ; page++ {
		posts = append(posts, parsePosts(doc)...)

		s.logger.Debug("fetched posts page",
			"campaign_id", campaignID,
			"page", page,
			"total", len(posts),
		)

		if page >= s.maxPages {
			break
		}
		next := doc.NextLink()
		if next == "" {
			break
		}

		doc, err = s.client.getJSON(ctx, cookie, next)
		if err != nil {
			return dedupePosts(posts), fmt.Errorf("fetch posts page %d: %w", page+1, err)
		}
	}

	return dedupePosts(posts), nil
}

func parsePosts(doc *jsonapi.Document) []domain.Post {
	g := jsonapi.NewGraph(doc)
	posts := make([]domain.Post, 0, len(doc.Data))
	for _, res := range doc.Data {
		if res.ID == "" {
			continue
		}
		posts = append(posts, postFromResource(g, res))
	}
	return posts
}

func postFromResource(g *jsonapi.Graph, res jsonapi.Resource) domain.Post {
	downloadURL, hint := extractMediaURL(g, res)

	var tags []string
	for _, tag := range g.Related(res, "user_defined_tags") {
		if v := firstNonEmpty(tag.String("value"), tag.String("name")); v != "" {
			tags = append(tags, v)
		}
	}

	return domain.Post{
		ExternalID:   res.ID,
		Title:        firstNonEmpty(res.String("title"), "Patreon Post "+res.ID),
		Description:  res.StringPtr("content"),
		ContentType:  InferContentType(res.String("post_type"), downloadURL),
		ExternalURL:  res.StringPtr("url"),
		DownloadURL:  ptr(downloadURL),
		FileNameHint: ptr(hint),
		PublishedAt:  res.Time("published_at"),
		Tags:         tags,
	}
}

// extractMediaURL returns the first direct file URL among a post's related
// resources. Explicit download fields win over generic ones.
func extractMediaURL(g *jsonapi.Graph, post jsonapi.Resource) (string, string) {
	for _, res := range mediaResources(g, post) {
		candidates := []string{
			res.String("download_url"),
			res.String("file_url"),
			res.String("url"),
			res.Nested("image_urls", "original"),
			res.Nested("image", "large_url"),
		}
		for _, c := range candidates {
			if directURL.MatchString(c) {
				return c, firstNonEmpty(res.String("name"), res.String("file_name"), res.String("filename"))
			}
		}
	}

	if postFile := post.Nested("post_file", "url"); directURL.MatchString(postFile) {
		return postFile, post.Nested("post_file", "name")
	}
	return "", ""
}

func mediaResources(g *jsonapi.Graph, post jsonapi.Resource) []jsonapi.Resource {
	names := slices.Clone(mediaRelationships)
	for _, name := range post.RelationshipNames() {
		if !slices.Contains(mediaRelationships, name) && !nonMediaRelationships[name] {
			names = append(names, name)
		}
	}
	return g.RelatedIn(post, names...)
}

// InferContentType prefers the platform's post type and falls back to the
// download URL's extension.
func InferContentType(postType, downloadURL string) domain.ContentType {
	switch strings.ToLower(postType) {
	case "video_external_file", "video", "video_embed":
		return domain.ContentVideo
	case "podcast", "audio", "audio_file", "audio_embed":
		return domain.ContentAudio
	case "image", "image_file":
		return domain.ContentImage
	case "link", "text_only":
		return domain.ContentArticle
	}
	if downloadURL == "" {
		return domain.ContentArticle
	}
	if u, err := url.Parse(downloadURL); err == nil {
		return archive.ContentTypeFromExtension(u.Path)
	}
	return archive.ContentTypeFromExtension(downloadURL)
}

func dedupePosts(in []domain.Post) []domain.Post {
	seen := make(map[string]bool, len(in))
	out := make([]domain.Post, 0, len(in))
	for _, p := range in {
		if seen[p.ExternalID] {
			continue
		}
		seen[p.ExternalID] = true
		out = append(out, p)
	}
	return out
}
