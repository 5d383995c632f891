package patreon

import (
	"context"
	"errors"
	"net/url"
	"path"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/alexmgee/patron-hub/internal/domain"
)

// downloadExtPriority ranks file extensions, most wanted first.
var downloadExtPriority = []string{
	"m3u8", "mp4", "mkv", "mov", "webm", "m4v",
	"mp3", "m4a", "wav", "flac", "aac",
	"pdf", "zip", "rar", "7z",
	"jpg", "jpeg", "png", "webp", "gif",
}

var (
	postIDInURL   = regexp.MustCompile(`-(\d+)(?:[/?#]|$)`)
	postsPathID   = regexp.MustCompile(`/posts/(\d+)(?:[/?#]|$)`)
	urlInText     = regexp.MustCompile(`https?://[^\s"'<>\\)]+`)
	pathExtension = regexp.MustCompile(`\.([a-z0-9]{2,8})$`)
)

// ResolveMedia finds a downloadable file for a post, first through the post
// API and then by ranking file-like URLs on the rendered post page. A post URL
// outside Patreon is refused and yields MediaNone. Only an invalid cookie or a
// cancelled context is returned as an error.
func (s *Source) ResolveMedia(ctx context.Context, rawCookie, postID, postURL string) (domain.ResolvedMedia, error) {
	none := domain.ResolvedMedia{Source: domain.MediaNone}

	cookie, err := NormalizeCookie(rawCookie)
	if err != nil {
		return none, err
	}
	if postID == "" {
		postID = PostIDFromURL(postURL)
	}

	stages := []func() Result[domain.ResolvedMedia]{
		func() Result[domain.ResolvedMedia] { return s.mediaFromAPI(ctx, cookie, postID) },
		func() Result[domain.ResolvedMedia] { return s.mediaFromPage(ctx, cookie, postURL) },
	}
	for _, stage := range stages {
		res := stage()
		switch res.Reason {
		case ReasonOK:
			return res.Value, nil
		case ReasonFatal:
			if errors.Is(res.Err, ErrNonPatreonHost) {
				s.logger.Warn("refusing to fetch non-patreon post url", "post_id", postID, "url", postURL)
				continue
			}
			return none, res.Err
		case ReasonUpstream:
			s.logger.Debug("media resolve stage failed", "post_id", postID, "error", res.Err)
		}
	}
	return none, nil
}

func (s *Source) mediaFromAPI(ctx context.Context, cookie, postID string) Result[domain.ResolvedMedia] {
	if postID == "" {
		return nothing[domain.ResolvedMedia]()
	}
	id := url.PathEscape(postID)
	res := s.client.getFirst(ctx, cookie,
		"/api/posts/"+id+"?include="+mediaInclude+"&json-api-version=1.0",
		"/api/posts/"+id+"?json-api-version=1.0",
	)
	if res.Reason != ReasonOK {
		return failed[domain.ResolvedMedia](res.Err)
	}

	posts := parsePosts(res.Value)
	if len(posts) == 0 || posts[0].DownloadURL == nil {
		return nothing[domain.ResolvedMedia]()
	}
	return found(domain.ResolvedMedia{
		DownloadURL:  *posts[0].DownloadURL,
		FileNameHint: posts[0].FileNameHint,
		Source:       domain.MediaFromAPIPost,
	})
}

func (s *Source) mediaFromPage(ctx context.Context, cookie, postURL string) Result[domain.ResolvedMedia] {
	if postURL == "" {
		return nothing[domain.ResolvedMedia]()
	}
	page, err := s.client.getHTML(ctx, cookie, postURL)
	if err != nil {
		return failed[domain.ResolvedMedia](err)
	}

	ranked := RankCandidates(ExtractCandidateURLs(page))
	if len(ranked) == 0 {
		return nothing[domain.ResolvedMedia]()
	}
	return found(domain.ResolvedMedia{
		DownloadURL:  ranked[0],
		FileNameHint: ptr(FileNameHint(ranked[0])),
		Source:       domain.MediaFromPostHTML,
	})
}

// FetchPostPage returns the rendered HTML of a post page. Redirects may not
// leave Patreon.
func (s *Source) FetchPostPage(ctx context.Context, rawCookie, postURL string) (string, error) {
	cookie, err := NormalizeCookie(rawCookie)
	if err != nil {
		return "", err
	}
	return s.client.getHTML(ctx, cookie, postURL)
}

// PostIDFromURL extracts the numeric id from URLs like /posts/some-title-123.
func PostIDFromURL(postURL string) string {
	if m := postIDInURL.FindStringSubmatch(postURL); m != nil {
		return m[1]
	}
	if m := postsPathID.FindStringSubmatch(postURL); m != nil {
		return m[1]
	}
	return ""
}

// ExtractCandidateURLs pulls URL-like substrings out of a page, skipping
// scripts and stylesheets.
func ExtractCandidateURLs(page string) []string {
	var out []string
	for _, u := range urlInText.FindAllString(decodeEscaped(page), -1) {
		if strings.HasSuffix(u, ".js") || strings.HasSuffix(u, ".css") {
			continue
		}
		out = append(out, u)
	}
	return out
}

func extensionOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	m := pathExtension.FindStringSubmatch(strings.ToLower(u.Path))
	if m == nil {
		return ""
	}
	return m[1]
}

func extensionRank(rawURL string) int {
	return slices.Index(downloadExtPriority, extensionOf(rawURL))
}

// IsLikelyFile reports whether a URL has a known file extension or a path
// that suggests a file endpoint.
func IsLikelyFile(rawURL string) bool {
	if extensionRank(rawURL) >= 0 {
		return true
	}
	n := strings.ToLower(rawURL)
	return strings.Contains(n, "/download") || strings.Contains(n, "/attachment") || strings.Contains(n, "/media")
}

// ScoreCandidate rates how likely a URL is to be the post's main file.
func ScoreCandidate(rawURL string) int {
	score := 100
	if rank := extensionRank(rawURL); rank >= 0 {
		score = 1000 - rank*10
	}

	n := strings.ToLower(rawURL)
	bonuses := []struct {
		needle string
		points int
	}{
		{"download", 50},
		{"attachment", 20},
		{"media", 10},
		{".m3u8", 30},
		{".mp4", 25},
		{"patreonusercontent.com", 15},
	}
	for _, b := range bonuses {
		if strings.Contains(n, b.needle) {
			score += b.points
		}
	}
	return score
}

// RankCandidates keeps distinct likely-file http(s) URLs ordered by score.
// Ties go to the higher priority extension, then to page order.
func RankCandidates(candidates []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] || !directURL.MatchString(c) || !IsLikelyFile(c) {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		si, sj := ScoreCandidate(out[i]), ScoreCandidate(out[j])
		if si != sj {
			return si > sj
		}
		return rankOrLast(out[i]) < rankOrLast(out[j])
	})
	return out
}

func rankOrLast(rawURL string) int {
	if rank := extensionRank(rawURL); rank >= 0 {
		return rank
	}
	return len(downloadExtPriority)
}

// FileNameHint prefers a filename query parameter over the last path segment.
func FileNameHint(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	for _, key := range []string{"filename", "file_name"} {
		if v := strings.TrimSpace(u.Query().Get(key)); v != "" {
			return v
		}
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}
	return base
}
