package patreon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alexmgee/patron-hub/internal/jsonapi"
)

const (
	snippetLength = 300
	maxRedirects  = 10
	maxPageBytes  = 8 << 20
)

var (
	ErrInvalidCookie  = errors.New("patreon cookie contains unsupported non-ASCII characters (often caused by a truncated copy like \"…\"); re-copy the full raw Cookie header value")
	ErrNonPatreonHost = errors.New("refusing non-patreon url")
)

// StatusError is an unexpected upstream HTTP status.
type StatusError struct {
	StatusCode int
	Target     string
	Snippet    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("patreon request failed (%d) on %s: %s", e.StatusCode, e.Target, e.Snippet)
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// NormalizeCookie validates a pasted cookie and turns a bare session value
// into a session_id pair.
func NormalizeCookie(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	for _, r := range trimmed {
		if r > 127 || (r < 0x20 && r != '\t') {
			return "", ErrInvalidCookie
		}
	}
	if trimmed == "" || strings.Contains(trimmed, "=") {
		return trimmed, nil
	}
	return "session_id=" + trimmed, nil
}

type client struct {
	httpClient     *http.Client
	base           *url.URL
	userAgent      string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

func newClient(cfg Config, logger *slog.Logger) (*client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid patreon base url %q", cfg.BaseURL)
	}
	return &client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		base:           base,
		userAgent:      cfg.UserAgent,
		maxAttempts:    max(1, cfg.MaxAttempts),
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger,
	}, nil
}

func (c *client) trusted(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	return host == "patreon.com" || strings.HasSuffix(host, ".patreon.com") ||
		strings.EqualFold(u.Host, c.base.Host)
}

// resolve turns an API path or absolute link into a URL on a trusted host.
func (c *client) resolve(pathOrURL string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(pathOrURL))
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if ref.IsAbs() {
		if !c.trusted(ref) {
			return nil, fmt.Errorf("%w: %s", ErrNonPatreonHost, ref.Host)
		}
		return ref, nil
	}
	if !strings.HasPrefix(ref.Path, "/") {
		ref.Path = "/" + ref.Path
	}
	return c.base.ResolveReference(ref), nil
}

func (c *client) referer() string {
	return c.base.String() + "/home"
}

// getJSON fetches one JSON:API document, retrying throttling and server errors.
func (c *client) getJSON(ctx context.Context, cookie, pathOrURL string) (*jsonapi.Document, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		body, err := c.get(ctx, cookie, pathOrURL, "application/json", true)
		if err == nil {
			doc, err := jsonapi.Parse(body)
			if err != nil {
				return nil, fmt.Errorf("decode response from %s: %w", pathOrURL, err)
			}
			return doc, nil
		}
		lastErr = err

		var statusErr *StatusError
		if classify(err) == ReasonFatal || (errors.As(err, &statusErr) && !statusErr.retryable()) {
			return nil, err
		}
		if attempt == c.maxAttempts {
			break
		}

		backoff := c.calculateBackoff(attempt)
		c.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, lastErr
}

// getFirst tries candidate endpoints in order; the first success wins.
func (c *client) getFirst(ctx context.Context, cookie string, candidates ...string) Result[*jsonapi.Document] {
	var lastErr error
	for _, candidate := range candidates {
		doc, err := c.getJSON(ctx, cookie, candidate)
		if err == nil {
			return found(doc)
		}
		if classify(err) == ReasonFatal {
			return failed[*jsonapi.Document](err)
		}
		c.logger.Debug("candidate endpoint failed", "path", candidate, "error", err)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no candidate endpoints")
	}
	return failed[*jsonapi.Document](lastErr)
}

func (c *client) getHTML(ctx context.Context, cookie, pathOrURL string) (string, error) {
	body, err := c.get(ctx, cookie, pathOrURL, "text/html,application/xhtml+xml", false)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// get performs a GET following at most maxRedirects redirects, each of which
// must stay on a trusted host.
func (c *client) get(ctx context.Context, cookie, pathOrURL, accept string, xhr bool) ([]byte, error) {
	current, err := c.resolve(pathOrURL)
	if err != nil {
		return nil, err
	}

	for hop := 0; hop <= maxRedirects; hop++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", accept)
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Referer", c.referer())
		if cookie != "" {
			req.Header.Set("Cookie", cookie)
		}
		if xhr {
			req.Header.Set("X-Requested-With", "XMLHttpRequest")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("execute request: %w", err)
		}

		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			location := resp.Header.Get("Location")
			resp.Body.Close()
			if location == "" {
				return nil, fmt.Errorf("redirect with no location on %s", pathOrURL)
			}
			next, err := current.Parse(location)
			if err != nil {
				return nil, fmt.Errorf("parse redirect: %w", err)
			}
			if !c.trusted(next) {
				return nil, fmt.Errorf("%w: redirect to %s", ErrNonPatreonHost, next.Host)
			}
			current = next
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &StatusError{
				StatusCode: resp.StatusCode,
				Target:     pathOrURL,
				Snippet:    snippet(body),
			}
		}
		return body, nil
	}

	return nil, fmt.Errorf("too many redirects on %s", pathOrURL)
}

func (c *client) calculateBackoff(attempt int) time.Duration {
	backoff := c.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > c.maxBackoff {
		backoff = c.maxBackoff
	}
	return backoff
}

func snippet(body []byte) string {
	s := string(body)
	if r := []rune(s); len(r) > snippetLength {
		s = string(r[:snippetLength])
	}
	return strings.TrimSpace(s)
}
