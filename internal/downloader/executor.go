// Package downloader fetches remote files into the archive.
package downloader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const (
	snippetLength = 300
	sniffLength   = 3072
)

type Config struct {
	Timeout        time.Duration
	MaxRedirects   int
	TrustedDomains []string
	UserAgent      string
	// Transport overrides the default HTTP transport.
	Transport http.RoundTripper
}

type Request struct {
	URL          string
	Dir          string
	FileNameHint *string
	Cookie       string
	Referer      string
}

type Result struct {
	AbsolutePath string
	FileName     string
	SizeBytes    int64
	MimeType     string
}

type Executor struct {
	client       *http.Client
	muxer        MediaMuxer
	maxRedirects int
	trusted      []string
	userAgent    string
	logger       *slog.Logger
}

func New(cfg Config, muxer MediaMuxer, logger *slog.Logger) *Executor {
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = 10
	}
	return &Executor{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		muxer:        muxer,
		maxRedirects: cfg.MaxRedirects,
		trusted:      cfg.TrustedDomains,
		userAgent:    cfg.UserAgent,
		logger:       logger.With("component", "downloader"),
	}
}

// Download stores req.URL under req.Dir and reports what was written.
func (e *Executor) Download(ctx context.Context, req Request) (*Result, error) {
	if IsHLS(req.URL) {
		return e.downloadHLS(ctx, req)
	}

	resp, err := e.fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	mimeType := resp.Header.Get("Content-Type")
	if baseMime(mimeType) == "text/html" && e.trustedResponse(req.URL, resp) {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, snippetLength))
		return nil, &AuthError{URL: req.URL, Snippet: strings.TrimSpace(string(snippet))}
	}

	body := bufio.NewReaderSize(resp.Body, sniffLength)
	ext := ExtensionForMime(mimeType)
	if ext == "" && genericMime(mimeType) {
		head, _ := body.Peek(sniffLength)
		detected := mimetype.Detect(head)
		ext = strings.TrimPrefix(detected.Extension(), ".")
		if mimeType == "" || !detected.Is("application/octet-stream") {
			mimeType = detected.String()
		}
	}

	fileName := ensureExtension(ChooseFileName(req.FileNameHint, req.URL), ext)
	absPath := filepath.Join(req.Dir, fileName)

	size, err := writeAtomic(absPath, body)
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", fileName, err)
	}

	e.logger.Debug("downloaded file", "url", req.URL, "file", fileName, "size", size)

	return &Result{
		AbsolutePath: absPath,
		FileName:     fileName,
		SizeBytes:    size,
		MimeType:     mimeType,
	}, nil
}

// fetch follows redirects by hand so the cookie is only sent to trusted hosts.
func (e *Executor) fetch(ctx context.Context, req Request) (*http.Response, error) {
	current, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	for hop := 0; hop <= e.maxRedirects; hop++ {
		if current.Scheme != "http" && current.Scheme != "https" {
			return nil, fmt.Errorf("unsupported url scheme %q", current.Scheme)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, current.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if e.userAgent != "" {
			httpReq.Header.Set("User-Agent", e.userAgent)
		}
		if req.Referer != "" {
			httpReq.Header.Set("Referer", req.Referer)
		}
		if req.Cookie != "" && trustedURL(current, e.trusted) {
			httpReq.Header.Set("Cookie", req.Cookie)
		}

		resp, err := e.client.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("execute request: %w", err)
		}

		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			location := resp.Header.Get("Location")
			drain(resp)
			if location == "" {
				return nil, fmt.Errorf("redirect without location from %s", current.Host)
			}
			next, err := current.Parse(location)
			if err != nil {
				return nil, fmt.Errorf("parse redirect location: %w", err)
			}
			current = next
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			drain(resp)
			return nil, &StatusError{URL: req.URL, StatusCode: resp.StatusCode}
		}

		return resp, nil
	}

	return nil, fmt.Errorf("%w while downloading %s", ErrTooManyRedirects, req.URL)
}

func (e *Executor) trustedResponse(requested string, resp *http.Response) bool {
	if u, err := url.Parse(requested); err == nil && trustedURL(u, e.trusted) {
		return true
	}
	return resp.Request != nil && trustedURL(resp.Request.URL, e.trusted)
}

func (e *Executor) downloadHLS(ctx context.Context, req Request) (*Result, error) {
	if e.muxer == nil {
		return nil, &MuxerError{Err: errors.New("no stream muxer configured")}
	}

	fileName := ensureVideoExtension(ChooseFileName(req.FileNameHint, req.URL))
	if err := os.MkdirAll(req.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dir: %w", err)
	}
	absPath := filepath.Join(req.Dir, fileName)

	// The partial keeps the container extension so the muxer can infer the format.
	tmp, err := os.CreateTemp(req.Dir, ".partial-*"+filepath.Ext(fileName))
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	partial := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(partial)

	if err := e.muxer.Mux(ctx, req.URL, partial); err != nil {
		return nil, &MuxerError{Err: err}
	}

	info, err := os.Stat(partial)
	if err != nil {
		return nil, &MuxerError{Err: fmt.Errorf("stat output: %w", err)}
	}
	if err := os.Rename(partial, absPath); err != nil {
		return nil, fmt.Errorf("rename %s: %w", fileName, err)
	}

	return &Result{
		AbsolutePath: absPath,
		FileName:     fileName,
		SizeBytes:    info.Size(),
		MimeType:     "video/mp4",
	}, nil
}

func genericMime(contentType string) bool {
	switch baseMime(contentType) {
	case "", "application/octet-stream", "binary/octet-stream", "application/download", "application/force-download":
		return true
	}
	return false
}

// writeAtomic streams r into a temp file next to path and renames it in place.
func writeAtomic(path string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".partial-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, err
	}
	return size, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
