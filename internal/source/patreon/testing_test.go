package patreon

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newTestSource points a Source at srv while keeping Patreon host names.
func newTestSource(t *testing.T, srv *httptest.Server, maxPages int) *Source {
	t.Helper()
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(ctx, "tcp", srv.Listener.Addr().String())
		},
	}
	src, err := New(Config{
		BaseURL:        "http://www.patreon.com",
		UserAgent:      "test",
		Timeout:        5 * time.Second,
		PageCount:      30,
		MaxPages:       maxPages,
		MaxAttempts:    1,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		Transport:      transport,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	return src
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/vnd.api+json")
	_, _ = io.WriteString(w, body)
}
