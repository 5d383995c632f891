package patreon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexmgee/patron-hub/internal/domain"
)

const postPage = `<html><head>
	<script src="https://c10.patreonusercontent.com/app.js"></script>
	<link rel="stylesheet" href="https://c10.patreonusercontent.com/site.css">
</head><body>
	<img src="https://c10.patreonusercontent.com/x/cover.jpg">
	<script>{"file": "https:\/\/www.patreon.com\/file\/download\/a.mp4?filename=Pilot.mp4"}</script>
	<a href="https://www.patreon.com/jane">Jane</a>
</body></html>`

func TestResolveMedia_FallsBackToPostPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/posts/123":
			writeJSON(w, `{"data": {"type": "post", "id": "123", "attributes": {"title": "Pilot"}}}`)
		case "/posts/pilot-123":
			_, _ = w.Write([]byte(postPage))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	got, err := newTestSource(t, srv, 40).ResolveMedia(context.Background(), "abc", "", "http://www.patreon.com/posts/pilot-123")
	require.NoError(t, err)
	assert.Equal(t, domain.MediaFromPostHTML, got.Source)
	assert.Equal(t, "https://www.patreon.com/file/download/a.mp4?filename=Pilot.mp4", got.DownloadURL)
	require.NotNil(t, got.FileNameHint)
	assert.Equal(t, "Pilot.mp4", *got.FileNameHint)
}

func TestResolveMedia_UsesPostAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/posts/55" {
			writeJSON(w, `{"data": {"type": "post", "id": "55",
				"attributes": {"post_file": {"url": "https://c10.patreonusercontent.com/a/song.mp3", "name": "song.mp3"}}}}`)
			return
		}
		t.Errorf("unexpected request %s", r.URL.Path)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	got, err := newTestSource(t, srv, 40).ResolveMedia(context.Background(), "abc", "55", "http://www.patreon.com/posts/song-55")
	require.NoError(t, err)
	assert.True(t, got.Found())
	assert.Equal(t, domain.MediaFromAPIPost, got.Source)
	assert.Equal(t, "https://c10.patreonusercontent.com/a/song.mp3", got.DownloadURL)
}

func TestResolveMedia_NothingFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	got, err := newTestSource(t, srv, 40).ResolveMedia(context.Background(), "abc", "9", "http://www.patreon.com/posts/x-9")
	require.NoError(t, err)
	assert.False(t, got.Found())
	assert.Equal(t, domain.MediaNone, got.Source)
}

func TestResolveMedia_RefusesForeignPostURL(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		writeJSON(w, `{"data": {"type": "post", "id": "9"}}`)
	}))
	defer srv.Close()

	got, err := newTestSource(t, srv, 40).ResolveMedia(context.Background(), "abc", "9", "https://evil.example/posts/x-9")
	require.NoError(t, err)
	assert.False(t, got.Found())
	assert.Equal(t, domain.MediaNone, got.Source)
	for _, p := range paths {
		assert.Equal(t, "/api/posts/9", p)
	}
}

func TestResolveMedia_InvalidCookieIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	}))
	defer srv.Close()

	_, err := newTestSource(t, srv, 40).ResolveMedia(context.Background(), "session_id=ab…", "9", "http://www.patreon.com/posts/x-9")
	assert.ErrorIs(t, err, ErrInvalidCookie)
}

func TestRankCandidates(t *testing.T) {
	ranked := RankCandidates([]string{
		"https://x.com/a.jpg",
		"https://x.com/download/a.mp4",
		"https://x.com/x.js",
	})
	assert.Equal(t, []string{"https://x.com/download/a.mp4", "https://x.com/a.jpg"}, ranked)
	assert.Greater(t, ScoreCandidate("https://x.com/download/a.mp4"), ScoreCandidate("https://x.com/a.jpg"))

	// equal score, extension priority decides
	ranked = RankCandidates([]string{"https://x.com/media/a.png", "https://x.com/a.jpeg"})
	assert.Equal(t, []string{"https://x.com/a.jpeg", "https://x.com/media/a.png"}, ranked)
}

func TestExtractCandidateURLs(t *testing.T) {
	urls := ExtractCandidateURLs(postPage)
	assert.NotContains(t, urls, "https://c10.patreonusercontent.com/app.js")
	assert.NotContains(t, urls, "https://c10.patreonusercontent.com/site.css")
	assert.Contains(t, urls, "https://www.patreon.com/file/download/a.mp4?filename=Pilot.mp4")
}

func TestPostIDFromURL(t *testing.T) {
	assert.Equal(t, "123", PostIDFromURL("https://www.patreon.com/posts/pilot-123"))
	assert.Equal(t, "77", PostIDFromURL("https://www.patreon.com/posts/77?utm=1"))
	assert.Equal(t, "", PostIDFromURL("https://www.patreon.com/jane"))
}

func TestFileNameHint(t *testing.T) {
	assert.Equal(t, "Pilot.mp4", FileNameHint("https://x.com/download?filename=Pilot.mp4"))
	assert.Equal(t, "a.pdf", FileNameHint("https://x.com/files/a.pdf"))
	assert.Equal(t, "", FileNameHint("https://x.com/"))
}
