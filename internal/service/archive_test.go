package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/alexmgee/patron-hub/internal/domain"
	"github.com/alexmgee/patron-hub/internal/downloader"
	"github.com/alexmgee/patron-hub/internal/service/mocks"
	"github.com/alexmgee/patron-hub/internal/source/patreon"
	"github.com/alexmgee/patron-hub/testdata/utils"
)

type ArchiveServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	content    *mocks.MockContentStore
	assets     *mocks.MockAssetStore
	downloads  *mocks.MockDownloadStore
	pages      *mocks.MockPageFetcher
	downloader *mocks.MockDownloader
	settings   *mocks.MockSettingsProvider
	mirror     *mocks.MockMirror
	publisher  *mocks.MockPublisher

	service *ArchiveService
	root    string
}

func (s *ArchiveServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.content = mocks.NewMockContentStore(s.ctrl)
	s.assets = mocks.NewMockAssetStore(s.ctrl)
	s.downloads = mocks.NewMockDownloadStore(s.ctrl)
	s.pages = mocks.NewMockPageFetcher(s.ctrl)
	s.downloader = mocks.NewMockDownloader(s.ctrl)
	s.settings = mocks.NewMockSettingsProvider(s.ctrl)
	s.mirror = mocks.NewMockMirror(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)
	s.root = s.T().TempDir()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s.service = NewArchiveService(
		s.content,
		s.assets,
		s.downloads,
		s.pages,
		s.downloader,
		s.settings,
		s.mirror,
		s.publisher,
		logger,
	)
}

func (s *ArchiveServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestArchiveServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ArchiveServiceTestSuite))
}

type requestMatcher struct {
	url string
}

func (m requestMatcher) Matches(x any) bool {
	req, ok := x.(downloader.Request)
	return ok && req.URL == m.url
}

func (m requestMatcher) String() string {
	return fmt.Sprintf("download of %s", m.url)
}

func (s *ArchiveServiceTestSuite) target(description *string) *domain.ArchiveTarget {
	published := time.Date(2024, 3, 9, 18, 0, 0, 0, time.UTC)
	return &domain.ArchiveTarget{
		Item: domain.ContentItem{
			ID:             42,
			SubscriptionID: 11,
			ExternalID:     "123",
			Title:          "Episode 1",
			Description:    description,
			ContentType:    domain.ContentVideo,
			ExternalURL:    utils.Ptr("https://www.patreon.com/posts/episode-1-123"),
			DownloadURL:    utils.Ptr("https://cdn.example/video.mp4"),
			PublishedAt:    &published,
		},
		Platform:    domain.PlatformPatreon,
		CreatorSlug: "jane-7",
	}
}

func (s *ArchiveServiceTestSuite) settingsWithCookie() domain.Settings {
	return domain.Settings{ArchiveDir: s.root, PatreonCookie: "session_id=abc", AutoDownload: true}
}

func writeDownload(name string) func(context.Context, downloader.Request) (*downloader.Result, error) {
	return func(_ context.Context, req downloader.Request) (*downloader.Result, error) {
		path := filepath.Join(req.Dir, name)
		if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
			return nil, err
		}
		return &downloader.Result{AbsolutePath: path, FileName: name, SizeBytes: 4, MimeType: "video/mp4"}, nil
	}
}

func (s *ArchiveServiceTestSuite) TestArchive_SnapshotAndAssets() {
	ctx := context.Background()
	target := s.target(utils.Ptr(`<p>Hello <b>fans</b></p><script>alert(1)</script>`))

	s.content.EXPECT().GetArchiveTarget(ctx, int64(42)).Return(target, nil)
	s.settings.EXPECT().Resolve(ctx).Return(s.settingsWithCookie(), nil)
	s.assets.EXPECT().ListByContent(ctx, int64(42)).Return([]domain.ContentAsset{
		{ID: 1, URL: "https://cdn.example/video.mp4", AssetType: "video", Status: domain.AssetDiscovered},
		{ID: 2, URL: "https://cdn.example/old.zip", AssetType: "attachment", Status: domain.AssetDownloaded},
		{ID: 3, URL: "https://cdn.example/broken.pdf", AssetType: "pdf", Status: domain.AssetFailed},
		{ID: 4, URL: "blob:https://www.patreon.com/abc", AssetType: "video", Status: domain.AssetDiscovered},
	}, nil)

	s.downloader.EXPECT().Download(ctx, requestMatcher{"https://cdn.example/video.mp4"}).DoAndReturn(
		func(ctx context.Context, req downloader.Request) (*downloader.Result, error) {
			s.Equal("session_id=abc", req.Cookie)
			s.Equal("https://www.patreon.com/home", req.Referer)
			return writeDownload("video.mp4")(ctx, req)
		},
	)
	s.downloader.EXPECT().Download(ctx, requestMatcher{"https://cdn.example/broken.pdf"}).Return(nil, errors.New("unexpected status 404"))

	var recorded []domain.Download
	s.downloads.EXPECT().Upsert(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, d *domain.Download) error {
			recorded = append(recorded, *d)
			return nil
		},
	).Times(2)
	s.mirror.EXPECT().Put(ctx, gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)
	s.assets.EXPECT().MarkDownloaded(ctx, int64(1), gomock.Any()).Return(nil)
	s.assets.EXPECT().MarkFailed(ctx, int64(3), "unexpected status 404").Return(nil)
	s.content.EXPECT().MarkArchived(ctx, int64(42), utils.Ptr("unexpected status 404")).Return(nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, e domain.ContentEvent) error {
			s.Equal("archived", e.Action)
			s.Equal(int64(42), e.ContentItemID)
			return nil
		},
	)

	result, err := s.service.Archive(ctx, 42)

	s.Require().NoError(err)
	s.True(result.Downloaded)
	s.True(strings.HasPrefix(result.LocalPath, "patreon/jane-7/2024-03/"))
	s.True(strings.HasSuffix(result.LocalPath, "/post.html"))

	s.Require().Len(recorded, 2)
	s.Equal("snapshot", recorded[0].FileType)
	s.Equal(result.LocalPath, recorded[0].LocalPath)
	s.Equal("video.mp4", recorded[1].FileName)
	s.Equal("video", recorded[1].FileType)
	s.Equal(int64(4), recorded[1].SizeBytes)

	snapshot, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(result.LocalPath)))
	s.Require().NoError(err)
	s.Contains(string(snapshot), "<b>fans</b>")
	s.NotContains(string(snapshot), "alert(1)")
	s.Contains(string(snapshot), "https://www.patreon.com/posts/episode-1-123")
}

func (s *ArchiveServiceTestSuite) TestArchive_FetchesPageWhenNoDescription() {
	ctx := context.Background()
	target := s.target(nil)
	target.Item.DownloadURL = nil

	s.content.EXPECT().GetArchiveTarget(ctx, int64(42)).Return(target, nil)
	s.settings.EXPECT().Resolve(ctx).Return(s.settingsWithCookie(), nil)
	s.pages.EXPECT().FetchPostPage(ctx, "session_id=abc", "https://www.patreon.com/posts/episode-1-123").
		Return(`<html><body><script>steal()</script><p>only text</p></body></html>`, nil)
	s.downloads.EXPECT().Upsert(ctx, gomock.Any()).Return(nil)
	s.mirror.EXPECT().Put(ctx, gomock.Any(), gomock.Any(), "text/html; charset=utf-8").Return(nil)
	s.assets.EXPECT().ListByContent(ctx, int64(42)).Return(nil, nil)
	s.content.EXPECT().MarkArchived(ctx, int64(42), (*string)(nil)).Return(nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	result, err := s.service.Archive(ctx, 42)

	s.Require().NoError(err)
	s.False(result.Downloaded)

	snapshot, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(result.LocalPath)))
	s.Require().NoError(err)
	s.NotContains(string(snapshot), "<script>steal()")
}

// Without a cookie the page cannot be captured; the failure is stored on the item.
func (s *ArchiveServiceTestSuite) TestArchive_PersistsFailure() {
	ctx := context.Background()

	s.content.EXPECT().GetArchiveTarget(ctx, int64(42)).Return(s.target(nil), nil)
	s.settings.EXPECT().Resolve(ctx).Return(domain.Settings{ArchiveDir: s.root}, nil)
	s.content.EXPECT().SetArchiveError(ctx, int64(42), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ int64, msg string) error {
			s.Contains(msg, "patreon cookie is not configured")
			return nil
		},
	)

	result, err := s.service.Archive(ctx, 42)

	s.ErrorIs(err, domain.ErrNoCookie)
	s.Nil(result)
}

// A bare pasted session value reaches the downloader as a session_id pair.
func (s *ArchiveServiceTestSuite) TestArchive_NormalizesCookie() {
	ctx := context.Background()
	target := s.target(utils.Ptr("<p>body</p>"))
	settings := s.settingsWithCookie()
	settings.PatreonCookie = "  abc "

	s.content.EXPECT().GetArchiveTarget(ctx, int64(42)).Return(target, nil)
	s.settings.EXPECT().Resolve(ctx).Return(settings, nil)
	s.assets.EXPECT().ListByContent(ctx, int64(42)).Return(nil, nil)
	s.downloader.EXPECT().Download(ctx, requestMatcher{"https://cdn.example/video.mp4"}).DoAndReturn(
		func(ctx context.Context, req downloader.Request) (*downloader.Result, error) {
			s.Equal("session_id=abc", req.Cookie)
			return writeDownload("video.mp4")(ctx, req)
		},
	)
	s.downloads.EXPECT().Upsert(ctx, gomock.Any()).Return(nil).Times(2)
	s.mirror.EXPECT().Put(ctx, gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)
	s.content.EXPECT().MarkArchived(ctx, int64(42), (*string)(nil)).Return(nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	result, err := s.service.Archive(ctx, 42)

	s.Require().NoError(err)
	s.True(result.Downloaded)
}

func (s *ArchiveServiceTestSuite) TestArchive_InvalidCookie() {
	ctx := context.Background()
	settings := s.settingsWithCookie()
	settings.PatreonCookie = "session_id=ab…"

	s.content.EXPECT().GetArchiveTarget(ctx, int64(42)).Return(s.target(utils.Ptr("<p>body</p>")), nil)
	s.settings.EXPECT().Resolve(ctx).Return(settings, nil)
	s.content.EXPECT().SetArchiveError(ctx, int64(42), gomock.Any()).Return(nil)
	s.downloader.EXPECT().Download(gomock.Any(), gomock.Any()).Times(0)

	_, err := s.service.Archive(ctx, 42)

	s.ErrorIs(err, patreon.ErrInvalidCookie)
}

func (s *ArchiveServiceTestSuite) TestArchive_NotFound() {
	ctx := context.Background()

	s.content.EXPECT().GetArchiveTarget(ctx, int64(7)).Return(nil, domain.ErrNotFound)

	_, err := s.service.Archive(ctx, 7)

	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *ArchiveServiceTestSuite) TestArchive_InvalidID() {
	_, err := s.service.Archive(context.Background(), 0)

	s.ErrorIs(err, domain.ErrInvalidID)
}

// A second run skips downloaded assets and upserts the same local paths.
func (s *ArchiveServiceTestSuite) TestArchive_RerunSkipsDownloadedAssets() {
	ctx := context.Background()
	target := s.target(utils.Ptr("<p>body</p>"))
	target.Item.DownloadURL = nil
	service := NewArchiveService(s.content, s.assets, s.downloads, s.pages, s.downloader, s.settings, nil, nil,
		slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))

	s.content.EXPECT().GetArchiveTarget(ctx, int64(42)).Return(target, nil).Times(2)
	s.settings.EXPECT().Resolve(ctx).Return(s.settingsWithCookie(), nil).Times(2)
	s.assets.EXPECT().ListByContent(ctx, int64(42)).Return([]domain.ContentAsset{
		{ID: 1, URL: "https://cdn.example/video.mp4", AssetType: "video", Status: domain.AssetDownloaded},
	}, nil).Times(2)

	var paths []string
	s.downloads.EXPECT().Upsert(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, d *domain.Download) error {
			paths = append(paths, d.LocalPath)
			return nil
		},
	).Times(2)
	s.content.EXPECT().MarkArchived(ctx, int64(42), (*string)(nil)).Return(nil).Times(2)

	first, err := service.Archive(ctx, 42)
	s.Require().NoError(err)
	second, err := service.Archive(ctx, 42)
	s.Require().NoError(err)

	s.Equal(first.LocalPath, second.LocalPath)
	s.Equal(paths[0], paths[1])
	s.False(second.Downloaded)
}
