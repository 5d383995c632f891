package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/alexmgee/patron-hub/internal/api/mocks"
	"github.com/alexmgee/patron-hub/internal/config"
	"github.com/alexmgee/patron-hub/internal/domain"
	"github.com/alexmgee/patron-hub/internal/settings"
	"github.com/alexmgee/patron-hub/testdata/utils"
)

const testToken = "worker-secret"

type HandlerTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	runner        *mocks.MockSyncRunner
	archiver      *mocks.MockArchiver
	content       *mocks.MockContentStore
	downloads     *mocks.MockDownloadStore
	subscriptions *mocks.MockSubscriptionStore
	syncLogs      *mocks.MockSyncLogStore
	settings      *mocks.MockSettingsManager
	harvest       *mocks.MockHarvestQueue
	intake        *mocks.MockAssetIntake
	importer      *mocks.MockImporter

	handler *Handler
	router  *gin.Engine
}

func (s *HandlerTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.runner = mocks.NewMockSyncRunner(s.ctrl)
	s.archiver = mocks.NewMockArchiver(s.ctrl)
	s.content = mocks.NewMockContentStore(s.ctrl)
	s.downloads = mocks.NewMockDownloadStore(s.ctrl)
	s.subscriptions = mocks.NewMockSubscriptionStore(s.ctrl)
	s.syncLogs = mocks.NewMockSyncLogStore(s.ctrl)
	s.settings = mocks.NewMockSettingsManager(s.ctrl)
	s.harvest = mocks.NewMockHarvestQueue(s.ctrl)
	s.intake = mocks.NewMockAssetIntake(s.ctrl)
	s.importer = mocks.NewMockImporter(s.ctrl)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s.handler = NewHandler(
		s.runner,
		s.archiver,
		s.content,
		s.downloads,
		s.subscriptions,
		s.syncLogs,
		s.settings,
		s.harvest,
		s.intake,
		s.importer,
		logger,
	)
	s.handler.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	s.router = NewServer(s.handler, config.ServerConfig{InternalToken: testToken})
}

func (s *HandlerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) do(router *gin.Engine, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func (s *HandlerTestSuite) request(method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	return s.do(s.router, method, path, body, nil)
}

func (s *HandlerTestSuite) internal(method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	return s.do(s.router, method, path, body, map[string]string{internalTokenHeader: testToken})
}

func (s *HandlerTestSuite) TestHealth() {
	w, body := s.request(http.MethodGet, "/health", "")

	s.Equal(http.StatusOK, w.Code)
	s.Equal("ok", body["status"])
}

func (s *HandlerTestSuite) TestStartSync() {
	s.settings.EXPECT().Resolve(gomock.Any()).Return(domain.Settings{PatreonCookie: "session_id=abc"}, nil)
	s.runner.EXPECT().Start(gomock.Any()).Return(nil)
	s.runner.EXPECT().Status(gomock.Any()).Return(domain.SyncStatus{Running: true, Summary: "0/3 subscriptions"})

	w, body := s.request(http.MethodPost, "/api/sync", "")

	s.Equal(http.StatusAccepted, w.Code)
	s.Equal(true, body["ok"])
	s.Equal(true, body["status"].(map[string]any)["running"])
}

func (s *HandlerTestSuite) TestStartSync_NoCookie() {
	s.settings.EXPECT().Resolve(gomock.Any()).Return(domain.Settings{}, nil)

	w, body := s.request(http.MethodPost, "/api/sync", "")

	s.Equal(http.StatusConflict, w.Code)
	s.Equal(false, body["ok"])
	s.Equal(domain.ErrNoCookie.Error(), body["error"])
}

func (s *HandlerTestSuite) TestStartSync_AlreadyRunning() {
	s.settings.EXPECT().Resolve(gomock.Any()).Return(domain.Settings{PatreonCookie: "c"}, nil)
	s.runner.EXPECT().Start(gomock.Any()).Return(domain.ErrSyncRunning)

	w, _ := s.request(http.MethodPost, "/api/sync", "")

	s.Equal(http.StatusConflict, w.Code)
}

func (s *HandlerTestSuite) TestArchiveContent() {
	s.archiver.EXPECT().Archive(gomock.Any(), int64(42)).Return(&domain.ArchiveResult{
		LocalPath:  "patreon/jane-7/2024-03/Episode_1/post.html",
		Downloaded: true,
	}, nil)

	w, body := s.request(http.MethodPost, "/api/content/42/archive", "")

	s.Equal(http.StatusOK, w.Code)
	s.Equal(true, body["downloaded"])
	s.Equal("patreon/jane-7/2024-03/Episode_1/post.html", body["localPath"])
}

func (s *HandlerTestSuite) TestArchiveContent_Errors() {
	tests := []struct {
		name   string
		path   string
		err    error
		status int
	}{
		{name: "invalid id", path: "/api/content/abc/archive", status: http.StatusBadRequest},
		{name: "zero id", path: "/api/content/0/archive", status: http.StatusBadRequest},
		{name: "not found", path: "/api/content/7/archive", err: domain.ErrNotFound, status: http.StatusNotFound},
		{name: "no cookie", path: "/api/content/7/archive", err: domain.ErrNoCookie, status: http.StatusConflict},
		{name: "failure", path: "/api/content/7/archive", err: errors.New("disk full"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			if tt.err != nil {
				s.archiver.EXPECT().Archive(gomock.Any(), int64(7)).Return(nil, tt.err)
			}

			w, body := s.request(http.MethodPost, tt.path, "")

			s.Equal(tt.status, w.Code)
			s.Equal(false, body["ok"])
		})
	}
}

func (s *HandlerTestSuite) TestMarkSeen() {
	s.content.EXPECT().MarkSeen(gomock.Any(), int64(5), time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)).Return(nil)

	w, _ := s.request(http.MethodPost, "/api/content/5/seen", "")

	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlerTestSuite) TestListFiles() {
	s.content.EXPECT().Get(gomock.Any(), int64(5)).Return(&domain.ContentItem{ID: 5}, nil)
	s.downloads.EXPECT().ListByContent(gomock.Any(), int64(5)).Return([]domain.Download{
		{ID: 1, ContentItemID: 5, FileName: "post.html", FileType: "snapshot", LocalPath: "p/post.html"},
	}, nil)

	w, body := s.request(http.MethodGet, "/api/content/5/files", "")

	s.Equal(http.StatusOK, w.Code)
	files := body["files"].([]any)
	s.Require().Len(files, 1)
	s.Equal("post.html", files[0].(map[string]any)["fileName"])
}

func (s *HandlerTestSuite) TestListFiles_UnknownContent() {
	s.content.EXPECT().Get(gomock.Any(), int64(5)).Return(nil, domain.ErrNotFound)

	w, _ := s.request(http.MethodGet, "/api/content/5/files", "")

	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlerTestSuite) TestEnqueueHarvest() {
	s.harvest.EXPECT().Enqueue(gomock.Any(), int64(5), domain.KindHeadlessAssetDiscover).Return(nil)
	s.harvest.EXPECT().Enqueue(gomock.Any(), int64(6), domain.KindDownloadURLResolve).Return(nil)

	w, _ := s.request(http.MethodPost, "/api/content/5/harvest", "")
	s.Equal(http.StatusAccepted, w.Code)

	w, _ = s.request(http.MethodPost, "/api/content/6/harvest", `{"kind":"download_url_resolve"}`)
	s.Equal(http.StatusAccepted, w.Code)

	w, _ = s.request(http.MethodPost, "/api/content/6/harvest", `{"kind":"render"}`)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestUpdateSubscription() {
	s.subscriptions.EXPECT().UpdateSettings(gomock.Any(), int64(3), domain.SubscriptionSettings{
		AutoDownloadEnabled: utils.Ptr(false),
		CostCents:           utils.Ptr(0),
		Currency:            utils.Ptr("EUR"),
	}).Return(&domain.Subscription{ID: 3, CostCents: 0, Currency: "EUR"}, nil)

	w, body := s.request(http.MethodPost, "/api/subscriptions/3/settings",
		`{"autoDownloadEnabled": false, "costCents": -50, "currency": " eur "}`)

	s.Equal(http.StatusOK, w.Code)
	s.Equal("EUR", body["subscription"].(map[string]any)["currency"])
}

func (s *HandlerTestSuite) TestUpdateSubscription_Empty() {
	w, body := s.request(http.MethodPost, "/api/subscriptions/3/settings", `{"currency": "  "}`)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("no settings provided", body["error"])
}

func (s *HandlerTestSuite) TestImportJSON() {
	s.importer.EXPECT().ImportJSON(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, payload domain.ImportPayload) (*domain.ImportResult, error) {
			s.Require().Len(payload.Creators, 1)
			s.Equal("Jane", payload.Creators[0].Name)
			s.Equal(domain.PlatformSubstack, payload.Creators[0].Subscription.Platform)
			s.Require().Len(payload.Creators[0].Content, 1)
			s.True(payload.Creators[0].Content[0].IsSeen)
			return &domain.ImportResult{CreatorsCreated: 1, ContentItemsCreated: 1}, nil
		},
	)

	w, body := s.request(http.MethodPost, "/api/import/json", `{"creators": [{
		"name": "Jane",
		"subscription": {"platform": "substack", "costCents": 500},
		"content": [{"title": "Post", "contentType": "article", "isSeen": true}]
	}]}`)

	s.Equal(http.StatusOK, w.Code)
	result := body["result"].(map[string]any)
	s.Equal(float64(1), result["creatorsCreated"])
	s.Equal(float64(1), result["contentItemsCreated"])
	s.Equal(float64(0), result["contentItemsSkipped"])
}

func (s *HandlerTestSuite) TestImportJSON_InvalidPayload() {
	for _, body := range []string{`{"items": []}`, `[1, 2]`, `not json`} {
		w, out := s.request(http.MethodPost, "/api/import/json", body)

		s.Equal(http.StatusBadRequest, w.Code, body)
		s.Equal("Invalid payload. Expected { creators: [...] }", out["error"])
	}

	s.importer.EXPECT().ImportJSON(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("%w: creator \"Jane\" has unknown status \"expired\"", domain.ErrInvalidInput))

	w, out := s.request(http.MethodPost, "/api/import/json", `{"creators": [{"name": "Jane"}]}`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(out["error"], "unknown status")
}

func (s *HandlerTestSuite) TestCreateSubscription() {
	s.importer.EXPECT().CreateSubscription(gomock.Any(), domain.NewSubscription{
		CreatorName: "Jane",
		CreatorSlug: "jane",
		Platform:    domain.PlatformPatreon,
		TierName:    utils.Ptr("Gold"),
		CostCents:   499,
		Currency:    "usd",
	}).Return(&domain.CreatedSubscription{CreatorID: 3, SubscriptionID: 21, Created: true}, nil)

	w, body := s.request(http.MethodPost, "/api/subscriptions",
		`{"creatorName": "Jane", "creatorSlug": "jane", "platform": "patreon", "tierName": "Gold", "costCents": 499.7, "currency": "usd"}`)

	s.Equal(http.StatusCreated, w.Code)
	s.Equal(true, body["ok"])
	s.Equal(float64(3), body["creatorId"])
	s.Equal(float64(21), body["subscriptionId"])
}

func (s *HandlerTestSuite) TestCreateSubscription_Existing() {
	s.importer.EXPECT().CreateSubscription(gomock.Any(), gomock.Any()).
		Return(&domain.CreatedSubscription{CreatorID: 3, SubscriptionID: 21}, nil)

	w, _ := s.request(http.MethodPost, "/api/subscriptions", `{"creatorName": "Jane", "creatorSlug": "jane", "platform": "patreon"}`)

	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlerTestSuite) TestCreateSubscription_Errors() {
	w, body := s.request(http.MethodPost, "/api/subscriptions", `{`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("invalid json", body["error"])

	s.importer.EXPECT().CreateSubscription(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("%w: creatorName required", domain.ErrInvalidInput))

	w, body = s.request(http.MethodPost, "/api/subscriptions", `{"creatorSlug": "jane", "platform": "patreon"}`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(body["error"], "creatorName required")
}

func (s *HandlerTestSuite) TestListSyncLogs() {
	s.subscriptions.EXPECT().Get(gomock.Any(), int64(3)).Return(&domain.Subscription{ID: 3}, nil)
	s.syncLogs.EXPECT().ListBySubscription(gomock.Any(), int64(3), maxLogLimit).Return([]domain.SyncLog{
		{ID: 1, SubscriptionID: 3, Status: domain.SyncLogFailed, Errors: []string{"upstream 503"}},
	}, nil)

	w, body := s.request(http.MethodGet, "/api/subscriptions/3/sync-logs?limit=500", "")

	s.Equal(http.StatusOK, w.Code)
	s.Len(body["logs"].([]any), 1)

	w, _ = s.request(http.MethodGet, "/api/subscriptions/3/sync-logs?limit=-1", "")
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestSettings() {
	view := &settings.View{
		Settings:         domain.Settings{ArchiveDir: "/srv/archive", PatreonCookie: "secret", AutoDownload: true},
		CookieConfigured: true,
		EnvOverrides:     []string{},
	}
	s.settings.EXPECT().Update(gomock.Any(), settings.Update{AutoSync: utils.Ptr(true)}).Return(view.Settings, nil)
	s.settings.EXPECT().View(gomock.Any()).Return(view, nil).Times(2)

	w, body := s.request(http.MethodGet, "/api/settings", "")
	s.Equal(http.StatusOK, w.Code)
	got := body["settings"].(map[string]any)
	s.Equal("/srv/archive", got["archiveDir"])
	s.Equal(true, got["patreonCookieConfigured"])
	s.NotContains(w.Body.String(), "secret")

	w, _ = s.request(http.MethodPut, "/api/settings", `{"autoSyncEnabled": true}`)
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlerTestSuite) TestInternal_RequiresToken() {
	w, _ := s.request(http.MethodPost, "/api/internal/harvest/claim", "")
	s.Equal(http.StatusForbidden, w.Code)

	w, _ = s.do(s.router, http.MethodPost, "/api/internal/harvest/claim", "", map[string]string{internalTokenHeader: "wrong"})
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *HandlerTestSuite) TestInternal_DisabledWithoutToken() {
	router := NewServer(s.handler, config.ServerConfig{})

	w, body := s.do(router, http.MethodPost, "/api/internal/harvest/claim", "", map[string]string{internalTokenHeader: ""})

	s.Equal(http.StatusNotImplemented, w.Code)
	s.Equal("internal API is not configured", body["error"])
}

func (s *HandlerTestSuite) TestClaimJob() {
	s.harvest.EXPECT().Claim(gomock.Any(), domain.KindHeadlessAssetDiscover).Return(&domain.ClaimedJob{
		Job: domain.HarvestJob{
			ID:            9,
			ContentItemID: 42,
			Kind:          domain.KindHeadlessAssetDiscover,
			Status:        domain.HarvestRunning,
			AttemptCount:  2,
		},
		ExternalID:  "123",
		ExternalURL: utils.Ptr("https://www.patreon.com/posts/123"),
		Title:       "Episode 1",
	}, nil)

	w, body := s.internal(http.MethodPost, "/api/internal/harvest/claim", "")

	s.Equal(http.StatusOK, w.Code)
	job := body["job"].(map[string]any)
	s.Equal(float64(9), job["id"])
	s.Equal(float64(42), job["contentItemId"])
	s.Equal("https://www.patreon.com/posts/123", job["externalUrl"])
}

func (s *HandlerTestSuite) TestClaimJob_NoneAvailable() {
	s.harvest.EXPECT().Claim(gomock.Any(), domain.KindDownloadURLResolve).Return(nil, nil)

	w, body := s.internal(http.MethodPost, "/api/internal/harvest/claim", `{"kind":"download_url_resolve"}`)

	s.Equal(http.StatusOK, w.Code)
	s.Contains(body, "job")
	s.Nil(body["job"])
}

func (s *HandlerTestSuite) TestCompleteJob() {
	s.harvest.EXPECT().Complete(gomock.Any(), int64(9), false, "page timed out").Return(nil)
	s.harvest.EXPECT().Complete(gomock.Any(), int64(10), true, "").Return(domain.ErrNotFound)

	w, _ := s.internal(http.MethodPost, "/api/internal/harvest/complete", `{"jobId": 9, "ok": false, "error": "page timed out"}`)
	s.Equal(http.StatusOK, w.Code)

	w, _ = s.internal(http.MethodPost, "/api/internal/harvest/complete", `{"jobId": 10, "ok": true}`)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlerTestSuite) TestAddAssets() {
	s.intake.EXPECT().Add(gomock.Any(), int64(42), []domain.DiscoveredAsset{
		{URL: "https://cdn.example/a.mp4", AssetType: "video"},
	}).Return(1, 1, nil)

	w, body := s.internal(http.MethodPost, "/api/internal/assets",
		`{"contentItemId": 42, "assets": [{"url": "https://cdn.example/a.mp4", "assetType": "video"}]}`)

	s.Equal(http.StatusOK, w.Code)
	s.Equal(float64(1), body["inserted"])
}

func (s *HandlerTestSuite) TestInternalArchive() {
	s.archiver.EXPECT().Archive(gomock.Any(), int64(42)).Return(&domain.ArchiveResult{LocalPath: "p/post.html"}, nil)

	w, body := s.internal(http.MethodPost, "/api/internal/content/42/archive", "")

	s.Equal(http.StatusOK, w.Code)
	s.Equal(false, body["downloaded"])
}

func (s *HandlerTestSuite) TestAPIKey() {
	router := NewServer(s.handler, config.ServerConfig{APIKey: "k1", InternalToken: testToken})
	s.runner.EXPECT().Status(gomock.Any()).Return(domain.SyncStatus{Summary: "idle"})

	w, _ := s.do(router, http.MethodGet, "/api/sync", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)

	w, _ = s.do(router, http.MethodGet, "/api/sync", "", map[string]string{"X-API-Key": "nope"})
	s.Equal(http.StatusUnauthorized, w.Code)

	w, _ = s.do(router, http.MethodGet, "/api/sync", "", map[string]string{"Authorization": "Bearer k1"})
	s.Equal(http.StatusOK, w.Code)

	w, _ = s.do(router, http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, w.Code)
}
