package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/alexmgee/patron-hub/internal/domain"
	"github.com/alexmgee/patron-hub/internal/service/mocks"
	"github.com/alexmgee/patron-hub/internal/source/stub"
	"github.com/alexmgee/patron-hub/testdata/utils"
)

type SyncServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	source        *mocks.MockSource
	creators      *mocks.MockCreatorStore
	subscriptions *mocks.MockSubscriptionStore
	content       *mocks.MockContentStore
	jobs          *mocks.MockHarvestStore
	syncLogs      *mocks.MockSyncLogStore
	settings      *mocks.MockSettingsProvider
	archiver      *mocks.MockArchiver
	backlog       *mocks.MockBacklogProcessor
	txManager     *mocks.MockTransactionManager
	publisher     *mocks.MockPublisher

	service *SyncService
	logger  *slog.Logger
}

func (s *SyncServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.source = mocks.NewMockSource(s.ctrl)
	s.creators = mocks.NewMockCreatorStore(s.ctrl)
	s.subscriptions = mocks.NewMockSubscriptionStore(s.ctrl)
	s.content = mocks.NewMockContentStore(s.ctrl)
	s.jobs = mocks.NewMockHarvestStore(s.ctrl)
	s.syncLogs = mocks.NewMockSyncLogStore(s.ctrl)
	s.settings = mocks.NewMockSettingsProvider(s.ctrl)
	s.archiver = mocks.NewMockArchiver(s.ctrl)
	s.backlog = mocks.NewMockBacklogProcessor(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.source.EXPECT().Platform().Return(domain.PlatformPatreon).AnyTimes()

	s.service = s.newService([]Source{s.source}, s.publisher)
}

func (s *SyncServiceTestSuite) newService(sources []Source, publisher Publisher) *SyncService {
	return NewSyncService(
		sources,
		s.creators,
		s.subscriptions,
		s.content,
		s.jobs,
		s.syncLogs,
		s.settings,
		s.archiver,
		s.backlog,
		s.txManager,
		publisher,
		s.logger,
	)
}

func (s *SyncServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestSyncServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SyncServiceTestSuite))
}

var testSettings = domain.Settings{
	ArchiveDir:    "/archive",
	PatreonCookie: "session_id=abc",
	AutoDownload:  true,
}

func testMembership() domain.Membership {
	return domain.Membership{
		CampaignID:   "7",
		CreatorName:  "Jane Artist",
		CampaignName: "Jane's Studio",
		TierName:     utils.Ptr("Gold"),
		CostCents:    500,
		Currency:     "USD",
		Status:       domain.SubscriptionActive,
	}
}

func (s *SyncServiceTestSuite) expectMembershipUpsert(ctx context.Context, subscriptionID int64) {
	s.txManager.EXPECT().WithTransaction(ctx, gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
	s.creators.EXPECT().Upsert(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, c *domain.Creator) (int64, bool, error) {
			s.Equal("jane-artist-7", c.Slug)
			s.Equal("Jane Artist", c.Name)
			return 3, true, nil
		},
	)
	s.subscriptions.EXPECT().Upsert(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, sub *domain.Subscription) (int64, bool, error) {
			s.Equal(int64(3), sub.CreatorID)
			s.Equal(domain.PlatformPatreon, sub.Platform)
			s.Equal("7", sub.ExternalID)
			s.Equal(500, sub.CostCents)
			s.Equal("monthly", sub.BillingCycle)
			return subscriptionID, true, nil
		},
	)
}

func syncableSub() domain.Subscription {
	return domain.Subscription{
		ID:                  11,
		CreatorID:           3,
		Platform:            domain.PlatformPatreon,
		ExternalID:          "7",
		Status:              domain.SubscriptionActive,
		SyncEnabled:         true,
		AutoDownloadEnabled: true,
	}
}

// Three posts: two carry a download URL, one needs resolution.
func (s *SyncServiceTestSuite) TestSync_ResolvableAndQueuedPosts() {
	ctx := context.Background()

	posts := []domain.Post{
		{ExternalID: "p1", Title: "Video", ContentType: domain.ContentVideo, DownloadURL: utils.Ptr("https://c10.patreonusercontent.com/a.mp4")},
		{ExternalID: "p2", Title: "Doc", ContentType: domain.ContentPDF, DownloadURL: utils.Ptr("https://c10.patreonusercontent.com/b.pdf")},
		{ExternalID: "p3", Title: "Mystery", ContentType: domain.ContentArticle, ExternalURL: utils.Ptr("https://www.patreon.com/posts/mystery-3")},
	}
	ids := map[string]int64{"p1": 101, "p2": 102, "p3": 103}

	s.settings.EXPECT().Resolve(ctx).Return(testSettings, nil)
	s.source.EXPECT().FetchMemberships(ctx, "session_id=abc").Return([]domain.Membership{testMembership()}, nil)
	s.expectMembershipUpsert(ctx, 11)
	s.subscriptions.EXPECT().ListSyncable(ctx, domain.PlatformPatreon, []string{"7"}).Return([]domain.Subscription{syncableSub()}, nil)
	s.source.EXPECT().FetchPosts(ctx, "session_id=abc", "7").Return(posts, nil)

	s.content.EXPECT().Upsert(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, item *domain.ContentItem) (int64, bool, error) {
			s.Equal(int64(11), item.SubscriptionID)
			s.NotNil(item.Tags)
			return ids[item.ExternalID], true, nil
		},
	).Times(3)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(3)

	s.archiver.EXPECT().Archive(ctx, int64(101)).Return(&domain.ArchiveResult{Downloaded: true}, nil)
	s.archiver.EXPECT().Archive(ctx, int64(102)).Return(&domain.ArchiveResult{Downloaded: true}, nil)
	s.jobs.EXPECT().EnqueueIfAbsent(ctx, int64(103), domain.KindDownloadURLResolve, gomock.Any()).Return(true, nil)

	s.subscriptions.EXPECT().MarkSynced(ctx, int64(11), gomock.Any()).Return(nil)
	s.syncLogs.EXPECT().Insert(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *domain.SyncLog) error {
			s.Equal(int64(11), entry.SubscriptionID)
			s.Equal(domain.SyncLogSuccess, entry.Status)
			s.Equal(3, entry.ItemsFound)
			s.Equal(2, entry.ItemsDownloaded)
			s.Empty(entry.Errors)
			s.NotNil(entry.CompletedAt)
			return nil
		},
	)
	s.backlog.EXPECT().ProcessBacklog(ctx).Return(1, nil)

	stats, err := s.service.Sync(ctx)

	s.NoError(err)
	s.Equal(1, stats.MembershipsDiscovered)
	s.Equal(1, stats.SubscriptionsSynced)
	s.Equal(3, stats.PostsFound)
	s.Equal(3, stats.PostsInserted)
	s.Equal(0, stats.PostsUpdated)
	s.Equal(2, stats.ItemsDownloaded)
	s.Equal(1, stats.JobsQueued)
	s.Equal(1, stats.JobsResolved)
	s.Empty(stats.Errors)
}

func (s *SyncServiceTestSuite) TestSync_NoCookie() {
	ctx := context.Background()

	s.settings.EXPECT().Resolve(ctx).Return(domain.Settings{ArchiveDir: "/archive"}, nil)

	stats, err := s.service.Sync(ctx)

	s.ErrorIs(err, domain.ErrNoCookie)
	s.Nil(stats)
}

func (s *SyncServiceTestSuite) TestSync_MembershipError() {
	ctx := context.Background()

	s.settings.EXPECT().Resolve(ctx).Return(testSettings, nil)
	s.source.EXPECT().FetchMemberships(ctx, "session_id=abc").Return(nil, errors.New("upstream down"))

	stats, err := s.service.Sync(ctx)

	s.Error(err)
	s.NotNil(stats)
	s.Contains(err.Error(), "fetch patreon memberships")
}

func (s *SyncServiceTestSuite) TestSync_SkipsUnsupportedSources() {
	ctx := context.Background()
	service := s.newService([]Source{stub.New(domain.PlatformGumroad), s.source}, nil)

	s.settings.EXPECT().Resolve(ctx).Return(testSettings, nil)
	s.source.EXPECT().FetchMemberships(ctx, "session_id=abc").Return(nil, nil)
	s.backlog.EXPECT().ProcessBacklog(ctx).Return(0, nil)

	stats, err := service.Sync(ctx)

	s.NoError(err)
	s.Equal(0, stats.MembershipsDiscovered)
}

// A page failure keeps the posts read so far and marks the run failed.
func (s *SyncServiceTestSuite) TestSync_PartialPostsFailure() {
	ctx := context.Background()
	service := s.newService([]Source{s.source}, nil)

	posts := []domain.Post{
		{ExternalID: "p1", Title: "First", ContentType: domain.ContentVideo, DownloadURL: utils.Ptr("https://c10.patreonusercontent.com/a.mp4")},
	}

	s.settings.EXPECT().Resolve(ctx).Return(testSettings, nil)
	s.source.EXPECT().FetchMemberships(ctx, "session_id=abc").Return([]domain.Membership{testMembership()}, nil)
	s.expectMembershipUpsert(ctx, 11)
	s.subscriptions.EXPECT().ListSyncable(ctx, domain.PlatformPatreon, []string{"7"}).Return([]domain.Subscription{syncableSub()}, nil)
	s.source.EXPECT().FetchPosts(ctx, "session_id=abc", "7").Return(posts, errors.New("fetch posts page 2: boom"))

	s.content.EXPECT().Upsert(ctx, gomock.Any()).Return(int64(101), false, nil)
	s.archiver.EXPECT().Archive(ctx, int64(101)).Return(nil, errors.New("disk full"))
	s.syncLogs.EXPECT().Insert(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *domain.SyncLog) error {
			s.Equal(domain.SyncLogFailed, entry.Status)
			s.Equal(1, entry.ItemsFound)
			s.Len(entry.Errors, 2)
			s.Contains(entry.Errors[0], "archive failed for content 101")
			return nil
		},
	)
	s.backlog.EXPECT().ProcessBacklog(ctx).Return(0, nil)

	stats, err := service.Sync(ctx)

	s.NoError(err)
	s.Equal(0, stats.SubscriptionsSynced)
	s.Equal(1, stats.PostsUpdated)
	s.Equal(0, stats.ItemsDownloaded)
	s.Len(stats.Errors, 1)
	s.Contains(stats.Errors[0], "subscription 11")
}

func (s *SyncServiceTestSuite) TestSync_AutoDownloadDisabled() {
	ctx := context.Background()
	service := s.newService([]Source{s.source}, nil)
	settings := testSettings
	settings.AutoDownload = false

	posts := []domain.Post{
		{ExternalID: "p1", Title: "Video", DownloadURL: utils.Ptr("https://c10.patreonusercontent.com/a.mp4")},
	}

	s.settings.EXPECT().Resolve(ctx).Return(settings, nil)
	s.source.EXPECT().FetchMemberships(ctx, "session_id=abc").Return([]domain.Membership{testMembership()}, nil)
	s.expectMembershipUpsert(ctx, 11)
	s.subscriptions.EXPECT().ListSyncable(ctx, domain.PlatformPatreon, []string{"7"}).Return([]domain.Subscription{syncableSub()}, nil)
	s.source.EXPECT().FetchPosts(ctx, "session_id=abc", "7").Return(posts, nil)
	s.content.EXPECT().Upsert(ctx, gomock.Any()).Return(int64(101), true, nil)
	s.subscriptions.EXPECT().MarkSynced(ctx, int64(11), gomock.Any()).Return(nil)
	s.syncLogs.EXPECT().Insert(ctx, gomock.Any()).Return(nil)
	s.backlog.EXPECT().ProcessBacklog(ctx).Return(0, nil)

	stats, err := service.Sync(ctx)

	s.NoError(err)
	s.Equal(1, stats.PostsInserted)
	s.Equal(0, stats.ItemsDownloaded)
}

// A paused membership is recorded but never fetched.
func (s *SyncServiceTestSuite) TestSync_SkipsInactiveSubscriptions() {
	ctx := context.Background()
	service := s.newService([]Source{s.source}, nil)

	paused := syncableSub()
	paused.Status = domain.SubscriptionPaused
	membership := testMembership()
	membership.Status = domain.SubscriptionPaused

	s.settings.EXPECT().Resolve(ctx).Return(testSettings, nil)
	s.source.EXPECT().FetchMemberships(ctx, "session_id=abc").Return([]domain.Membership{membership}, nil)
	s.expectMembershipUpsert(ctx, 11)
	s.subscriptions.EXPECT().ListSyncable(ctx, domain.PlatformPatreon, []string{"7"}).Return([]domain.Subscription{paused}, nil)
	s.source.EXPECT().FetchPosts(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	s.backlog.EXPECT().ProcessBacklog(ctx).Return(0, nil)

	stats, err := service.Sync(ctx)

	s.NoError(err)
	s.Equal(1, stats.MembershipsDiscovered)
	s.Equal(0, stats.SubscriptionsSynced)
	s.Equal(0, stats.PostsFound)
}

func (s *SyncServiceTestSuite) TestCreatorSlug() {
	s.Equal("jane-artist-7", CreatorSlug("Jane Artist", "7"))
	s.Equal("cafe-creme-42", CreatorSlug("Café Crème", "42"))
	s.Equal("dont-stop-1", CreatorSlug("Don't  Stop!", "1"))
	s.Equal("patreon-creator-9", CreatorSlug("***", "9"))

	long := CreatorSlug("a very long creator name that keeps going and going well past sixty characters", "123456789012345678901234567890")
	s.LessOrEqual(len(long), 80)
}
