package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimaq/crosspost/internal/format"
	"github.com/aimaq/crosspost/internal/logger"
	"github.com/aimaq/crosspost/internal/metrics"
	"github.com/aimaq/crosspost/internal/models"
)

type fakeStore struct {
	articles  map[string]*models.Article
	configs   map[models.Platform]*models.PlatformConfig
	succeeded map[models.Platform]bool

	records []*models.PublicationRecord

	createErr error
}

func (f *fakeStore) GetArticleByID(_ context.Context, id string) (*models.Article, error) {
	article, ok := f.articles[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return article, nil
}

func (f *fakeStore) GetPlatformConfig(_ context.Context, platform models.Platform) (*models.PlatformConfig, error) {
	config, ok := f.configs[platform]
	if !ok {
		return nil, models.ErrNotFound
	}
	return config, nil
}

func (f *fakeStore) CreatePublication(_ context.Context, record *models.PublicationRecord) (*models.PublicationRecord, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.records = append(f.records, record)
	return record, nil
}

func (f *fakeStore) SucceededPlatforms(_ context.Context, _ string, _ []models.Platform) (map[models.Platform]bool, error) {
	if f.succeeded == nil {
		return map[models.Platform]bool{}, nil
	}
	return f.succeeded, nil
}

type fakeTracker struct {
	marks    map[string]bool
	cleared  []string
	markErrs bool
}

func trackerKey(articleID string, platform models.Platform) string {
	return articleID + "/" + string(platform)
}

func (f *fakeTracker) HasPublished(_ context.Context, articleID string, platform models.Platform) bool {
	return f.marks[trackerKey(articleID, platform)]
}

func (f *fakeTracker) MarkPublished(_ context.Context, articleID string, platform models.Platform) error {
	if f.markErrs {
		return errors.New("redis down")
	}
	if f.marks == nil {
		f.marks = map[string]bool{}
	}
	f.marks[trackerKey(articleID, platform)] = true
	return nil
}

func (f *fakeTracker) Clear(_ context.Context, articleID string) error {
	f.cleared = append(f.cleared, articleID)
	for key := range f.marks {
		delete(f.marks, key)
	}
	return nil
}

type fakeAdapters struct {
	telegramCalls  int
	instagramCalls int
	tiktokCalls    int
	facebookCalls  int

	telegramErr  error
	instagramErr error
	tiktokErr    error
	facebookErr  error

	lastTelegramText string
	lastReelsURL     string
}

func (f *fakeAdapters) Publish(_ context.Context, _ models.TelegramCredentials, text, _ string) (string, error) {
	f.telegramCalls++
	f.lastTelegramText = text
	if f.telegramErr != nil {
		return "", f.telegramErr
	}
	return "tg-42", nil
}

func (f *fakeAdapters) PublishPost(_ context.Context, _ models.InstagramCredentials, _, _ string) (string, error) {
	f.instagramCalls++
	if f.instagramErr != nil {
		return "", f.instagramErr
	}
	return "ig-1", nil
}

func (f *fakeAdapters) PublishReels(_ context.Context, _ models.InstagramCredentials, videoURL, _ string) (string, error) {
	f.instagramCalls++
	f.lastReelsURL = videoURL
	if f.instagramErr != nil {
		return "", f.instagramErr
	}
	return "ig-reel-1", nil
}

func (f *fakeAdapters) PublishPhoto(_ context.Context, _ models.TikTokCredentials, _, _, _ string) (string, error) {
	f.tiktokCalls++
	if f.tiktokErr != nil {
		return "", f.tiktokErr
	}
	return "tt-1", nil
}

type facebookAdapter struct{ *fakeAdapters }

func (f facebookAdapter) Publish(_ context.Context, _ models.FacebookCredentials, _, _, _, _ string) (string, error) {
	f.facebookCalls++
	if f.facebookErr != nil {
		return "", f.facebookErr
	}
	return "fb-1", nil
}

func enabledConfig(platform models.Platform, creds any) *models.PlatformConfig {
	blob, _ := json.Marshal(creds)
	return &models.PlatformConfig{
		Platform:        platform,
		Enabled:         true,
		DefaultLanguage: models.LanguageRU,
		CredentialsJSON: blob,
	}
}

func allConfigs() map[models.Platform]*models.PlatformConfig {
	return map[models.Platform]*models.PlatformConfig{
		models.PlatformTelegram:  enabledConfig(models.PlatformTelegram, models.TelegramCredentials{BotToken: "t", ChatID: "@c"}),
		models.PlatformInstagram: enabledConfig(models.PlatformInstagram, models.InstagramCredentials{AccessToken: "IG", AccountID: "1"}),
		models.PlatformTikTok:    enabledConfig(models.PlatformTikTok, models.TikTokCredentials{AccessToken: "a", OpenID: "o"}),
		models.PlatformFacebook:  enabledConfig(models.PlatformFacebook, models.FacebookCredentials{AccessToken: "f", PageID: "p"}),
	}
}

func testArticle() *models.Article {
	return &models.Article{
		ID:            "article-1",
		TitleRU:       "Заголовок",
		TitleKZ:       "Тақырып",
		ExcerptRU:     "Кратко",
		SlugRU:        "zagolovok",
		SlugKZ:        "takyryp",
		CoverImageURL: "https://aimaqaqshamy.kz/uploads/img.jpg",
	}
}

func newTestService(store *fakeStore, tracker *fakeTracker, adapters *fakeAdapters) *Service {
	return NewService(Config{
		Store:     store,
		Tracker:   tracker,
		Formatter: format.New(""),
		Logger:    logger.NewNopLogger(),
		Telegram:  adapters,
		Instagram: adapters,
		TikTok:    adapters,
		Facebook:  facebookAdapter{adapters},
	})
}

func TestPublishAllPlatforms(t *testing.T) {
	store := &fakeStore{
		articles: map[string]*models.Article{"article-1": testArticle()},
		configs:  allConfigs(),
	}
	tracker := &fakeTracker{}
	adapters := &fakeAdapters{}
	svc := newTestService(store, tracker, adapters)

	outcomes, err := svc.Publish(context.Background(), &models.PublicationRequest{ArticleID: "article-1"})

	require.NoError(t, err)
	require.Len(t, outcomes, 4)
	for _, outcome := range outcomes {
		assert.True(t, outcome.Success, "%s should succeed", outcome.Platform)
		assert.False(t, outcome.Skipped)
		assert.NotEmpty(t, outcome.ExternalID)
	}

	// Outcomes follow the canonical platform order of the request.
	assert.Equal(t, models.AllPlatforms, []models.Platform{
		outcomes[0].Platform, outcomes[1].Platform, outcomes[2].Platform, outcomes[3].Platform,
	})

	require.Len(t, store.records, 4)
	for _, record := range store.records {
		assert.Equal(t, models.StatusSuccess, record.Status)
	}

	assert.True(t, tracker.marks[trackerKey("article-1", models.PlatformTelegram)])
}

func TestPublishIdempotencySkipsWithoutNetworkCalls(t *testing.T) {
	store := &fakeStore{
		articles:  map[string]*models.Article{"article-1": testArticle()},
		configs:   allConfigs(),
		succeeded: map[models.Platform]bool{models.PlatformTelegram: true},
	}
	adapters := &fakeAdapters{}
	svc := newTestService(store, &fakeTracker{}, adapters)

	outcomes, err := svc.Publish(context.Background(), &models.PublicationRequest{
		ArticleID: "article-1",
		Platforms: []models.Platform{models.PlatformTelegram, models.PlatformFacebook},
	})

	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.True(t, outcomes[0].Skipped)
	assert.True(t, outcomes[0].Success)
	assert.Empty(t, outcomes[0].ExternalID)
	assert.Zero(t, adapters.telegramCalls, "skip must not touch the network")

	assert.False(t, outcomes[1].Skipped)
	assert.Equal(t, 1, adapters.facebookCalls)

	// A skip appends no ledger row; only the Facebook attempt is recorded.
	require.Len(t, store.records, 1)
	assert.Equal(t, models.PlatformFacebook, store.records[0].Platform)
}

func TestPublishSkipCountsInMetrics(t *testing.T) {
	store := &fakeStore{
		articles:  map[string]*models.Article{"article-1": testArticle()},
		configs:   allConfigs(),
		succeeded: map[models.Platform]bool{models.PlatformTelegram: true},
	}
	adapters := &fakeAdapters{}
	m := metrics.New(prometheus.NewRegistry())
	svc := NewService(Config{
		Store:     store,
		Tracker:   &fakeTracker{},
		Formatter: format.New(""),
		Metrics:   m,
		Logger:    logger.NewNopLogger(),
		Telegram:  adapters,
		Instagram: adapters,
		TikTok:    adapters,
		Facebook:  facebookAdapter{adapters},
	})

	_, err := svc.Publish(context.Background(), &models.PublicationRequest{
		ArticleID: "article-1",
		Platforms: []models.Platform{models.PlatformTelegram, models.PlatformFacebook},
	})

	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishTotal.WithLabelValues("TELEGRAM", "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishTotal.WithLabelValues("FACEBOOK", "success")))
}

func TestPublishForceRepublishes(t *testing.T) {
	store := &fakeStore{
		articles:  map[string]*models.Article{"article-1": testArticle()},
		configs:   allConfigs(),
		succeeded: map[models.Platform]bool{models.PlatformTelegram: true},
	}
	tracker := &fakeTracker{marks: map[string]bool{trackerKey("article-1", models.PlatformTelegram): true}}
	adapters := &fakeAdapters{}
	svc := newTestService(store, tracker, adapters)

	outcomes, err := svc.Publish(context.Background(), &models.PublicationRequest{
		ArticleID: "article-1",
		Platforms: []models.Platform{models.PlatformTelegram},
		Force:     true,
	})

	require.NoError(t, err)
	assert.False(t, outcomes[0].Skipped)
	assert.Equal(t, 1, adapters.telegramCalls)
	assert.Equal(t, []string{"article-1"}, tracker.cleared)
}

func TestPublishPartialFailureIsolation(t *testing.T) {
	store := &fakeStore{
		articles: map[string]*models.Article{"article-1": testArticle()},
		configs:  allConfigs(),
	}
	adapters := &fakeAdapters{instagramErr: errors.New("container expired")}
	svc := newTestService(store, &fakeTracker{}, adapters)

	outcomes, err := svc.Publish(context.Background(), &models.PublicationRequest{
		ArticleID: "article-1",
		Platforms: []models.Platform{models.PlatformInstagram, models.PlatformTikTok, models.PlatformFacebook},
	})

	require.NoError(t, err, "a platform failure is not a request failure")
	require.Len(t, outcomes, 3)

	assert.False(t, outcomes[0].Success)
	assert.Contains(t, outcomes[0].Error, "container expired")
	assert.True(t, outcomes[1].Success, "tiktok must still run after instagram failed")
	assert.True(t, outcomes[2].Success)
	assert.Equal(t, 1, adapters.tiktokCalls)
	assert.Equal(t, 1, adapters.facebookCalls)

	require.Len(t, store.records, 3)
	assert.Equal(t, models.StatusFailed, store.records[0].Status)
	assert.Equal(t, "container expired", store.records[0].Error)
	assert.Equal(t, models.StatusSuccess, store.records[1].Status)
}

func TestPublishUnconfiguredPlatformFails(t *testing.T) {
	store := &fakeStore{
		articles: map[string]*models.Article{"article-1": testArticle()},
		configs:  map[models.Platform]*models.PlatformConfig{},
	}
	adapters := &fakeAdapters{}
	svc := newTestService(store, &fakeTracker{}, adapters)

	outcomes, err := svc.Publish(context.Background(), &models.PublicationRequest{
		ArticleID: "article-1",
		Platforms: []models.Platform{models.PlatformTelegram},
	})

	require.NoError(t, err)
	assert.False(t, outcomes[0].Success)
	assert.Contains(t, outcomes[0].Error, "not configured")
	assert.Zero(t, adapters.telegramCalls)

	// The config-gate failure still lands in the ledger as a FAILED attempt.
	require.Len(t, store.records, 1)
	assert.Equal(t, models.StatusFailed, store.records[0].Status)
	assert.Contains(t, store.records[0].Error, "not configured")
}

func TestPublishDisabledPlatformFails(t *testing.T) {
	configs := allConfigs()
	configs[models.PlatformTikTok].Enabled = false

	store := &fakeStore{
		articles: map[string]*models.Article{"article-1": testArticle()},
		configs:  configs,
	}
	adapters := &fakeAdapters{}
	svc := newTestService(store, &fakeTracker{}, adapters)

	outcomes, err := svc.Publish(context.Background(), &models.PublicationRequest{
		ArticleID: "article-1",
		Platforms: []models.Platform{models.PlatformTikTok},
	})

	require.NoError(t, err)
	assert.False(t, outcomes[0].Success)
	assert.Contains(t, outcomes[0].Error, "disabled")
	assert.Zero(t, adapters.tiktokCalls)
}

func TestPublishIncompleteCredentialsFail(t *testing.T) {
	configs := allConfigs()
	configs[models.PlatformInstagram] = enabledConfig(models.PlatformInstagram, models.InstagramCredentials{AccessToken: "IG"})

	store := &fakeStore{
		articles: map[string]*models.Article{"article-1": testArticle()},
		configs:  configs,
	}
	adapters := &fakeAdapters{}
	svc := newTestService(store, &fakeTracker{}, adapters)

	outcomes, err := svc.Publish(context.Background(), &models.PublicationRequest{
		ArticleID: "article-1",
		Platforms: []models.Platform{models.PlatformInstagram},
	})

	require.NoError(t, err)
	assert.False(t, outcomes[0].Success)
	assert.Contains(t, outcomes[0].Error, "account_id")
	assert.Zero(t, adapters.instagramCalls)
}

func TestPublishUnknownArticle(t *testing.T) {
	store := &fakeStore{articles: map[string]*models.Article{}}
	svc := newTestService(store, &fakeTracker{}, &fakeAdapters{})

	_, err := svc.Publish(context.Background(), &models.PublicationRequest{ArticleID: "missing"})

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPublishUnknownPlatformRejectsRequest(t *testing.T) {
	store := &fakeStore{articles: map[string]*models.Article{"article-1": testArticle()}}
	svc := newTestService(store, &fakeTracker{}, &fakeAdapters{})

	_, err := svc.Publish(context.Background(), &models.PublicationRequest{
		ArticleID: "article-1",
		Platforms: []models.Platform{"MYSPACE"},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnknownPlatform)
}

func TestPublishVideoArticleUsesReels(t *testing.T) {
	article := testArticle()
	article.VideoURL = "https://aimaqaqshamy.kz/uploads/video.mp4"

	store := &fakeStore{
		articles: map[string]*models.Article{"article-1": article},
		configs:  allConfigs(),
	}
	adapters := &fakeAdapters{}
	svc := newTestService(store, &fakeTracker{}, adapters)

	outcomes, err := svc.Publish(context.Background(), &models.PublicationRequest{
		ArticleID: "article-1",
		Platforms: []models.Platform{models.PlatformInstagram},
	})

	require.NoError(t, err)
	assert.Equal(t, "ig-reel-1", outcomes[0].ExternalID)
	assert.Equal(t, article.VideoURL, adapters.lastReelsURL)
}

func TestPublishArticleWithoutMediaFailsVisualPlatforms(t *testing.T) {
	article := testArticle()
	article.CoverImageURL = ""

	store := &fakeStore{
		articles: map[string]*models.Article{"article-1": article},
		configs:  allConfigs(),
	}
	adapters := &fakeAdapters{}
	svc := newTestService(store, &fakeTracker{}, adapters)

	outcomes, err := svc.Publish(context.Background(), &models.PublicationRequest{
		ArticleID: "article-1",
		Platforms: []models.Platform{models.PlatformInstagram, models.PlatformTikTok, models.PlatformTelegram},
	})

	require.NoError(t, err)
	assert.Contains(t, outcomes[0].Error, "no media")
	assert.Contains(t, outcomes[1].Error, "no cover image")
	assert.True(t, outcomes[2].Success, "telegram publishes text without media")
	assert.Zero(t, adapters.instagramCalls)
	assert.Zero(t, adapters.tiktokCalls)
	assert.Equal(t, 1, adapters.telegramCalls)
}

func TestPublishLedgerFailureDoesNotFlipOutcome(t *testing.T) {
	store := &fakeStore{
		articles:  map[string]*models.Article{"article-1": testArticle()},
		configs:   allConfigs(),
		createErr: errors.New("db down"),
	}
	adapters := &fakeAdapters{}
	svc := newTestService(store, &fakeTracker{}, adapters)

	outcomes, err := svc.Publish(context.Background(), &models.PublicationRequest{
		ArticleID: "article-1",
		Platforms: []models.Platform{models.PlatformTelegram},
	})

	require.NoError(t, err)
	assert.True(t, outcomes[0].Success, "a live post stays a success even if the ledger write failed")
}

func TestPublishFormatsInConfiguredLanguage(t *testing.T) {
	configs := allConfigs()
	configs[models.PlatformTelegram].DefaultLanguage = models.LanguageKZ

	store := &fakeStore{
		articles: map[string]*models.Article{"article-1": testArticle()},
		configs:  configs,
	}
	adapters := &fakeAdapters{}
	svc := newTestService(store, &fakeTracker{}, adapters)

	_, err := svc.Publish(context.Background(), &models.PublicationRequest{
		ArticleID: "article-1",
		Platforms: []models.Platform{models.PlatformTelegram},
	})

	require.NoError(t, err)
	assert.Contains(t, adapters.lastTelegramText, "Тақырып")
}
