package tiktok

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimaq/crosspost/internal/logger"
	"github.com/aimaq/crosspost/internal/models"
	"github.com/aimaq/crosspost/internal/platforms"
	"github.com/aimaq/crosspost/internal/retry"
)

func newTestClient(serverURL string) *Client {
	c := NewClient(logger.NewNopLogger())
	c.baseURL = serverURL
	c.initRetry.Schedule = retry.None()
	c.poll.Interval = time.Millisecond
	return c
}

func testCreds() models.TikTokCredentials {
	return models.TikTokCredentials{
		ClientKey:    "key",
		ClientSecret: "secret",
		AccessToken:  "act.token",
		RefreshToken: "rft.token",
	}
}

// postServer emulates the init/status flow. statuses is consumed one status
// check at a time; the last entry repeats.
type postServer struct {
	statuses []string
	postID   int64

	initCalls   int
	statusCalls int
	lastInit    map[string]any
}

func (s *postServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer act.token", r.Header.Get("Authorization"))

		switch r.URL.Path {
		case "/post/publish/content/init/":
			s.initCalls++
			require.NoError(t, json.NewDecoder(r.Body).Decode(&s.lastInit))
			w.Write([]byte(`{"data":{"publish_id":"pub1"},"error":{"code":"ok"}}`))
		case "/post/publish/status/fetch/":
			idx := s.statusCalls
			if idx >= len(s.statuses) {
				idx = len(s.statuses) - 1
			}
			s.statusCalls++

			status := s.statuses[idx]
			resp := map[string]any{
				"data":  map[string]any{"status": status},
				"error": map[string]any{"code": "ok"},
			}
			if status == "PUBLISH_COMPLETE" && s.postID != 0 {
				resp["data"].(map[string]any)["publicly_available_post_id"] = []int64{s.postID}
			}
			if status == "FAILED" {
				resp["data"].(map[string]any)["fail_reason"] = "picture_size_check_failed"
			}
			require.NoError(t, json.NewEncoder(w).Encode(resp))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}
}

func TestPublishPhotoComplete(t *testing.T) {
	fake := &postServer{statuses: []string{"PROCESSING_DOWNLOAD", "PUBLISH_COMPLETE"}, postID: 7512345678901234567}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client := newTestClient(server.URL)
	postID, err := client.PublishPhoto(context.Background(), testCreds(), "https://example.kz/img.jpg", "Тақырып", "description")

	require.NoError(t, err)
	assert.Equal(t, "7512345678901234567", postID)
	assert.Equal(t, 1, fake.initCalls)
	assert.Equal(t, 2, fake.statusCalls)

	postInfo := fake.lastInit["post_info"].(map[string]any)
	assert.Equal(t, "Тақырып", postInfo["title"])
	assert.Equal(t, "PUBLIC_TO_EVERYONE", postInfo["privacy_level"])
	assert.Equal(t, "DIRECT_POST", fake.lastInit["post_mode"])
	assert.Equal(t, "PHOTO", fake.lastInit["media_type"])
	sourceInfo := fake.lastInit["source_info"].(map[string]any)
	assert.Equal(t, "PULL_FROM_URL", sourceInfo["source"])
}

func TestPublishPhotoCyrillicTitleAtLimit(t *testing.T) {
	// 150 Cyrillic characters are ~300 bytes; the cap must count characters
	// so a title that fits the limit is sent unchanged.
	title := strings.Repeat("Ж", 147) + "..."
	fake := &postServer{statuses: []string{"PUBLISH_COMPLETE"}}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.PublishPhoto(context.Background(), testCreds(), "https://example.kz/img.jpg", title, "description")

	require.NoError(t, err)
	postInfo := fake.lastInit["post_info"].(map[string]any)
	assert.Equal(t, title, postInfo["title"])
}

func TestPublishPhotoOverlongTitleTruncatedOnRunes(t *testing.T) {
	title := "a" + strings.Repeat("Ж", 200)
	fake := &postServer{statuses: []string{"PUBLISH_COMPLETE"}}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.PublishPhoto(context.Background(), testCreds(), "https://example.kz/img.jpg", title, "description")

	require.NoError(t, err)
	sent := fake.lastInit["post_info"].(map[string]any)["title"].(string)
	assert.True(t, utf8.ValidString(sent))
	assert.Equal(t, titleLimit, utf8.RuneCountInString(sent))
	assert.Equal(t, "a"+strings.Repeat("Ж", 149), sent)
}

func TestPublishPhotoCompleteWithoutPublicID(t *testing.T) {
	fake := &postServer{statuses: []string{"PUBLISH_COMPLETE"}}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client := newTestClient(server.URL)
	postID, err := client.PublishPhoto(context.Background(), testCreds(), "https://example.kz/img.jpg", "title", "desc")

	require.NoError(t, err)
	assert.Equal(t, "pub1", postID, "publish id is the fallback identifier")
}

func TestPublishPhotoFailed(t *testing.T) {
	fake := &postServer{statuses: []string{"PROCESSING_UPLOAD", "FAILED"}}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.PublishPhoto(context.Background(), testCreds(), "https://example.kz/img.jpg", "title", "desc")

	var procErr *platforms.ProcessingError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, models.PlatformTikTok, procErr.Platform)
	assert.Equal(t, "pub1", procErr.JobID)
	assert.Equal(t, "picture_size_check_failed", procErr.Reason)
}

func TestPublishPhotoPollBudgetIsSoftSuccess(t *testing.T) {
	fake := &postServer{statuses: []string{"PROCESSING_DOWNLOAD"}}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client := newTestClient(server.URL)
	client.poll.MaxAttempts = 3

	postID, err := client.PublishPhoto(context.Background(), testCreds(), "https://example.kz/img.jpg", "title", "desc")

	require.NoError(t, err, "slow processing is not a failure")
	assert.Equal(t, "pub1", postID)
	assert.Equal(t, 3, fake.statusCalls)
}

func TestInitPhotoPostAPIError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"data":{},"error":{"code":"access_token_invalid","message":"The access token is invalid"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.PublishPhoto(context.Background(), testCreds(), "https://example.kz/img.jpg", "title", "desc")

	require.Error(t, err)
	assert.Equal(t, 1, calls, "invalid token must not retry")

	var provErr *platforms.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.False(t, provErr.Transient)
	assert.Contains(t, provErr.Message, "access_token_invalid")
}

func TestInitPhotoPostRetriesRateLimit(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/post/publish/content/init/":
			calls++
			if calls == 1 {
				w.Write([]byte(`{"data":{},"error":{"code":"rate_limit_exceeded","message":"Too many requests"}}`))
				return
			}
			w.Write([]byte(`{"data":{"publish_id":"pub2"},"error":{"code":"ok"}}`))
		case "/post/publish/status/fetch/":
			w.Write([]byte(`{"data":{"status":"PUBLISH_COMPLETE"},"error":{"code":"ok"}}`))
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	retried := 0
	client.ObserveRetries(func(int) { retried++ })
	postID, err := client.PublishPhoto(context.Background(), testCreds(), "https://example.kz/img.jpg", "title", "desc")

	require.NoError(t, err)
	assert.Equal(t, "pub2", postID)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, retried)
}

func TestRefreshAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/token/", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "key", r.PostForm.Get("client_key"))
		assert.Equal(t, "rft.token", r.PostForm.Get("refresh_token"))
		w.Write([]byte(`{"access_token":"act.new","refresh_token":"rft.new","expires_in":86400}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.RefreshAccessToken(context.Background(), testCreds())

	require.NoError(t, err)
	assert.Equal(t, "act.new", result.AccessToken)
	assert.Equal(t, "rft.new", result.RefreshToken)
	assert.Equal(t, 86400, result.ExpiresIn)
}

func TestRefreshAccessTokenError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Refresh token is invalid or expired."}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.RefreshAccessToken(context.Background(), testCreds())

	var provErr *platforms.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "Refresh token is invalid or expired.", provErr.Message)
	assert.Equal(t, http.StatusBadRequest, provErr.StatusCode)
}
