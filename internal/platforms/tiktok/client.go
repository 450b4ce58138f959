// Package tiktok implements the two-phase adapter for the content-posting
// network. Polling is the publish operation itself: the terminal status
// carries the public post id, so there is no separate finalize call.
package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aimaq/crosspost/internal/httpx"
	"github.com/aimaq/crosspost/internal/logger"
	"github.com/aimaq/crosspost/internal/models"
	"github.com/aimaq/crosspost/internal/platforms"
	"github.com/aimaq/crosspost/internal/retry"
)

const (
	defaultBaseURL = "https://open.tiktokapis.com/v2"

	initMaxAttempts = 3
	initRetryBase   = 2 * time.Second

	// The provider recommends polling every 5-10 seconds; eight checks at
	// 8s bound the total wait to roughly a minute.
	statusInterval    = 8 * time.Second
	statusMaxAttempts = 8

	titleLimit       = 150
	descriptionLimit = 2200
	maxPhotos        = 35
)

// Client publishes photo posts to a TikTok account via the Content Posting
// API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger

	initRetry retry.Config
	poll      platforms.PollConfig
}

// NewClient creates a TikTok adapter with the production retry and poll
// budgets.
func NewClient(log logger.Logger) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: httpx.NewDefaultClient(),
		logger:     log,
		initRetry: retry.Config{
			MaxAttempts: initMaxAttempts,
			Schedule:    retry.Incremental(initRetryBase),
			IsRetryable: platforms.IsTransient,
		},
		poll: platforms.PollConfig{
			Interval:    statusInterval,
			MaxAttempts: statusMaxAttempts,
			DelayFirst:  true,
		},
	}
}

// ObserveRetries registers a hook called once per retried provider call.
func (c *Client) ObserveRetries(fn func(attempt int)) {
	c.initRetry.OnRetry = fn
}

// PublishPhoto submits a photo post and waits for the remote pipeline to
// finish. When the poll budget runs out before a terminal status the post
// may still go live later, so the publish id is returned as a best-effort
// external identifier instead of failing.
func (c *Client) PublishPhoto(ctx context.Context, creds models.TikTokCredentials, photoURL, title, description string) (string, error) {
	publishID, err := c.initPhotoPost(ctx, creds, []string{photoURL}, title, description)
	if err != nil {
		return "", err
	}

	outcome, err := platforms.Poll(ctx, models.PlatformTikTok, publishID, c.poll, func(ctx context.Context) (platforms.PollOutcome, error) {
		return c.checkStatus(ctx, creds, publishID)
	})
	if err != nil {
		var timeout *platforms.PollTimeoutError
		if errors.As(err, &timeout) {
			c.logger.Warn("Post still processing after poll budget, returning publish id",
				logger.String("publish_id", publishID),
				logger.Int("status_checks", timeout.Attempts),
			)
			return publishID, nil
		}
		return "", err
	}

	switch outcome.Kind {
	case platforms.PollReady:
		postID := outcome.PublicID
		if postID == "" {
			postID = publishID
		}
		c.logger.Info("TikTok post published",
			logger.String("post_id", postID),
		)
		return postID, nil
	default:
		reason := outcome.Reason
		if reason == "" {
			reason = "publish failed"
		}
		return "", &platforms.ProcessingError{
			Platform: models.PlatformTikTok,
			JobID:    publishID,
			Reason:   reason,
		}
	}
}

func (c *Client) initPhotoPost(ctx context.Context, creds models.TikTokCredentials, photoURLs []string, title, description string) (string, error) {
	if len(photoURLs) > maxPhotos {
		photoURLs = photoURLs[:maxPhotos]
	}
	encoded := make([]string, len(photoURLs))
	for i, u := range photoURLs {
		encoded[i] = platforms.EncodeMediaURL(u)
	}

	payload := map[string]any{
		"post_info": map[string]any{
			"title":           truncate(title, titleLimit),
			"description":     truncate(description, descriptionLimit),
			"privacy_level":   "PUBLIC_TO_EVERYONE",
			"disable_duet":    false,
			"disable_comment": false,
			"disable_stitch":  false,
		},
		"source_info": map[string]any{
			"source":            "PULL_FROM_URL",
			"photo_cover_index": 0,
			"photo_images":      encoded,
		},
		"post_mode":  "DIRECT_POST",
		"media_type": "PHOTO",
	}

	var resp apiResponse
	err := retry.Do(ctx, c.initRetry, func() error {
		return c.postJSON(ctx, "initPhotoPost", "/post/publish/content/init/", creds.AccessToken, payload, &resp)
	})
	if err != nil {
		return "", err
	}

	if resp.Data.PublishID == "" {
		return "", &platforms.ProviderError{
			Platform: models.PlatformTikTok,
			Op:       "initPhotoPost",
			Message:  "no publish_id in response",
		}
	}

	c.logger.Info("TikTok photo post initialized",
		logger.String("publish_id", resp.Data.PublishID),
	)
	return resp.Data.PublishID, nil
}

// checkStatus maps the provider's status vocabulary into the normalized poll
// outcome. PROCESSING_UPLOAD, PROCESSING_DOWNLOAD and SEND_TO_USER_INBOX all
// keep polling.
func (c *Client) checkStatus(ctx context.Context, creds models.TikTokCredentials, publishID string) (platforms.PollOutcome, error) {
	payload := map[string]any{"publish_id": publishID}

	var resp apiResponse
	if err := c.postJSON(ctx, "statusFetch", "/post/publish/status/fetch/", creds.AccessToken, payload, &resp); err != nil {
		return platforms.PollOutcome{}, err
	}

	switch resp.Data.Status {
	case "PUBLISH_COMPLETE":
		var publicID string
		if len(resp.Data.PubliclyAvailablePostID) > 0 {
			publicID = strconv.FormatInt(resp.Data.PubliclyAvailablePostID[0], 10)
		}
		return platforms.PollOutcome{Kind: platforms.PollReady, PublicID: publicID}, nil
	case "FAILED":
		return platforms.PollOutcome{Kind: platforms.PollFailed, Reason: resp.Data.FailReason}, nil
	default:
		return platforms.PollOutcome{Kind: platforms.PollWaiting}, nil
	}
}

// TokenRefreshResult carries a refreshed token pair.
type TokenRefreshResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// RefreshAccessToken exchanges the refresh token for a new access token.
// This is only invoked from the admin refresh endpoint; the publish path
// treats an expired token as a permanent rejection.
func (c *Client) RefreshAccessToken(ctx context.Context, creds models.TikTokCredentials) (*TokenRefreshResult, error) {
	form := url.Values{}
	form.Set("client_key", strings.TrimSpace(creds.ClientKey))
	form.Set("client_secret", strings.TrimSpace(creds.ClientSecret))
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", creds.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token/", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &platforms.ProviderError{
			Platform:  models.PlatformTikTok,
			Op:        "refreshToken",
			Message:   err.Error(),
			Transient: true,
		}
	}
	defer resp.Body.Close()

	var tokenResp struct {
		AccessToken      string `json:"access_token"`
		RefreshToken     string `json:"refresh_token"`
		ExpiresIn        int    `json:"expires_in"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, &platforms.ProviderError{
			Platform: models.PlatformTikTok,
			Op:       "refreshToken",
			Message:  fmt.Sprintf("decode response: %v", err),
		}
	}
	if tokenResp.Error != "" {
		message := tokenResp.ErrorDescription
		if message == "" {
			message = tokenResp.Error
		}
		return nil, &platforms.ProviderError{
			Platform:   models.PlatformTikTok,
			Op:         "refreshToken",
			StatusCode: resp.StatusCode,
			Message:    message,
		}
	}

	c.logger.Info("TikTok access token refreshed")
	return &TokenRefreshResult{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresIn:    tokenResp.ExpiresIn,
	}, nil
}

type apiResponse struct {
	Data struct {
		PublishID               string  `json:"publish_id"`
		Status                  string  `json:"status"`
		FailReason              string  `json:"fail_reason"`
		PubliclyAvailablePostID []int64 `json:"publicly_available_post_id"`
	} `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) postJSON(ctx context.Context, op, path, accessToken string, payload any, out *apiResponse) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &platforms.ProviderError{
			Platform:  models.PlatformTikTok,
			Op:        op,
			Message:   err.Error(),
			Transient: true,
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &platforms.ProviderError{
			Platform:  models.PlatformTikTok,
			Op:        op,
			Message:   fmt.Sprintf("read response: %v", err),
			Transient: true,
		}
	}

	if resp.StatusCode != http.StatusOK {
		message := http.StatusText(resp.StatusCode)
		var apiErr apiResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			message = apiErr.Error.Message
		}
		return &platforms.ProviderError{
			Platform:   models.PlatformTikTok,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    message,
			Transient:  platforms.RetryableStatus(resp.StatusCode),
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &platforms.ProviderError{
			Platform: models.PlatformTikTok,
			Op:       op,
			Message:  fmt.Sprintf("decode response: %v", err),
		}
	}

	// The API reports failures with HTTP 200 and a non-ok error code.
	if out.Error.Code != "" && out.Error.Code != "ok" {
		return &platforms.ProviderError{
			Platform:  models.PlatformTikTok,
			Op:        op,
			Message:   fmt.Sprintf("%s: %s", out.Error.Code, out.Error.Message),
			Transient: out.Error.Code == "rate_limit_exceeded",
		}
	}
	return nil
}

// truncate caps s at limit characters, not bytes, so Cyrillic text at the
// provider limit is passed through intact.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
