// Package facebook implements the direct-publish adapter for the Facebook
// page: a photo post with caption when a cover exists, otherwise a link post
// with the article URL.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/aimaq/crosspost/internal/httpx"
	"github.com/aimaq/crosspost/internal/logger"
	"github.com/aimaq/crosspost/internal/models"
	"github.com/aimaq/crosspost/internal/platforms"
	"github.com/aimaq/crosspost/internal/retry"
)

const (
	defaultBaseURL = "https://graph.facebook.com/v21.0"

	linkMaxAttempts = 3
	linkRetryBase   = 2 * time.Second

	photoMaxAttempts = 2
	photoRetryDelay  = 3 * time.Second
)

// Client publishes article posts to a Facebook page via the Graph API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger

	linkRetry  retry.Config
	photoRetry retry.Config
}

// NewClient creates a Facebook adapter with the production retry schedule.
func NewClient(log logger.Logger) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: httpx.NewDefaultClient(),
		logger:     log,
		linkRetry: retry.Config{
			MaxAttempts: linkMaxAttempts,
			Schedule:    retry.Incremental(linkRetryBase),
			IsRetryable: platforms.IsTransient,
		},
		photoRetry: retry.Config{
			MaxAttempts: photoMaxAttempts,
			Schedule:    retry.Constant(photoRetryDelay),
			IsRetryable: platforms.IsTransient,
		},
	}
}

// ObserveRetries registers a hook called once per retried provider call.
func (c *Client) ObserveRetries(fn func(attempt int)) {
	c.linkRetry.OnRetry = fn
	c.photoRetry.OnRetry = fn
}

// Publish posts the article to the page. When photoURL is set it attempts a
// photo post with the short caption first and falls back once to a link post
// carrying the full message; the link post is the floor guarantee. Returns
// the page post id.
func (c *Client) Publish(ctx context.Context, creds models.FacebookCredentials, message, caption, link, photoURL string) (string, error) {
	if photoURL != "" {
		postID, err := c.PublishPhotoPost(ctx, creds, photoURL, caption)
		if err == nil {
			return postID, nil
		}
		c.logger.Warn("Facebook photo post failed, falling back to link post",
			logger.String("page_id", creds.PageID),
			logger.Error(err),
		)
	}

	return c.PublishLinkPost(ctx, creds, link, message)
}

// PublishPhotoPost publishes a photo with caption to the page feed.
func (c *Client) PublishPhotoPost(ctx context.Context, creds models.FacebookCredentials, photoURL, caption string) (string, error) {
	params := url.Values{}
	params.Set("access_token", creds.AccessToken)
	params.Set("url", platforms.EncodeMediaURL(photoURL))
	params.Set("caption", caption)
	params.Set("published", "true")

	endpoint := fmt.Sprintf("%s/%s/photos", c.baseURL, creds.PageID)

	var resp postResponse
	err := retry.Do(ctx, c.photoRetry, func() error {
		return c.post(ctx, "photos", endpoint, params, &resp)
	})
	if err != nil {
		return "", err
	}

	postID := resp.PostID
	if postID == "" {
		postID = resp.ID
	}
	c.logger.Info("Facebook photo post published",
		logger.String("post_id", postID),
	)
	return postID, nil
}

// PublishLinkPost publishes a feed post carrying the article link, so the
// page renders a link preview.
func (c *Client) PublishLinkPost(ctx context.Context, creds models.FacebookCredentials, link, message string) (string, error) {
	params := url.Values{}
	params.Set("access_token", creds.AccessToken)
	if link != "" {
		params.Set("link", link)
	}
	if message != "" {
		params.Set("message", message)
	}

	endpoint := fmt.Sprintf("%s/%s/feed", c.baseURL, creds.PageID)

	var resp postResponse
	err := retry.Do(ctx, c.linkRetry, func() error {
		return c.post(ctx, "feed", endpoint, params, &resp)
	})
	if err != nil {
		return "", err
	}

	c.logger.Info("Facebook link post published",
		logger.String("post_id", resp.ID),
	)
	return resp.ID, nil
}

type postResponse struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

type errorResponse struct {
	Error struct {
		Message     string `json:"message"`
		Type        string `json:"type"`
		Code        int    `json:"code"`
		IsTransient bool   `json:"is_transient"`
	} `json:"error"`
}

func (c *Client) post(ctx context.Context, op, endpoint string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &platforms.ProviderError{
			Platform:  models.PlatformFacebook,
			Op:        op,
			Message:   err.Error(),
			Transient: true,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &platforms.ProviderError{
			Platform:  models.PlatformFacebook,
			Op:        op,
			Message:   fmt.Sprintf("read response: %v", err),
			Transient: true,
		}
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		_ = json.Unmarshal(body, &apiErr)
		message := apiErr.Error.Message
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return &platforms.ProviderError{
			Platform:   models.PlatformFacebook,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    message,
			Transient:  apiErr.Error.IsTransient || platforms.RetryableStatus(resp.StatusCode),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &platforms.ProviderError{
			Platform: models.PlatformFacebook,
			Op:       op,
			Message:  fmt.Sprintf("decode response: %v", err),
		}
	}
	return nil
}
