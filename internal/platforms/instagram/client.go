// Package instagram implements the two-phase adapter for the media-container
// network: create a container, poll it until FINISHED, then publish it with
// an explicit finalize call.
package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aimaq/crosspost/internal/httpx"
	"github.com/aimaq/crosspost/internal/logger"
	"github.com/aimaq/crosspost/internal/models"
	"github.com/aimaq/crosspost/internal/platforms"
	"github.com/aimaq/crosspost/internal/retry"
)

const (
	// Instagram-scoped tokens (IG...) talk to graph.instagram.com; page
	// tokens (EAA...) talk to graph.facebook.com.
	instagramBaseURL = "https://graph.instagram.com"
	facebookBaseURL  = "https://graph.facebook.com/v21.0"

	createMaxAttempts = 4
	createRetryBase   = 2 * time.Second
	createRetryCap    = 8 * time.Second

	statusInterval    = 3 * time.Second
	statusMaxAttempts = 20

	// Provider error code 2 is the documented transient failure code.
	transientErrorCode = 2
)

// Client publishes posts and reels to an Instagram business account.
type Client struct {
	igBaseURL  string
	fbBaseURL  string
	httpClient *http.Client
	logger     logger.Logger

	callRetry retry.Config
	poll      platforms.PollConfig
}

// NewClient creates an Instagram adapter with the production retry and poll
// budgets.
func NewClient(log logger.Logger) *Client {
	return &Client{
		igBaseURL:  instagramBaseURL,
		fbBaseURL:  facebookBaseURL,
		httpClient: httpx.NewDefaultClient(),
		logger:     log,
		callRetry: retry.Config{
			MaxAttempts: createMaxAttempts,
			Schedule:    retry.Exponential(createRetryBase, createRetryCap),
			IsRetryable: platforms.IsTransient,
		},
		poll: platforms.PollConfig{
			Interval:    statusInterval,
			MaxAttempts: statusMaxAttempts,
		},
	}
}

// ObserveRetries registers a hook called once per retried provider call.
func (c *Client) ObserveRetries(fn func(attempt int)) {
	c.callRetry.OnRetry = fn
}

// PublishPost runs the full image flow: container create, readiness poll,
// explicit publish. Returns the public media id from the finalize call.
func (c *Client) PublishPost(ctx context.Context, creds models.InstagramCredentials, imageURL, caption string) (string, error) {
	containerID, err := c.createContainer(ctx, creds, url.Values{
		"image_url": {platforms.EncodeMediaURL(imageURL)},
		"caption":   {caption},
	})
	if err != nil {
		return "", err
	}

	if err := c.waitReady(ctx, creds, containerID); err != nil {
		return "", err
	}

	return c.publishContainer(ctx, creds, containerID)
}

// PublishReels runs the same flow for a video container shared to the feed.
func (c *Client) PublishReels(ctx context.Context, creds models.InstagramCredentials, videoURL, caption string) (string, error) {
	containerID, err := c.createContainer(ctx, creds, url.Values{
		"media_type":    {"REELS"},
		"video_url":     {platforms.EncodeMediaURL(videoURL)},
		"caption":       {caption},
		"share_to_feed": {"true"},
	})
	if err != nil {
		return "", err
	}

	if err := c.waitReady(ctx, creds, containerID); err != nil {
		return "", err
	}

	return c.publishContainer(ctx, creds, containerID)
}

func (c *Client) createContainer(ctx context.Context, creds models.InstagramCredentials, params url.Values) (string, error) {
	params.Set("access_token", creds.AccessToken)
	endpoint := fmt.Sprintf("%s/%s/media", c.apiURL(creds.AccessToken), creds.AccountID)

	var resp struct {
		ID string `json:"id"`
	}
	err := retry.Do(ctx, c.callRetry, func() error {
		return c.post(ctx, "createContainer", endpoint, params, &resp)
	})
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", &platforms.ProviderError{
			Platform: models.PlatformInstagram,
			Op:       "createContainer",
			Message:  "no container id in response",
		}
	}

	c.logger.Info("Media container created",
		logger.String("container_id", resp.ID),
	)
	return resp.ID, nil
}

// waitReady polls the container until it is ready for publishing. A poll
// budget exhausted without a terminal status is a hard failure for this
// network; the finalize call is never issued for an unready container.
func (c *Client) waitReady(ctx context.Context, creds models.InstagramCredentials, containerID string) error {
	outcome, err := platforms.Poll(ctx, models.PlatformInstagram, containerID, c.poll, func(ctx context.Context) (platforms.PollOutcome, error) {
		return c.checkStatus(ctx, creds, containerID)
	})
	if err != nil {
		return err
	}

	switch outcome.Kind {
	case platforms.PollReady:
		return nil
	case platforms.PollExpired:
		return &platforms.ProcessingError{
			Platform: models.PlatformInstagram,
			JobID:    containerID,
			Reason:   "container expired before publishing",
		}
	default:
		reason := outcome.Reason
		if reason == "" {
			reason = "container processing failed"
		}
		return &platforms.ProcessingError{
			Platform: models.PlatformInstagram,
			JobID:    containerID,
			Reason:   reason,
		}
	}
}

// checkStatus maps the provider's status vocabulary (IN_PROGRESS, FINISHED,
// ERROR, EXPIRED) into the normalized poll outcome. Unrecognized statuses
// keep polling.
func (c *Client) checkStatus(ctx context.Context, creds models.InstagramCredentials, containerID string) (platforms.PollOutcome, error) {
	params := url.Values{}
	params.Set("fields", "status_code,status")
	params.Set("access_token", creds.AccessToken)

	endpoint := fmt.Sprintf("%s/%s", c.apiURL(creds.AccessToken), containerID)

	var resp struct {
		StatusCode string `json:"status_code"`
		Status     string `json:"status"`
	}
	if err := c.get(ctx, "containerStatus", endpoint, params, &resp); err != nil {
		return platforms.PollOutcome{}, err
	}

	switch resp.StatusCode {
	case "FINISHED":
		return platforms.PollOutcome{Kind: platforms.PollReady}, nil
	case "ERROR":
		return platforms.PollOutcome{Kind: platforms.PollFailed, Reason: resp.Status}, nil
	case "EXPIRED":
		return platforms.PollOutcome{Kind: platforms.PollExpired, Reason: resp.Status}, nil
	default:
		return platforms.PollOutcome{Kind: platforms.PollWaiting}, nil
	}
}

func (c *Client) publishContainer(ctx context.Context, creds models.InstagramCredentials, containerID string) (string, error) {
	params := url.Values{}
	params.Set("creation_id", containerID)
	params.Set("access_token", creds.AccessToken)

	endpoint := fmt.Sprintf("%s/%s/media_publish", c.apiURL(creds.AccessToken), creds.AccountID)

	var resp struct {
		ID string `json:"id"`
	}
	err := retry.Do(ctx, c.callRetry, func() error {
		return c.post(ctx, "publishMedia", endpoint, params, &resp)
	})
	if err != nil {
		return "", err
	}

	c.logger.Info("Media published",
		logger.String("media_id", resp.ID),
	)
	return resp.ID, nil
}

func (c *Client) apiURL(accessToken string) string {
	if strings.HasPrefix(accessToken, "IG") {
		return c.igBaseURL
	}
	return c.fbBaseURL
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
	return c.do(op, req, out)
}

func (c *Client) get(ctx context.Context, op, endpoint string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	return c.do(op, req, out)
}

func (c *Client) do(op string, req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &platforms.ProviderError{
			Platform:  models.PlatformInstagram,
			Op:        op,
			Message:   err.Error(),
			Transient: true,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &platforms.ProviderError{
			Platform:  models.PlatformInstagram,
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
			Platform:   models.PlatformInstagram,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    message,
			Transient: apiErr.Error.IsTransient ||
				apiErr.Error.Code == transientErrorCode ||
				platforms.RetryableStatus(resp.StatusCode),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &platforms.ProviderError{
			Platform: models.PlatformInstagram,
			Op:       op,
			Message:  fmt.Sprintf("decode response: %v", err),
		}
	}
	return nil
}
