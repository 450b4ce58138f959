// Package telegram implements the direct-publish adapter for the Telegram
// channel: one send call, photo with caption when a cover exists, text-only
// as the floor guarantee.
package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoapi"

	"github.com/aimaq/crosspost/internal/logger"
	"github.com/aimaq/crosspost/internal/models"
	"github.com/aimaq/crosspost/internal/platforms"
	"github.com/aimaq/crosspost/internal/retry"
)

const (
	textMaxAttempts = 3
	textRetryBase   = 2 * time.Second

	// Photos are slower and more failure-prone; fewer retries bound latency.
	photoMaxAttempts = 2
	photoRetryDelay  = 3 * time.Second
)

// botAPI is the slice of the Telegram Bot API the adapter needs. telego.Bot
// satisfies it; tests substitute a fake.
type botAPI interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error)
}

// Client publishes article posts to a Telegram channel.
type Client struct {
	logger logger.Logger
	newBot func(token string) (botAPI, error)

	textRetry  retry.Config
	photoRetry retry.Config
}

// NewClient creates a Telegram adapter with the production retry schedule.
func NewClient(log logger.Logger) *Client {
	return &Client{
		logger: log,
		newBot: func(token string) (botAPI, error) {
			return telego.NewBot(token, telego.WithDefaultLogger(false, false))
		},
		textRetry: retry.Config{
			MaxAttempts: textMaxAttempts,
			Schedule:    retry.Incremental(textRetryBase),
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
	c.textRetry.OnRetry = fn
	c.photoRetry.OnRetry = fn
}

// Publish sends the formatted post to the configured chat. When imageURL is
// set it attempts a photo-with-caption message first and falls back to
// text-only exactly once; image delivery is best effort, text is the floor.
// Returns the Telegram message id as the external identifier.
func (c *Client) Publish(ctx context.Context, creds models.TelegramCredentials, text, imageURL string) (string, error) {
	bot, err := c.newBot(creds.BotToken)
	if err != nil {
		return "", &platforms.ProviderError{
			Platform: models.PlatformTelegram,
			Op:       "init",
			Message:  err.Error(),
		}
	}

	chatID := parseChatID(creds.ChatID)

	if imageURL != "" {
		messageID, photoErr := c.sendPhoto(ctx, bot, chatID, imageURL, text)
		if photoErr == nil {
			return messageID, nil
		}
		c.logger.Warn("Photo send failed, falling back to text message",
			logger.String("chat_id", creds.ChatID),
			logger.Error(photoErr),
		)
	}

	return c.sendMessage(ctx, bot, chatID, text)
}

func (c *Client) sendMessage(ctx context.Context, bot botAPI, chatID telego.ChatID, text string) (string, error) {
	var message *telego.Message
	err := retry.Do(ctx, c.textRetry, func() error {
		var sendErr error
		message, sendErr = bot.SendMessage(ctx, &telego.SendMessageParams{
			ChatID:    chatID,
			Text:      text,
			ParseMode: telego.ModeHTML,
		})
		if sendErr != nil {
			return classify("sendMessage", sendErr)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	c.logger.Info("Telegram message sent",
		logger.Int("message_id", message.MessageID),
	)
	return strconv.Itoa(message.MessageID), nil
}

func (c *Client) sendPhoto(ctx context.Context, bot botAPI, chatID telego.ChatID, imageURL, caption string) (string, error) {
	encoded := platforms.EncodeMediaURL(imageURL)

	var message *telego.Message
	err := retry.Do(ctx, c.photoRetry, func() error {
		var sendErr error
		message, sendErr = bot.SendPhoto(ctx, &telego.SendPhotoParams{
			ChatID:    chatID,
			Photo:     telego.InputFile{URL: encoded},
			Caption:   caption,
			ParseMode: telego.ModeHTML,
		})
		if sendErr != nil {
			return classify("sendPhoto", sendErr)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	c.logger.Info("Telegram photo sent",
		logger.Int("message_id", message.MessageID),
	)
	return strconv.Itoa(message.MessageID), nil
}

// parseChatID accepts either a numeric chat id or an @channel username.
func parseChatID(raw string) telego.ChatID {
	if strings.HasPrefix(raw, "@") {
		return telego.ChatID{Username: raw}
	}
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return telego.ChatID{ID: id}
	}
	return telego.ChatID{Username: raw}
}

// classify converts a telego error into the shared provider taxonomy.
// Bot API error codes mirror HTTP statuses, so 429 and 5xx retry while other
// 4xx rejections surface immediately.
func classify(op string, err error) error {
	var apiErr *telegoapi.Error
	if errors.As(err, &apiErr) {
		return &platforms.ProviderError{
			Platform:   models.PlatformTelegram,
			Op:         op,
			StatusCode: apiErr.ErrorCode,
			Message:    apiErr.Description,
			Transient:  platforms.RetryableStatus(apiErr.ErrorCode),
		}
	}
	// Transport-level failures are worth retrying.
	return &platforms.ProviderError{
		Platform:  models.PlatformTelegram,
		Op:        op,
		Message:   err.Error(),
		Transient: true,
	}
}
