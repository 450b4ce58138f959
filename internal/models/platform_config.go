package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Credentials is the per-network credential blob. Each platform has its own
// concrete type so a Telegram row can never carry TikTok fields.
type Credentials interface {
	// Complete returns nil when every required field is present, otherwise
	// an error naming the first missing field.
	Complete() error
}

// TelegramCredentials authenticates the messaging-bot network.
type TelegramCredentials struct {
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

func (c TelegramCredentials) Complete() error {
	if c.BotToken == "" {
		return errors.New("bot_token is required")
	}
	if c.ChatID == "" {
		return errors.New("chat_id is required")
	}
	return nil
}

// InstagramCredentials authenticates the media-container network.
type InstagramCredentials struct {
	AccessToken string `json:"access_token"`
	AccountID   string `json:"account_id"`
}

func (c InstagramCredentials) Complete() error {
	if c.AccessToken == "" {
		return errors.New("access_token is required")
	}
	if c.AccountID == "" {
		return errors.New("account_id is required")
	}
	return nil
}

// TikTokCredentials authenticates the content-posting network. ClientKey and
// ClientSecret are only needed by the token-refresh endpoint, so Complete
// does not require them for publishing.
type TikTokCredentials struct {
	ClientKey    string `json:"client_key"`
	ClientSecret string `json:"client_secret"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	OpenID       string `json:"open_id"`
}

func (c TikTokCredentials) Complete() error {
	if c.AccessToken == "" {
		return errors.New("access_token is required")
	}
	if c.OpenID == "" {
		return errors.New("open_id is required")
	}
	return nil
}

// FacebookCredentials authenticates the link/feed network.
type FacebookCredentials struct {
	AccessToken string `json:"access_token"`
	PageID      string `json:"page_id"`
}

func (c FacebookCredentials) Complete() error {
	if c.AccessToken == "" {
		return errors.New("access_token is required")
	}
	if c.PageID == "" {
		return errors.New("page_id is required")
	}
	return nil
}

// PlatformConfig is the admin-owned configuration for one network. The
// publication engine treats it as read-only; only the admin API mutates it.
type PlatformConfig struct {
	Platform        Platform  `db:"platform"         json:"platform"`
	Enabled         bool      `db:"enabled"          json:"enabled"`
	DefaultLanguage Language  `db:"default_language" json:"default_language"`
	CredentialsJSON []byte    `db:"credentials"      json:"-"`
	UpdatedAt       time.Time `db:"updated_at"       json:"updated_at"`

	Credentials Credentials `db:"-" json:"credentials,omitempty"`
}

// ParseCredentials decodes CredentialsJSON into the credential type matching
// the row's platform.
func (c *PlatformConfig) ParseCredentials() error {
	blob := c.CredentialsJSON
	if len(blob) == 0 {
		blob = []byte("{}")
	}

	switch c.Platform {
	case PlatformTelegram:
		var creds TelegramCredentials
		if err := json.Unmarshal(blob, &creds); err != nil {
			return fmt.Errorf("parse telegram credentials: %w", err)
		}
		c.Credentials = creds
	case PlatformInstagram:
		var creds InstagramCredentials
		if err := json.Unmarshal(blob, &creds); err != nil {
			return fmt.Errorf("parse instagram credentials: %w", err)
		}
		c.Credentials = creds
	case PlatformTikTok:
		var creds TikTokCredentials
		if err := json.Unmarshal(blob, &creds); err != nil {
			return fmt.Errorf("parse tiktok credentials: %w", err)
		}
		c.Credentials = creds
	case PlatformFacebook:
		var creds FacebookCredentials
		if err := json.Unmarshal(blob, &creds); err != nil {
			return fmt.Errorf("parse facebook credentials: %w", err)
		}
		c.Credentials = creds
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPlatform, c.Platform)
	}

	return nil
}

// Language returns the configured default language, falling back to Kazakh
// when the row carries no valid value.
func (c *PlatformConfig) Language() Language {
	if c.DefaultLanguage.Valid() {
		return c.DefaultLanguage
	}
	return LanguageKZ
}

// Ready reports whether the platform may be published to: it must be enabled
// and carry a complete credential set.
func (c *PlatformConfig) Ready() error {
	if !c.Enabled {
		return fmt.Errorf("%s is disabled", c.Platform)
	}
	if c.Credentials == nil {
		if err := c.ParseCredentials(); err != nil {
			return err
		}
	}
	if err := c.Credentials.Complete(); err != nil {
		return fmt.Errorf("%s configuration incomplete: %w", c.Platform, err)
	}
	return nil
}

// PlatformConfigUpdateRequest is the admin API payload for updating one
// platform's configuration. Credentials replace the stored blob wholesale.
type PlatformConfigUpdateRequest struct {
	Enabled         *bool           `json:"enabled"`
	DefaultLanguage *Language       `json:"default_language"`
	Credentials     json.RawMessage `json:"credentials"`
}
