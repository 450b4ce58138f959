package models

import "fmt"

// Platform identifies a target social network.
type Platform string

const (
	PlatformTelegram  Platform = "TELEGRAM"
	PlatformInstagram Platform = "INSTAGRAM"
	PlatformTikTok    Platform = "TIKTOK"
	PlatformFacebook  Platform = "FACEBOOK"
)

// AllPlatforms lists every supported platform in canonical order.
var AllPlatforms = []Platform{
	PlatformTelegram,
	PlatformInstagram,
	PlatformTikTok,
	PlatformFacebook,
}

// Valid reports whether p is a known platform identifier.
func (p Platform) Valid() bool {
	switch p {
	case PlatformTelegram, PlatformInstagram, PlatformTikTok, PlatformFacebook:
		return true
	}
	return false
}

func (p Platform) String() string {
	return string(p)
}

// ParsePlatform converts a string into a Platform, rejecting unknown values.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
	}
	return p, nil
}

// Language selects which of the two content languages a post is written in.
type Language string

const (
	LanguageKZ Language = "kz"
	LanguageRU Language = "ru"
)

// Valid reports whether l is a supported content language.
func (l Language) Valid() bool {
	return l == LanguageKZ || l == LanguageRU
}
