// Package format renders articles into per-network post bodies. Each network
// gets its own renderer because limits and conventions differ: Telegram takes
// HTML, Instagram wants a hashtag-heavy caption, TikTok a short title plus
// description, Facebook a link-preview friendly message.
package format

import (
	"regexp"
	"strings"

	"github.com/aimaq/crosspost/internal/models"
)

// DefaultSiteURL is the public site the posts link back to.
const DefaultSiteURL = "https://aimaqaqshamy.kz"

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)

	// Hashtags keep word characters plus the Russian alphabet and the extra
	// Kazakh letters; everything else is stripped.
	hashtagRe = regexp.MustCompile(`[^0-9A-Za-z_А-Яа-яЁёӘәІіҢңҒғҮүҰұҚқӨөҺһ]`)
)

// Formatter renders bilingual articles into post bodies for every supported
// network.
type Formatter struct {
	siteURL string
}

// New creates a Formatter linking back to siteURL; an empty siteURL uses the
// production site.
func New(siteURL string) *Formatter {
	if siteURL == "" {
		siteURL = DefaultSiteURL
	}
	return &Formatter{siteURL: strings.TrimRight(siteURL, "/")}
}

// ArticleURL returns the public article URL for the given language.
func (f *Formatter) ArticleURL(article *models.Article, lang models.Language) string {
	return f.siteURL + "/" + string(lang) + "/articles/" + article.Slug(lang)
}

// stripHTML removes markup and decodes the handful of entities the editor
// produces.
func stripHTML(html string) string {
	text := htmlTagRe.ReplaceAllString(html, "")
	replacer := strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
	return strings.TrimSpace(replacer.Replace(text))
}

// truncate cuts text to at most limit characters, appending an ellipsis when
// anything was cut. Counts runes, not bytes: the corpus is mostly Cyrillic.
func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

// cleanHashtag turns free text into a lowercase hashtag body, dropping
// whitespace and punctuation. Returns an empty string when nothing survives.
func cleanHashtag(text string) string {
	collapsed := whitespaceRe.ReplaceAllString(text, "")
	return strings.ToLower(hashtagRe.ReplaceAllString(collapsed, ""))
}

// appendUnique appends tag to tags unless an equal entry (case-insensitive)
// is already present.
func appendUnique(tags []string, tag string) []string {
	for _, existing := range tags {
		if strings.EqualFold(existing, tag) {
			return tags
		}
	}
	return append(tags, tag)
}
