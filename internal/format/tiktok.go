package format

import (
	"strings"

	"github.com/aimaq/crosspost/internal/models"
)

const (
	tiktokTitleLimit   = 147
	tiktokExcerptLimit = 200
	tiktokMaxHashtags  = 5
	tiktokMaxTags      = 3
)

// TikTokPost is the rendered title and description for a TikTok photo post.
type TikTokPost struct {
	Title       string
	Description string
}

// TikTokPost renders the short-form post body. TikTok caps titles at 150
// characters and recommends at most five hashtags, so the description keeps
// only the leading tags and a compact brand set.
func (f *Formatter) TikTokPost(article *models.Article, lang models.Language) TikTokPost {
	var b strings.Builder

	if excerpt := stripHTML(article.Excerpt(lang)); excerpt != "" {
		b.WriteString(truncate(excerpt, tiktokExcerptLimit))
		b.WriteString("\n\n")
	}

	b.WriteString("🔗 ")
	b.WriteString(f.ArticleURL(article, lang))
	b.WriteString("\n\n")

	var hashtags []string

	if clean := cleanHashtag(article.CategoryName(lang)); clean != "" {
		hashtags = append(hashtags, "#"+clean)
	}

	tags := article.TagNames(lang)
	if len(tags) > tiktokMaxTags {
		tags = tags[:tiktokMaxTags]
	}
	for _, tag := range tags {
		if clean := cleanHashtag(tag); clean != "" {
			hashtags = appendUnique(hashtags, "#"+clean)
		}
	}

	newsTag := "#новости"
	if lang == models.LanguageKZ {
		newsTag = "#жаналықтар"
	}
	for _, brand := range []string{"#AIMAK", "#Сатпаев", newsTag, "#Казахстан"} {
		hashtags = appendUnique(hashtags, brand)
	}

	if article.IsBreaking {
		urgentTag := "#срочно"
		if lang == models.LanguageKZ {
			urgentTag = "#шұғыл"
		}
		hashtags = append([]string{urgentTag, "#breaking"}, hashtags...)
	}

	if len(hashtags) > tiktokMaxHashtags {
		hashtags = hashtags[:tiktokMaxHashtags]
	}
	b.WriteString(strings.Join(hashtags, " "))

	return TikTokPost{
		Title:       truncate(article.Title(lang), tiktokTitleLimit),
		Description: strings.TrimSpace(b.String()),
	}
}
