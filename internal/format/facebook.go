package format

import (
	"strings"

	"github.com/aimaq/crosspost/internal/models"
)

const (
	facebookExcerptLimit = 300
	facebookCaptionLimit = 250
	facebookMaxHashtags  = 3
	facebookMaxTags      = 2
)

// FacebookPost renders the feed message for a link post: optional breaking
// banner, title, a longer excerpt, category, a bilingual call to action, the
// article link and up to three hashtags.
func (f *Formatter) FacebookPost(article *models.Article, lang models.Language) string {
	var b strings.Builder

	if article.IsBreaking {
		if lang == models.LanguageKZ {
			b.WriteString("🔴 ШҰҒЫЛ ЖАҢАЛЫҚ\n\n")
		} else {
			b.WriteString("🔴 СРОЧНАЯ НОВОСТЬ\n\n")
		}
	}

	b.WriteString("📰 ")
	b.WriteString(article.Title(lang))
	b.WriteString("\n\n")

	if excerpt := stripHTML(article.Excerpt(lang)); excerpt != "" {
		b.WriteString(truncate(excerpt, facebookExcerptLimit))
		b.WriteString("\n\n")
	}

	if category := article.CategoryName(lang); category != "" {
		b.WriteString("📁 ")
		b.WriteString(category)
		b.WriteString("\n\n")
	}

	if lang == models.LanguageKZ {
		b.WriteString("👉 Толық мақаланы оқу үшін сілтемені басыңыз\n\n")
	} else {
		b.WriteString("👉 Нажмите на ссылку, чтобы прочитать полную статью\n\n")
	}

	b.WriteString("🔗 ")
	b.WriteString(f.ArticleURL(article, lang))
	b.WriteString("\n\n")

	b.WriteString(strings.Join(f.facebookHashtags(article, lang, true), " "))

	return b.String()
}

// FacebookPhotoCaption renders the shorter caption used when the post carries
// the cover photo instead of a link preview.
func (f *Formatter) FacebookPhotoCaption(article *models.Article, lang models.Language) string {
	var b strings.Builder

	if article.IsBreaking {
		b.WriteString("🔴 ")
	}
	b.WriteString(article.Title(lang))
	b.WriteString("\n\n")

	if excerpt := stripHTML(article.Excerpt(lang)); excerpt != "" {
		b.WriteString(truncate(excerpt, facebookCaptionLimit))
		b.WriteString("\n\n")
	}

	label := "Подробнее"
	if lang == models.LanguageKZ {
		label = "Толығырақ"
	}
	b.WriteString("📖 ")
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(f.ArticleURL(article, lang))
	b.WriteString("\n\n")

	b.WriteString(strings.Join(f.facebookHashtags(article, lang, false), " "))

	return b.String()
}

// facebookHashtags builds the capped hashtag list. The link post leads with
// the category and includes article tags; the photo caption leads with the
// brand tags.
func (f *Formatter) facebookHashtags(article *models.Article, lang models.Language, includeTags bool) []string {
	var hashtags []string

	category := cleanHashtag(article.CategoryName(lang))

	if includeTags {
		if category != "" {
			hashtags = append(hashtags, "#"+category)
		}
		hashtags = append(hashtags, "#AIMAK", "#Сатпаев")

		tags := article.TagNames(lang)
		if len(tags) > facebookMaxTags {
			tags = tags[:facebookMaxTags]
		}
		for _, tag := range tags {
			if clean := cleanHashtag(tag); clean != "" {
				hashtags = appendUnique(hashtags, "#"+clean)
			}
		}
	} else {
		hashtags = append(hashtags, "#AIMAK", "#Сатпаев")
		if category != "" {
			hashtags = append(hashtags, "#"+category)
		}
	}

	if len(hashtags) > facebookMaxHashtags {
		hashtags = hashtags[:facebookMaxHashtags]
	}
	return hashtags
}
