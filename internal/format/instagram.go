package format

import (
	"strings"

	"github.com/aimaq/crosspost/internal/models"
)

const (
	instagramExcerptLimit = 150
	instagramMaxHashtags  = 30
	instagramMaxTags      = 10
)

var instagramBrandHashtags = []string{
	"#AIMAK",
	"#Сатпаев",
	"#Satpaev",
	"#Жаңалықтар",
	"#Новости",
	"#Казахстан",
	"#Kazakhstan",
}

// InstagramCaption renders the caption for an Instagram post. Links are not
// clickable in captions, so the site is named in plain text and the caption
// leans on hashtags instead.
func (f *Formatter) InstagramCaption(article *models.Article, lang models.Language) string {
	var b strings.Builder

	b.WriteString(article.Title(lang))
	b.WriteString("\n\n")

	if excerpt := stripHTML(article.Excerpt(lang)); excerpt != "" {
		b.WriteString(truncate(excerpt, instagramExcerptLimit))
		b.WriteString("\n\n")
	}

	b.WriteString("📰 Читайте на сайте aimaqaqshamy.kz\n\n")

	var hashtags []string

	if category := article.CategoryName(lang); category != "" {
		hashtags = append(hashtags, "#"+whitespaceRe.ReplaceAllString(category, ""))
	}

	tags := article.TagNames(lang)
	if len(tags) > instagramMaxTags {
		tags = tags[:instagramMaxTags]
	}
	for _, tag := range tags {
		if clean := hashtagRe.ReplaceAllString(whitespaceRe.ReplaceAllString(tag, ""), ""); clean != "" {
			hashtags = append(hashtags, "#"+clean)
		}
	}

	hashtags = append(hashtags, instagramBrandHashtags...)

	if article.IsBreaking {
		hashtags = append(hashtags, "#СрочнаяНовость", "#Breaking")
	}

	if len(hashtags) > instagramMaxHashtags {
		hashtags = hashtags[:instagramMaxHashtags]
	}
	b.WriteString(strings.Join(hashtags, " "))

	return b.String()
}
