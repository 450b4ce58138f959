package format

import (
	"fmt"
	"strings"

	"github.com/aimaq/crosspost/internal/models"
)

const telegramMaxTags = 5

// TelegramPost renders the HTML message body for the Telegram channel: bold
// title, full excerpt, italic category, underscore-joined tags, a breaking
// banner and a read-more link.
func (f *Formatter) TelegramPost(article *models.Article, lang models.Language) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📰 <b>%s</b>\n\n", article.Title(lang))

	if excerpt := stripHTML(article.Excerpt(lang)); excerpt != "" {
		b.WriteString(excerpt)
		b.WriteString("\n\n")
	}

	if category := article.CategoryName(lang); category != "" {
		fmt.Fprintf(&b, "🏷 <i>%s</i>\n\n", category)
	}

	if tags := article.TagNames(lang); len(tags) > 0 {
		if len(tags) > telegramMaxTags {
			tags = tags[:telegramMaxTags]
		}
		rendered := make([]string, len(tags))
		for i, tag := range tags {
			rendered[i] = "#" + whitespaceRe.ReplaceAllString(tag, "_")
		}
		b.WriteString(strings.Join(rendered, " "))
		b.WriteString("\n\n")
	}

	if article.IsBreaking {
		b.WriteString("🔥 <b>СРОЧНАЯ НОВОСТЬ</b>\n\n")
	}

	fmt.Fprintf(&b, "📖 <a href=\"%s\">Читать полностью</a>", f.ArticleURL(article, lang))

	return b.String()
}
