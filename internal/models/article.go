package models

import "time"

// Article is the read-only view of an article as the publication engine sees
// it. The article service owns the full record; this subsystem never writes
// back to it.
type Article struct {
	ID            string    `db:"id"              json:"id"`
	TitleKZ       string    `db:"title_kz"        json:"title_kz"`
	TitleRU       string    `db:"title_ru"        json:"title_ru"`
	ExcerptKZ     string    `db:"excerpt_kz"      json:"excerpt_kz"`
	ExcerptRU     string    `db:"excerpt_ru"      json:"excerpt_ru"`
	SlugKZ        string    `db:"slug_kz"         json:"slug_kz"`
	SlugRU        string    `db:"slug_ru"         json:"slug_ru"`
	CoverImageURL string    `db:"cover_image_url" json:"cover_image_url"`
	VideoURL      string    `db:"video_url"       json:"video_url"`
	IsBreaking    bool      `db:"is_breaking"     json:"is_breaking"`
	PublishedAt   time.Time `db:"published_at"    json:"published_at"`

	Category *Category `db:"-" json:"category,omitempty"`
	Tags     []Tag     `db:"-" json:"tags,omitempty"`
}

// Category holds the bilingual category names attached to an article.
type Category struct {
	NameKZ string `db:"name_kz" json:"name_kz"`
	NameRU string `db:"name_ru" json:"name_ru"`
}

// Tag holds the bilingual tag names attached to an article.
type Tag struct {
	NameKZ string `db:"name_kz" json:"name_kz"`
	NameRU string `db:"name_ru" json:"name_ru"`
}

// Title returns the article title in the requested language.
func (a *Article) Title(lang Language) string {
	if lang == LanguageKZ {
		return a.TitleKZ
	}
	return a.TitleRU
}

// Excerpt returns the article excerpt in the requested language.
func (a *Article) Excerpt(lang Language) string {
	if lang == LanguageKZ {
		return a.ExcerptKZ
	}
	return a.ExcerptRU
}

// Slug returns the URL slug in the requested language.
func (a *Article) Slug(lang Language) string {
	if lang == LanguageKZ {
		return a.SlugKZ
	}
	return a.SlugRU
}

// CategoryName returns the category name in the requested language, or an
// empty string when the article has no category.
func (a *Article) CategoryName(lang Language) string {
	if a.Category == nil {
		return ""
	}
	if lang == LanguageKZ {
		return a.Category.NameKZ
	}
	return a.Category.NameRU
}

// TagNames returns the tag names in the requested language, preserving order.
func (a *Article) TagNames(lang Language) []string {
	if len(a.Tags) == 0 {
		return nil
	}
	names := make([]string, 0, len(a.Tags))
	for _, tag := range a.Tags {
		if lang == LanguageKZ {
			names = append(names, tag.NameKZ)
		} else {
			names = append(names, tag.NameRU)
		}
	}
	return names
}
