// Package model provides the data types shared by the aggregation pipeline.
package model

import (
	"fmt"
	"time"
	"unicode"
)

// Freshness windows.
const (
	MaxAge    = 365 * 24 * time.Hour
	NewWindow = 48 * time.Hour
)

// normalizedTitleLen is the length of the deduplication key.
const normalizedTitleLen = 80

// Article is a single candidate or selected news item.
// Articles are built fresh on every run and never updated in place.
type Article struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Abstract     string    `json:"abstract,omitempty"` // plain text excerpt
	Journal      string    `json:"journal,omitempty"`
	Source       string    `json:"source"`
	Published    time.Time `json:"published"`
	PublishedRaw string    `json:"published_raw,omitempty"` // date as the publisher wrote it
	URL          string    `json:"url,omitempty"`
	Lang         Lang      `json:"lang"`
	Official     bool      `json:"official,omitempty"`
	IsNew        bool      `json:"is_new,omitempty"`
}

// ArticleID builds the per-run identifier for the i-th item of a source.
func ArticleID(source string, i int, at time.Time) string {
	return fmt.Sprintf("%s-%d-%d", source, i, at.UnixMilli())
}

// IsEnglish reports whether the article counts against the English quota.
func (a Article) IsEnglish() bool {
	return a.Lang == LangEN
}

// IsFresh reports whether published is within MaxAge of now.
func IsFresh(published, now time.Time) bool {
	return !published.Before(now.Add(-MaxAge))
}

// IsNew reports whether published is within NewWindow of now.
func IsNew(published, now time.Time) bool {
	return !published.Before(now.Add(-NewWindow))
}

// NormalizeTitle returns the deduplication key for a title: each rune
// lower-cased with unicode.ToLower, then everything outside [a-z0-9]
// removed, cut to 80 characters. Accented letters are dropped, so "Santé"
// and "Sant" collide; the Kelvin sign folds to "k".
func NormalizeTitle(title string) string {
	b := make([]byte, 0, normalizedTitleLen)
	for _, r := range title {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b = append(b, byte(r))
			if len(b) == normalizedTitleLen {
				break
			}
		}
	}
	return string(b)
}
