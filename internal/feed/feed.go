// Package feed turns raw RSS/Atom text into candidate articles.
package feed

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/abelbrown/medwatch/internal/model"
)

// AbstractLen is the maximum length of an abstract before the ellipsis.
const AbstractLen = 180

// minTitleLen: titles of this many characters or fewer are dropped.
const minTitleLen = 5

// Meta describes where a feed came from.
type Meta struct {
	Source   string
	Lang     model.Lang
	Official bool
}

// Parse extracts articles from raw feed text. Items older than
// model.MaxAge and items with short titles are dropped. Unparseable
// input yields nil, never an error.
//
// An item without a usable date is stamped with now. This keeps
// undated content visible at the cost of ranking it as fresh.
func Parse(raw []byte, meta Meta, now time.Time) []model.Article {
	if len(raw) == 0 {
		return nil
	}
	parsed, err := gofeed.NewParser().ParseString(string(raw))
	if err != nil {
		return nil
	}

	articles := make([]model.Article, 0, len(parsed.Items))
	for i, item := range parsed.Items {
		if item == nil {
			continue
		}
		a, ok := convertItem(item, i, meta, now)
		if !ok {
			continue
		}
		articles = append(articles, a)
	}
	return articles
}

func convertItem(item *gofeed.Item, i int, meta Meta, now time.Time) (model.Article, bool) {
	published, raw := publishedAt(item, now)
	if !model.IsFresh(published, now) {
		return model.Article{}, false
	}

	title := strings.TrimSpace(item.Title)
	if utf8.RuneCountInString(title) <= minTitleLen {
		return model.Article{}, false
	}

	desc := item.Description
	if desc == "" {
		desc = item.Content
	}

	return model.Article{
		ID:           model.ArticleID(meta.Source, i, now),
		Title:        title,
		Abstract:     Abstract(desc),
		Journal:      meta.Source,
		Source:       meta.Source,
		Published:    published,
		PublishedRaw: raw,
		URL:          strings.TrimSpace(item.Link),
		Lang:         meta.Lang,
		Official:     meta.Official,
		IsNew:        model.IsNew(published, now),
	}, true
}

// publishedAt returns the item date and its raw form. An unparseable date
// keeps the publisher's string but is stamped now.
func publishedAt(item *gofeed.Item, now time.Time) (time.Time, string) {
	switch {
	case item.PublishedParsed != nil:
		return *item.PublishedParsed, item.Published
	case item.UpdatedParsed != nil:
		return *item.UpdatedParsed, item.Updated
	case item.Published != "":
		return now, item.Published
	case item.Updated != "":
		return now, item.Updated
	}
	return now, now.Format(time.RFC3339)
}

// Abstract renders HTML to plain text, cuts it to AbstractLen characters
// and appends an ellipsis.
func Abstract(html string) string {
	text := PlainText(html)
	if text == "" {
		return ""
	}
	if utf8.RuneCountInString(text) > AbstractLen {
		text = strings.TrimSpace(string([]rune(text)[:AbstractLen]))
	}
	return text + "..."
}

// PlainText strips markup and collapses whitespace.
func PlainText(html string) string {
	if !strings.ContainsAny(html, "<&") {
		return strings.Join(strings.Fields(html), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
