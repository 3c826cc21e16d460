package model

import "time"

// CategoryResult is the selected article list of one category.
type CategoryResult struct {
	Category Category  `json:"category"`
	Articles []Article `json:"articles"`
}

// EnglishCount returns how many selected articles are tagged English.
func (c CategoryResult) EnglishCount() int {
	n := 0
	for _, a := range c.Articles {
		if a.IsEnglish() {
			n++
		}
	}
	return n
}

// Result is the output of one aggregation run. Categories keep
// configuration order.
type Result struct {
	RunID      string           `json:"run_id"`
	Started    time.Time        `json:"started"`
	Finished   time.Time        `json:"finished"`
	Categories []CategoryResult `json:"categories"`
}

// Category returns the result for key, if present.
func (r Result) Category(key string) (CategoryResult, bool) {
	for _, c := range r.Categories {
		if c.Category.Key == key {
			return c, true
		}
	}
	return CategoryResult{}, false
}

// ArticleCount returns the number of articles across all categories.
func (r Result) ArticleCount() int {
	n := 0
	for _, c := range r.Categories {
		n += len(c.Articles)
	}
	return n
}

// Empty reports whether no category has any article.
func (r Result) Empty() bool {
	return r.ArticleCount() == 0
}
