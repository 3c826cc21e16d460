// Package selection picks the articles shown for one category.
//
// Select is a pure step of a fold over the ordered categories: it takes
// the titles already used by earlier categories and returns the extended
// set alongside its picks, so nothing is shared between categories except
// what the caller threads through.
package selection

import (
	"slices"
	"strings"
	"time"

	"github.com/abelbrown/medwatch/internal/model"
)

// Per-category limits.
const (
	MaxArticles = 8
	MaxEnglish  = 3
)

// MedicalKeywords gate relevance: an article must mention at least one of
// these (case-insensitive substring of title + abstract).
var MedicalKeywords = []string{
	"patient", "médical", "santé", "thérapeutique", "diagnostic", "clinique", "chirurgie",
	"médecin", "hôpital", "traitement", "biotech", "médicament", "pathologie", "irm",
	"scanner", "cancer", "biologie", "neuro", "cardio", "soins", "vaccin", "molécule",
	"medical", "health", "trial", "diagnosis", "treatment", "surgery", "clinical", "innovation",
}

// TitleSet holds normalized titles already selected in a run.
// Treat it as immutable; Select returns a new set.
type TitleSet map[string]struct{}

// Has reports whether key was used.
func (s TitleSet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

func (s TitleSet) clone() TitleSet {
	out := make(TitleSet, len(s)+MaxArticles)
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Relevant reports whether the article mentions a medical keyword.
func Relevant(a model.Article) bool {
	text := strings.ToLower(a.Title + a.Abstract)
	for _, k := range MedicalKeywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// SortByDate orders articles newest first. Ties keep their input order.
func SortByDate(articles []model.Article) {
	slices.SortStableFunc(articles, func(a, b model.Article) int {
		return b.Published.Compare(a.Published)
	})
}

// Select picks at most MaxArticles from pool, which must already be
// sorted newest first.
//
// The most recent English candidate is taken first, unconditionally
// except for freshness and run-wide title uniqueness, so that every
// category shows at least one English article when one exists. The rest
// is filled in date order, skipping used titles, English articles past
// MaxEnglish, stale items and items without a medical keyword. The
// result is re-sorted newest first.
func Select(pool []model.Article, used TitleSet, now time.Time) ([]model.Article, TitleSet) {
	next := used.clone()
	selected := make([]model.Article, 0, MaxArticles)
	enCount := 0

	for _, a := range pool {
		if !a.IsEnglish() || !model.IsFresh(a.Published, now) {
			continue
		}
		key := model.NormalizeTitle(a.Title)
		if next.Has(key) {
			continue
		}
		selected = append(selected, a)
		next[key] = struct{}{}
		enCount = 1
		break
	}

	for _, a := range pool {
		if len(selected) >= MaxArticles {
			break
		}
		key := model.NormalizeTitle(a.Title)
		if next.Has(key) {
			continue
		}
		if a.IsEnglish() && enCount >= MaxEnglish {
			continue
		}
		if !model.IsFresh(a.Published, now) || !Relevant(a) {
			continue
		}
		selected = append(selected, a)
		next[key] = struct{}{}
		if a.IsEnglish() {
			enCount++
		}
	}

	SortByDate(selected)
	return selected, next
}
