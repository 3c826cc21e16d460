// Package news runs the medical news aggregation: per category, fetch
// every feed and the literature fallback concurrently, merge, and select.
package news

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/medwatch/internal/feed"
	"github.com/abelbrown/medwatch/internal/fetch"
	"github.com/abelbrown/medwatch/internal/model"
	"github.com/abelbrown/medwatch/internal/otel"
	"github.com/abelbrown/medwatch/internal/selection"
)

// DefaultMaxConcurrent bounds parallel fetches within one category.
const DefaultMaxConcurrent = 8

// literatureSource labels the fallback in outcomes.
const literatureSource = "PubMed"

// Getter fetches a document through the proxy chain.
type Getter interface {
	Get(ctx context.Context, target string) fetch.Result
}

// Searcher is the literature fallback.
type Searcher interface {
	Search(ctx context.Context, queries []string, now time.Time) ([]model.Article, bool)
}

// Candidates is what one source contributed to a category pool.
// Present is false when the source could not be reached at all, as
// opposed to answering with nothing usable.
type Candidates struct {
	Source   string
	Articles []model.Article
	Present  bool
	Proxy    string
	Dur      time.Duration
}

// Outcome records one source fetch of a run.
type Outcome struct {
	Category   string
	Source     string
	OK         bool
	Proxy      string
	Candidates int
	Dur        time.Duration
}

// Report is the result of a run plus per-source outcomes.
type Report struct {
	Result   model.Result
	Outcomes []Outcome
}

// Options tunes an Aggregator.
type Options struct {
	MaxConcurrent int
	Logger        *otel.Logger
	Now           func() time.Time
}

// Aggregator builds a fresh Result on every Run. It keeps no state
// between runs, so concurrent Runs are independent.
type Aggregator struct {
	getter        Getter
	searcher      Searcher // nil disables the literature fallback
	categories    []model.Category
	maxConcurrent int
	logger        *otel.Logger
	now           func() time.Time
}

// New creates an Aggregator over categories, in order.
func New(g Getter, s Searcher, categories []model.Category, opts Options) *Aggregator {
	cats := make([]model.Category, len(categories))
	copy(cats, categories)

	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.Logger == nil {
		opts.Logger = otel.NewNullLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Aggregator{
		getter:        g,
		searcher:      s,
		categories:    cats,
		maxConcurrent: opts.MaxConcurrent,
		logger:        opts.Logger,
		now:           opts.Now,
	}
}

// Categories returns the configured categories.
func (a *Aggregator) Categories() []model.Category {
	out := make([]model.Category, len(a.categories))
	copy(out, a.categories)
	return out
}

// Run aggregates every category. It never fails: sources that cannot be
// reached contribute nothing, and a cancelled ctx yields whatever was
// gathered so far.
//
// Categories are processed one after another; the used-title set is
// threaded from one to the next.
func (a *Aggregator) Run(ctx context.Context) Report {
	now := a.now()
	runID := uuid.NewString()
	ctx = otel.WithRunID(ctx, runID)
	a.logger.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindRunStart, Comp: "news", RunID: runID, Count: len(a.categories)})

	report := Report{Result: model.Result{RunID: runID, Started: now}}
	used := selection.TitleSet{}

	for _, cat := range a.categories {
		cands := a.gather(ctx, runID, cat, now)
		var res model.CategoryResult
		used, res = Step(used, cat, cands, now)
		report.Result.Categories = append(report.Result.Categories, res)

		for _, c := range cands {
			report.Outcomes = append(report.Outcomes, Outcome{
				Category:   cat.Key,
				Source:     c.Source,
				OK:         c.Present,
				Proxy:      c.Proxy,
				Candidates: len(c.Articles),
				Dur:        c.Dur,
			})
		}

		a.logger.Emit(otel.Event{
			Level:    otel.LevelInfo,
			Kind:     otel.KindCategoryComplete,
			Comp:     "news",
			RunID:    runID,
			Category: cat.Key,
			Count:    len(res.Articles),
			Extra:    map[string]any{"en": res.EnglishCount()},
		})
	}

	report.Result.Finished = a.now()
	a.logger.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindRunComplete,
		Comp:  "news",
		RunID: runID,
		Count: report.Result.ArticleCount(),
		Dur:   report.Result.Finished.Sub(report.Result.Started),
	})
	return report
}

// Step is one fold step: merge a category's candidates into a date-sorted
// pool and select from it against the titles used so far.
func Step(used selection.TitleSet, cat model.Category, cands []Candidates, now time.Time) (selection.TitleSet, model.CategoryResult) {
	pool := Merge(cands)
	picked, next := selection.Select(pool, used, now)
	return next, model.CategoryResult{Category: cat, Articles: picked}
}

// Merge concatenates candidates in source order and sorts them newest first.
func Merge(cands []Candidates) []model.Article {
	n := 0
	for _, c := range cands {
		n += len(c.Articles)
	}
	pool := make([]model.Article, 0, n)
	for _, c := range cands {
		pool = append(pool, c.Articles...)
	}
	selection.SortByDate(pool)
	return pool
}

// gather fetches every feed of cat plus the literature fallback in
// parallel. The returned slice is in source order, with the literature
// fallback last, whatever order the fetches finished in.
func (a *Aggregator) gather(ctx context.Context, runID string, cat model.Category, now time.Time) []Candidates {
	n := len(cat.Sources)
	withSearch := a.searcher != nil && len(cat.Queries) > 0
	if withSearch {
		n++
	}
	out := make([]Candidates, n)

	var g errgroup.Group
	g.SetLimit(a.maxConcurrent)

	for i, src := range cat.Sources {
		g.Go(func() error {
			out[i] = a.fetchSource(ctx, runID, cat.Key, src, now)
			return nil // per-source failures are data, not errors
		})
	}
	if withSearch {
		g.Go(func() error {
			start := time.Now()
			articles, ok := a.searcher.Search(ctx, cat.Queries, now)
			out[n-1] = Candidates{
				Source:   literatureSource,
				Articles: articles,
				Present:  ok,
				Dur:      time.Since(start),
			}
			return nil
		})
	}

	_ = g.Wait()
	return out
}

func (a *Aggregator) fetchSource(ctx context.Context, runID, category string, src model.Source, now time.Time) Candidates {
	start := time.Now()
	res := a.getter.Get(ctx, src.URL)
	if !res.OK {
		a.logger.Emit(otel.Event{
			Level:    otel.LevelWarn,
			Kind:     otel.KindFetchError,
			Comp:     "news",
			RunID:    runID,
			Category: category,
			Source:   src.Name,
			Dur:      time.Since(start),
			Err:      "all proxies failed",
		})
		return Candidates{Source: src.Name, Dur: time.Since(start)}
	}

	articles := feed.Parse(res.Body, feed.Meta{Source: src.Name, Lang: model.LangFR, Official: src.Official}, now)
	a.logger.Emit(otel.Event{
		Level:    otel.LevelInfo,
		Kind:     otel.KindFetchComplete,
		Comp:     "news",
		RunID:    runID,
		Category: category,
		Source:   src.Name,
		Proxy:    res.Proxy,
		Count:    len(articles),
		Dur:      time.Since(start),
	})
	return Candidates{
		Source:   src.Name,
		Articles: articles,
		Present:  true,
		Proxy:    res.Proxy,
		Dur:      time.Since(start),
	}
}
