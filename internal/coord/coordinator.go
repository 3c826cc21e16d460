// Package coord schedules aggregation runs and publishes their results.
package coord

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/abelbrown/medwatch/internal/news"
	"github.com/abelbrown/medwatch/internal/otel"
	"github.com/abelbrown/medwatch/internal/store"
)

// ErrNotStarted is returned by Refresh before Start.
var ErrNotStarted = errors.New("coordinator not started")

// runner interface for dependency injection (testing).
type runner interface {
	Run(ctx context.Context) news.Report
}

// Update is sent to the subscriber when a run starts and when it
// completes. Superseded runs never produce a Done update.
type Update struct {
	Generation uint64
	Done       bool
	Report     news.Report // set when Done
}

// Options configures a Coordinator.
type Options struct {
	Refresh string       // cron spec; empty disables scheduling
	Store   *store.Store // optional run history
	Logger  *otel.Logger // optional
	Notify  func(Update) // optional; must not block
}

// Coordinator owns the latest Result. Each run replaces it wholesale;
// a run started while another is in flight cancels the older one, whose
// output is then discarded.
// Uses context cancellation as the ONLY stop mechanism.
type Coordinator struct {
	runner  runner
	store   *store.Store
	logger  *otel.Logger
	notify  func(Update)
	refresh string

	mu     sync.Mutex
	ctx    context.Context
	gen    uint64
	cancel context.CancelFunc
	latest news.Report
	has    bool

	wg sync.WaitGroup
}

// New creates a Coordinator around r.
func New(r runner, opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = otel.NewNullLogger()
	}
	return &Coordinator{
		runner:  r,
		store:   opts.Store,
		logger:  opts.Logger,
		notify:  opts.Notify,
		refresh: opts.Refresh,
	}
}

// Start performs an initial run immediately, then one per schedule tick,
// until ctx is cancelled. Call Wait after cancelling.
func (c *Coordinator) Start(ctx context.Context) error {
	var sched *cron.Cron
	if c.refresh != "" {
		sched = cron.New()
		if _, err := sched.AddFunc(c.refresh, func() { _, _ = c.Refresh() }); err != nil {
			return fmt.Errorf("schedule %q: %w", c.refresh, err)
		}
	}

	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	if _, err := c.Refresh(); err != nil {
		return err
	}

	if sched != nil {
		sched.Start()
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			<-ctx.Done()
			<-sched.Stop().Done()
		}()
	}
	return nil
}

// Wait blocks until every background goroutine exits.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Refresh starts a new run in the background and returns its generation.
// Any run still in flight is cancelled.
func (c *Coordinator) Refresh() (uint64, error) {
	c.mu.Lock()
	if c.ctx == nil {
		c.mu.Unlock()
		return 0, ErrNotStarted
	}
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		return 0, c.ctx.Err()
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	runCtx, cancel := context.WithCancel(c.ctx)
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		c.send(Update{Generation: gen})
		rep := c.runner.Run(runCtx)
		c.finish(gen, rep)
	}()
	return gen, nil
}

// RunOnce runs synchronously, records and publishes the result.
func (c *Coordinator) RunOnce(ctx context.Context) news.Report {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	rep := c.runner.Run(ctx)
	c.finish(gen, rep)
	return rep
}

// Latest returns the most recent completed run.
func (c *Coordinator) Latest() (news.Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest, c.has
}

// Generation returns the number of runs started so far.
func (c *Coordinator) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *Coordinator) finish(gen uint64, rep news.Report) {
	c.mu.Lock()
	if gen != c.gen || (c.ctx != nil && c.ctx.Err() != nil) {
		c.mu.Unlock()
		c.logger.Emit(otel.Event{
			Level: otel.LevelInfo,
			Kind:  otel.KindRunSuperseded,
			Comp:  "coord",
			RunID: rep.Result.RunID,
			Extra: map[string]any{"generation": gen},
		})
		return
	}
	c.latest = rep
	c.has = true
	c.cancel = nil
	c.mu.Unlock()

	c.record(rep)
	c.send(Update{Generation: gen, Done: true, Report: rep})
}

func (c *Coordinator) record(rep news.Report) {
	if c.store == nil {
		return
	}
	if err := c.store.RecordRun(ToRun(rep)); err != nil {
		c.logger.Emit(otel.Event{
			Level: otel.LevelError,
			Kind:  otel.KindStoreError,
			Comp:  "coord",
			RunID: rep.Result.RunID,
			Err:   err.Error(),
		})
	}
}

func (c *Coordinator) send(u Update) {
	if c.notify != nil {
		c.notify(u)
	}
}

// ToRun converts a report into its run history row.
func ToRun(rep news.Report) store.Run {
	r := store.Run{
		ID:         rep.Result.RunID,
		Started:    rep.Result.Started,
		Finished:   rep.Result.Finished,
		Categories: len(rep.Result.Categories),
		Articles:   rep.Result.ArticleCount(),
	}
	for _, c := range rep.Result.Categories {
		r.English += c.EnglishCount()
	}
	for _, o := range rep.Outcomes {
		r.Fetches = append(r.Fetches, store.SourceFetch{
			Category:   o.Category,
			Source:     o.Source,
			OK:         o.OK,
			Proxy:      o.Proxy,
			Candidates: o.Candidates,
			Duration:   o.Dur,
		})
	}
	return r
}
