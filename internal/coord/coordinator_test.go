package coord

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abelbrown/medwatch/internal/model"
	"github.com/abelbrown/medwatch/internal/news"
	"github.com/abelbrown/medwatch/internal/otel"
	"github.com/abelbrown/medwatch/internal/store"
)

// mockRunner implements the runner interface for testing. When block is
// set, each Run waits for a release or for cancellation.
type mockRunner struct {
	calls     atomic.Int32
	cancelled atomic.Int32
	block     bool
	release   chan struct{}
}

func newMockRunner(block bool) *mockRunner {
	return &mockRunner{block: block, release: make(chan struct{}, 16)}
}

func (m *mockRunner) Run(ctx context.Context) news.Report {
	n := m.calls.Add(1)
	if m.block {
		select {
		case <-ctx.Done():
			m.cancelled.Add(1)
		case <-m.release:
		}
	}
	started := time.Now()
	return news.Report{
		Result: model.Result{
			RunID:   "run-" + string(rune('0'+n)),
			Started: started,
			Categories: []model.CategoryResult{{
				Category: model.Category{Key: "clinical"},
				Articles: []model.Article{
					{Title: "Essai clinique", Lang: model.LangFR},
					{Title: "Clinical trial", Lang: model.LangEN},
				},
			}},
			Finished: started.Add(time.Second),
		},
		Outcomes: []news.Outcome{
			{Category: "clinical", Source: "INSERM", OK: true, Proxy: "corsproxy", Candidates: 4, Dur: 300 * time.Millisecond},
			{Category: "clinical", Source: "PubMed", OK: false},
		},
	}
}

// updates collects notifications.
type updates struct {
	mu  sync.Mutex
	all []Update
	ch  chan Update
}

func newUpdates() *updates {
	return &updates{ch: make(chan Update, 64)}
}

func (u *updates) notify(up Update) {
	u.mu.Lock()
	u.all = append(u.all, up)
	u.mu.Unlock()
	u.ch <- up
}

func (u *updates) waitDone(t *testing.T) Update {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case up := <-u.ch:
			if up.Done {
				return up
			}
		case <-timeout:
			t.Fatal("timed out waiting for completed run")
			return Update{}
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRefreshBeforeStart(t *testing.T) {
	c := New(newMockRunner(false), Options{})
	if _, err := c.Refresh(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Refresh before Start = %v, want ErrNotStarted", err)
	}
	if _, ok := c.Latest(); ok {
		t.Error("Latest should be empty before any run")
	}
}

func TestStartRunsImmediately(t *testing.T) {
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	r := newMockRunner(false)
	u := newUpdates()
	c := New(r, Options{Refresh: "@every 12h", Store: s, Notify: u.notify})

	ctx, cancel := context.WithCancel(context.Background())
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	done := u.waitDone(t)
	cancel()
	c.Wait()

	if done.Generation != 1 {
		t.Errorf("generation = %d, want 1", done.Generation)
	}
	latest, ok := c.Latest()
	if !ok || latest.Result.RunID != done.Report.Result.RunID {
		t.Errorf("latest = %+v, %v", latest.Result.RunID, ok)
	}

	runs, err := s.RecentRuns(10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("recorded runs = %v, %v", runs, err)
	}
	if runs[0].Articles != 2 || runs[0].English != 1 {
		t.Errorf("recorded run = %+v", runs[0])
	}
	fetches, _ := s.RunFetches(runs[0].ID)
	if len(fetches) != 2 || !fetches[0].OK || fetches[1].OK {
		t.Errorf("recorded fetches = %+v", fetches)
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.all) < 2 || u.all[0].Done {
		t.Errorf("expected a start update before completion: %+v", u.all)
	}
}

func TestStartInvalidSchedule(t *testing.T) {
	c := New(newMockRunner(false), Options{Refresh: "whenever"})
	if err := c.Start(context.Background()); err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func TestRefreshSupersedesInFlightRun(t *testing.T) {
	r := newMockRunner(true)
	u := newUpdates()
	logger := otel.NewNullLogger()
	ring := otel.NewRingBuffer(16)
	logger.SetRingBuffer(ring)
	c := New(r, Options{Notify: u.notify, Logger: logger})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}

	gen, err := c.Refresh()
	if err != nil {
		t.Fatal(err)
	}
	if gen != 2 {
		t.Errorf("refresh generation = %d, want 2", gen)
	}
	waitFor(t, func() bool { return r.cancelled.Load() == 1 })
	r.release <- struct{}{}

	done := u.waitDone(t)
	if done.Generation != 2 {
		t.Errorf("published generation = %d, want 2", done.Generation)
	}

	cancel()
	c.Wait()
	logger.Close()

	if r.cancelled.Load() != 1 {
		t.Errorf("cancelled runs = %d, want 1", r.cancelled.Load())
	}
	if n := ring.CountByKind()[otel.KindRunSuperseded]; n != 1 {
		t.Errorf("superseded events = %d, want 1", n)
	}
	if latest, _ := c.Latest(); latest.Result.RunID != done.Report.Result.RunID {
		t.Errorf("latest run = %s, want %s", latest.Result.RunID, done.Report.Result.RunID)
	}
}

func TestCancelDiscardsInFlightRun(t *testing.T) {
	r := newMockRunner(true)
	u := newUpdates()
	c := New(r, Options{Notify: u.notify})

	ctx, cancel := context.WithCancel(context.Background())
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	c.Wait()

	if _, ok := c.Latest(); ok {
		t.Error("cancelled run should not be published")
	}
	if _, err := c.Refresh(); err == nil {
		t.Error("Refresh after cancel should fail")
	}
}

func TestRunOnce(t *testing.T) {
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	c := New(newMockRunner(false), Options{Store: s})
	rep := c.RunOnce(context.Background())
	if rep.Result.ArticleCount() != 2 {
		t.Errorf("articles = %d", rep.Result.ArticleCount())
	}
	if _, ok := c.Latest(); !ok {
		t.Error("RunOnce should publish its result")
	}
	if c.Generation() != 1 {
		t.Errorf("generation = %d", c.Generation())
	}
	runs, _ := s.RecentRuns(5)
	if len(runs) != 1 {
		t.Errorf("recorded runs = %d, want 1", len(runs))
	}
}

func TestStoreErrorIsLogged(t *testing.T) {
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	logger := otel.NewNullLogger()
	ring := otel.NewRingBuffer(16)
	logger.SetRingBuffer(ring)

	r := newMockRunner(false)
	c := New(r, Options{Store: s, Logger: logger})
	c.RunOnce(context.Background())
	// Same run ID again: the insert fails and must only be logged.
	r.calls.Store(0)
	c.RunOnce(context.Background())
	logger.Close()

	if n := ring.CountByKind()[otel.KindStoreError]; n != 1 {
		t.Errorf("store errors = %d, want 1", n)
	}
	if _, ok := c.Latest(); !ok {
		t.Error("store failure should not hide the result")
	}
}

func TestToRun(t *testing.T) {
	rep := newMockRunner(false).Run(context.Background())
	run := ToRun(rep)
	if run.ID != rep.Result.RunID || run.Categories != 1 || run.Articles != 2 || run.English != 1 {
		t.Errorf("run = %+v", run)
	}
	if len(run.Fetches) != 2 || run.Fetches[0].Duration != 300*time.Millisecond {
		t.Errorf("fetches = %+v", run.Fetches)
	}
}
