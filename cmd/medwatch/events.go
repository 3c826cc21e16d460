package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abelbrown/medwatch/internal/otel"
)

// eventFilter selects events from the log. Zero fields match anything.
type eventFilter struct {
	kind     string // prefix, e.g. "proxy"
	minLevel otel.Level
	comp     string
	runID    string
	category string
}

func (f eventFilter) match(ev otel.Event) bool {
	switch {
	case f.kind != "" && !strings.HasPrefix(string(ev.Kind), f.kind):
		return false
	case !ev.Level.AtLeast(f.minLevel):
		return false
	case f.comp != "" && ev.Comp != f.comp:
		return false
	case f.runID != "" && !strings.HasPrefix(ev.RunID, f.runID):
		return false
	case f.category != "" && ev.Category != f.category:
		return false
	}
	return true
}

// logLine is a decoded event with its raw JSON.
type logLine struct {
	ev  otel.Event
	raw []byte
}

func runEvents() {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	tail := fs.Int("tail", 50, "Number of recent events to show")
	follow := fs.Bool("f", false, "Keep printing new events as they arrive")
	var flt eventFilter
	fs.StringVar(&flt.kind, "kind", "", "Event kind prefix (run, category, fetch, proxy, pubmed)")
	level := fs.String("level", "", "Minimum level: debug, info, warn, error")
	fs.StringVar(&flt.comp, "comp", "", "Component: news, fetch, pubmed, coord, main")
	fs.StringVar(&flt.runID, "run", "", "Run ID or prefix")
	fs.StringVar(&flt.category, "category", "", "Category key")
	runs := fs.Bool("runs", false, "Summarize runs instead of listing events")
	rawJSON := fs.Bool("json", false, "Print raw JSON lines")
	fs.Parse(os.Args[1:])
	flt.minLevel = otel.Level(*level)

	path := loadConfig().EventsPath()
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		fmt.Fprintf(os.Stderr, "  No event log at %s; run 'medwatch once' first.\n", path)
		os.Exit(1)
	}
	defer f.Close()

	if *runs {
		for _, s := range summarizeRuns(f, flt, *tail) {
			fmt.Println(s)
		}
		return
	}

	show := func(l logLine) {
		if *rawJSON {
			fmt.Println(string(l.raw))
			return
		}
		fmt.Println(formatEvent(l.ev))
	}

	for _, l := range readTailLines(f, *tail, flt.match) {
		show(l)
	}
	if *follow {
		followLog(f, flt.match, show)
	}
}

// scanEvents calls fn for every event of r that satisfies match.
// Lines that are not valid events are skipped.
func scanEvents(r io.Reader, match func(otel.Event) bool, fn func(logLine)) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		ev, ok := decodeEvent(sc.Bytes())
		if !ok || !match(ev) {
			continue
		}
		fn(logLine{ev: ev, raw: append([]byte(nil), sc.Bytes()...)})
	}
}

// readTailLines returns the last n events of r that satisfy match.
func readTailLines(r io.Reader, n int, match func(otel.Event) bool) []logLine {
	if n <= 0 {
		return nil
	}
	ring := make([]logLine, n)
	seen := 0
	scanEvents(r, match, func(l logLine) {
		ring[seen%n] = l
		seen++
	})

	if seen <= n {
		return ring[:seen]
	}
	start := seen % n
	return append(ring[start:], ring[:start]...)
}

func decodeEvent(b []byte) (otel.Event, bool) {
	var ev otel.Event
	if len(b) == 0 || json.Unmarshal(b, &ev) != nil || ev.Kind == "" {
		return ev, false
	}
	return ev, true
}

// followLog polls r for appended events until the process is killed.
func followLog(r io.Reader, match func(otel.Event) bool, show func(logLine)) {
	br := bufio.NewReader(r)
	var partial []byte
	for {
		chunk, err := br.ReadBytes('\n')
		partial = append(partial, chunk...)
		if err == io.EOF {
			time.Sleep(200 * time.Millisecond)
			continue
		}
		if err != nil {
			return
		}
		line := []byte(strings.TrimRight(string(partial), "\r\n"))
		partial = partial[:0]
		if ev, ok := decodeEvent(line); ok && match(ev) {
			show(logLine{ev: ev, raw: line})
		}
	}
}

func formatEvent(ev otel.Event) string {
	var b strings.Builder
	lvl := strings.ToUpper(string(ev.Level))
	if lvl == "" {
		lvl = "-"
	}
	fmt.Fprintf(&b, "%s %-5s %-7s %-18s", ev.Time.Local().Format("15:04:05.000"), lvl, ev.Comp, ev.Kind)

	if ev.Category != "" {
		fmt.Fprintf(&b, " [%s]", ev.Category)
	}
	if ev.Source != "" {
		b.WriteString(" " + truncate(ev.Source, 50))
	}
	if ev.Proxy != "" {
		b.WriteString(" via " + ev.Proxy)
	}
	if ev.Count > 0 {
		fmt.Fprintf(&b, " n=%d", ev.Count)
	}
	if ev.DurMs > 0 {
		fmt.Fprintf(&b, " %s", time.Duration(ev.DurMs*float64(time.Millisecond)).Round(time.Millisecond))
	}
	if ev.Msg != "" {
		b.WriteString(" - " + ev.Msg)
	}
	if ev.Err != "" {
		b.WriteString(" err=" + ev.Err)
	}
	return b.String()
}

// runSummary aggregates the events of one aggregation run.
type runSummary struct {
	id         string
	start      time.Time
	dur        time.Duration
	articles   int
	fetchErrs  int
	proxyFails int
	superseded bool
	complete   bool
}

func (s runSummary) String() string {
	state := "running"
	switch {
	case s.superseded:
		state = "superseded"
	case s.complete:
		state = fmt.Sprintf("%d articles in %s", s.articles, s.dur.Round(100*time.Millisecond))
	}
	return fmt.Sprintf("%s  %-8.8s  %-28s  %d feed errors, %d proxy failures",
		s.start.Local().Format("2006-01-02 15:04"), s.id, state, s.fetchErrs, s.proxyFails)
}

// summarizeRuns folds events into one summary per run, oldest first,
// keeping the last n runs.
func summarizeRuns(r io.Reader, flt eventFilter, n int) []runSummary {
	var order []string
	byID := map[string]*runSummary{}

	scanEvents(r, flt.match, func(l logLine) {
		ev := l.ev
		if ev.RunID == "" {
			return
		}
		s, ok := byID[ev.RunID]
		if !ok {
			s = &runSummary{id: ev.RunID, start: ev.Time}
			byID[ev.RunID] = s
			order = append(order, ev.RunID)
		}
		switch ev.Kind {
		case otel.KindRunComplete:
			s.complete = true
			s.articles = ev.Count
			s.dur = time.Duration(ev.DurMs * float64(time.Millisecond))
		case otel.KindRunSuperseded:
			s.superseded = true
		case otel.KindFetchError:
			s.fetchErrs++
		case otel.KindProxyFail:
			s.proxyFails++
		}
	})

	if n > 0 && len(order) > n {
		order = order[len(order)-n:]
	}
	out := make([]runSummary, len(order))
	for i, id := range order {
		out[i] = *byID[id]
	}
	return out
}
