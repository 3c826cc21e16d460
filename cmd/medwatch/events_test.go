package main

import (
	"strings"
	"testing"

	"github.com/abelbrown/medwatch/internal/otel"
)

const sampleLog = `{"t":"2026-10-19T10:00:00Z","level":"info","kind":"run.start","comp":"news","run_id":"aaaa1111"}
not json
{"t":"2026-10-19T10:00:01Z","level":"warn","kind":"proxy.fail","comp":"fetch","run_id":"aaaa1111","proxy":"corsproxy"}

{"t":"2026-10-19T10:00:02Z","level":"warn","kind":"fetch.error","comp":"news","run_id":"aaaa1111","category":"oncology","source":"HAS"}
{"t":"2026-10-19T10:00:03Z","level":"info","kind":"run.complete","comp":"news","run_id":"aaaa1111","count":24,"dur_ms":3000}
{"t":"2026-10-19T10:05:00Z","level":"info","kind":"run.start","comp":"news","run_id":"bbbb2222"}
{"t":"2026-10-19T10:05:01Z","level":"info","kind":"run.superseded","comp":"coord","run_id":"bbbb2222"}
{"t":"2026-10-19T10:06:00Z","level":"info","kind":"sys.shutdown","comp":"main"}
`

func all(otel.Event) bool { return true }

func TestReadTailLines(t *testing.T) {
	got := readTailLines(strings.NewReader(sampleLog), 100, all)
	if len(got) != 7 {
		t.Fatalf("parsed %d events, want 7", len(got))
	}

	last := readTailLines(strings.NewReader(sampleLog), 2, all)
	if len(last) != 2 || last[0].ev.Kind != otel.KindRunSuperseded || last[1].ev.Kind != otel.KindShutdown {
		t.Errorf("tail = %+v", last)
	}
	if !strings.Contains(string(last[1].raw), `"sys.shutdown"`) {
		t.Errorf("raw line not kept: %s", last[1].raw)
	}

	if readTailLines(strings.NewReader(sampleLog), 0, all) != nil {
		t.Error("n=0 should return nothing")
	}
}

func TestEventFilter(t *testing.T) {
	tests := []struct {
		name string
		flt  eventFilter
		want int
	}{
		{"none", eventFilter{}, 7},
		{"kind prefix", eventFilter{kind: "run"}, 4},
		{"min level", eventFilter{minLevel: otel.LevelWarn}, 2},
		{"component", eventFilter{comp: "news"}, 4},
		{"run prefix", eventFilter{runID: "bbbb"}, 2},
		{"category", eventFilter{category: "oncology"}, 1},
		{"combined", eventFilter{kind: "proxy", runID: "aaaa"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := readTailLines(strings.NewReader(sampleLog), 100, tt.flt.match)
			if len(got) != tt.want {
				t.Errorf("matched %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestSummarizeRuns(t *testing.T) {
	runs := summarizeRuns(strings.NewReader(sampleLog), eventFilter{}, 10)
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}

	first := runs[0]
	if first.id != "aaaa1111" || !first.complete || first.articles != 24 || first.fetchErrs != 1 || first.proxyFails != 1 {
		t.Errorf("first run = %+v", first)
	}
	if !strings.Contains(first.String(), "24 articles in 3s") {
		t.Errorf("first run line = %q", first.String())
	}
	if !runs[1].superseded || !strings.Contains(runs[1].String(), "superseded") {
		t.Errorf("second run = %+v", runs[1])
	}

	if last := summarizeRuns(strings.NewReader(sampleLog), eventFilter{}, 1); len(last) != 1 || last[0].id != "bbbb2222" {
		t.Errorf("limited = %+v", last)
	}
}

func TestFormatEvent(t *testing.T) {
	line := readTailLines(strings.NewReader(sampleLog), 100, eventFilter{kind: "fetch.error"}.match)[0]
	got := formatEvent(line.ev)
	for _, want := range []string{"WARN", "fetch.error", "[oncology]", "HAS"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatEvent = %q, missing %q", got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Santé Publique France", 10); got != "Santé P..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("HAS", 10); got != "HAS" {
		t.Errorf("truncate = %q", got)
	}
}
