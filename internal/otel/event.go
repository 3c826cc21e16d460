// Package otel records structured pipeline events for medwatch.
//
// Events are typed structs written as JSONL by an asynchronous Logger.
// An optional RingBuffer keeps the most recent events in memory so the
// TUI can show what the aggregator is doing.
package otel

import (
	"encoding/json"
	"time"
)

// Level is the event severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

func (l Level) rank() int {
	switch l {
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	}
	return 0
}

// AtLeast reports whether l is as severe as min. Unknown and empty
// levels rank as debug.
func (l Level) AtLeast(min Level) bool {
	return l.rank() >= min.rank()
}

// EventKind is "<subsystem>.<action>".
type EventKind string

const (
	// Aggregation runs
	KindRunStart         EventKind = "run.start"
	KindRunComplete      EventKind = "run.complete"
	KindRunSuperseded    EventKind = "run.superseded"
	KindCategoryComplete EventKind = "category.complete"

	// Source fetches
	KindFetchStart    EventKind = "fetch.start"
	KindFetchComplete EventKind = "fetch.complete"
	KindFetchError    EventKind = "fetch.error"

	// Proxy chain
	KindProxyAttempt   EventKind = "proxy.attempt"
	KindProxyFail      EventKind = "proxy.fail"
	KindProxyExhausted EventKind = "proxy.exhausted"

	// Literature search
	KindPubMedSearch EventKind = "pubmed.search"
	KindPubMedError  EventKind = "pubmed.error"

	KindStoreError EventKind = "store.error"

	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"
)

// Event is one observability record. Only Kind is required.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"` // "news", "fetch", "pubmed", "coord", "main"
	SessionID string         `json:"session_id,omitempty"`
	RunID     string         `json:"run_id,omitempty"`
	Category  string         `json:"category,omitempty"`
	Source    string         `json:"source,omitempty"`
	Proxy     string         `json:"proxy,omitempty"`
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"`
	Count     int            `json:"count,omitempty"`
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON converts Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	a := alias(e)
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
