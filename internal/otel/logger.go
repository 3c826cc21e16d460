package otel

// The drain goroutine is the only reader of l.ch and the only writer to l.w.
// l.mu guards the ring buffer pointer and nothing else. Events below the
// minimum level skip the writer but still reach the ring buffer.

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// writerChanSize is the capacity of the async write channel.
const writerChanSize = 4096

type logEntry struct {
	data []byte // nil when below the minimum level
	ev   Event
}

// Logger writes Events as JSONL through a buffered channel.
// Emit never blocks: when the channel is full the event is dropped and counted.
type Logger struct {
	mu        sync.Mutex
	ring      *RingBuffer
	sessionID string
	minLevel  atomic.Value // Level
	ch        chan logEntry
	w         io.Writer
	dropped   atomic.Uint64
	closed    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewLogger starts a Logger writing to w. Call Close to flush.
func NewLogger(w io.Writer) *Logger {
	var sid [8]byte
	_, _ = rand.Read(sid[:])

	l := &Logger{
		sessionID: fmt.Sprintf("%x", sid[:]),
		ch:        make(chan logEntry, writerChanSize),
		w:         w,
		done:      make(chan struct{}),
	}
	l.minLevel.Store(LevelDebug)
	go l.drain()
	return l
}

// NewNullLogger returns a Logger that discards everything.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard)
}

func (l *Logger) drain() {
	defer close(l.done)
	for entry := range l.ch {
		if entry.data != nil {
			if _, err := l.w.Write(entry.data); err != nil {
				l.dropped.Add(1)
			}
		}

		l.mu.Lock()
		rb := l.ring
		l.mu.Unlock()

		if rb != nil {
			rb.Push(entry.ev)
		}
	}
}

// Emit queues an event. Time defaults to now. Safe to call concurrently
// with Close: late events are dropped, not panicked.
func (l *Logger) Emit(e Event) {
	defer func() {
		if recover() != nil {
			l.dropped.Add(1)
		}
	}()

	if l.closed.Load() {
		l.dropped.Add(1)
		return
	}

	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.sessionID

	var data []byte
	if e.Level.AtLeast(l.minLevel.Load().(Level)) {
		b, err := json.Marshal(e)
		if err != nil {
			l.dropped.Add(1)
			return
		}
		data = append(b, '\n')
	}

	select {
	case l.ch <- logEntry{data: data, ev: e}:
	default:
		l.dropped.Add(1)
	}
}

// Info emits an info-level event.
func (l *Logger) Info(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelInfo, Kind: kind, Comp: comp, Msg: msg})
}

// Warn emits a warn-level event.
func (l *Logger) Warn(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelWarn, Kind: kind, Comp: comp, Msg: msg})
}

// Error emits an error-level event. A nil err is logged as empty.
func (l *Logger) Error(kind EventKind, comp string, err error) {
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}
	l.Emit(Event{Level: LevelError, Kind: kind, Comp: comp, Err: errStr})
}

// SetMinLevel sets the lowest level written out. Empty means debug.
func (l *Logger) SetMinLevel(min Level) {
	if min == "" {
		min = LevelDebug
	}
	l.minLevel.Store(min)
}

// SetRingBuffer attaches rb; every event written afterwards is also pushed there.
func (l *Logger) SetRingBuffer(rb *RingBuffer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ring = rb
}

// SessionID returns the random ID stamped on every event of this process.
func (l *Logger) SessionID() string {
	return l.sessionID
}

// Dropped returns the number of events lost so far.
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

// Close flushes pending events and stops the drain goroutine. Idempotent.
func (l *Logger) Close() {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.ch)
		<-l.done

		if d := l.dropped.Load(); d > 0 {
			fmt.Fprintf(os.Stderr, "medwatch: %d events dropped during session %s\n", d, l.sessionID)
		}
	})
}
