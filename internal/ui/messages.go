// Package ui provides the Bubble Tea TUI for medwatch.
package ui

import "github.com/abelbrown/medwatch/internal/news"

// RunStarted is sent when the coordinator begins a run.
type RunStarted struct {
	Generation uint64
}

// RunComplete is sent when a run finishes and becomes the latest result.
type RunComplete struct {
	Generation uint64
	Report     news.Report
}

// RefreshFailed is sent when a refresh could not be started.
type RefreshFailed struct {
	Err error
}

// ClockTick re-renders relative dates and the last event line.
type ClockTick struct{}
