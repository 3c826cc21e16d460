package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/medwatch/internal/otel"
)

// debugPanelChrome is the number of terminal lines consumed by DebugPanel's
// border (top + bottom = 2) and vertical padding (top + bottom = 2).
// Must be updated if DebugPanel style changes.
const debugPanelChrome = 4

// debugOverlay renders the debug panel showing pipeline stats and recent events.
// Pure function with no side effects. Returns empty string if ring is nil.
func debugOverlay(ring *otel.RingBuffer, width, height int) string {
	if ring == nil {
		return ""
	}

	stats := ring.CountByKind()
	recent := ring.Last(20)

	var lines []string
	lines = append(lines, DebugHeaderStyle.Render("Pipeline Stats"))
	lines = append(lines, fmt.Sprintf("  Runs:       %d started, %d complete, %d superseded",
		stats[otel.KindRunStart], stats[otel.KindRunComplete], stats[otel.KindRunSuperseded]))
	lines = append(lines, fmt.Sprintf("  Feeds:      %d complete, %d errors",
		stats[otel.KindFetchComplete], stats[otel.KindFetchError]))
	lines = append(lines, fmt.Sprintf("  Proxies:    %d attempts, %d failed, %d exhausted",
		stats[otel.KindProxyAttempt], stats[otel.KindProxyFail], stats[otel.KindProxyExhausted]))
	lines = append(lines, fmt.Sprintf("  PubMed:     %d searches, %d errors",
		stats[otel.KindPubMedSearch], stats[otel.KindPubMedError]))
	lines = append(lines, fmt.Sprintf("  Buffer:     %d / %d events", ring.Len(), ring.Cap()))
	lines = append(lines, "")

	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	for _, e := range recent {
		lines = append(lines, "  "+eventLine(e, time.Now()))
	}

	maxHeight := height - debugPanelChrome
	if maxHeight < 1 {
		maxHeight = 1
	}
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}

	panelWidth := 76
	if panelWidth > width-4 {
		panelWidth = width - 4
	}
	if panelWidth < 20 {
		panelWidth = 20
	}

	return DebugPanel.Width(panelWidth).Render(strings.Join(lines, "\n"))
}

// eventLine is the one-line rendering of an event used by the overlay and
// the status bar.
func eventLine(e otel.Event, now time.Time) string {
	line := fmt.Sprintf("%6s  %-18s", formatAge(now.Sub(e.Time)), string(e.Kind))
	if e.Category != "" {
		line += "  " + e.Category
	}
	if e.Source != "" {
		line += "  " + truncate(e.Source, 28)
	}
	if e.Proxy != "" {
		line += "  via " + e.Proxy
	}
	if e.Msg != "" {
		line += "  " + truncate(e.Msg, 40)
	}
	if e.Err != "" {
		line += "  ERR:" + truncate(e.Err, 30)
	}
	return line
}

// formatAge formats a duration as a compact human string.
// Handles negative durations from clock skew by clamping to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

// debugStatusBar renders the status bar for the debug overlay.
func debugStatusBar(width int) string {
	keys := StatusBarKey.Render("D") + StatusBarText.Render(":close")
	return StatusBar.Width(width).Render("  [DEBUG]  " + keys)
}
