package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/sideline/internal/otel"
)

// debugPanelChrome is the number of terminal lines consumed by DebugPanel's
// border (top + bottom = 2) and vertical padding (top + bottom = 2).
// Must be updated if DebugPanel style changes.
const debugPanelChrome = 4

// debugOverlay renders event counts per subsystem, the active item's own
// events and the most recent events. Pure function with no side effects.
// Returns empty string if ring is nil.
func debugOverlay(ring *otel.RingBuffer, activeID string, now time.Time, width, height int) string {
	if ring == nil {
		return ""
	}

	stats := ring.Stats()
	recent := ring.Last(20)

	// Keyed lookups, not map iteration, so the order is stable.
	var lines []string
	lines = append(lines, DebugHeaderStyle.Render("Session Stats"))
	lines = append(lines, fmt.Sprintf("  Feed:       %d events", stats["feed"]))
	lines = append(lines, fmt.Sprintf("  Mutations:  %d events", stats["mutation"]))
	lines = append(lines, fmt.Sprintf("  Comments:   %d events", stats["comments"]))
	lines = append(lines, fmt.Sprintf("  Video:      %d events", stats["video"]))
	lines = append(lines, fmt.Sprintf("  Auth:       %d prompts", stats["auth"]))
	levels := ring.LevelCounts()
	lines = append(lines, fmt.Sprintf("  Problems:   %d warn, %d error", levels[otel.LevelWarn], levels[otel.LevelError]))
	lines = append(lines, fmt.Sprintf("  Buffer:     %d / %d events", ring.Len(), ring.Cap()))
	lines = append(lines, "")

	if activeID != "" {
		if mine := ring.ItemEvents(activeID, 5); len(mine) > 0 {
			lines = append(lines, DebugHeaderStyle.Render("Active Item "+truncate(activeID, 24)))
			for _, e := range mine {
				lines = append(lines, eventLine(e, now))
			}
			lines = append(lines, "")
		}
	}

	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	for _, e := range recent {
		lines = append(lines, eventLine(e, now))
	}

	// Truncate to fit terminal height (subtract chrome added by DebugPanel border/padding)
	maxHeight := height - debugPanelChrome
	if maxHeight < 1 {
		maxHeight = 1
	}
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}

	panelWidth := 80
	if panelWidth > width-4 {
		panelWidth = width - 4
	}
	if panelWidth < 20 {
		panelWidth = 20
	}

	return DebugPanel.Width(panelWidth).Render(strings.Join(lines, "\n"))
}

func eventLine(e otel.Event, now time.Time) string {
	line := fmt.Sprintf("  %6s  %-20s", formatAge(now.Sub(e.Time)), string(e.Kind))
	if e.ItemID != "" {
		line += "  " + truncate(e.ItemID, 12)
	}
	if e.Msg != "" {
		line += "  " + truncate(e.Msg, 30)
	}
	if e.Err != "" {
		line += "  ERR:" + truncate(e.Err, 30)
	}
	if e.Gen > 0 {
		line += fmt.Sprintf("  g%d", e.Gen)
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
	hint := StatusBarKey.Render("?") + StatusBarText.Render(":close")
	return StatusBar.Width(width).Render("  [DEBUG]  " + hint)
}
