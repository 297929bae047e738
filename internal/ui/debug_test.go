package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/abelbrown/sideline/internal/otel"
)

func TestDebugOverlayNilRing(t *testing.T) {
	if got := debugOverlay(nil, "", time.Now(), 80, 24); got != "" {
		t.Errorf("debugOverlay(nil) should return empty string, got %q", got)
	}
}

func TestDebugOverlayRendersStats(t *testing.T) {
	now := time.Now()
	ring := otel.NewRingBuffer(64)
	ring.Push(otel.Event{Kind: otel.KindPageStart, Time: now})
	ring.Push(otel.Event{Kind: otel.KindPageComplete, Time: now})
	ring.Push(otel.Event{Kind: otel.KindMutationApply, Time: now})
	ring.Push(otel.Event{Kind: otel.KindMutationRollback, Time: now, Level: otel.LevelWarn})
	ring.Push(otel.Event{Kind: otel.KindVideoPlay, Time: now})
	ring.Push(otel.Event{Kind: otel.KindAuthRequired, Time: now})

	result := debugOverlay(ring, "", now, 80, 40)

	for _, want := range []string{
		"Session Stats",
		"Feed:       2 events",
		"Mutations:  2 events",
		"Comments:   0 events",
		"Video:      1 events",
		"Auth:       1 prompts",
		"Problems:   1 warn, 0 error",
		"6 / 64 events",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("overlay missing %q, got:\n%s", want, result)
		}
	}
}

func TestDebugOverlayRecentEvents(t *testing.T) {
	now := time.Now()
	ring := otel.NewRingBuffer(64)
	ring.Push(otel.Event{Kind: otel.KindMutationCommit, Time: now, ItemID: "p1", Msg: "upvote"})
	ring.Push(otel.Event{Kind: otel.KindPageError, Time: now, Err: "timeout", Gen: 3})

	result := debugOverlay(ring, "", now, 80, 40)

	if !strings.Contains(result, "Recent Events") {
		t.Error("overlay should contain 'Recent Events' header")
	}
	for _, want := range []string{"p1", "upvote", "ERR:timeout", "g3"} {
		if !strings.Contains(result, want) {
			t.Errorf("overlay missing %q, got:\n%s", want, result)
		}
	}
}

func TestDebugOverlayTruncation(t *testing.T) {
	now := time.Now()
	ring := otel.NewRingBuffer(64)
	for i := 0; i < 30; i++ {
		ring.Push(otel.Event{Kind: otel.KindVideoPause, Time: now})
	}

	result := debugOverlay(ring, "", now, 80, 10)
	if result == "" {
		t.Fatal("overlay should still render with small height")
	}
	// height 10 leaves 6 content rows inside the border and padding.
	if lines := strings.Count(result, "\n") + 1; lines > 10 {
		t.Errorf("overlay should be truncated, got %d lines", lines)
	}
}

func TestDebugStatusBar(t *testing.T) {
	bar := debugStatusBar(60)
	if !strings.Contains(bar, "[DEBUG]") || !strings.Contains(bar, "?:close") {
		t.Errorf("status bar = %q", bar)
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		dur  time.Duration
		want string
	}{
		{0, "0ms"},
		{50 * time.Millisecond, "50ms"},
		{999 * time.Millisecond, "999ms"},
		{1500 * time.Millisecond, "1.5s"},
		{30 * time.Second, "30.0s"},
		{90 * time.Second, "2m"},
		{5 * time.Minute, "5m"},
		{-5 * time.Second, "0ms"},
	}
	for _, tt := range tests {
		if got := formatAge(tt.dur); got != tt.want {
			t.Errorf("formatAge(%v) = %q, want %q", tt.dur, got, tt.want)
		}
	}
}

func TestDebugOverlayActiveItem(t *testing.T) {
	now := time.Now()
	ring := otel.NewRingBuffer(64)
	ring.Push(otel.Event{Kind: otel.KindMutationRollback, Time: now, ItemID: "p7", Msg: "bookmark"})
	ring.Push(otel.Event{Kind: otel.KindPageStart, Time: now})

	result := debugOverlay(ring, "p7", now, 80, 40)
	if !strings.Contains(result, "Active Item p7") {
		t.Errorf("overlay should have an active item section, got:\n%s", result)
	}
	if strings.Contains(debugOverlay(ring, "other", now, 80, 40), "Active Item") {
		t.Error("no section when the active item has no events")
	}
}
