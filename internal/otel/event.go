// Package otel is Sideline's structured event log.
//
// Events are typed structs written as JSONL by an async Logger. A RingBuffer
// keeps the most recent events for the in-app debug overlay, and sinks (such
// as the Prometheus exporter) observe every event from the drain goroutine.
package otel

import (
	"encoding/json"
	"strings"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Feed pagination
	KindPageStart    EventKind = "feed.page_start"
	KindPageComplete EventKind = "feed.page_complete"
	KindPageError    EventKind = "feed.page_error"
	KindHighlights   EventKind = "feed.highlights"
	KindFeedReset    EventKind = "feed.reset"

	// Optimistic mutations
	KindMutationApply    EventKind = "mutation.apply"
	KindMutationCommit   EventKind = "mutation.commit"
	KindMutationRollback EventKind = "mutation.rollback"

	// Comments
	KindCommentsLoad  EventKind = "comments.load"
	KindCommentsError EventKind = "comments.error"
	KindCommentSent   EventKind = "comments.sent"

	// Playback
	KindVideoPlay  EventKind = "video.play"
	KindVideoPause EventKind = "video.pause"

	KindAuthRequired EventKind = "auth.required"

	KindStoreError EventKind = "store.error"

	KindKeyPress EventKind = "ui.key"
	KindShare    EventKind = "ui.share"

	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"

	KindMsgReceived EventKind = "trace.msg_received"
)

// Subsystem returns the part of the kind before the first dot.
func (k EventKind) Subsystem() string {
	s, _, _ := strings.Cut(string(k), ".")
	return s
}

// Event is the universal record. Every field except Kind and Time is
// optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"`       // "feed", "ui", "store", "main"
	SessionID string         `json:"session_id,omitempty"` // random hex, same for the whole run
	Gen       uint64         `json:"gen,omitempty"`        // feed session generation
	ItemID    string         `json:"item,omitempty"`
	Scope     string         `json:"scope,omitempty"` // game id of a scoped feed
	Cursor    string         `json:"cursor,omitempty"`
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"` // computed from Dur at marshal time
	Count     int            `json:"count,omitempty"`
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	a := struct {
		Alias
	}{Alias: Alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
