package otel

import (
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

// TraceLevel selects how much of the Bubble Tea message stream is logged.
type TraceLevel int32

const (
	TraceOff TraceLevel = iota
	// TraceMessages logs every message except clock ticks.
	TraceMessages
	// TraceAll also logs spinner and playback ticks.
	TraceAll
)

var traceLevel atomic.Int32

func init() {
	SetTraceLevel(ParseTraceLevel(os.Getenv("SIDELINE_TRACE")))
}

// ParseTraceLevel reads SIDELINE_TRACE: "all" traces ticks too, any other
// true boolean or "msgs" traces messages, everything else is off.
func ParseTraceLevel(v string) TraceLevel {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "all":
		return TraceAll
	case "msgs":
		return TraceMessages
	}
	if on, err := strconv.ParseBool(v); err == nil && on {
		return TraceMessages
	}
	return TraceOff
}

func SetTraceLevel(l TraceLevel) { traceLevel.Store(int32(l)) }

// TraceEnabled reports whether the UI should log received messages.
func TraceEnabled() bool { return TraceLevel(traceLevel.Load()) >= TraceMessages }

// TraceTicks reports whether clock ticks are logged as well.
func TraceTicks() bool { return TraceLevel(traceLevel.Load()) >= TraceAll }
