package feed

import "time"

// DoubleTapWindow is how long after a tap a second tap counts as a double-tap.
const DoubleTapWindow = 300 * time.Millisecond

// TapResult is the outcome of feeding one tap into a TapGate.
type TapResult int

const (
	// TapPending: first tap, now awaiting a second until the deadline.
	TapPending TapResult = iota
	// TapDouble: second tap inside the window.
	TapDouble
	// TapSingleThenPending: the previous tap's window had already lapsed
	// unreported, so it is a single tap, and this tap opens a new window.
	TapSingleThenPending
)

// TapGate is the per-item double-tap state machine:
//
//	idle --tap--> awaiting(deadline) --tap before deadline--> idle (double)
//	awaiting --Expire at/after deadline--> idle (single)
//
// It holds no timers. The host schedules Expire at Deadline.
type TapGate struct {
	window   time.Duration
	awaiting bool
	deadline time.Time
}

// NewTapGate returns an idle gate. A non-positive window uses DoubleTapWindow.
func NewTapGate(window time.Duration) *TapGate {
	if window <= 0 {
		window = DoubleTapWindow
	}
	return &TapGate{window: window}
}

// Tap records a tap at now.
func (g *TapGate) Tap(now time.Time) TapResult {
	if g.awaiting {
		if now.Before(g.deadline) {
			g.awaiting = false
			return TapDouble
		}
		g.deadline = now.Add(g.window)
		return TapSingleThenPending
	}
	g.awaiting = true
	g.deadline = now.Add(g.window)
	return TapPending
}

// Expire reports a single tap when the gate is awaiting and now has reached
// the deadline, returning the gate to idle.
func (g *TapGate) Expire(now time.Time) bool {
	if !g.awaiting || now.Before(g.deadline) {
		return false
	}
	g.awaiting = false
	return true
}

// Awaiting reports whether a second tap would count as a double-tap.
func (g *TapGate) Awaiting() bool { return g.awaiting }

// Deadline is when the pending tap becomes a single tap.
func (g *TapGate) Deadline() time.Time { return g.deadline }
