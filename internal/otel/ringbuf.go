package otel

import (
	"maps"
	"sync"
)

// DefaultRingSize is used when NewRingBuffer is given a non-positive size.
const DefaultRingSize = 1024

// RingBuffer keeps the most recent events in memory for the debug overlay.
// Goroutine-safe.
type RingBuffer struct {
	mu     sync.Mutex
	events []Event
	next   int  // slot the next Push writes
	full   bool // every slot holds an event
}

func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingBuffer{events: make([]Event, size)}
}

// Push stores e, evicting the oldest event when full. Extra is cloned so the
// caller may keep mutating its map.
func (r *RingBuffer) Push(e Event) {
	e.Extra = maps.Clone(e.Extra)

	r.mu.Lock()
	r.events[r.next] = e
	r.next++
	if r.next == len(r.events) {
		r.next, r.full = 0, true
	}
	r.mu.Unlock()
}

// each visits events newest first until fn returns false. Caller holds mu.
func (r *RingBuffer) each(fn func(Event) bool) {
	n := r.next
	if r.full {
		n = len(r.events)
	}
	for i := 1; i <= n; i++ {
		idx := (r.next - i + len(r.events)) % len(r.events)
		if !fn(r.events[idx]) {
			return
		}
	}
}

// Snapshot returns every buffered event, oldest first.
func (r *RingBuffer) Snapshot() []Event { return r.Matching(len(r.events), nil) }

// Last returns up to n of the newest events, oldest first.
func (r *RingBuffer) Last(n int) []Event { return r.Matching(n, nil) }

// ItemEvents returns up to n of the newest events about itemID, oldest first.
func (r *RingBuffer) ItemEvents(itemID string, n int) []Event {
	return r.Matching(n, func(e Event) bool { return e.ItemID == itemID })
}

// Matching returns up to n of the newest events accepted by keep (all when
// keep is nil), oldest first. n <= 0 or no match yields nil.
func (r *RingBuffer) Matching(n int, keep func(Event) bool) []Event {
	if n <= 0 {
		return nil
	}
	r.mu.Lock()
	var out []Event
	r.each(func(e Event) bool {
		if keep == nil || keep(e) {
			out = append(out, e)
		}
		return len(out) < n
	})
	r.mu.Unlock()

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Len is the number of buffered events.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.events)
	}
	return r.next
}

// Cap is the buffer capacity.
func (r *RingBuffer) Cap() int { return len(r.events) }

// Stats counts buffered events by subsystem ("feed", "mutation", ...).
func (r *RingBuffer) Stats() map[string]int {
	return r.count(func(e Event) string { return e.Kind.Subsystem() })
}

// LevelCounts counts buffered events by level; events without one count
// under "".
func (r *RingBuffer) LevelCounts() map[Level]int {
	byName := r.count(func(e Event) string { return string(e.Level) })
	out := make(map[Level]int, len(byName))
	for k, v := range byName {
		out[Level(k)] = v
	}
	return out
}

func (r *RingBuffer) count(key func(Event) string) map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int)
	r.each(func(e Event) bool {
		counts[key(e)]++
		return true
	})
	return counts
}
