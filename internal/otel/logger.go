package otel

// Goroutine safety:
// run is the only reader of l.queue, the only writer to l.out and the only
// caller of sinks. l.mu guards the ring pointer and the sinks slice; run
// copies both under the lock and pushes after releasing it.

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// queueSize bounds events waiting for the writer. Emit never blocks, so a
// burst beyond this is dropped and counted.
const queueSize = 4096

// DefaultMaxLogBytes is the size at which OpenFile rotates the event log.
const DefaultMaxLogBytes int64 = 8 << 20

// Sink observes every event after it is written. Sinks run on the writer
// goroutine and must not block. A panicking sink is skipped for that event.
type Sink func(Event)

type queued struct {
	line []byte
	ev   Event // kept alongside the line so Dur reaches sinks intact
}

// Logger writes events as JSON lines from a single background goroutine and
// fans them out to an optional ring buffer and sinks.
type Logger struct {
	mu    sync.Mutex
	ring  *RingBuffer
	sinks []Sink

	session string
	queue   chan queued
	out     io.Writer
	closer  io.Closer

	dropped    atomic.Uint64
	sinkPanics atomic.Uint64
	closed     atomic.Bool
	done       chan struct{}
	once       sync.Once
}

// NewLogger starts a Logger writing to w. Close flushes it.
func NewLogger(w io.Writer) *Logger {
	var id [8]byte
	_, _ = rand.Read(id[:])
	l := &Logger{
		session: hex.EncodeToString(id[:]),
		queue:   make(chan queued, queueSize),
		out:     w,
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

// NewNullLogger discards output; the ring buffer and sinks still see events.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard)
}

// OpenFile appends to the event log at path, first moving a file larger than
// maxBytes aside to path+".1". maxBytes <= 0 uses DefaultMaxLogBytes. The
// file is closed by Logger.Close.
func OpenFile(path string, maxBytes int64) (*Logger, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxLogBytes
	}
	if err := rotate(path, maxBytes); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("otel: open event log: %w", err)
	}
	l := NewLogger(f)
	l.closer = f
	return l, nil
}

func rotate(path string, maxBytes int64) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("otel: stat event log: %w", err)
	}
	if info.Size() < maxBytes {
		return nil
	}
	if err := os.Rename(path, path+".1"); err != nil {
		return fmt.Errorf("otel: rotate event log: %w", err)
	}
	return nil
}

func (l *Logger) run() {
	defer close(l.done)
	for q := range l.queue {
		if _, err := l.out.Write(q.line); err != nil {
			l.dropped.Add(1)
		}

		l.mu.Lock()
		ring, sinks := l.ring, l.sinks
		l.mu.Unlock()

		if ring != nil {
			ring.Push(q.ev)
		}
		for _, s := range sinks {
			l.deliver(s, q.ev)
		}
	}
}

func (l *Logger) deliver(s Sink, e Event) {
	defer func() {
		if recover() != nil {
			l.sinkPanics.Add(1)
		}
	}()
	s(e)
}

// Emit stamps Time (when zero) and the session id, then queues e. Events
// emitted after Close, or while the queue is full, are dropped and counted.
func (l *Logger) Emit(e Event) {
	// A send racing Close panics on the closed channel.
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
	e.SessionID = l.session
	line, err := json.Marshal(e)
	if err != nil {
		l.dropped.Add(1)
		return
	}

	select {
	case l.queue <- queued{line: append(line, '\n'), ev: e}:
	default:
		l.dropped.Add(1)
	}
}

func (l *Logger) Info(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelInfo, Kind: kind, Comp: comp, Msg: msg})
}

func (l *Logger) Warn(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelWarn, Kind: kind, Comp: comp, Msg: msg})
}

// Error emits an error-level event; a nil err leaves Err empty.
func (l *Logger) Error(kind EventKind, comp string, err error) {
	e := Event{Level: LevelError, Kind: kind, Comp: comp}
	if err != nil {
		e.Err = err.Error()
	}
	l.Emit(e)
}

// SetRingBuffer attaches buf for the debug overlay.
func (l *Logger) SetRingBuffer(buf *RingBuffer) {
	l.mu.Lock()
	l.ring = buf
	l.mu.Unlock()
}

// AddSink registers s for every event written after this call.
func (l *Logger) AddSink(s Sink) {
	l.mu.Lock()
	l.sinks = append(l.sinks[:len(l.sinks):len(l.sinks)], s)
	l.mu.Unlock()
}

// SessionID is the random id stamped on every event of this run.
func (l *Logger) SessionID() string { return l.session }

// Dropped counts events lost to a full queue, encode or write failures, or
// emission after Close.
func (l *Logger) Dropped() uint64 { return l.dropped.Load() }

// SinkPanics counts sink calls that panicked.
func (l *Logger) SinkPanics() uint64 { return l.sinkPanics.Load() }

// Close drains the queue, closes a file opened by OpenFile and reports drops
// on stderr. Safe to call more than once.
func (l *Logger) Close() {
	l.once.Do(func() {
		l.closed.Store(true)
		close(l.queue)
		<-l.done
		if l.closer != nil {
			_ = l.closer.Close()
		}
		if d := l.dropped.Load(); d > 0 {
			fmt.Fprintf(os.Stderr, "sideline: %d events dropped during session %s\n", d, l.session)
		}
	})
}
