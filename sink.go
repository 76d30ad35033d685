package peek

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Sink receives log entries from the inspector. Implementations must
// keep each entry's lines together: a single event's output never
// interleaves with another event's.
type Sink interface {
	Emit(e Entry)
}

// SinkFunc is a function adapter for Sink.
type SinkFunc func(e Entry)

// Emit calls the underlying function.
func (f SinkFunc) Emit(e Entry) {
	f(e)
}

// WriterSink writes entries to an io.Writer, one line per entry line.
// A mutex serializes writes so entries stay atomic even when events
// are processed concurrently.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a Sink that writes to w (typically stdout or a
// log file).
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Emit writes all lines of the entry under a single lock acquisition.
func (s *WriterSink) Emit(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, line := range e.Lines {
		_, _ = io.WriteString(s.w, line)
		_, _ = io.WriteString(s.w, "\n")
	}
}

// SlogSink emits entries as structured records through a *slog.Logger.
// It uses slog.LogAttrs to minimize allocations on the hot path. Error
// entries log at level Error, everything else at Info.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a Sink backed by the given slog.Logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger}
}

// Emit implements Sink.
func (s *SlogSink) Emit(e Entry) {
	level := slog.LevelInfo
	if e.Direction == DirectionError {
		level = slog.LevelError
	}
	s.logger.LogAttrs(context.Background(), level, "flow",
		slog.Time("timestamp", e.Time),
		slog.String("direction", e.Direction.String()),
		slog.String("detail", strings.Join(e.Lines, "\n")),
	)
}

// AsyncSink decouples event processing from sink writes. Entries are
// submitted to a buffered channel and drained by a single writer
// goroutine, so submission order is preserved and the wrapped sink
// sees no concurrent calls.
type AsyncSink struct {
	next    Sink
	entries chan Entry
	done    chan struct{}
	once    sync.Once
}

// NewAsyncSink wraps next with a buffered queue of the given size and
// starts the writer goroutine. A size <= 0 defaults to 256.
func NewAsyncSink(next Sink, size int) *AsyncSink {
	if size <= 0 {
		size = 256
	}
	s := &AsyncSink{
		next:    next,
		entries: make(chan Entry, size),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for e := range s.entries {
		s.next.Emit(e)
	}
}

// Emit queues the entry. It blocks when the queue is full rather than
// dropping entries, so backpressure reaches the event producer.
func (s *AsyncSink) Emit(e Entry) {
	s.entries <- e
}

// Close stops accepting entries, drains the queue, and waits for the
// writer goroutine to finish. Emit must not be called after Close.
func (s *AsyncSink) Close() {
	s.once.Do(func() {
		close(s.entries)
	})
	<-s.done
}
