package trace

import (
	"bufio"
	"io"
	"os"
	"sync"
)

// StreamTracer writes each event to a writer as it arrives.
type StreamTracer struct {
	level  Level
	format Format

	mu     sync.Mutex
	w      io.Writer
	file   *os.File // set when the tracer owns its output
	closed bool
}

// NewStreamTracer writes to w, which the caller keeps ownership of.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	if format == FormatAuto {
		format = FormatText
	}
	return &StreamTracer{w: w, level: level, format: format}
}

// newFileTracer buffers writes to f and closes f on Close.
func newFileTracer(f *os.File, level Level, format Format) *StreamTracer {
	t := NewStreamTracer(bufio.NewWriter(f), level, format)
	t.file = f
	return t
}

func (t *StreamTracer) Emit(ev *Event) {
	if !t.level.admits(ev) {
		return
	}
	data := FormatEvent(ev, t.format)

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		// Tracing never fails the traced work.
		_, _ = t.w.Write(data) //nolint:errcheck
	}
}

func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushLocked()
}

func (t *StreamTracer) flushLocked() error {
	if f, ok := t.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close flushes and, for an owned file, closes it. Later events are
// dropped.
func (t *StreamTracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	err := t.flushLocked()
	if t.file != nil {
		if cerr := t.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (t *StreamTracer) Level() Level  { return t.level }
func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }
