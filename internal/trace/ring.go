package trace

import (
	"io"
	"slices"
	"sync"
)

// DefaultRingSize is used when a ring is asked for a non-positive size.
const DefaultRingSize = 4096

// RingTracer keeps the most recent events in memory so they can be dumped
// after a failure.
type RingTracer struct {
	level Level

	mu    sync.Mutex
	buf   []Event
	total uint64 // events ever stored
}

// NewRingTracer creates a ring holding the last size events.
func NewRingTracer(size int, level Level) *RingTracer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingTracer{level: level, buf: make([]Event, size)}
}

func (r *RingTracer) Emit(ev *Event) {
	if !r.level.admits(ev) {
		return
	}
	stored := *ev
	stored.Attrs = slices.Clone(ev.Attrs)

	r.mu.Lock()
	r.buf[r.total%uint64(len(r.buf))] = stored
	r.total++
	r.mu.Unlock()
}

// Snapshot returns the retained events, oldest first.
func (r *RingTracer) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	size := uint64(len(r.buf))
	n := min(r.total, size)
	out := make([]Event, 0, n)
	for i := r.total - n; i < r.total; i++ {
		out = append(out, r.buf[i%size])
	}
	return out
}

// Dropped reports how many events were overwritten.
func (r *RingTracer) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total - min(r.total, uint64(len(r.buf)))
}

// Dump writes the retained events to w.
func (r *RingTracer) Dump(w io.Writer, format Format) error {
	for _, ev := range r.Snapshot() {
		if _, err := w.Write(FormatEvent(&ev, format)); err != nil {
			return err
		}
	}
	return nil
}

func (r *RingTracer) Flush() error  { return nil }
func (r *RingTracer) Close() error  { return nil }
func (r *RingTracer) Level() Level  { return r.level }
func (r *RingTracer) Enabled() bool { return r.level > LevelOff }
