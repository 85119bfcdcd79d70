package trace

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Heartbeat periodically emits liveness events during long generator runs.
// Each beat names the oldest span still open, which is usually the package
// a stalled run is stuck on.
type Heartbeat struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// StartHeartbeat beats on t every interval until Stop. It returns nil when
// t is disabled or interval is not positive; Stop on nil is a no-op.
func StartHeartbeat(t Tracer, interval time.Duration) *Heartbeat {
	if t == nil || !t.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{stop: make(chan struct{}), done: make(chan struct{})}
	go h.run(t, interval)
	return h
}

func (h *Heartbeat) run(t Tracer, interval time.Duration) {
	defer close(h.done)
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for beat := 1; ; beat++ {
		select {
		case <-h.stop:
			return
		case now := <-tick.C:
			t.Emit(&Event{
				Time:   now,
				Seq:    NextSeq(),
				Kind:   KindHeartbeat,
				Scope:  ScopeDriver,
				Name:   "heartbeat",
				Detail: beatDetail(beat, OpenSpans(), now),
			})
		}
	}
}

// beatDetail renders "#3 open=2 oldest=package:example.com/geo 1.25s".
func beatDetail(beat int, spans []OpenSpan, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d open=%d", beat, len(spans))
	if len(spans) > 0 {
		o := spans[0]
		fmt.Fprintf(&b, " oldest=%s:%s %s", o.Scope, o.Name, now.Sub(o.Started).Round(time.Millisecond))
	}
	return b.String()
}

// Stop ends the heartbeat and waits for its goroutine. It is safe to call
// more than once.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.stop) })
	<-h.done
}
