package trace

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

var (
	seq     atomic.Uint64
	spanIDs atomic.Uint64
)

// NextSeq returns the next process-wide event sequence number.
func NextSeq() uint64 { return seq.Add(1) }

// NextSpanID returns a fresh span ID. IDs start at 1.
func NextSpanID() uint64 { return spanIDs.Add(1) }

// Span tracks one begin/end pair. A nil *Span is a valid span that records
// nothing; Begin returns one when the tracer would drop the events.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	scope   Scope
	name    string
	started time.Time
	attrs   []Attr
	ended   atomic.Bool
}

// Begin starts a span under parent (0 for a root) and emits its begin
// event.
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if !wants(t, scope) {
		return nil
	}
	s := &Span{
		tracer:  t,
		id:      NextSpanID(),
		parent:  parent,
		scope:   scope,
		name:    name,
		started: time.Now(),
	}
	open.add(s)
	t.Emit(&Event{
		Time:     s.started,
		Seq:      NextSeq(),
		Kind:     KindSpanBegin,
		Scope:    scope,
		SpanID:   s.id,
		ParentID: parent,
		Name:     name,
	})
	return s
}

// Set records an attribute for the end event. Setting a key again
// replaces its value in place.
func (s *Span) Set(key, value string) *Span {
	if s == nil {
		return nil
	}
	if i := slices.IndexFunc(s.attrs, func(a Attr) bool { return a.Key == key }); i >= 0 {
		s.attrs[i].Value = value
		return s
	}
	s.attrs = append(s.attrs, Attr{Key: key, Value: value})
	return s
}

// End emits the end event and returns the span's duration. Only the first
// call emits.
func (s *Span) End(detail string) time.Duration {
	if s == nil || !s.ended.CompareAndSwap(false, true) {
		return 0
	}
	open.remove(s.id)
	now := time.Now()
	s.tracer.Emit(&Event{
		Time:     now,
		Seq:      NextSeq(),
		Kind:     KindSpanEnd,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		Name:     s.name,
		Detail:   detail,
		Attrs:    s.attrs,
	})
	return now.Sub(s.started)
}

// Fail ends the span with the error text as detail.
func (s *Span) Fail(err error) time.Duration {
	if err == nil {
		return s.End("")
	}
	return s.Set("error", "true").End(err.Error())
}

// ID returns the span ID, 0 for a nil span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// OpenSpan describes a span that has begun but not ended.
type OpenSpan struct {
	ID      uint64
	Scope   Scope
	Name    string
	Started time.Time
}

// OpenSpans lists the spans still running, oldest first.
func OpenSpans() []OpenSpan {
	return open.list()
}

var open = &openSet{spans: make(map[uint64]*Span)}

type openSet struct {
	mu    sync.Mutex
	spans map[uint64]*Span
}

func (o *openSet) add(s *Span) {
	o.mu.Lock()
	o.spans[s.id] = s
	o.mu.Unlock()
}

func (o *openSet) remove(id uint64) {
	o.mu.Lock()
	delete(o.spans, id)
	o.mu.Unlock()
}

func (o *openSet) list() []OpenSpan {
	o.mu.Lock()
	out := make([]OpenSpan, 0, len(o.spans))
	for _, s := range o.spans {
		out = append(out, OpenSpan{ID: s.id, Scope: s.scope, Name: s.name, Started: s.started})
	}
	o.mu.Unlock()
	slices.SortFunc(out, func(a, b OpenSpan) int {
		if c := a.Started.Compare(b.Started); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
