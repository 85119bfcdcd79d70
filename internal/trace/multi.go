package trace

import "errors"

// MultiTracer fans events out to several tracers. Its level is the most
// verbose of its members; each member still applies its own filter.
type MultiTracer struct {
	tracers []Tracer
	level   Level
}

// NewMultiTracer joins tracers, skipping nil and disabled ones.
func NewMultiTracer(tracers ...Tracer) *MultiTracer {
	m := &MultiTracer{}
	for _, t := range tracers {
		if t == nil || !t.Enabled() {
			continue
		}
		m.tracers = append(m.tracers, t)
		m.level = max(m.level, t.Level())
	}
	return m
}

func (m *MultiTracer) Emit(ev *Event) {
	for _, t := range m.tracers {
		t.Emit(ev)
	}
}

func (m *MultiTracer) Flush() error {
	return m.each(Tracer.Flush)
}

func (m *MultiTracer) Close() error {
	return m.each(Tracer.Close)
}

func (m *MultiTracer) each(fn func(Tracer) error) error {
	var errs []error
	for _, t := range m.tracers {
		if err := fn(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiTracer) Level() Level  { return m.level }
func (m *MultiTracer) Enabled() bool { return m.level > LevelOff }

// Unwrap returns the member tracers.
func (m *MultiTracer) Unwrap() []Tracer { return m.tracers }
