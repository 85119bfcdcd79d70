package observ

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerAggregates(t *testing.T) {
	tm := NewTimer()
	tm.Add("plan", 2*time.Millisecond)
	tm.Add("load", time.Millisecond)
	tm.Add("plan", 3*time.Millisecond)

	r := tm.Report()
	require.Len(t, r.Phases, 2)
	assert.Equal(t, PhaseReport{Name: "plan", DurationMS: 5, Count: 2}, r.Phases[0])
	assert.Equal(t, PhaseReport{Name: "load", DurationMS: 1, Count: 1}, r.Phases[1])
	assert.Equal(t, 6.0, r.TotalMS)

	s := tm.Summary()
	assert.Contains(t, s, "  plan              5.00 ms  x2\n")
	assert.Contains(t, s, "  total             6.00 ms\n")
}

func TestTimerMeasureAndConcurrency(t *testing.T) {
	tm := NewTimer()
	boom := errors.New("boom")
	assert.ErrorIs(t, tm.Measure("step", func() error { return boom }), boom)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.Add("step", time.Microsecond)
		}()
	}
	wg.Wait()
	assert.Equal(t, 9, tm.Report().Phases[0].Count)
	assert.Empty(t, NewTimer().Report().Phases)
}
