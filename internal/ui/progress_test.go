package ui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reflex/internal/gen"
)

func feed(m tea.Model, events ...gen.Event) tea.Model {
	for _, ev := range events {
		m, _ = m.Update(eventMsg(ev))
	}
	return m
}

func TestProgressTracksPackages(t *testing.T) {
	m := NewProgressModel("reflex gen", make(chan gen.Event))
	m = feed(m,
		gen.Event{Stage: gen.StageLoad, Status: gen.StatusWorking},
		gen.Event{Package: "example.com/a", Stage: gen.StageLoad, Status: gen.StatusQueued},
		gen.Event{Package: "example.com/b", Stage: gen.StageLoad, Status: gen.StatusQueued},
		gen.Event{Package: "example.com/a", Stage: gen.StagePlan, Status: gen.StatusWorking},
		gen.Event{Package: "example.com/b", Stage: gen.StageWrite, Status: gen.StatusCached},
	)
	pm := m.(*progressModel)
	require.Len(t, pm.items, 2)
	assert.Equal(t, "loading", pm.stageLabel)
	assert.Equal(t, "planning", pm.items[0].status)
	assert.Equal(t, "cached", pm.items[1].status)
	assert.True(t, pm.items[1].final)

	view := m.View()
	assert.Contains(t, view, "reflex gen (loading)")
	assert.Contains(t, view, "example.com/a")
	assert.Contains(t, view, "planning")
}

func TestProgressFinalStatusSticks(t *testing.T) {
	m := NewProgressModel("gen", make(chan gen.Event))
	m = feed(m,
		gen.Event{Package: "p", Stage: gen.StagePlan, Status: gen.StatusError, Err: errors.New("boom")},
		gen.Event{Package: "p", Stage: gen.StageWrite, Status: gen.StatusDone},
	)
	pm := m.(*progressModel)
	assert.Equal(t, "error", pm.items[0].status)
}

func TestProgressQuitsWhenEventsClose(t *testing.T) {
	m := NewProgressModel("gen", make(chan gen.Event))
	m, cmd := m.Update(doneMsg{})
	require.NotNil(t, cmd)
	assert.True(t, m.(*progressModel).done)
	assert.Contains(t, m.View(), "done: gen")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exam...", truncate("example.com/long/path", 7))
	assert.Equal(t, "ex", truncate("example", 2))
}

func TestProgressSummaryAndErrors(t *testing.T) {
	m := NewProgressModel("gen", make(chan gen.Event))
	m = feed(m,
		gen.Event{Package: "a", Stage: gen.StageLoad, Status: gen.StatusDone, Elapsed: 40 * time.Millisecond},
		gen.Event{Package: "a", Stage: gen.StageWrite, Status: gen.StatusDone, Elapsed: 2 * time.Millisecond},
		gen.Event{Package: "b", Stage: gen.StageWrite, Status: gen.StatusCached},
		gen.Event{Package: "c", Stage: gen.StagePlan, Status: gen.StatusError, Err: errors.New("bad directive")},
	)
	pm := m.(*progressModel)
	assert.Equal(t, 42*time.Millisecond, pm.items[0].elapsed)
	assert.InDelta(t, 1.0, pm.fraction(), 1e-9)

	m, _ = m.Update(doneMsg{})
	view := m.View()
	assert.Contains(t, view, "bad directive")
	assert.Contains(t, view, "42ms")
	assert.Contains(t, view, "1 done, 1 cached, 1 error")
}
