// Package ui renders generator progress in the terminal.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"reflex/internal/gen"
)

// stageInfo is how a stage reads while it runs and how far through a
// package it is.
var stageInfo = map[gen.Stage]struct {
	verb   string
	weight float64
}{
	gen.StageLoad:  {"loading", 0.2},
	gen.StagePlan:  {"planning", 0.5},
	gen.StageEmit:  {"emitting", 0.8},
	gen.StageWrite: {"writing", 0.95},
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	busyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	goodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	plainStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	faintStyle = lipgloss.NewStyle().Faint(true)
)

const statusWidth = 10

type progressModel struct {
	title      string
	events     <-chan gen.Event
	spinner    spinner.Model
	bar        progress.Model
	items      []pkgItem
	byPath     map[string]*pkgItem
	stageLabel string // run-level stage in progress
	width      int
	done       bool
}

type pkgItem struct {
	path    string
	status  string
	stage   gen.Stage
	final   bool
	elapsed time.Duration // summed over finished stages
	err     string
}

type eventMsg gen.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders generator
// progress. Packages appear as their first event arrives; the model quits
// when events is closed.
func NewProgressModel(title string, events <-chan gen.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = busyStyle

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 76

	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     bar,
		byPath:  make(map[string]*pkgItem),
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

// next waits for one event off the channel.
func (m *progressModel) next() tea.Cmd {
	return func() tea.Msg {
		if ev, ok := <-m.events; ok {
			return eventMsg(ev)
		}
		return doneMsg{}
	}
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.apply(gen.Event(msg)), m.next())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = msg.Width - 4
		}
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) apply(ev gen.Event) tea.Cmd {
	label := statusLabel(ev.Stage, ev.Status)
	if ev.Package == "" {
		m.stageLabel = ""
		if ev.Status == gen.StatusWorking {
			m.stageLabel = label
		}
		return nil
	}
	item, ok := m.byPath[ev.Package]
	if !ok {
		m.items = append(m.items, pkgItem{path: ev.Package})
		m.reindex()
		item = m.byPath[ev.Package]
	}
	if item.final || label == "" {
		return nil
	}
	item.status, item.stage, item.final = label, ev.Stage, isFinal(ev)
	item.elapsed += ev.Elapsed
	if ev.Err != nil {
		item.err = ev.Err.Error()
	}
	return m.bar.SetPercent(m.fraction())
}

// reindex refreshes byPath after items may have moved.
func (m *progressModel) reindex() {
	for i := range m.items {
		m.byPath[m.items[i].path] = &m.items[i]
	}
}

func (m *progressModel) fraction() float64 {
	if len(m.items) == 0 {
		return 0
	}
	var sum float64
	for _, it := range m.items {
		if it.final {
			sum++
		} else {
			sum += stageInfo[it.stage].weight
		}
	}
	return sum / float64(len(m.items))
}

func (m *progressModel) View() string {
	header := m.title
	if m.stageLabel != "" {
		header += " (" + m.stageLabel + ")"
	}
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header) + "\n\n")
	nameWidth := max(m.width-statusWidth-14, 20)
	for _, it := range m.items {
		fmt.Fprintf(&b, "  %s %s", statusStyle(it).Render(fmt.Sprintf("%*s", statusWidth, it.status)), truncate(it.path, nameWidth))
		switch {
		case it.err != "":
			b.WriteString("  " + badStyle.Render(truncate(it.err, max(m.width-statusWidth-4, 20))))
		case it.final && it.elapsed > 0:
			b.WriteString("  " + faintStyle.Render(it.elapsed.Round(time.Millisecond).String()))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if m.done {
		b.WriteString(m.bar.ViewAs(1) + "\n" + m.summary())
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteString("\n")
	return b.String()
}

// summary counts packages by final status, e.g. "2 done, 1 cached".
func (m *progressModel) summary() string {
	order := []string{"done", "cached", "skipped", "error"}
	counts := make(map[string]int, len(order))
	for _, it := range m.items {
		counts[it.status]++
	}
	var parts []string
	for _, s := range order {
		if n := counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, s))
		}
	}
	if len(parts) == 0 {
		return faintStyle.Render("no packages")
	}
	return faintStyle.Render(strings.Join(parts, ", "))
}

func isFinal(ev gen.Event) bool {
	switch ev.Status {
	case gen.StatusCached, gen.StatusSkipped, gen.StatusError:
		return true
	case gen.StatusDone:
		return ev.Stage == gen.StageWrite
	}
	return false
}

// statusLabel names a package's state. Work in progress reads as the
// stage verb; finished stages other than write keep it too.
func statusLabel(stage gen.Stage, status gen.Status) string {
	switch status {
	case gen.StatusQueued, gen.StatusCached, gen.StatusSkipped, gen.StatusError:
		return string(status)
	case gen.StatusDone:
		if stage == gen.StageWrite {
			return "done"
		}
		return stageInfo[stage].verb
	case gen.StatusWorking:
		return stageInfo[stage].verb
	}
	return ""
}

func statusStyle(it pkgItem) lipgloss.Style {
	switch {
	case it.status == "error":
		return badStyle
	case it.status == "done" || it.status == "cached":
		return goodStyle
	case !it.final && it.status != "queued":
		return busyStyle
	}
	return plainStyle
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	tail := "..."
	if width <= len(tail) {
		tail = ""
	}
	return runewidth.Truncate(value, width, tail)
}
