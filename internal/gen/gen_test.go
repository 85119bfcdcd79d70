package gen

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reflex/internal/diag"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) OnEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func TestRunDryRunRendersFixture(t *testing.T) {
	bag := diag.NewBag(50)
	sink := &recordingSink{}
	res, err := Run(context.Background(), &Request{
		Patterns: []string{"./testdata/geo"},
		DryRun:   true,
		Jobs:     2,
		Reporter: &diag.BagReporter{Bag: bag},
		Progress: sink,
	})
	require.NoError(t, err)
	require.Len(t, res.Packages, 1)
	assert.False(t, res.Failed(), diag.Format(bag.Items(), "", true))

	pr := res.Packages[0]
	assert.Equal(t, "reflex/internal/gen/testdata/geo", pr.PkgPath)
	assert.Equal(t, []string{"Base", "Owner", "Point"}, pr.Types)
	assert.False(t, pr.Written)
	assert.Equal(t, DefaultOutput, filepath.Base(pr.Output))

	src := string(pr.Source)
	require.True(t, IsGenerated(pr.Source))
	for _, want := range []string{
		"package geo",
		`reflex.MustRegister[Base](`,
		`reflex.Accessor("ID", func(v *Base) *int { return &v.ID }, reflect.StructTag("json:\"id\"")),`,
		`reflex.Named("geo.Point"),`,
		`reflex.Note(Unit("deg")),`,
		`reflex.WithSuper[Base](notes.Rename{Name: "base"}),`,
		`reflex.Accessor("Lat", func(v *Point) *float64 { return &v.Lat }, Range{-90, 90}, reflect.StructTag("json:\"lat\"")),`,
		`reflex.Accessor("Owner", func(v *Point) *Owner { return v.Owner }),`,
		`reflex.Accessor("Age", func(v *Point) *time.Duration { return &v.TTL }),`,
		`reflex.Static("Count", &Count),`,
		`reflex.FuncAs("Norm", Point.Norm),`,
		`reflex.Overloaded("Move", (*Point).MoveBy, overload.Annotate((*Point).MoveTo, Unit("rad"))),`,
		`reflex.FuncAs("Origin", Origin),`,
	} {
		assert.Contains(t, src, want)
	}
	assert.NotContains(t, src, "Cache")
	assert.NotContains(t, src, "hidden")

	// Owner registers before Point, which refers to it.
	assert.Less(t, strings.Index(src, "MustRegister[Owner]"), strings.Index(src, "MustRegister[Point]"))

	require.Len(t, bag.Items(), 1)
	assert.Equal(t, diag.RegUnexportedSkipped, bag.Items()[0].Code)

	var stages []Stage
	for _, ev := range sink.events {
		if ev.Package == pr.PkgPath && ev.Status == StatusDone {
			stages = append(stages, ev.Stage)
		}
	}
	assert.Equal(t, []Stage{StageLoad, StagePlan, StageEmit}, stages)
}

func TestWriteKeepsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, DefaultOutput)
	require.NoError(t, os.WriteFile(out, []byte("package x\n"), 0o644))

	bag := diag.NewBag(10)
	u := &unit{result: PackageResult{Output: out, Source: []byte(Header + "\npackage x\n")}}
	write(&Request{}, u, &diag.BagReporter{Bag: bag})
	assert.True(t, u.result.Failed)
	require.Equal(t, 1, bag.Len())
	assert.Equal(t, diag.IOWriteFile, bag.Items()[0].Code)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "package x\n", string(data))
}

func TestWriteReplacesAndRemovesGenerated(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, DefaultOutput)
	src := []byte(Header + "\npackage x\n")

	u := &unit{result: PackageResult{Output: out, Source: src}}
	write(&Request{}, u, diag.ReporterFunc(func(d diag.Diagnostic) { t.Fatalf("unexpected %v", d) }))
	assert.True(t, u.result.Written)

	// Unchanged content is not rewritten.
	u = &unit{result: PackageResult{Output: out, Source: src}}
	write(&Request{}, u, diag.ReporterFunc(func(d diag.Diagnostic) { t.Fatalf("unexpected %v", d) }))
	assert.False(t, u.result.Written)

	u = &unit{result: PackageResult{Output: out}}
	write(&Request{}, u, diag.ReporterFunc(func(d diag.Diagnostic) { t.Fatalf("unexpected %v", d) }))
	assert.True(t, u.result.Removed)
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestErrorPosition(t *testing.T) {
	tests := []struct {
		in   string
		file string
		line int
		col  int
	}{
		{"/src/a.go:3:7", "/src/a.go", 3, 7},
		{"/src/a.go:12", "/src/a.go", 12, 0},
		{"-", "", 0, 0},
		{"", "", 0, 0},
		{"go.mod", "go.mod", 0, 0},
	}
	for _, tt := range tests {
		pos := errorPosition(tt.in)
		assert.Equal(t, tt.file, pos.Filename, tt.in)
		assert.Equal(t, tt.line, pos.Line, tt.in)
		assert.Equal(t, tt.col, pos.Column, tt.in)
	}
}

func TestMemberOptionRendering(t *testing.T) {
	tp := &TypePlan{Name: "T"}
	tests := []struct {
		m    MemberPlan
		want string
	}{
		{MemberPlan{Kind: MemberField, Name: "A", Go: "A", Type: "int"},
			`reflex.Accessor("A", func(v *T) *int { return &v.A })`},
		{MemberPlan{Kind: MemberRef, Name: "P", Go: "P", Type: "U", Notes: []string{"n"}},
			`reflex.Accessor("P", func(v *T) *U { return v.P }, n)`},
		{MemberPlan{Kind: MemberStatic, Name: "S", Go: "s"},
			`reflex.Static("S", &s)`},
		{MemberPlan{Kind: MemberMethod, Name: "M", Go: "(*T).M", Notes: []string{"a", "b"}},
			`reflex.FuncAs("M", (*T).M, a, b)`},
		{MemberPlan{Kind: MemberOverload, Name: "O", Candidates: []Candidate{{Expr: "T.A"}, {Expr: "T.B", Notes: []string{"x"}}}},
			`reflex.Overloaded("O", T.A, overload.Annotate(T.B, x))`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, memberOption(tp, tt.m))
	}
}

func TestMultiSinkFansOut(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	ch := make(chan Event, 1)
	sink := MultiSink{a, nil, ChannelSink{Ch: ch}, b}
	sink.OnEvent(Event{Package: "p", Stage: StagePlan, Status: StatusDone})
	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	assert.Equal(t, "p", (<-ch).Package)
}
