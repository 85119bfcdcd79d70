package diag

import (
	"go/token"
	"testing"
)

func pos(file string, line, col int) token.Position {
	return token.Position{Filename: file, Line: line, Column: col}
}

func TestFormat(t *testing.T) {
	diags := []Diagnostic{
		Errorf(DirUnknown, pos("/work/geo/point.go", 3, 1), "unknown directive %q\nsecond", "reflex:bogus").
			WithNote(pos("/work/geo/point.go", 5, 2), "on type Point"),
		New(SevWarning, RegUnexportedSkipped, pos("/work/geo/point.go", 5, 2), "field lat"),
	}

	want := "error DIR1001 geo/point.go:3:1 unknown directive \"reflex:bogus\" second\n" +
		"note DIR1001 geo/point.go:5:2 on type Point\n" +
		"warning REG3002 geo/point.go:5:2 field lat"
	if got := Format(diags, "/work", true); got != want {
		t.Fatalf("unexpected output:\nwant:\n%s\n\ngot:\n%s", want, got)
	}
}

func TestBagLimitAndMerge(t *testing.T) {
	b := NewBag(1)
	if !b.Add(New(SevInfo, DirInfo, pos("a.go", 1, 1), "x")) {
		t.Fatal("first add should succeed")
	}
	if b.Add(New(SevInfo, DirInfo, pos("a.go", 2, 1), "y")) {
		t.Fatal("add beyond the limit should fail")
	}

	other := NewBag(4)
	other.Add(Errorf(LoadPackage, pos("b.go", 1, 1), "broken"))
	other.Add(Errorf(LoadPackage, pos("b.go", 1, 1), "broken again"))
	b.Merge(other)
	if b.Len() != 3 || !b.HasErrors() {
		t.Fatalf("merge: len=%d errors=%v", b.Len(), b.HasErrors())
	}
	b.Dedup()
	if b.Len() != 2 {
		t.Fatalf("dedup kept %d", b.Len())
	}
}

func TestSortOrdersBySeverityWithinPosition(t *testing.T) {
	b := NewBag(8)
	b.Add(New(SevWarning, RegEmpty, pos("a.go", 4, 1), "w"))
	b.Add(New(SevError, RegNotStruct, pos("a.go", 4, 1), "e"))
	b.Add(New(SevInfo, RegInfo, pos("a.go", 1, 1), "i"))
	b.Sort()
	got := []Code{b.Items()[0].Code, b.Items()[1].Code, b.Items()[2].Code}
	want := []Code{RegInfo, RegNotStruct, RegEmpty}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order %v, want %v", got, want)
		}
	}
}

func TestDedupReporter(t *testing.T) {
	var got []Diagnostic
	r := NewDedupReporter(ReporterFunc(func(d Diagnostic) { got = append(got, d) }))
	d := Errorf(DirDuplicate, pos("a.go", 1, 1), "twice")
	r.Report(d)
	r.Report(d)
	ReportWarning(r, DirDuplicate, pos("a.go", 1, 1), "twice").Emit()
	if len(got) != 2 {
		t.Fatalf("expected 2 forwarded diagnostics, got %d", len(got))
	}
}

func TestCodeIDs(t *testing.T) {
	for code, want := range map[Code]string{
		DirMisplaced:     "DIR1002",
		LoadPackage:      "LOD2001",
		RegRefNotPointer: "REG3004",
		IOWriteFile:      "IO4001",
		UnknownCode:      "E0000",
	} {
		if got := code.ID(); got != want {
			t.Errorf("%d: got %s, want %s", code, got, want)
		}
	}
}

func TestBagCountsDropped(t *testing.T) {
	b := NewBag(0)
	if b.Add(New(SevInfo, RegInfo, pos("a.go", 1, 1), "x")) {
		t.Fatal("a zero-limit bag keeps nothing")
	}
	other := NewBag(1)
	other.Add(New(SevInfo, RegInfo, pos("a.go", 1, 1), "x"))
	other.Add(New(SevInfo, RegInfo, pos("a.go", 2, 1), "y"))
	b.Merge(other)
	if b.Len() != 1 || b.Dropped() != 2 {
		t.Fatalf("len=%d dropped=%d", b.Len(), b.Dropped())
	}
}

func TestPendingEmitsOnce(t *testing.T) {
	var got []Diagnostic
	r := ReporterFunc(func(d Diagnostic) { got = append(got, d) })
	p := ReportError(r, DirConflict, pos("a.go", 1, 1), "clash").WithNote(pos("a.go", 2, 1), "first here")
	p.Emit()
	p.Emit()
	if len(got) != 1 || len(got[0].Notes) != 1 || got[0].Severity != SevError {
		t.Fatalf("unexpected reports %+v", got)
	}
	ReportError(nil, DirConflict, pos("a.go", 1, 1), "nowhere").Emit()
}

func TestWithNoteDoesNotAlias(t *testing.T) {
	base := Errorf(DirConflict, pos("a.go", 1, 1), "clash").WithNote(pos("a.go", 2, 1), "one")
	a := base.WithNote(pos("a.go", 3, 1), "a")
	b := base.WithNote(pos("a.go", 4, 1), "b")
	if a.Notes[1].Msg != "a" || b.Notes[1].Msg != "b" || len(base.Notes) != 1 {
		t.Fatalf("notes aliased: %+v / %+v", a.Notes, b.Notes)
	}
}
