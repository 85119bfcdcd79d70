package gen

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reflex/internal/diag"
)

func planSource(t *testing.T, src string, opts Options) (*Plan, *diag.Bag) {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "fixture.go", src, parser.ParseComments)
	require.NoError(t, err)
	conf := types.Config{Importer: importer.ForCompiler(fset, "source", nil)}
	pkg, err := conf.Check("example.com/fixture", fset, []*ast.File{f}, nil)
	require.NoError(t, err)
	bag := diag.NewBag(100)
	plan := BuildPlan(fset, pkg, []*ast.File{f}, opts, &diag.BagReporter{Bag: bag})
	return plan, bag
}

func codes(bag *diag.Bag) []diag.Code {
	var out []diag.Code
	for _, d := range bag.Items() {
		out = append(out, d.Code)
	}
	return out
}

func typeNamed(plan *Plan, name string) *TypePlan {
	for _, tp := range plan.Types {
		if tp.Name == name {
			return tp
		}
	}
	return nil
}

const shapes = `package fixture

import "time"

type Tag string

//reflex:register
//reflex:note Tag("shape")
type Shape struct {
	//reflex:note Tag("x")
	X, Y int ` + "`json:\"pos\"`" + `
	//reflex:ref
	Next *Shape
	//reflex:name Label
	Title   string
	Timeout time.Duration
	secret  int
	_       [4]byte
}

//reflex:method
func (s Shape) Area() int { return s.X * s.Y }

//reflex:method
//reflex:name Grow
func (s *Shape) grow(n int) { s.X += n + s.secret }

//reflex:static Shape
//reflex:note Tag("limit")
var Limit = 10

func helper() {}
`

func TestPlanMembers(t *testing.T) {
	plan, bag := planSource(t, shapes, Options{})
	require.False(t, bag.HasErrors(), diag.Format(bag.Items(), "", true))
	assert.Equal(t, "fixture", plan.PkgName)
	require.Len(t, plan.Types, 1)

	tp := plan.Types[0]
	assert.Equal(t, "Shape", tp.Name)
	assert.Equal(t, []string{`Tag("shape")`}, tp.Notes)

	var names []string
	var kinds []MemberKind
	for _, m := range tp.Members {
		names = append(names, m.Name)
		kinds = append(kinds, m.Kind)
	}
	assert.Equal(t, []string{"X", "Y", "Next", "Label", "Timeout", "Area", "Limit"}, names)
	assert.Equal(t, []MemberKind{MemberField, MemberField, MemberRef, MemberField, MemberField, MemberMethod, MemberStatic}, kinds)

	x := tp.Members[0]
	assert.Equal(t, "int", x.Type)
	assert.Equal(t, `json:"pos"`, x.Tag)
	assert.Equal(t, []string{`Tag("x")`}, x.Notes)
	assert.Equal(t, []string{`Tag("x")`}, tp.Members[1].Notes)

	assert.Equal(t, "Shape", tp.Members[2].Type)
	assert.Equal(t, "Title", tp.Members[3].Go)
	assert.Equal(t, "time.Duration", tp.Members[4].Type)
	assert.Equal(t, "Shape.Area", tp.Members[5].Go)
	assert.Equal(t, []string{`Tag("limit")`}, tp.Members[6].Notes)

	assert.Contains(t, plan.Imports, Import{Path: "time"})

	// secret and grow are unexported.
	assert.Equal(t, []diag.Code{diag.RegUnexportedSkipped, diag.RegUnexportedSkipped}, codes(bag))
}

func TestPlanIncludeUnexported(t *testing.T) {
	plan, bag := planSource(t, shapes, Options{IncludeUnexported: true})
	assert.Empty(t, bag.Items())
	tp := plan.Types[0]
	var names []string
	for _, m := range tp.Members {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"X", "Y", "Next", "Label", "Timeout", "secret", "Area", "Grow", "Limit"}, names)
	assert.Equal(t, "(*Shape).grow", tp.Members[7].Go)
}

func TestPlanSupersAndOverloads(t *testing.T) {
	src := `package fixture

type Note struct{ S string }

//reflex:register
//reflex:super-note Base Note{"primary"}
type Leaf struct {
	Base
	//reflex:note Note{"extra"}
	*Extra
	Name string
}

//reflex:register
type Base struct{ ID int }

type Extra struct{ N int }

//reflex:overload Draw
func (l *Leaf) DrawInt(n int) {}

//reflex:overload Draw
//reflex:note Note{"text"}
func (l Leaf) DrawText(s string) {}

//reflex:func Leaf
//reflex:overload Make
func MakeNamed(name string) Leaf { return Leaf{Name: name} }

//reflex:func Leaf
//reflex:overload Make
func MakeEmpty() Leaf { return Leaf{} }
`
	plan, bag := planSource(t, src, Options{})
	require.Empty(t, bag.Items(), diag.Format(bag.Items(), "", true))

	// Leaf embeds Base, so Base registers first although declared later.
	require.Len(t, plan.Types, 2)
	assert.Equal(t, "Base", plan.Types[0].Name)

	leaf := typeNamed(plan, "Leaf")
	require.NotNil(t, leaf)
	require.Len(t, leaf.Supers, 2)
	assert.Equal(t, SuperPlan{Field: "Base", Type: "Base", Notes: []string{`Note{"primary"}`}, Pos: leaf.Supers[0].Pos}, leaf.Supers[0])
	assert.Equal(t, "Extra", leaf.Supers[1].Type)
	assert.Equal(t, []string{`Note{"extra"}`}, leaf.Supers[1].Notes)

	require.Len(t, leaf.Members, 3)
	draw := leaf.Members[1]
	assert.Equal(t, MemberOverload, draw.Kind)
	assert.Equal(t, "Draw", draw.Name)
	require.Len(t, draw.Candidates, 2)
	assert.Equal(t, "(*Leaf).DrawInt", draw.Candidates[0].Expr)
	assert.Equal(t, "Leaf.DrawText", draw.Candidates[1].Expr)
	assert.Equal(t, []string{`Note{"text"}`}, draw.Candidates[1].Notes)

	mk := leaf.Members[2]
	assert.Equal(t, "Make", mk.Name)
	assert.Len(t, mk.Candidates, 2)
	assert.False(t, mk.Candidates[0].Method)
}

func TestPlanDiagnostics(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want diag.Code
		sev  diag.Severity
	}{
		{"unknown directive", `
//reflex:register
//reflex:frobnicate
type T struct{ A int }`, diag.DirUnknown, diag.SevError},
		{"not a struct", `
//reflex:register
type T int`, diag.RegNotStruct, diag.SevError},
		{"generic", `
//reflex:register
type T[E any] struct{ A E }`, diag.RegGenericType, diag.SevError},
		{"ref to value", `
//reflex:register
type T struct {
	//reflex:ref
	A int
}`, diag.RegRefNotPointer, diag.SevError},
		{"bad note", `
//reflex:register
//reflex:note Range{
type T struct{ A int }`, diag.DirBadNote, diag.SevError},
		{"unknown super", `
//reflex:register
//reflex:super-note Missing 1
type T struct{ A int }`, diag.RegUnknownSuper, diag.SevError},
		{"duplicate", `
//reflex:register
//reflex:register
type T struct{ A int }`, diag.DirDuplicate, diag.SevError},
		{"argument on flag", `
//reflex:register now
type T struct{ A int }`, diag.DirBadArgument, diag.SevError},
		{"missing argument", `
//reflex:register
type T struct {
	//reflex:name
	A int
}`, diag.DirBadArgument, diag.SevError},
		{"wrong target", `
//reflex:register
type T struct {
	//reflex:method
	A int
}`, diag.DirMisplaced, diag.SevError},
		{"name conflict", `
//reflex:register
type T struct {
	A int
	//reflex:name A
	B int
}`, diag.RegNameConflict, diag.SevError},
		{"skipped ref", `
//reflex:register
type T struct {
	//reflex:skip
	//reflex:ref
	A *int
}`, diag.DirConflict, diag.SevError},
		{"mixed overload", `
//reflex:register
type T struct{ A int }

//reflex:overload Do
func (T) DoA() {}

//reflex:func T
//reflex:overload Do
func DoB() {}`, diag.RegOverloadMismatch, diag.SevError},
		{"static of unknown type", `
//reflex:static Nope
var X int`, diag.DirBadArgument, diag.SevError},
		{"unregistered type", `
type T struct {
	//reflex:ref
	A *int
}`, diag.DirMisplaced, diag.SevWarning},
		{"floating", `
func f() {
	//reflex:skip
}`, diag.DirMisplaced, diag.SevWarning},
		{"empty", `
//reflex:register
type T struct{}`, diag.RegEmpty, diag.SevWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, bag := planSource(t, "package fixture\n"+tt.src+"\n", Options{})
			require.NotZero(t, bag.Len())
			found := false
			for _, d := range bag.Items() {
				if d.Code == tt.want {
					found = true
					assert.Equal(t, tt.sev, d.Severity)
					assert.Equal(t, "fixture.go", d.Primary.Filename)
					assert.NotZero(t, d.Primary.Line)
				}
			}
			assert.True(t, found, "want %s, got %v", tt.want, codes(bag))
		})
	}
}

func TestRegistrationOrder(t *testing.T) {
	mk := func(name string, deps ...string) *TypePlan {
		tp := &TypePlan{Name: name, deps: map[string]bool{}}
		for _, d := range deps {
			tp.deps[d] = true
		}
		return tp
	}
	names := func(tps []*TypePlan) []string {
		out := make([]string, len(tps))
		for i, tp := range tps {
			out[i] = tp.Name
		}
		return out
	}

	got := registrationOrder([]*TypePlan{mk("A", "C"), mk("B"), mk("C", "B"), mk("D", "external")})
	assert.Equal(t, []string{"B", "D", "C", "A"}, names(got))

	got = registrationOrder([]*TypePlan{mk("X", "Y"), mk("Y", "X"), mk("Z")})
	assert.Equal(t, []string{"Z", "X", "Y"}, names(got))
}

func TestDirectiveCatalog(t *testing.T) {
	specs := Directives()
	require.NotEmpty(t, specs)
	for i := 1; i < len(specs); i++ {
		assert.Less(t, specs[i-1].Name, specs[i].Name)
	}
	note, ok := LookupDirective("note")
	require.True(t, ok)
	assert.True(t, note.Allows(TargetField))
	assert.True(t, note.HasFlag(FlagRepeatable))
	assert.Equal(t, "type|field|method|var|func", note.Targets.String())

	_, ok = LookupDirective("nope")
	assert.False(t, ok)

	d, ok := parseDirective(&ast.Comment{Text: "//reflex:note  Tag(\"x\") "})
	require.True(t, ok)
	assert.Equal(t, "note", d.Name)
	assert.Equal(t, `Tag("x")`, d.Arg)

	_, ok = parseDirective(&ast.Comment{Text: "// reflex:note x"})
	assert.False(t, ok)
}
