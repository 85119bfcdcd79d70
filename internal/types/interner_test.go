package types

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	gotypes "go/types"
	"reflect"
	"testing"
)

func TestInternerBasics(t *testing.T) {
	in := NewInterner()
	str := in.Basic(KindString, WidthAny)
	if str == NoTypeID || in.Basic(KindString, WidthAny) != str {
		t.Fatalf("basic types should intern once, got %d", str)
	}
	got, _ := in.Lookup(str)
	if got.Kind != KindString {
		t.Fatalf("expected string kind, got %v", got.Kind)
	}
	if in.Intern(Type{}) != NoTypeID {
		t.Fatalf("invalid descriptors must not be interned")
	}
	if in.Len() != 1 {
		t.Fatalf("expected one interned type, got %d", in.Len())
	}
}

func TestInternerDeduplicatesDescriptors(t *testing.T) {
	in := NewInterner()
	elem := in.Intern(Type{Kind: KindString})
	arr1 := in.Intern(ArrayOf(elem, 4))
	arr2 := in.Intern(ArrayOf(elem, 4))
	if arr1 != arr2 {
		t.Fatalf("array types should be deduplicated")
	}
	if arr3 := in.Intern(ArrayOf(elem, 5)); arr3 == arr1 {
		t.Fatalf("array length must affect identity")
	}
}

func TestStructsAreNominal(t *testing.T) {
	in := NewInterner()
	a := in.NewStruct("Point", "geo")
	b := in.NewStruct("Point", "geo")
	if a == b {
		t.Fatalf("struct registrations must not be deduplicated")
	}
	in.SetFields(a, []StructField{{Name: "X", Type: in.Basic(KindInt, WidthAny), Exported: true}})
	if got := in.StructFields(a); len(got) != 1 || got[0].Name != "X" {
		t.Fatalf("unexpected fields: %+v", got)
	}
	if got := in.StructFields(b); got != nil {
		t.Fatalf("fields leaked between slots: %+v", got)
	}
}

type point struct {
	X, Y float32
	tag  string
}

type node struct {
	Value int16
	Next  *node
	Kids  []node
}

func TestFromReflect(t *testing.T) {
	in := NewInterner()
	id := in.FromReflect(reflect.TypeFor[point]())
	if again := in.FromReflect(reflect.TypeFor[point]()); again != id {
		t.Fatalf("expected memoized id %d, got %d", id, again)
	}
	fields := in.StructFields(id)
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fields))
	}
	if fields[2].Exported {
		t.Fatalf("tag should be unexported")
	}
	if got := in.Label(id); got != "types.point" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := in.Label(fields[0].Type); got != "float32" {
		t.Fatalf("unexpected field label %q", got)
	}

	type celsius float64
	if in.FromReflect(reflect.TypeFor[celsius]()) != in.Basic(KindFloat, Width64) {
		t.Fatalf("named scalars should intern their underlying type")
	}
}

func TestFromReflectSelfReference(t *testing.T) {
	in := NewInterner()
	id := in.FromReflect(reflect.TypeFor[node]())
	fields := in.StructFields(id)
	next, _ := in.Lookup(fields[1].Type)
	if next.Kind != KindPointer || next.Elem != id {
		t.Fatalf("expected pointer back to node, got %+v", next)
	}
	if got := in.Label(fields[2].Type); got != "[]types.node" {
		t.Fatalf("unexpected label %q", got)
	}
}

const src = `package geo

type Point struct {
	X, Y float32
	tag  string
}

type Alias = Point

type Twice = Alias

type Holder struct {
	P *Alias
	Q Twice
}

type Grid struct {
	Point
	Cells [3][2]uint8
	Index map[string]int
}
`

func checkGeo(t *testing.T) *gotypes.Package {
	t.Helper()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "geo.go", src, 0)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	conf := gotypes.Config{Importer: importer.Default()}
	pkg, err := conf.Check("example.com/geo", fset, []*ast.File{file}, nil)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	return pkg
}

func TestFromGoTypes(t *testing.T) {
	pkg := checkGeo(t)
	in := NewInterner()
	point := in.FromGoTypes(pkg.Scope().Lookup("Point").Type())
	if got := in.Label(point); got != "geo.Point" {
		t.Fatalf("unexpected label %q", got)
	}
	if alias := in.FromGoTypes(pkg.Scope().Lookup("Alias").Type()); alias != point {
		t.Fatalf("alias should resolve to the aliased struct")
	}

	grid := in.FromGoTypes(pkg.Scope().Lookup("Grid").Type())
	fields := in.StructFields(grid)
	if len(fields) != 3 || !fields[0].Embedded || fields[0].Type != point {
		t.Fatalf("unexpected grid fields: %+v", fields)
	}
	if got := in.Label(fields[1].Type); got != "[3][2]uint8" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := in.Label(fields[2].Type); got != "map[string]int" {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestAliasInternedBeforeTarget(t *testing.T) {
	pkg := checkGeo(t)
	in := NewInterner()
	alias := in.FromGoTypes(pkg.Scope().Lookup("Twice").Type())
	structs := in.Len()
	point := in.FromGoTypes(pkg.Scope().Lookup("Point").Type())
	if alias != point {
		t.Fatalf("alias chain interned as %d, struct as %d", alias, point)
	}
	if in.Len() != structs {
		t.Fatalf("interning the struct after its alias added %d types", in.Len()-structs)
	}

	holder := in.FromGoTypes(pkg.Scope().Lookup("Holder").Type())
	fields := in.StructFields(holder)
	ptr, _ := in.Lookup(fields[0].Type)
	if ptr.Kind != KindPointer || ptr.Elem != point {
		t.Fatalf("*Alias should point at the struct, got %+v", ptr)
	}
	if fields[1].Type != point {
		t.Fatalf("Twice field interned as %d, want %d", fields[1].Type, point)
	}
}

func TestLabelAnonymousStruct(t *testing.T) {
	in := NewInterner()
	id := in.FromReflect(reflect.TypeFor[struct {
		A    int
		B    *[]string
		C    map[uint16]complex64
		Done chan bool
	}]())
	want := "struct{A int; B *[]string; C map[uint16]complex64; Done chan bool}"
	if got := in.Label(id); got != want {
		t.Fatalf("label %q, want %q", got, want)
	}
	if got := in.Label(NoTypeID); got != "?" {
		t.Fatalf("label of NoTypeID %q", got)
	}
}
