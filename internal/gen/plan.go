package gen

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"reflex/internal/diag"
)

// Options tune planning.
type Options struct {
	// IncludeUnexported registers unexported fields, methods and embedded
	// structs instead of skipping them with a warning.
	IncludeUnexported bool
}

// MemberKind selects the registration option emitted for a member.
type MemberKind uint8

const (
	MemberField MemberKind = iota
	MemberRef
	MemberStatic
	MemberMethod
	MemberFunc
	MemberOverload
)

func (k MemberKind) String() string {
	switch k {
	case MemberField:
		return "field"
	case MemberRef:
		return "ref"
	case MemberStatic:
		return "static"
	case MemberMethod:
		return "method"
	case MemberFunc:
		return "func"
	case MemberOverload:
		return "overload"
	}
	return fmt.Sprintf("MemberKind(%d)", k)
}

// Plan is the registration work for one package.
type Plan struct {
	PkgPath string
	PkgName string
	// Types in registration order.
	Types   []*TypePlan
	Imports []Import
}

// Import is one import the generated file may need.
type Import struct {
	Name string
	Path string
}

// TypePlan describes the registration of one struct type.
type TypePlan struct {
	Name    string
	Display string
	Notes   []string
	Members []MemberPlan
	Supers  []SuperPlan
	Pos     token.Position

	deps map[string]bool
}

// MemberPlan is one registered member. Go holds the Go expression the
// option refers to: a field name, a method expression, a variable or a
// function.
type MemberPlan struct {
	Kind       MemberKind
	Name       string
	Go         string
	Type       string
	Tag        string
	Notes      []string
	Candidates []Candidate
	Pos        token.Position
}

// Candidate is one function of an overload set.
type Candidate struct {
	Expr   string
	Notes  []string
	Method bool
	Pos    token.Position
}

// SuperPlan is one embedded struct registered as a super.
type SuperPlan struct {
	Field string
	Type  string
	Notes []string
	Pos   token.Position
}

type fieldInfo struct {
	v     *types.Var
	tag   string
	ds    []Directive
	multi bool
	pos   token.Pos
}

type superNote struct {
	base string
	expr string
	pos  token.Pos
	used bool
}

type planner struct {
	fset     *token.FileSet
	pkg      *types.Package
	files    []*ast.File
	opts     Options
	reporter diag.Reporter

	consumed map[*ast.Comment]bool
	byName   map[string]*TypePlan
	decl     []*TypePlan
	local    map[string]string
	used     map[string]string
}

// BuildPlan scans the files of a type-checked package for directives.
// Problems are reported to r; the plan is still returned so callers can
// decide whether errors are fatal.
func BuildPlan(fset *token.FileSet, pkg *types.Package, files []*ast.File, opts Options, r diag.Reporter) *Plan {
	p := &planner{
		fset:     fset,
		pkg:      pkg,
		files:    files,
		opts:     opts,
		reporter: r,
		consumed: make(map[*ast.Comment]bool),
		byName:   make(map[string]*TypePlan),
		local:    make(map[string]string),
		used:     make(map[string]string),
	}
	p.collectImports()

	for _, f := range files {
		for _, decl := range f.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, spec := range gd.Specs {
				ts := spec.(*ast.TypeSpec)
				p.planType(ts, directives(declDoc(gd, ts.Doc)...))
			}
		}
	}
	for _, f := range files {
		for _, decl := range f.Decls {
			switch d := decl.(type) {
			case *ast.FuncDecl:
				p.planFunc(d)
			case *ast.GenDecl:
				if d.Tok != token.VAR {
					continue
				}
				for _, spec := range d.Specs {
					vs := spec.(*ast.ValueSpec)
					p.planVar(vs, directives(declDoc(d, vs.Doc)...))
				}
			}
		}
	}
	p.sweep()

	for _, tp := range p.decl {
		p.checkNames(tp)
		if len(tp.Members) == 0 && len(tp.Supers) == 0 {
			diag.ReportWarning(p.reporter, diag.RegEmpty, tp.Pos, fmt.Sprintf("%s registers no members", tp.Name)).Emit()
		}
	}

	return &Plan{
		PkgPath: pkg.Path(),
		PkgName: pkg.Name(),
		Types:   registrationOrder(p.decl),
		Imports: p.imports(),
	}
}

// declDoc returns the doc groups of a spec. The doc of an unparenthesized
// declaration belongs to its only spec.
func declDoc(gd *ast.GenDecl, doc *ast.CommentGroup) []*ast.CommentGroup {
	if gd.Lparen.IsValid() {
		return []*ast.CommentGroup{doc}
	}
	return []*ast.CommentGroup{gd.Doc, doc}
}

func (p *planner) position(pos token.Pos) token.Position {
	return p.fset.Position(pos)
}

func (p *planner) errorf(code diag.Code, pos token.Pos, format string, args ...any) {
	diag.ReportError(p.reporter, code, p.position(pos), fmt.Sprintf(format, args...)).Emit()
}

func (p *planner) warnf(code diag.Code, pos token.Pos, format string, args ...any) {
	diag.ReportWarning(p.reporter, code, p.position(pos), fmt.Sprintf(format, args...)).Emit()
}

// accept validates ds against target, marks them consumed and returns the
// valid ones.
func (p *planner) accept(ds []Directive, target Target) []Directive {
	seen := make(map[string]bool, len(ds))
	out := make([]Directive, 0, len(ds))
	for _, d := range ds {
		p.consumed[d.comment] = true
		spec, ok := LookupDirective(d.Name)
		switch {
		case !ok:
			p.errorf(diag.DirUnknown, d.Pos, "unknown directive %s%s", Prefix, d.Name)
			continue
		case !spec.Allows(target):
			p.errorf(diag.DirMisplaced, d.Pos, "%s%s applies to %s, not %s", Prefix, d.Name, spec.Targets, target)
			continue
		case spec.HasFlag(FlagNeedsArg) && d.Arg == "":
			p.errorf(diag.DirBadArgument, d.Pos, "missing argument, usage: %s", spec.Usage)
			continue
		case !spec.HasFlag(FlagNeedsArg) && d.Arg != "":
			p.errorf(diag.DirBadArgument, d.Pos, "%s%s takes no argument", Prefix, d.Name)
			continue
		case seen[d.Name] && !spec.HasFlag(FlagRepeatable):
			p.errorf(diag.DirDuplicate, d.Pos, "%s%s repeated", Prefix, d.Name)
			continue
		}
		seen[d.Name] = true
		out = append(out, d)
	}
	return out
}

func find(ds []Directive, name string) (Directive, bool) {
	for _, d := range ds {
		if d.Name == name {
			return d, true
		}
	}
	return Directive{}, false
}

func has(ds []Directive, name string) bool {
	_, ok := find(ds, name)
	return ok
}

// notes returns the expressions of the note directives that parse.
func (p *planner) notes(ds []Directive) []string {
	var out []string
	for _, d := range ds {
		if d.Name != "note" {
			continue
		}
		if p.checkExpr(d.Arg, d.Pos) {
			out = append(out, d.Arg)
		}
	}
	return out
}

func (p *planner) checkExpr(expr string, pos token.Pos) bool {
	if _, err := parser.ParseExpr(expr); err != nil {
		p.errorf(diag.DirBadNote, pos, "note %q: %v", expr, err)
		return false
	}
	return true
}

// memberName resolves //reflex:name against the Go name.
func (p *planner) memberName(ds []Directive, goName string, multi bool) (string, bool) {
	d, ok := find(ds, "name")
	if !ok {
		return goName, true
	}
	if multi {
		p.errorf(diag.DirConflict, d.Pos, "%sname on a declaration of several names", Prefix)
		return "", false
	}
	if !token.IsIdentifier(d.Arg) {
		p.errorf(diag.DirBadArgument, d.Pos, "member name %q is not an identifier", d.Arg)
		return "", false
	}
	return d.Arg, true
}

func (p *planner) skipUnexported(name, what string, pos token.Pos) bool {
	if p.opts.IncludeUnexported || token.IsExported(name) {
		return false
	}
	p.warnf(diag.RegUnexportedSkipped, pos, "unexported %s %s skipped (set include_unexported to register it)", what, name)
	return true
}

func (p *planner) planType(ts *ast.TypeSpec, raw []Directive) {
	if !has(raw, "register") {
		return
	}
	ds := p.accept(raw, TargetType)
	name := ts.Name.Name
	if ts.TypeParams != nil && ts.TypeParams.NumFields() > 0 {
		p.errorf(diag.RegGenericType, ts.Pos(), "%s has type parameters; register each instantiation by hand", name)
		return
	}
	obj, ok := p.pkg.Scope().Lookup(name).(*types.TypeName)
	if !ok {
		p.errorf(diag.RegNotStruct, ts.Pos(), "%s is not a package-level type", name)
		return
	}
	st, ok := obj.Type().Underlying().(*types.Struct)
	if !ok || obj.IsAlias() {
		p.errorf(diag.RegNotStruct, ts.Pos(), "%s is %s, not a struct", name, obj.Type().Underlying())
		return
	}

	tp := &TypePlan{
		Name:  name,
		Notes: p.notes(ds),
		Pos:   p.position(ts.Pos()),
		deps:  make(map[string]bool),
	}
	if d, ok := find(ds, "name"); ok {
		tp.Display = d.Arg
	}
	var supers []*superNote
	for _, d := range ds {
		if d.Name != "super-note" {
			continue
		}
		base, expr, _ := strings.Cut(d.Arg, " ")
		expr = strings.TrimSpace(expr)
		if expr == "" {
			p.errorf(diag.DirBadArgument, d.Pos, "missing note, usage: %s", catalog["super-note"].Usage)
			continue
		}
		if p.checkExpr(expr, d.Pos) {
			supers = append(supers, &superNote{base: base, expr: expr, pos: d.Pos})
		}
	}

	for _, fi := range p.fields(ts, st) {
		p.planField(tp, fi, supers)
	}
	for _, sn := range supers {
		if !sn.used {
			p.errorf(diag.RegUnknownSuper, sn.pos, "%s does not embed %s", name, sn.base)
		}
	}

	p.byName[name] = tp
	p.decl = append(p.decl, tp)
}

// fields pairs the struct fields with their AST directives. A type defined
// from another struct type has no field syntax of its own.
func (p *planner) fields(ts *ast.TypeSpec, st *types.Struct) []fieldInfo {
	out := make([]fieldInfo, 0, st.NumFields())
	syntax, ok := ts.Type.(*ast.StructType)
	if !ok {
		for i := range st.NumFields() {
			out = append(out, fieldInfo{v: st.Field(i), tag: st.Tag(i), pos: ts.Pos()})
		}
		return out
	}
	i := 0
	for _, af := range syntax.Fields.List {
		n := max(len(af.Names), 1)
		ds := p.accept(directives(af.Doc, af.Comment), TargetField)
		for range n {
			if i >= st.NumFields() {
				return out
			}
			out = append(out, fieldInfo{v: st.Field(i), tag: st.Tag(i), ds: ds, multi: n > 1, pos: af.Pos()})
			i++
		}
	}
	return out
}

func (p *planner) planField(tp *TypePlan, fi fieldInfo, supers []*superNote) {
	v, ds := fi.v, fi.ds
	if has(ds, "skip") {
		if d, ok := find(ds, "ref"); ok {
			p.errorf(diag.DirConflict, d.Pos, "%sref on a skipped field", Prefix)
		}
		return
	}
	if v.Embedded() {
		if _, ok := deref(v.Type()).Underlying().(*types.Struct); ok {
			p.planSuper(tp, fi, supers)
			return
		}
	}
	if v.Name() == "_" {
		return
	}
	if p.skipUnexported(v.Name(), "field", fi.pos) {
		return
	}
	name, ok := p.memberName(ds, v.Name(), fi.multi)
	if !ok {
		return
	}
	m := MemberPlan{
		Kind:  MemberField,
		Name:  name,
		Go:    v.Name(),
		Type:  p.typeString(v.Type()),
		Tag:   fi.tag,
		Notes: p.notes(ds),
		Pos:   p.position(fi.pos),
	}
	if d, ok := find(ds, "ref"); ok {
		ptr, isPtr := v.Type().(*types.Pointer)
		if !isPtr {
			p.errorf(diag.RegRefNotPointer, d.Pos, "%s.%s is %s", tp.Name, v.Name(), v.Type())
			return
		}
		m.Kind = MemberRef
		m.Type = p.typeString(ptr.Elem())
	}
	tp.Members = append(tp.Members, m)
	p.dependOn(tp, v.Type())
}

func (p *planner) planSuper(tp *TypePlan, fi fieldInfo, supers []*superNote) {
	v, ds := fi.v, fi.ds
	for _, name := range []string{"ref", "name"} {
		if d, ok := find(ds, name); ok {
			p.errorf(diag.DirMisplaced, d.Pos, "%s%s is not allowed on embedded %s", Prefix, name, v.Name())
		}
	}
	if p.skipUnexported(v.Name(), "embedded struct", fi.pos) {
		return
	}
	sp := SuperPlan{
		Field: v.Name(),
		Type:  p.typeString(deref(v.Type())),
		Notes: p.notes(ds),
		Pos:   p.position(fi.pos),
	}
	for _, sn := range supers {
		if sn.base == v.Name() {
			sn.used = true
			sp.Notes = append(sp.Notes, sn.expr)
		}
	}
	tp.Supers = append(tp.Supers, sp)
	p.dependOn(tp, v.Type())
}

func (p *planner) planFunc(fd *ast.FuncDecl) {
	raw := directives(fd.Doc)
	if len(raw) == 0 {
		return
	}
	if fd.Recv != nil {
		p.planMethod(fd, raw)
		return
	}
	ds := p.accept(raw, TargetFunc)
	target, ok := find(ds, "func")
	if !ok {
		if len(ds) > 0 {
			p.warnf(diag.DirMisplaced, fd.Pos(), "%s has directives but no %sfunc <Type>", fd.Name.Name, Prefix)
		}
		return
	}
	tp := p.byName[target.Arg]
	if tp == nil {
		p.errorf(diag.DirBadArgument, target.Pos, "%s is not a registered type of package %s", target.Arg, p.pkg.Name())
		return
	}
	if fd.Type.TypeParams != nil && fd.Type.TypeParams.NumFields() > 0 {
		p.errorf(diag.RegGenericType, fd.Pos(), "generic function %s cannot be registered", fd.Name.Name)
		return
	}
	if p.skipUnexported(fd.Name.Name, "function", fd.Pos()) {
		return
	}
	p.addFunc(tp, fd, ds, fd.Name.Name, false)
}

func (p *planner) planMethod(fd *ast.FuncDecl, raw []Directive) {
	recv, pointer := receiverName(fd)
	tp := p.byName[recv]
	if tp == nil {
		return
	}
	ds := p.accept(raw, TargetMethod)
	if !has(ds, "method") && !has(ds, "overload") {
		if len(ds) > 0 {
			p.warnf(diag.DirMisplaced, fd.Pos(), "%s.%s has directives but is neither %smethod nor %soverload", recv, fd.Name.Name, Prefix, Prefix)
		}
		return
	}
	if p.skipUnexported(fd.Name.Name, "method", fd.Pos()) {
		return
	}
	expr := recv + "." + fd.Name.Name
	if pointer {
		expr = "(*" + recv + ")." + fd.Name.Name
	}
	p.addFunc(tp, fd, ds, expr, true)
}

func (p *planner) addFunc(tp *TypePlan, fd *ast.FuncDecl, ds []Directive, expr string, method bool) {
	pos := p.position(fd.Pos())
	if d, ok := find(ds, "overload"); ok {
		if n, ok := find(ds, "name"); ok {
			p.errorf(diag.DirConflict, n.Pos, "%sname and %soverload on one function", Prefix, Prefix)
			return
		}
		if !token.IsIdentifier(d.Arg) {
			p.errorf(diag.DirBadArgument, d.Pos, "overload name %q is not an identifier", d.Arg)
			return
		}
		p.addCandidate(tp, d.Arg, Candidate{Expr: expr, Notes: p.notes(ds), Method: method, Pos: pos})
		return
	}
	name, ok := p.memberName(ds, fd.Name.Name, false)
	if !ok {
		return
	}
	kind := MemberFunc
	if method {
		kind = MemberMethod
	}
	tp.Members = append(tp.Members, MemberPlan{Kind: kind, Name: name, Go: expr, Notes: p.notes(ds), Pos: pos})
}

func (p *planner) addCandidate(tp *TypePlan, name string, c Candidate) {
	for i := range tp.Members {
		m := &tp.Members[i]
		if m.Kind != MemberOverload || m.Name != name {
			continue
		}
		if m.Candidates[0].Method != c.Method {
			diag.ReportError(p.reporter, diag.RegOverloadMismatch, c.Pos,
				fmt.Sprintf("overload %s mixes methods and free functions", name)).
				WithNote(m.Pos, "set declared here").
				Emit()
			return
		}
		m.Candidates = append(m.Candidates, c)
		return
	}
	tp.Members = append(tp.Members, MemberPlan{
		Kind:       MemberOverload,
		Name:       name,
		Candidates: []Candidate{c},
		Pos:        c.Pos,
	})
}

func (p *planner) planVar(vs *ast.ValueSpec, raw []Directive) {
	if len(raw) == 0 {
		return
	}
	ds := p.accept(raw, TargetVar)
	target, ok := find(ds, "static")
	if !ok {
		if len(ds) > 0 {
			p.warnf(diag.DirMisplaced, vs.Pos(), "variable has directives but no %sstatic <Type>", Prefix)
		}
		return
	}
	tp := p.byName[target.Arg]
	if tp == nil {
		p.errorf(diag.DirBadArgument, target.Pos, "%s is not a registered type of package %s", target.Arg, p.pkg.Name())
		return
	}
	for _, id := range vs.Names {
		if id.Name == "_" || p.skipUnexported(id.Name, "variable", id.Pos()) {
			continue
		}
		name, ok := p.memberName(ds, id.Name, len(vs.Names) > 1)
		if !ok {
			return
		}
		m := MemberPlan{
			Kind:  MemberStatic,
			Name:  name,
			Go:    id.Name,
			Notes: p.notes(ds),
			Pos:   p.position(id.Pos()),
		}
		if v, ok := p.pkg.Scope().Lookup(id.Name).(*types.Var); ok {
			m.Type = p.typeString(v.Type())
		}
		tp.Members = append(tp.Members, m)
	}
}

// sweep reports directives no declaration consumed.
func (p *planner) sweep() {
	for _, f := range p.files {
		for _, g := range f.Comments {
			for _, c := range g.List {
				d, ok := parseDirective(c)
				if !ok || p.consumed[c] {
					continue
				}
				if _, known := LookupDirective(d.Name); !known {
					p.errorf(diag.DirUnknown, d.Pos, "unknown directive %s%s", Prefix, d.Name)
					continue
				}
				p.warnf(diag.DirMisplaced, d.Pos, "%s%s has no effect here", Prefix, d.Name)
			}
		}
	}
}

// checkNames drops members whose name is already taken. Names compare in
// NFC, as the registry does.
func (p *planner) checkNames(tp *TypePlan) {
	seen := make(map[string]token.Position, len(tp.Members))
	kept := tp.Members[:0]
	for _, m := range tp.Members {
		key := norm.NFC.String(m.Name)
		if prev, dup := seen[key]; dup {
			diag.ReportError(p.reporter, diag.RegNameConflict, m.Pos,
				fmt.Sprintf("%s.%s is already registered", tp.Name, m.Name)).
				WithNote(prev, "first registered here").
				Emit()
			continue
		}
		seen[key] = m.Pos
		kept = append(kept, m)
	}
	tp.Members = kept
}

func receiverName(fd *ast.FuncDecl) (string, bool) {
	if fd.Recv == nil || len(fd.Recv.List) == 0 {
		return "", false
	}
	expr := fd.Recv.List[0].Type
	pointer := false
	if star, ok := expr.(*ast.StarExpr); ok {
		expr, pointer = star.X, true
	}
	if id, ok := expr.(*ast.Ident); ok {
		return id.Name, pointer
	}
	return "", pointer
}

func deref(t types.Type) types.Type {
	if ptr, ok := t.(*types.Pointer); ok {
		return ptr.Elem()
	}
	return t
}

// dependOn records the package types t is built from, so they register
// first.
func (p *planner) dependOn(tp *TypePlan, t types.Type) {
	for {
		switch u := t.(type) {
		case *types.Pointer:
			t = u.Elem()
			continue
		case *types.Slice:
			t = u.Elem()
			continue
		case *types.Array:
			t = u.Elem()
			continue
		case *types.Named:
			if u.Obj().Pkg() == p.pkg && u.Obj().Name() != tp.Name {
				tp.deps[u.Obj().Name()] = true
			}
		}
		return
	}
}

func (p *planner) collectImports() {
	for _, imp := range p.pkg.Imports() {
		p.local[imp.Path()] = imp.Name()
	}
	for _, f := range p.files {
		for _, spec := range f.Imports {
			if spec.Name == nil {
				continue
			}
			path, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				continue
			}
			p.local[path] = spec.Name.Name
		}
	}
}

func (p *planner) qualify(other *types.Package) string {
	if other == p.pkg {
		return ""
	}
	name, ok := p.local[other.Path()]
	if !ok || name == "_" || name == "." {
		name = other.Name()
	}
	if name == other.Name() {
		p.used[other.Path()] = ""
	} else {
		p.used[other.Path()] = name
	}
	return name
}

func (p *planner) typeString(t types.Type) string {
	return types.TypeString(t, p.qualify)
}

// imports lists every import of the package files plus those the rendered
// types need. Unused ones are pruned when the output is formatted.
func (p *planner) imports() []Import {
	byPath := make(map[string]string)
	for _, f := range p.files {
		for _, spec := range f.Imports {
			path, err := strconv.Unquote(spec.Path.Value)
			if err != nil || path == "C" {
				continue
			}
			name := ""
			if spec.Name != nil {
				name = spec.Name.Name
			}
			if name == "_" || name == "." {
				continue
			}
			byPath[path] = name
		}
	}
	for path, name := range p.used {
		if _, ok := byPath[path]; !ok {
			byPath[path] = name
		}
	}
	out := make([]Import, 0, len(byPath))
	for path, name := range byPath {
		out = append(out, Import{Name: name, Path: path})
	}
	slices.SortFunc(out, func(a, b Import) int { return strings.Compare(a.Path, b.Path) })
	return out
}
