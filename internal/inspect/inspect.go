// Package inspect reports, from source, how struct types of a package
// would be reflected: their members, member kinds, and the gc layout of
// each member on a chosen target architecture.
//
// It works on type-checked go/types packages, so no code has to be
// compiled for the target. Kinds follow auto-reflection: a struct is an
// object when it could be reflected without registration.
package inspect

import (
	"context"
	"fmt"
	gotypes "go/types"
	"path"
	"slices"
	"strconv"

	"fortio.org/safecast"

	"reflex/internal/layout"
	"reflex/internal/symname"
	"reflex/internal/trace"
	"reflex/internal/types"
	"reflex/notes"
)

// Options selects what FromPackage reports.
type Options struct {
	Target layout.Target
	// Filter is a path.Match pattern over type names; empty matches all.
	Filter string
	// MaxMembers bounds eligible structs; zero means no limit.
	MaxMembers int
}

// TypeReport describes one struct type.
type TypeReport struct {
	Name     string   `json:"name" msgpack:"name"`
	PkgPath  string   `json:"pkg_path" msgpack:"pkg_path"`
	Target   string   `json:"target" msgpack:"target"`
	Size     int      `json:"size" msgpack:"size"`
	Align    int      `json:"align" msgpack:"align"`
	Eligible bool     `json:"eligible" msgpack:"eligible"`
	Reason   string   `json:"reason,omitempty" msgpack:"reason,omitempty"`
	Supers   []Super  `json:"supers,omitempty" msgpack:"supers,omitempty"`
	Members  []Member `json:"members" msgpack:"members"`
}

// Super is an embedded struct reported as a base.
type Super struct {
	Index   int    `json:"index" msgpack:"index"`
	Type    string `json:"type" msgpack:"type"`
	Offset  int    `json:"offset" msgpack:"offset"`
	Pointer bool   `json:"pointer,omitempty" msgpack:"pointer,omitempty"`
	Tags    []Tag  `json:"tags,omitempty" msgpack:"tags,omitempty"`
}

// Member is one non-embedded field.
type Member struct {
	Index  int    `json:"index" msgpack:"index"`
	Name   string `json:"name" msgpack:"name"`
	Kind   string `json:"kind" msgpack:"kind"`
	Extent int    `json:"extent,omitempty" msgpack:"extent,omitempty"`
	Type   string `json:"type" msgpack:"type"`
	Offset int    `json:"offset" msgpack:"offset"`
	Size   int    `json:"size" msgpack:"size"`
	Align  int    `json:"align" msgpack:"align"`
	Tags   []Tag  `json:"tags,omitempty" msgpack:"tags,omitempty"`
}

// Tag is a parsed struct tag key.
type Tag struct {
	Key     string   `json:"key" msgpack:"key"`
	Name    string   `json:"name,omitempty" msgpack:"name,omitempty"`
	Options []string `json:"options,omitempty" msgpack:"options,omitempty"`
}

type inspector struct {
	pkg    *gotypes.Package
	in     *types.Interner
	engine *layout.LayoutEngine
	max    int
}

// FromPackage reports every non-generic named struct declared at package
// scope whose name matches opts.Filter, sorted by name.
func FromPackage(ctx context.Context, pkg *gotypes.Package, opts Options) ([]TypeReport, error) {
	if pkg == nil {
		return nil, fmt.Errorf("inspect: nil package")
	}
	if opts.Filter != "" {
		if _, err := path.Match(opts.Filter, ""); err != nil {
			return nil, fmt.Errorf("inspect: bad filter %q: %w", opts.Filter, err)
		}
	}
	_, span := trace.StartSpan(ctx, trace.ScopePackage, "inspect")
	span.Set("package", pkg.Path())

	in := types.NewInterner()
	ins := &inspector{
		pkg:    pkg,
		in:     in,
		engine: layout.New(opts.Target, in),
		max:    opts.MaxMembers,
	}

	var out []TypeReport
	scope := pkg.Scope()
	for _, name := range scope.Names() {
		tn, ok := scope.Lookup(name).(*gotypes.TypeName)
		if !ok || tn.IsAlias() {
			continue
		}
		named, ok := tn.Type().(*gotypes.Named)
		if !ok || named.TypeParams().Len() > 0 {
			continue
		}
		if _, ok := named.Underlying().(*gotypes.Struct); !ok {
			continue
		}
		if opts.Filter != "" {
			if ok, _ := path.Match(opts.Filter, name); !ok {
				continue
			}
		}
		rep, err := ins.report(named)
		if err != nil {
			span.Fail(err)
			return nil, err
		}
		out = append(out, rep)
	}
	span.Set("types", strconv.Itoa(len(out))).End("")
	return out, nil
}

func (ins *inspector) report(named *gotypes.Named) (TypeReport, error) {
	st := named.Underlying().(*gotypes.Struct)
	id := ins.in.FromGoTypes(named)
	tl, err := ins.engine.LayoutOf(id)
	if err != nil {
		return TypeReport{}, fmt.Errorf("inspect: %s: %w", named.Obj().Name(), err)
	}
	rep := TypeReport{
		Name:     named.Obj().Name(),
		PkgPath:  ins.pkg.Path(),
		Target:   ins.engine.Target.Arch,
		Size:     tl.Size,
		Align:    tl.Align,
		Eligible: true,
		Members:  []Member{},
	}
	if reason := ins.ineligible(st); reason != "" {
		rep.Eligible = false
		rep.Reason = reason
	}

	for i := range st.NumFields() {
		f := st.Field(i)
		offset := tl.FieldOffsets[i]
		tags := tagsOf(st.Tag(i))
		if f.Embedded() {
			if elem, ptr := structish(f.Type()); elem != nil {
				rep.Supers = append(rep.Supers, Super{
					Index:   len(rep.Supers),
					Type:    ins.typeString(elem),
					Offset:  offset,
					Pointer: ptr,
					Tags:    tags,
				})
				continue
			}
		}
		ft := ins.in.FromGoTypes(f.Type())
		fl, err := ins.engine.LayoutOf(ft)
		if err != nil {
			return TypeReport{}, fmt.Errorf("inspect: %s.%s: %w", rep.Name, f.Name(), err)
		}
		name := f.Name()
		if name == "_" {
			name = symname.Synthetic(len(rep.Members))
		}
		kind, extent := ins.classify(f.Type())
		rep.Members = append(rep.Members, Member{
			Index:  len(rep.Members),
			Name:   name,
			Kind:   kind,
			Extent: extent,
			Type:   ins.typeString(f.Type()),
			Offset: offset,
			Size:   fl.Size,
			Align:  fl.Align,
			Tags:   tags,
		})
	}
	return rep, nil
}

// ineligible mirrors the auto-reflection rules and returns the first
// violation, or "" when the struct qualifies.
func (ins *inspector) ineligible(st *gotypes.Struct) string {
	count := 0
	for i := range st.NumFields() {
		f := st.Field(i)
		if f.Embedded() {
			ft := f.Type()
			if p, ok := ft.Underlying().(*gotypes.Pointer); ok {
				ft = p.Elem()
			}
			if gotypes.IsInterface(ft) {
				return "embeds interface " + ins.typeString(ft)
			}
			if !f.Exported() {
				return "unexported embedded " + ins.typeString(f.Type())
			}
			if _, ok := ft.Underlying().(*gotypes.Struct); ok {
				continue
			}
		} else if f.Name() != "_" && !f.Exported() {
			return "unexported field " + f.Name()
		}
		count++
	}
	if ins.max > 0 && count > ins.max {
		return fmt.Sprintf("%d members exceed the limit of %d", count, ins.max)
	}
	return ""
}

func (ins *inspector) classify(t gotypes.Type) (string, int) {
	switch u := t.Underlying().(type) {
	case *gotypes.Struct:
		if ins.ineligible(u) == "" {
			return "object", 0
		}
	case *gotypes.Array:
		n, err := safecast.Conv[int](u.Len())
		if err != nil {
			n = -1
		}
		return ins.sequence(u.Elem()), n
	case *gotypes.Slice:
		return ins.sequence(u.Elem()), -1
	}
	return "scalar", 0
}

func (ins *inspector) sequence(elem gotypes.Type) string {
	if st, ok := elem.Underlying().(*gotypes.Struct); ok && ins.ineligible(st) == "" {
		return "object-array"
	}
	return "array"
}

func (ins *inspector) typeString(t gotypes.Type) string {
	return gotypes.TypeString(t, gotypes.RelativeTo(ins.pkg))
}

// structish returns the struct type behind an embedded field and whether
// it is embedded through a pointer.
func structish(t gotypes.Type) (gotypes.Type, bool) {
	ptr := false
	if p, ok := t.Underlying().(*gotypes.Pointer); ok {
		t = p.Elem()
		ptr = true
	}
	if _, ok := t.Underlying().(*gotypes.Struct); !ok {
		return nil, false
	}
	return t, ptr
}

func tagsOf(raw string) []Tag {
	list := notes.FromTag(raw)
	if list.Len() == 0 {
		return nil
	}
	out := make([]Tag, 0, list.Len())
	for _, tag := range notes.Filter[notes.Tag](list) {
		var opts []string
		for opt := range tag.Options {
			opts = append(opts, opt)
		}
		slices.Sort(opts)
		out = append(out, Tag{Key: tag.Key, Name: tag.Name, Options: opts})
	}
	return out
}
