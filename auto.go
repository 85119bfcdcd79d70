package reflex

import (
	"reflect"
	"strconv"
	"unsafe"

	"reflex/internal/symname"
	"reflex/internal/trace"
	"reflex/notes"
)

// DefaultMaxAutoMembers bounds the member count of derived descriptors.
const DefaultMaxAutoMembers = 121

// checkEligible reports why t cannot be reflected without registration.
func checkEligible(t reflect.Type, maxMembers int) error {
	if t.Kind() != reflect.Struct {
		return newError(ErrIneligible, t, "", -1, "kind %s is not a struct", t.Kind())
	}
	count := 0
	for i := range t.NumField() {
		f := t.Field(i)
		if f.Anonymous {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Interface {
				return newError(ErrIneligible, t, f.Name, i, "embeds interface %s", ft)
			}
			if !f.IsExported() {
				return newError(ErrIneligible, t, f.Name, i, "unexported embedded %s", f.Type)
			}
			if ft.Kind() == reflect.Struct {
				continue
			}
		} else if f.Name != "_" && !f.IsExported() {
			return newError(ErrIneligible, t, f.Name, i, "unexported field")
		}
		count++
	}
	if maxMembers > 0 && count > maxMembers {
		return newError(ErrIneligible, t, "", -1, "%d members exceed the limit of %d", count, maxMembers)
	}
	return nil
}

func isStructish(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

// derive builds the descriptor of an eligible struct from its declaration.
func (r *Registry) derive(t reflect.Type) (*Descriptor, error) {
	span := trace.Begin(r.tracer, trace.ScopeType, "derive", 0)
	span.Set("type", t.String())

	if err := checkEligible(t, r.maxAuto); err != nil {
		span.Fail(err)
		return nil, err
	}
	d := newDescriptor(r, t, true)
	for i := range t.NumField() {
		f := t.Field(i)
		if f.Anonymous && isStructish(f.Type) {
			d.supers = append(d.supers, superFromField(d, len(d.supers), f, tagNotes(f.Tag)))
			continue
		}
		name := f.Name
		if name == "_" {
			name = symname.Synthetic(len(d.members))
		}
		m := &Member{
			name:     name,
			typ:      f.Type,
			declared: f.Type,
			loc:      FieldLocation{Offset: f.Offset, Index: f.Index},
			notes:    tagNotes(f.Tag),
		}
		m.extent = extentOf(f.Type)
		if err := d.add(m); err != nil {
			span.Fail(err)
			return nil, err
		}
		trace.Point(r.tracer, trace.ScopeMember, "member", t.Name()+"."+name)
	}
	span.Set("members", strconv.Itoa(len(d.members))).End("")
	return d, nil
}

func newDescriptor(r *Registry, t reflect.Type, auto bool) *Descriptor {
	return &Descriptor{
		registry: r,
		typ:      t,
		name:     t.String(),
		auto:     auto,
		byName:   make(map[string]int, t.NumField()),
	}
}

func superFromField(d *Descriptor, index int, f reflect.StructField, list notes.List) *Super {
	s := &Super{
		owner:  d,
		index:  index,
		typ:    f.Type,
		offset: f.Offset,
		notes:  list,
	}
	if f.Type.Kind() == reflect.Pointer {
		s.typ = f.Type.Elem()
		s.pointer = true
	}
	return s
}

// classify maps a value type to a member kind. Only struct kinds depend
// on the registry.
func (r *Registry) classify(t reflect.Type) Kind {
	switch t.Kind() {
	case reflect.Struct:
		if r.isReflected(t) {
			return KindObject
		}
	case reflect.Array, reflect.Slice:
		if el := t.Elem(); el.Kind() == reflect.Struct && r.isReflected(el) {
			return KindObjectArray
		}
		return KindArray
	case reflect.Func:
		// Func-typed fields are data, not function members.
	}
	return KindScalar
}

// extentOf is the static element count of an array type, -1 for slices and
// 0 for everything else.
func extentOf(t reflect.Type) int {
	switch t.Kind() {
	case reflect.Array:
		return t.Len()
	case reflect.Slice:
		return -1
	}
	return 0
}

func (r *Registry) isReflected(t reflect.Type) bool {
	if r.IsRegistered(t) {
		return true
	}
	return checkEligible(t, r.maxAuto) == nil
}

func tagNotes(tag reflect.StructTag) notes.List {
	return notes.FromTag(string(tag))
}

// Refs is an ordered tuple of pointers into one instance, one per member.
type Refs struct {
	d    *Descriptor
	ptrs []any
}

func (r Refs) Len() int                { return len(r.ptrs) }
func (r Refs) Descriptor() *Descriptor { return r.d }

// At returns a pointer (*F as any) to member i.
func (r Refs) At(i int) (any, error) {
	if i < 0 || i >= len(r.ptrs) {
		return nil, newError(ErrOutOfRange, r.d.typ, "", i, "%d members", len(r.ptrs))
	}
	return r.ptrs[i], nil
}

// RefAt returns member i of refs as *F.
func RefAt[F any](refs Refs, i int) (*F, error) {
	p, err := refs.At(i)
	if err != nil {
		return nil, err
	}
	f, ok := p.(*F)
	if !ok {
		return nil, newError(ErrTypeMismatch, refs.d.typ, refs.d.members[i].name, i, "member is %s, not %s", refs.d.members[i].typ, reflect.TypeFor[F]())
	}
	return f, nil
}

// MemberCount returns the number of members auto-reflection finds in T:
// every declared field except embedded structs, which are supers.
func MemberCount[T any]() (int, error) {
	d, err := Default.Auto(reflect.TypeFor[T]())
	if err != nil {
		return 0, err
	}
	return d.Total(), nil
}

// MembersOf returns pointers to every member of obj. Writes through them
// change obj. When T is itself a pointer to a struct, the members are those
// of the struct *obj points to.
func MembersOf[T any](obj *T) (Refs, error) {
	t := reflect.TypeFor[T]()
	d, err := Default.Auto(t)
	if err != nil {
		return Refs{}, err
	}
	if obj == nil {
		return Refs{}, newError(ErrNilReference, d.typ, "", -1, "nil *%s", t)
	}
	base := unsafe.Pointer(obj)
	if t.Kind() == reflect.Pointer {
		v := reflect.ValueOf(obj).Elem()
		if v.IsNil() {
			return Refs{}, newError(ErrNilReference, d.typ, "", -1, "nil %s", t)
		}
		base = v.UnsafePointer()
	}
	ptrs := make([]any, len(d.members))
	for i, m := range d.members {
		off, _ := m.Offset()
		ptrs[i] = reflect.NewAt(m.typ, unsafe.Add(base, off)).Interface()
	}
	return Refs{d: d, ptrs: ptrs}, nil
}

// MemberType returns the declared type of member i of T.
func MemberType[T any](i int) (reflect.Type, error) {
	m, err := autoMember[T](i)
	if err != nil {
		return nil, err
	}
	return m.typ, nil
}

// MemberName returns the identifier of member i of T. Blank fields are
// named field<i>.
func MemberName[T any](i int) (string, error) {
	m, err := autoMember[T](i)
	if err != nil {
		return "", err
	}
	return m.name, nil
}

func autoMember[T any](i int) (*Member, error) {
	d, err := Default.Auto(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return d.Member(i)
}
