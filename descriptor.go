package reflex

import (
	"reflect"

	"golang.org/x/text/unicode/norm"

	"reflex/internal/layout"
	"reflex/notes"
)

// Descriptor is the reflection record of one struct type: its members in
// declaration order, its supers and its class notes. Descriptors are
// immutable and safe for concurrent use.
type Descriptor struct {
	registry *Registry
	typ      reflect.Type
	name     string
	auto     bool
	members  []*Member
	byName   map[string]int
	supers   []*Super
	notes    notes.List
}

// Shape is the per-member registration record: whether the member is an
// array, its static extent and whether its elements are reflected.
type Shape struct {
	IsArray     bool
	Extent      int
	IsReflected bool
}

func (d *Descriptor) Type() reflect.Type { return d.typ }
func (d *Descriptor) Name() string       { return d.name }
func (d *Descriptor) Total() int         { return len(d.members) }
func (d *Descriptor) Notes() notes.List  { return d.notes }

// IsAuto reports whether the descriptor was derived without registration.
func (d *Descriptor) IsAuto() bool { return d.auto }

// Member returns the i-th member.
func (d *Descriptor) Member(i int) (*Member, error) {
	if i < 0 || i >= len(d.members) {
		return nil, newError(ErrOutOfRange, d.typ, "", i, "total %d", len(d.members))
	}
	return d.members[i], nil
}

// Members returns the members in index order.
func (d *Descriptor) Members() []*Member {
	return append([]*Member(nil), d.members...)
}

// MemberNamed finds a member by name. Names compare in Unicode NFC.
func (d *Descriptor) MemberNamed(name string) (*Member, bool) {
	i, ok := d.byName[norm.NFC.String(name)]
	if !ok {
		return nil, false
	}
	return d.members[i], true
}

// Names is the member name table in index order.
func (d *Descriptor) Names() []string {
	out := make([]string, len(d.members))
	for i, m := range d.members {
		out[i] = m.name
	}
	return out
}

// Shapes is the member shape table in index order.
func (d *Descriptor) Shapes() []Shape {
	out := make([]Shape, len(d.members))
	for i, m := range d.members {
		ext, isArray := m.Extent()
		k := m.Kind()
		out[i] = Shape{
			IsArray:     isArray,
			Extent:      ext,
			IsReflected: k == KindObject || k == KindObjectArray,
		}
	}
	return out
}

// Layout returns the memory layout of the type on the host, as computed by
// the layout engine of the owning registry.
func (d *Descriptor) Layout() (layout.TypeLayout, error) {
	return d.registry.layoutOf(d.typ)
}

// ForEach visits every member without an instance.
func (d *Descriptor) ForEach(fn func(*Member)) {
	for _, m := range d.members {
		fn(m)
	}
}

// ForEachValue visits every member bound to obj. Iteration stops at the
// first error, including ErrNilReference from an unset reference member.
func (d *Descriptor) ForEachValue(obj any, fn func(*Member, Value) error) error {
	b, err := bind(obj, d.typ)
	if err != nil {
		return err
	}
	return d.forEachBound(b, fn)
}

func (d *Descriptor) forEachBound(b binding, fn func(*Member, Value) error) error {
	for _, m := range d.members {
		v, err := m.valueIn(b)
		if err != nil {
			return err
		}
		if err := fn(m, v); err != nil {
			return err
		}
	}
	return nil
}

// At visits member i bound to obj. An index outside [0, Total) returns
// ErrOutOfRange without calling fn.
func (d *Descriptor) At(obj any, i int, fn func(*Member, Value) error) error {
	b, err := bind(obj, d.typ)
	if err != nil {
		return err
	}
	return d.atBound(b, i, fn)
}

func (d *Descriptor) atBound(b binding, i int, fn func(*Member, Value) error) error {
	m, err := d.Member(i)
	if err != nil {
		return err
	}
	v, err := m.valueIn(b)
	if err != nil {
		return err
	}
	return fn(m, v)
}

// Named visits the member called name. It reports false, without calling
// fn, when no member matches.
func (d *Descriptor) Named(obj any, name string, fn func(*Member, Value) error) (bool, error) {
	m, ok := d.MemberNamed(name)
	if !ok {
		return false, nil
	}
	b, err := bind(obj, d.typ)
	if err != nil {
		return true, err
	}
	v, err := m.valueIn(b)
	if err != nil {
		return true, err
	}
	return true, fn(m, v)
}

// Pack hands all member values to fn in a single call.
func (d *Descriptor) Pack(obj any, fn func(values ...Value) error) error {
	b, err := bind(obj, d.typ)
	if err != nil {
		return err
	}
	values := make([]Value, 0, len(d.members))
	for _, m := range d.members {
		v, err := m.valueIn(b)
		if err != nil {
			return err
		}
		values = append(values, v)
	}
	return fn(values...)
}

// Bind returns obj as an Object value of this descriptor.
func (d *Descriptor) Bind(obj any) (Object, error) {
	b, err := bind(obj, d.typ)
	if err != nil {
		return Object{}, err
	}
	return Object{v: b.rv, settable: b.mutable, d: d}, nil
}

// ForEachOf visits only the members whose value is of variant V, e.g.
// ForEachOf[reflex.Array] visits array members and nothing else. Members of
// other kinds are skipped before they are bound.
func ForEachOf[V Value](d *Descriptor, obj any, fn func(*Member, V) error) error {
	want := variantKind[V]()
	b, err := bind(obj, d.typ)
	if err != nil {
		return err
	}
	for _, m := range d.members {
		if want != 0 && m.Kind() != want {
			continue
		}
		v, err := m.valueIn(b)
		if err != nil {
			return err
		}
		tv, ok := v.(V)
		if !ok {
			continue
		}
		if err := fn(m, tv); err != nil {
			return err
		}
	}
	return nil
}

func variantKind[V Value]() Kind {
	var zero V
	switch any(zero).(type) {
	case nil:
		return 0 // V is an interface: every member matches
	case Array:
		return KindArray
	case Object:
		return KindObject
	case ObjectArray:
		return KindObjectArray
	case Func:
		return KindFunc
	default:
		return KindScalar
	}
}

// add appends m, assigning its index. Names must be unique in NFC.
func (d *Descriptor) add(m *Member) error {
	key := norm.NFC.String(m.name)
	if _, dup := d.byName[key]; dup {
		return newError(ErrDuplicate, d.typ, m.name, len(d.members), "member name already taken")
	}
	m.owner = d
	m.index = len(d.members)
	d.byName[key] = m.index
	d.members = append(d.members, m)
	return nil
}
