package reflex

import (
	"reflect"
	"sync/atomic"

	"reflex/notes"
	"reflex/overload"
)

// Member describes one data member, function member or overload set of a
// reflected type. Members are immutable once their descriptor is built,
// apart from the cached kind.
type Member struct {
	owner    *Descriptor
	index    int
	name     string
	typ      reflect.Type // type of the Value: the element for references
	declared reflect.Type
	kind     atomic.Uint64 // (registry generation+1)<<8 | Kind
	extent   int
	loc      Location
	notes    notes.List

	refOffset uintptr       // pointer field holding a reference
	accessor  reflect.Value // func(*T) *F computing a reference
	static    reflect.Value // addressable static storage
	set       *overload.Set
}

func (m *Member) Index() int         { return m.index }
func (m *Member) Name() string       { return m.name }
func (m *Member) Location() Location { return m.loc }
func (m *Member) Notes() notes.List  { return m.notes }

// Kind classifies the member's value. Whether a struct type counts as
// reflected is resolved against the owning registry and again after every
// registration, so related types may register in any order.
func (m *Member) Kind() Kind {
	if m.set != nil {
		return KindFunc
	}
	r := m.owner.registry
	stamp := (r.gen.Load() + 1) << 8
	if c := m.kind.Load(); c&^0xff == stamp {
		return Kind(c & 0xff)
	}
	k := r.classify(m.typ)
	m.kind.Store(stamp | uint64(k))
	return k
}

// Owner returns the descriptor the member belongs to.
func (m *Member) Owner() *Descriptor { return m.owner }

// Type is the type of the member's value. For references this is the
// referenced type, for function members the type of the first overload.
func (m *Member) Type() reflect.Type { return m.typ }

// DeclaredType is the type as written in the declaration, e.g. *E for a
// reference member of type E.
func (m *Member) DeclaredType() reflect.Type { return m.declared }

// Extent reports the static element count of array members; slices report
// -1. ok is false for non-array kinds.
func (m *Member) Extent() (n int, ok bool) {
	if k := m.Kind(); k != KindArray && k != KindObjectArray {
		return 0, false
	}
	return m.extent, true
}

func (m *Member) IsStatic() bool {
	_, ok := m.loc.(StaticLocation)
	return ok
}

func (m *Member) IsFunction() bool {
	_, ok := m.loc.(FuncLocation)
	return ok
}

func (m *Member) IsReference() bool {
	_, ok := m.loc.(ReferenceLocation)
	return ok
}

// HasOffset is false exactly for static, reference and function members.
func (m *Member) HasOffset() bool {
	_, ok := m.loc.(FieldLocation)
	return ok
}

// Offset returns the byte offset inside the instance; ok iff HasOffset.
func (m *Member) Offset() (uintptr, bool) {
	if fl, ok := m.loc.(FieldLocation); ok {
		return fl.Offset, true
	}
	return 0, false
}

// Overloads returns the overload set of a function member.
func (m *Member) Overloads() (*overload.Set, bool) {
	return m.set, m.set != nil
}

// Value binds the member to obj, which must be *T (mutable) or T
// (read-only). Static members and free functions accept a nil obj.
func (m *Member) Value(obj any) (Value, error) {
	switch m.loc.(type) {
	case StaticLocation:
		return m.wrap(m.static, true)
	case FuncLocation:
		if m.set.Receiver() == nil {
			return Func{m: m}, nil
		}
		b, err := bind(obj, m.owner.typ)
		if err != nil {
			return nil, m.annotate(err)
		}
		return Func{m: m, recv: b.receiver()}, nil
	}
	b, err := bind(obj, m.owner.typ)
	if err != nil {
		return nil, m.annotate(err)
	}
	return m.valueIn(b)
}

func (m *Member) valueIn(b binding) (Value, error) {
	switch loc := m.loc.(type) {
	case FieldLocation:
		return m.wrap(b.at(loc.Offset, m.typ), b.mutable)
	case ReferenceLocation:
		var p reflect.Value
		if loc.Accessor {
			p = m.accessor.Call([]reflect.Value{b.rv.Addr()})[0]
		} else {
			p = b.at(m.refOffset, m.declared)
		}
		if p.IsNil() {
			return nil, newError(ErrNilReference, m.owner.typ, m.name, m.index, "")
		}
		return m.wrap(p.Elem(), b.mutable)
	case StaticLocation:
		return m.wrap(m.static, true)
	case FuncLocation:
		if m.set.Receiver() == nil {
			return Func{m: m}, nil
		}
		return Func{m: m, recv: b.receiver()}, nil
	default:
		return nil, newError(ErrKindMismatch, m.owner.typ, m.name, m.index, "unknown location %T", loc)
	}
}

func (m *Member) wrap(v reflect.Value, settable bool) (Value, error) {
	switch m.Kind() {
	case KindArray:
		return Array{m: m, v: v, settable: settable}, nil
	case KindObject:
		d, err := m.owner.registry.Lookup(m.typ)
		if err != nil {
			return nil, m.annotate(err)
		}
		return Object{m: m, v: v, settable: settable, d: d}, nil
	case KindObjectArray:
		d, err := m.owner.registry.Lookup(m.typ.Elem())
		if err != nil {
			return nil, m.annotate(err)
		}
		return ObjectArray{m: m, v: v, settable: settable, d: d}, nil
	default:
		return Scalar{m: m, v: v, settable: settable}, nil
	}
}

// annotate fills in member context on errors from lower layers.
func (m *Member) annotate(err error) error {
	if e, ok := err.(*Error); ok && e.Member == "" {
		cp := *e
		cp.Type = m.owner.typ
		cp.Member = m.name
		cp.Index = m.index
		return &cp
	}
	return err
}
