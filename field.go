package reflex

import (
	"reflect"
	"unsafe"
)

type fieldMode uint8

const (
	fieldDirect fieldMode = iota
	fieldPointer
	fieldAccessor
	fieldStatic
)

// Field is a typed handle on one data member of T. Resolving it checks
// the member type once; after that Ptr is plain pointer arithmetic.
type Field[T, F any] struct {
	m      *Member
	mode   fieldMode
	offset uintptr
	get    func(*T) *F
	static *F
}

// FieldAt resolves member i of T's descriptor in the Default registry.
func FieldAt[T, F any](i int) (Field[T, F], error) {
	d, err := Describe[T]()
	if err != nil {
		return Field[T, F]{}, err
	}
	m, err := d.Member(i)
	if err != nil {
		return Field[T, F]{}, err
	}
	return FieldOf[T, F](m)
}

// FieldNamed resolves the member of T called name.
func FieldNamed[T, F any](name string) (Field[T, F], error) {
	d, err := Describe[T]()
	if err != nil {
		return Field[T, F]{}, err
	}
	m, ok := d.MemberNamed(name)
	if !ok {
		return Field[T, F]{}, newError(ErrNotFound, d.typ, name, -1, "no such member")
	}
	return FieldOf[T, F](m)
}

// FieldOf builds the typed handle of m.
func FieldOf[T, F any](m *Member) (Field[T, F], error) {
	t, ft := reflect.TypeFor[T](), reflect.TypeFor[F]()
	if m.owner.typ != t {
		return Field[T, F]{}, newError(ErrTypeMismatch, t, m.name, m.index, "member belongs to %s", m.owner.typ)
	}
	if m.IsFunction() {
		return Field[T, F]{}, newError(ErrKindMismatch, t, m.name, m.index, "function member")
	}
	if m.typ != ft {
		return Field[T, F]{}, newError(ErrTypeMismatch, t, m.name, m.index, "member is %s, not %s", m.typ, ft)
	}
	f := Field[T, F]{m: m}
	switch loc := m.loc.(type) {
	case FieldLocation:
		f.mode, f.offset = fieldDirect, loc.Offset
	case ReferenceLocation:
		if loc.Accessor {
			f.mode = fieldAccessor
			f.get = m.accessor.Interface().(func(*T) *F)
		} else {
			f.mode, f.offset = fieldPointer, m.refOffset
		}
	case StaticLocation:
		f.mode = fieldStatic
		f.static = m.static.Addr().Interface().(*F)
	}
	return f, nil
}

func (f Field[T, F]) Member() *Member { return f.m }

// Ptr returns the address of the member inside obj. For references it is
// the referenced value, possibly nil.
func (f Field[T, F]) Ptr(obj *T) *F {
	switch f.mode {
	case fieldStatic:
		return f.static
	case fieldAccessor:
		return f.get(obj)
	case fieldPointer:
		return *(**F)(unsafe.Add(unsafe.Pointer(obj), f.offset))
	default:
		return (*F)(unsafe.Add(unsafe.Pointer(obj), f.offset))
	}
}

// Get reads the member of obj.
func (f Field[T, F]) Get(obj *T) (F, error) {
	var zero F
	if obj == nil && f.mode != fieldStatic {
		return zero, newError(ErrNilReference, f.m.owner.typ, f.m.name, f.m.index, "nil object")
	}
	p := f.Ptr(obj)
	if p == nil {
		return zero, newError(ErrNilReference, f.m.owner.typ, f.m.name, f.m.index, "")
	}
	return *p, nil
}

// Set writes v into the member of obj.
func (f Field[T, F]) Set(obj *T, v F) error {
	if obj == nil && f.mode != fieldStatic {
		return newError(ErrNilReference, f.m.owner.typ, f.m.name, f.m.index, "nil object")
	}
	p := f.Ptr(obj)
	if p == nil {
		return newError(ErrNilReference, f.m.owner.typ, f.m.name, f.m.index, "")
	}
	*p = v
	return nil
}
