package reflex

import (
	"errors"
	"reflect"

	"reflex/overload"
)

// Value is a member bound to an instance. It is a closed sum type: Scalar,
// Array, Object, ObjectArray or Func. Operations that only make sense for
// one kind exist only on that variant, so code that subscripts a scalar
// does not compile; select the variant with a type switch or ForEachOf.
type Value interface {
	Member() *Member
	Reflect() reflect.Value
	isValue()
}

func (Scalar) isValue()      {}
func (Array) isValue()       {}
func (Object) isValue()      {}
func (ObjectArray) isValue() {}
func (Func) isValue()        {}

// Scalar is a value without reflected structure.
type Scalar struct {
	m        *Member
	v        reflect.Value
	settable bool
}

func (s Scalar) Member() *Member        { return s.m }
func (s Scalar) Reflect() reflect.Value { return s.v }
func (s Scalar) Settable() bool         { return s.settable }

// Get returns a copy of the value.
func (s Scalar) Get() any { return s.v.Interface() }

// Set stores x, which must be assignable to the member type or a value of
// a type with the same underlying kind.
func (s Scalar) Set(x any) error {
	return assign(s.m, s.v, s.settable, x)
}

// Array is a fixed array or slice of non-reflected elements.
type Array struct {
	m        *Member
	v        reflect.Value
	settable bool
}

func (a Array) Member() *Member        { return a.m }
func (a Array) Reflect() reflect.Value { return a.v }
func (a Array) Len() int               { return a.v.Len() }

// Extent is the declared length, -1 for slices.
func (a Array) Extent() int { return a.m.extent }

// At returns element i.
func (a Array) At(i int) (Scalar, error) {
	if i < 0 || i >= a.v.Len() {
		return Scalar{}, newError(ErrOutOfRange, a.m.owner.typ, a.m.name, i, "len %d", a.v.Len())
	}
	return Scalar{m: a.m, v: a.v.Index(i), settable: a.settable}, nil
}

// Set stores x at element i.
func (a Array) Set(i int, x any) error {
	el, err := a.At(i)
	if err != nil {
		return err
	}
	return el.Set(x)
}

// Object is a reflected struct value.
type Object struct {
	m        *Member // nil for supers and top-level objects
	v        reflect.Value
	settable bool
	d        *Descriptor
}

func (o Object) Member() *Member         { return o.m }
func (o Object) Reflect() reflect.Value  { return o.v }
func (o Object) Descriptor() *Descriptor { return o.d }
func (o Object) Settable() bool          { return o.settable }

// Interface returns a pointer to the object when it is settable and a copy
// otherwise, ready to be passed back to Descriptor methods.
func (o Object) Interface() any {
	if o.settable {
		return o.v.Addr().Interface()
	}
	return o.v.Interface()
}

// ForEach visits the object's members with their values.
func (o Object) ForEach(fn func(*Member, Value) error) error {
	return o.d.forEachBound(bindValue(o.v, o.settable), fn)
}

// At visits member i of the object.
func (o Object) At(i int, fn func(*Member, Value) error) error {
	return o.d.atBound(bindValue(o.v, o.settable), i, fn)
}

// ObjectArray is an array or slice of reflected structs.
type ObjectArray struct {
	m        *Member
	v        reflect.Value
	settable bool
	d        *Descriptor
}

func (a ObjectArray) Member() *Member         { return a.m }
func (a ObjectArray) Reflect() reflect.Value  { return a.v }
func (a ObjectArray) Len() int                { return a.v.Len() }
func (a ObjectArray) Extent() int             { return a.m.extent }
func (a ObjectArray) Descriptor() *Descriptor { return a.d }

// At returns element i as an Object.
func (a ObjectArray) At(i int) (Object, error) {
	if i < 0 || i >= a.v.Len() {
		return Object{}, newError(ErrOutOfRange, a.m.owner.typ, a.m.name, i, "len %d", a.v.Len())
	}
	return Object{v: a.v.Index(i), settable: a.settable, d: a.d}, nil
}

// Func is a function member bound to its receiver.
type Func struct {
	m    *Member
	recv reflect.Value
}

func (f Func) Member() *Member          { return f.m }
func (f Func) Reflect() reflect.Value   { return f.recv }
func (f Func) Overloads() *overload.Set { return f.m.set }

// Call invokes the best overload for args on the bound receiver.
func (f Func) Call(args ...any) ([]any, error) {
	var recv any
	if f.recv.IsValid() {
		recv = f.recv.Interface()
	}
	out, err := f.m.set.Call(recv, args...)
	switch {
	case errors.Is(err, overload.ErrAmbiguous):
		return nil, wrapError(ErrAmbiguous, f.m.owner.typ, f.m.name, err)
	case err != nil:
		return nil, wrapError(ErrTypeMismatch, f.m.owner.typ, f.m.name, err)
	}
	return out, nil
}

func assign(m *Member, dst reflect.Value, settable bool, x any) error {
	if !settable {
		return newError(ErrNotSettable, m.owner.typ, m.name, m.index, "read-only object")
	}
	t := dst.Type()
	if x == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
			dst.SetZero()
			return nil
		}
		return newError(ErrTypeMismatch, m.owner.typ, m.name, m.index, "cannot assign nil to %s", t)
	}
	xv := reflect.ValueOf(x)
	switch {
	case xv.Type().AssignableTo(t):
		dst.Set(xv)
	case xv.Kind() == t.Kind() && xv.Type().ConvertibleTo(t):
		dst.Set(xv.Convert(t))
	default:
		return newError(ErrTypeMismatch, m.owner.typ, m.name, m.index, "cannot assign %s to %s", xv.Type(), t)
	}
	return nil
}
