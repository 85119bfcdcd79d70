package reflex

import (
	"reflect"
	"unsafe"
)

// binding is an instance resolved for member access. rv is always
// addressable; for read-only objects it addresses a private copy.
type binding struct {
	rv      reflect.Value
	ptr     unsafe.Pointer
	mutable bool
}

// bind accepts *T (mutable) or T (read-only).
func bind(obj any, t reflect.Type) (binding, error) {
	v := reflect.ValueOf(obj)
	if !v.IsValid() {
		return binding{}, newError(ErrTypeMismatch, t, "", -1, "got nil, want *%s or %s", t, t)
	}
	switch v.Type() {
	case reflect.PointerTo(t):
		if v.IsNil() {
			return binding{}, newError(ErrNilReference, t, "", -1, "nil *%s", t)
		}
		return bindValue(v.Elem(), true), nil
	case t:
		cp := reflect.New(t).Elem()
		cp.Set(v)
		return bindValue(cp, false), nil
	default:
		return binding{}, newError(ErrTypeMismatch, t, "", -1, "got %s, want *%s or %s", v.Type(), t, t)
	}
}

func bindValue(rv reflect.Value, mutable bool) binding {
	return binding{rv: rv, ptr: rv.Addr().UnsafePointer(), mutable: mutable}
}

// at returns an addressable value of type t stored at off inside b.
// reflect.NewAt ignores export status, which gives registered unexported
// fields the same access as exported ones.
func (b binding) at(off uintptr, t reflect.Type) reflect.Value {
	return reflect.NewAt(t, unsafe.Add(b.ptr, off)).Elem()
}

// receiver is what bound function members are called on.
func (b binding) receiver() reflect.Value {
	if b.mutable {
		return b.rv.Addr()
	}
	return b.rv
}
