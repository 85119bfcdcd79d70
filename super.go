package reflex

import (
	"reflect"
	"unsafe"

	"reflex/notes"
)

// Super describes one embedded struct of a reflected type. Only direct
// embeddings are listed; walking deeper is a matter of asking the super's
// own descriptor.
type Super struct {
	owner   *Descriptor
	index   int
	typ     reflect.Type
	pointer bool
	offset  uintptr
	notes   notes.List
}

func (s *Super) Index() int { return s.index }

// Type is the embedded struct type, without pointer.
func (s *Super) Type() reflect.Type { return s.typ }

// IsPointer reports an embedding through *B.
func (s *Super) IsPointer() bool { return s.pointer }

func (s *Super) Offset() uintptr    { return s.offset }
func (s *Super) Notes() notes.List  { return s.notes }
func (s *Super) Owner() *Descriptor { return s.owner }

// Descriptor returns the reflection record of the super type.
func (s *Super) Descriptor() (*Descriptor, error) {
	return s.owner.registry.Lookup(s.typ)
}

func (s *Super) valueIn(b binding) (Object, error) {
	d, err := s.Descriptor()
	if err != nil {
		return Object{}, err
	}
	if !s.pointer {
		return Object{v: b.at(s.offset, s.typ), settable: b.mutable, d: d}, nil
	}
	p := b.at(s.offset, reflect.PointerTo(s.typ))
	if p.IsNil() {
		return Object{}, newError(ErrNilReference, s.owner.typ, s.typ.Name(), s.index, "embedded *%s is nil", s.typ)
	}
	return Object{v: p.Elem(), settable: b.mutable, d: d}, nil
}

func (d *Descriptor) SuperTotal() int { return len(d.supers) }

// Super returns the i-th super.
func (d *Descriptor) Super(i int) (*Super, error) {
	if i < 0 || i >= len(d.supers) {
		return nil, newError(ErrOutOfRange, d.typ, "", i, "%d supers", len(d.supers))
	}
	return d.supers[i], nil
}

// Supers returns the supers in declaration order.
func (d *Descriptor) Supers() []*Super {
	return append([]*Super(nil), d.supers...)
}

// ForEachSuper visits every super without an instance.
func (d *Descriptor) ForEachSuper(fn func(*Super)) {
	for _, s := range d.supers {
		fn(s)
	}
}

// ForEachSuperOf visits every super of obj, up-cast to the embedded value.
func (d *Descriptor) ForEachSuperOf(obj any, fn func(*Super, Object) error) error {
	b, err := bind(obj, d.typ)
	if err != nil {
		return err
	}
	for _, s := range d.supers {
		o, err := s.valueIn(b)
		if err != nil {
			return err
		}
		if err := fn(s, o); err != nil {
			return err
		}
	}
	return nil
}

// SuperAt visits super i of obj.
func (d *Descriptor) SuperAt(obj any, i int, fn func(*Super, Object) error) error {
	s, err := d.Super(i)
	if err != nil {
		return err
	}
	b, err := bind(obj, d.typ)
	if err != nil {
		return err
	}
	o, err := s.valueIn(b)
	if err != nil {
		return err
	}
	return fn(s, o)
}

// Upcast returns a pointer to the B embedded directly in obj, following an
// embedded *B when that is how B is embedded.
func Upcast[B, T any](obj *T) (*B, error) {
	t, want := reflect.TypeFor[T](), reflect.TypeFor[B]()
	if obj == nil {
		return nil, newError(ErrNilReference, t, "", -1, "nil *%s", t)
	}
	f, pointer, ok := embeddedField(t, want)
	if !ok {
		return nil, newError(ErrNotFound, t, "", -1, "%s does not embed %s", t, want)
	}
	at := unsafe.Add(unsafe.Pointer(obj), f.Offset)
	if !pointer {
		return (*B)(at), nil
	}
	p := *(**B)(at)
	if p == nil {
		return nil, newError(ErrNilReference, t, want.Name(), -1, "embedded *%s is nil", want)
	}
	return p, nil
}

func embeddedField(t, want reflect.Type) (reflect.StructField, bool, bool) {
	if t.Kind() != reflect.Struct {
		return reflect.StructField{}, false, false
	}
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		switch {
		case f.Type == want:
			return f, false, true
		case f.Type.Kind() == reflect.Pointer && f.Type.Elem() == want:
			return f, true, true
		}
	}
	return reflect.StructField{}, false, false
}
