package reflex

import (
	"errors"
	"reflect"
	"strconv"
	"unsafe"

	"reflex/internal/symname"
	"reflex/internal/trace"
	"reflex/notes"
	"reflex/overload"
)

// Option declares one part of a registration. Members are indexed in the
// order their options appear.
type Option func(*builder) error

type builder struct {
	r     *Registry
	d     *Descriptor
	notes []any
}

func (b *builder) typ() reflect.Type { return b.d.typ }

func (b *builder) field(name string) (reflect.StructField, error) {
	if name == "_" {
		return reflect.StructField{}, newError(ErrInvalidRegistration, b.typ(), name, -1, "blank fields cannot be registered by name")
	}
	for i := range b.typ().NumField() {
		if f := b.typ().Field(i); f.Name == name {
			return f, nil
		}
	}
	return reflect.StructField{}, newError(ErrNotFound, b.typ(), name, -1, "no such field")
}

func (b *builder) add(m *Member) error {
	if err := b.d.add(m); err != nil {
		return err
	}
	trace.Point(b.r.tracer, trace.ScopeMember, "member", b.d.name+"."+m.name)
	return nil
}

// WithField registers a direct field, exported or not. Struct tags become
// notes after the explicit ones.
func WithField(name string, values ...any) Option {
	return func(b *builder) error {
		f, err := b.field(name)
		if err != nil {
			return err
		}
		m := &Member{
			name:     name,
			typ:      f.Type,
			declared: f.Type,
			loc:      FieldLocation{Offset: f.Offset, Index: f.Index},
			notes:    notes.Of(values...).Append(tagNotes(f.Tag).All()...),
		}
		m.extent = extentOf(f.Type)
		return b.add(m)
	}
}

// Ref registers a pointer field as a reference to its element. Reading a
// nil reference fails with ErrNilReference.
func Ref(name string, values ...any) Option {
	return func(b *builder) error {
		f, err := b.field(name)
		if err != nil {
			return err
		}
		if f.Type.Kind() != reflect.Pointer {
			return newError(ErrInvalidRegistration, b.typ(), name, -1, "reference field must be a pointer, got %s", f.Type)
		}
		m := &Member{
			name:      name,
			typ:       f.Type.Elem(),
			declared:  f.Type,
			loc:       ReferenceLocation{},
			notes:     notes.Of(values...).Append(tagNotes(f.Tag).All()...),
			refOffset: f.Offset,
		}
		m.extent = extentOf(m.typ)
		return b.add(m)
	}
}

// Accessor registers a member reached through fn. fn is probed on a zero
// T: a result inside the instance registers a plain field at that offset,
// anything else a reference computed by fn on every access. A
// reflect.StructTag among values expands into its tag notes.
func Accessor[T, F any](name string, fn func(*T) *F, values ...any) Option {
	return func(b *builder) error {
		if reflect.TypeFor[T]() != b.typ() {
			return newError(ErrTypeMismatch, b.typ(), name, -1, "accessor takes *%s", reflect.TypeFor[T]())
		}
		if fn == nil {
			return newError(ErrInvalidRegistration, b.typ(), name, -1, "nil accessor")
		}
		ft := reflect.TypeFor[F]()
		m := &Member{
			name:     name,
			typ:      ft,
			declared: ft,
			notes:    withTags(values),
		}
		m.extent = extentOf(ft)
		if off, ok := probeOffset(fn); ok {
			m.loc = FieldLocation{Offset: off}
		} else {
			m.loc = ReferenceLocation{Accessor: true}
			m.declared = reflect.PointerTo(ft)
			m.accessor = reflect.ValueOf(fn)
		}
		return b.add(m)
	}
}

func withTags(values []any) notes.List {
	out := make([]any, 0, len(values))
	for _, v := range values {
		if tag, ok := v.(reflect.StructTag); ok {
			out = append(out, tagNotes(tag).All()...)
			continue
		}
		out = append(out, v)
	}
	return notes.Of(out...)
}

// probeOffset calls fn on a zero instance. A panic counts as "not inside".
func probeOffset[T, F any](fn func(*T) *F) (off uintptr, ok bool) {
	defer func() {
		if recover() != nil {
			off, ok = 0, false
		}
	}()
	obj := new(T)
	p := fn(obj)
	if p == nil {
		return 0, false
	}
	base := uintptr(unsafe.Pointer(obj))
	at := uintptr(unsafe.Pointer(p))
	size := unsafe.Sizeof(*obj)
	if at < base || at >= base+size || at+unsafe.Sizeof(*p) > base+size {
		return 0, false
	}
	return at - base, true
}

// Static registers package-level storage as a member that needs no
// instance.
func Static[F any](name string, p *F, values ...any) Option {
	return func(b *builder) error {
		if p == nil {
			return newError(ErrInvalidRegistration, b.typ(), name, -1, "nil static storage")
		}
		ft := reflect.TypeFor[F]()
		m := &Member{
			name:     name,
			typ:      ft,
			declared: ft,
			loc:      StaticLocation{},
			notes:    notes.Of(values...),
			static:   reflect.ValueOf(p).Elem(),
		}
		m.extent = extentOf(ft)
		return b.add(m)
	}
}

// Method registers the method called name. Value receivers are found
// before pointer receivers.
func Method(name string, values ...any) Option {
	return func(b *builder) error {
		t := b.typ()
		meth, ok := t.MethodByName(name)
		if !ok {
			meth, ok = reflect.PointerTo(t).MethodByName(name)
		}
		if !ok {
			return newError(ErrNotFound, t, name, -1, "no such method")
		}
		return b.funcMember(name, t, values, meth.Func.Interface())
	}
}

// WithFunc registers fn under the name the toolchain recorded for it. A first
// parameter of type T or *T makes it a method of T, anything else a
// static function. Closures cannot be named; use FuncAs.
func WithFunc(fn any, values ...any) Option {
	return func(b *builder) error {
		sym, err := symname.Of(fn)
		if err != nil {
			if errors.Is(err, symname.ErrUnparseable) {
				return wrapError(ErrUnparseable, b.typ(), "", err)
			}
			return wrapError(ErrInvalidRegistration, b.typ(), "", err)
		}
		return b.funcMember(sym.Name, b.receiverOf(fn), values, fn)
	}
}

// FuncAs registers fn under an explicit name.
func FuncAs(name string, fn any, values ...any) Option {
	return func(b *builder) error {
		return b.funcMember(name, b.receiverOf(fn), values, fn)
	}
}

// Overloaded registers fns as one overload set. Whether the set has a
// receiver is decided by the first candidate; use overload.Annotate to
// attach notes to single candidates.
func Overloaded(name string, fns ...any) Option {
	return func(b *builder) error {
		if len(fns) == 0 {
			return newError(ErrInvalidRegistration, b.typ(), name, -1, "empty overload set")
		}
		first := fns[0]
		if e, ok := first.(overload.Entry); ok {
			first = e.Fn
		}
		return b.funcMember(name, b.receiverOf(first), nil, fns...)
	}
}

func (b *builder) receiverOf(fn any) reflect.Type {
	ft := reflect.TypeOf(fn)
	if ft == nil || ft.Kind() != reflect.Func || ft.NumIn() == 0 {
		return nil
	}
	if in := ft.In(0); in == b.typ() || in == reflect.PointerTo(b.typ()) {
		return b.typ()
	}
	return nil
}

func (b *builder) funcMember(name string, recv reflect.Type, values []any, fns ...any) error {
	set, err := overload.New(recv, name, fns...)
	if err != nil {
		return wrapError(ErrInvalidRegistration, b.typ(), name, err)
	}
	o, _ := set.At(0)
	return b.add(&Member{
		name:     name,
		typ:      o.Func().Type(),
		declared: o.Func().Type(),
		loc:      FuncLocation{},
		notes:    notes.Of(values...),
		set:      set,
	})
}

// WithSuper registers the embedded struct B, embedded as B or *B.
func WithSuper[B any](values ...any) Option {
	return func(b *builder) error {
		want := reflect.TypeFor[B]()
		f, _, ok := embeddedField(b.typ(), want)
		if !ok {
			return newError(ErrInvalidRegistration, b.typ(), want.Name(), -1, "%s is not embedded", want)
		}
		for _, s := range b.d.supers {
			if s.typ == want {
				return newError(ErrDuplicate, b.typ(), want.Name(), -1, "super registered twice")
			}
		}
		list := notes.Of(values...).Append(tagNotes(f.Tag).All()...)
		b.d.supers = append(b.d.supers, superFromField(b.d, len(b.d.supers), f, list))
		return nil
	}
}

// Note attaches class-level notes.
func Note(values ...any) Option {
	return func(b *builder) error {
		b.notes = append(b.notes, values...)
		return nil
	}
}

// Named overrides the display name of the type.
func Named(name string) Option {
	return func(b *builder) error {
		if name == "" {
			return newError(ErrInvalidRegistration, b.typ(), "", -1, "empty type name")
		}
		b.d.name = name
		return nil
	}
}

// Register builds the descriptor of T from opts and adds it to r.
func (r *Registry) Register(t reflect.Type, opts ...Option) (*Descriptor, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, newError(ErrInvalidRegistration, t, "", -1, "only struct types can be registered")
	}
	span := trace.Begin(r.tracer, trace.ScopeType, "register", 0)
	span.Set("type", t.String())

	b := &builder{r: r, d: newDescriptor(r, t, false)}
	for i, opt := range opts {
		if opt == nil {
			err := newError(ErrInvalidRegistration, t, "", i, "nil option")
			span.Fail(err)
			return nil, err
		}
		if err := opt(b); err != nil {
			span.Fail(err)
			return nil, err
		}
	}
	b.d.notes = notes.Of(b.notes...)
	if err := r.add(b.d); err != nil {
		span.Fail(err)
		return nil, err
	}
	span.Set("members", strconv.Itoa(len(b.d.members))).End("")
	return b.d, nil
}

// RegisterIn registers T in r and returns its typed class.
func RegisterIn[T any](r *Registry, opts ...Option) (*Class[T], error) {
	d, err := r.Register(reflect.TypeFor[T](), opts...)
	if err != nil {
		return nil, err
	}
	return &Class[T]{d: d}, nil
}

// Register registers T in the Default registry.
func Register[T any](opts ...Option) (*Class[T], error) {
	return RegisterIn[T](Default, opts...)
}

// MustRegister is like Register but panics on error. Generated code uses
// it from init functions.
func MustRegister[T any](opts ...Option) *Class[T] {
	c, err := Register[T](opts...)
	if err != nil {
		panic(err)
	}
	return c
}
