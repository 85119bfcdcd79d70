package reflex

import (
	"reflect"

	"reflex/notes"
)

// Class is the typed view of a Descriptor for T.
type Class[T any] struct {
	d *Descriptor
}

// ClassOf returns the class of T from the Default registry: the
// registered descriptor when there is one, a derived one otherwise.
func ClassOf[T any]() (*Class[T], error) {
	d, err := Default.Lookup(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return &Class[T]{d: d}, nil
}

// MustClassOf is like ClassOf but panics on error.
func MustClassOf[T any]() *Class[T] {
	c, err := ClassOf[T]()
	if err != nil {
		panic(err)
	}
	return c
}

// Describe returns the descriptor of T from the Default registry.
func Describe[T any]() (*Descriptor, error) {
	return Default.Lookup(reflect.TypeFor[T]())
}

func (c *Class[T]) Descriptor() *Descriptor { return c.d }
func (c *Class[T]) Total() int              { return c.d.Total() }
func (c *Class[T]) Notes() notes.List       { return c.d.notes }

// ForEach visits every member of obj.
func (c *Class[T]) ForEach(obj *T, fn func(*Member, Value) error) error {
	return c.d.ForEachValue(obj, fn)
}

// At visits member i of obj.
func (c *Class[T]) At(obj *T, i int, fn func(*Member, Value) error) error {
	return c.d.At(obj, i, fn)
}

// Named visits the member of obj called name.
func (c *Class[T]) Named(obj *T, name string, fn func(*Member, Value) error) (bool, error) {
	return c.d.Named(obj, name, fn)
}

// Pack hands all member values of obj to fn at once.
func (c *Class[T]) Pack(obj *T, fn func(values ...Value) error) error {
	return c.d.Pack(obj, fn)
}

// ForEachSuper visits every super of obj.
func (c *Class[T]) ForEachSuper(obj *T, fn func(*Super, Object) error) error {
	return c.d.ForEachSuperOf(obj, fn)
}
