package reflex

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Base struct {
	ID int
}

type Mid struct {
	Base
	Name string
}

type Leaf struct {
	*Mid `role:"parent"`
	Extra int
}

func TestSupersOfDerivedType(t *testing.T) {
	r := NewRegistry()
	d, err := r.Auto(reflect.TypeFor[Leaf]())
	require.NoError(t, err)
	require.Equal(t, 1, d.SuperTotal())
	assert.Equal(t, []string{"Extra"}, d.Names())

	s, err := d.Super(0)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[Mid](), s.Type())
	assert.True(t, s.IsPointer())
	assert.Equal(t, 1, s.Notes().Len())

	_, err = d.Super(1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

// walk collects the super chain depth first by composing one-level
// traversals.
func walk(t *testing.T, d *Descriptor, obj any, out *[]string) {
	t.Helper()
	err := d.ForEachSuperOf(obj, func(s *Super, o Object) error {
		*out = append(*out, s.Type().Name())
		walk(t, o.Descriptor(), o.Interface(), out)
		return nil
	})
	require.NoError(t, err)
}

func TestRecursiveSuperTraversal(t *testing.T) {
	r := NewRegistry()
	d, err := r.Auto(reflect.TypeFor[Leaf]())
	require.NoError(t, err)

	l := Leaf{Mid: &Mid{Base: Base{ID: 1}, Name: "m"}}
	var chain []string
	walk(t, d, &l, &chain)
	assert.Equal(t, []string{"Mid", "Base"}, chain)

	err = d.SuperAt(&l, 0, func(_ *Super, o Object) error {
		return o.ForEach(func(m *Member, v Value) error {
			return v.(Scalar).Set("renamed")
		})
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", l.Name)

	err = d.SuperAt(&l, 3, func(*Super, Object) error { return nil })
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestNilEmbeddedPointer(t *testing.T) {
	d, err := NewRegistry().Auto(reflect.TypeFor[Leaf]())
	require.NoError(t, err)
	err = d.ForEachSuperOf(&Leaf{}, func(*Super, Object) error { return nil })
	assert.ErrorIs(t, err, ErrNilReference)
}

func TestUpcast(t *testing.T) {
	m := Mid{Base: Base{ID: 2}}
	b, err := Upcast[Base](&m)
	require.NoError(t, err)
	assert.Same(t, &m.Base, b)

	l := Leaf{Mid: &m}
	got, err := Upcast[Mid](&l)
	require.NoError(t, err)
	assert.Same(t, &m, got)

	_, err = Upcast[Mid](&Leaf{})
	assert.ErrorIs(t, err, ErrNilReference)
	_, err = Upcast[point](&m)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegisteredSuper(t *testing.T) {
	d, err := NewRegistry().Register(reflect.TypeFor[Mid](),
		WithSuper[Base]("primary"),
		WithField("Name"),
	)
	require.NoError(t, err)
	s, err := d.Super(0)
	require.NoError(t, err)
	assert.Equal(t, []any{"primary"}, s.Notes().All())
	assert.False(t, s.IsPointer())

	_, err = NewRegistry().Register(reflect.TypeFor[Mid](), WithSuper[Base](), WithSuper[Base]())
	assert.ErrorIs(t, err, ErrDuplicate)
}
