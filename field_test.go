package reflex

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gauge struct {
	Level int
	unit  string
	Peer  *point
}

func (g *gauge) Reset() { g.Level = 0 }

var gaugeMax = 100

var gaugeClass = MustRegister[gauge](
	WithField("Level"),
	WithField("unit"),
	Ref("Peer"),
	Static("max", &gaugeMax),
	Method("Reset"),
)

func TestFieldAt(t *testing.T) {
	level, err := FieldAt[gauge, int](0)
	require.NoError(t, err)
	assert.Equal(t, "Level", level.Member().Name())

	g := gauge{Level: 3}
	assert.Same(t, &g.Level, level.Ptr(&g))
	require.NoError(t, level.Set(&g, 7))
	got, err := level.Get(&g)
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	_, err = level.Get(nil)
	assert.ErrorIs(t, err, ErrNilReference)
}

func TestFieldNamedUnexported(t *testing.T) {
	unit, err := FieldNamed[gauge, string]("unit")
	require.NoError(t, err)
	var g gauge
	require.NoError(t, unit.Set(&g, "bar"))
	assert.Equal(t, "bar", g.unit)
}

func TestFieldResolutionErrors(t *testing.T) {
	_, err := FieldAt[gauge, string](0)
	assert.ErrorIs(t, err, ErrTypeMismatch)
	_, err = FieldAt[gauge, int](10)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = FieldNamed[gauge, func()]("Reset")
	assert.ErrorIs(t, err, ErrKindMismatch)
	_, err = FieldNamed[gauge, int]("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFieldThroughReference(t *testing.T) {
	peer, err := FieldNamed[gauge, point]("Peer")
	require.NoError(t, err)

	var g gauge
	_, err = peer.Get(&g)
	assert.ErrorIs(t, err, ErrNilReference)
	assert.ErrorIs(t, peer.Set(&g, point{}), ErrNilReference)

	p := point{Lat: 1}
	g.Peer = &p
	require.NoError(t, peer.Set(&g, point{Lat: 2, Lon: 3}))
	assert.Equal(t, point{Lat: 2, Lon: 3}, p)
}

func TestFieldStatic(t *testing.T) {
	limit, err := FieldNamed[gauge, int]("max")
	require.NoError(t, err)
	got, err := limit.Get(nil)
	require.NoError(t, err)
	assert.Equal(t, gaugeMax, got)
	assert.Same(t, &gaugeMax, limit.Ptr(nil))
}

func TestClassOfReturnsRegistration(t *testing.T) {
	c, err := ClassOf[gauge]()
	require.NoError(t, err)
	assert.Same(t, gaugeClass.Descriptor(), c.Descriptor())
	assert.False(t, c.Descriptor().IsAuto())
	assert.Equal(t, 5, c.Total())

	g := gauge{Level: 4}
	var names []string
	err = c.ForEach(&g, func(m *Member, _ Value) error {
		names = append(names, m.Name())
		if m.Name() == "unit" {
			return ErrNotFound
		}
		return nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"Level", "unit"}, names)

	_, err = c.Named(&g, "Reset", func(_ *Member, v Value) error {
		_, err := v.(Func).Call()
		return err
	})
	require.NoError(t, err)
	assert.Zero(t, g.Level)
}

func TestAccessorField(t *testing.T) {
	r := NewRegistry()
	d, err := r.Register(reflect.TypeFor[account](),
		Accessor("note", func(a *account) *string {
			if a.meta == nil {
				return nil
			}
			return &a.meta.Note
		}),
	)
	require.NoError(t, err)
	m, err := d.Member(0)
	require.NoError(t, err)
	note, err := FieldOf[account, string](m)
	require.NoError(t, err)

	a := account{meta: &accountMeta{}}
	require.NoError(t, note.Set(&a, "set"))
	assert.Equal(t, "set", a.meta.Note)

	_, err = FieldOf[gauge, string](m)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}
