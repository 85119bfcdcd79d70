package overload

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reflex/notes"
)

type canvas struct {
	calls []string
}

func (c *canvas) DrawInts(x int, y float32) string {
	c.calls = append(c.calls, "ints")
	return "int,float32"
}

func (c canvas) DrawText(s string) string { return "string:" + s }

func (c *canvas) Size() string { return "mutable" }

func (c canvas) SizeConst() string { return "const" }

func (c canvas) Width() int { return 1 }

func (c canvas) Height() int { return 2 }

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func sum(xs ...int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

func deref(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

type hint string

func drawSet(t *testing.T) *Set {
	t.Helper()
	s, err := New(reflect.TypeFor[canvas](), "Draw",
		Annotate((*canvas).DrawInts, hint("numeric")),
		canvas.DrawText,
	)
	require.NoError(t, err)
	return s
}

func TestSetEnumeratesArgumentTuples(t *testing.T) {
	s := drawSet(t)
	require.Equal(t, 2, s.Len())

	o0, err := s.At(0)
	require.NoError(t, err)
	assert.Equal(t, []reflect.Type{reflect.TypeFor[int](), reflect.TypeFor[float32]()}, o0.Args())
	assert.Equal(t, Mutable, o0.Qualifier())
	assert.Equal(t, "(*canvas).DrawInts", o0.Symbol())
	assert.Equal(t, "(*overload.canvas) Draw(int, float32) string", o0.Signature())
	h, ok := notes.Get[hint](o0.Notes())
	assert.True(t, ok)
	assert.Equal(t, hint("numeric"), h)

	o1, err := s.At(1)
	require.NoError(t, err)
	assert.Equal(t, []reflect.Type{reflect.TypeFor[string]()}, o1.Args())
	assert.Equal(t, Const, o1.Qualifier())

	_, err = s.At(2)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = s.At(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestCallDispatchesByArgumentTypes(t *testing.T) {
	s := drawSet(t)
	c := &canvas{}

	out, err := s.Call(c, 1, float32(2))
	require.NoError(t, err)
	assert.Equal(t, []any{"int,float32"}, out)
	assert.Equal(t, []string{"ints"}, c.calls)

	out, err = s.Call(c, "hi")
	require.NoError(t, err)
	assert.Equal(t, []any{"string:hi"}, out)

	_, err = s.Call(c, 1.5)
	assert.ErrorIs(t, err, ErrNoMatch)

	// A read-only object cannot reach the pointer-receiver overload.
	_, err = s.Call(canvas{}, 1, float32(2))
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestByArgsIsExact(t *testing.T) {
	s := drawSet(t)
	o, err := s.ByArgs(reflect.TypeFor[string]())
	require.NoError(t, err)
	assert.Equal(t, 1, o.Index())

	_, err = s.ByArgs(reflect.TypeFor[int](), reflect.TypeFor[float64]())
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestBestFitFollowsQualification(t *testing.T) {
	s, err := New(reflect.TypeFor[*canvas](), "Size", (*canvas).Size, canvas.SizeConst)
	require.NoError(t, err)

	o, err := s.BestFit(&canvas{})
	require.NoError(t, err)
	assert.Equal(t, Mutable, o.Qualifier())

	o, err = s.BestFit(canvas{})
	require.NoError(t, err)
	assert.Equal(t, Const, o.Qualifier())

	_, err = s.ByArgs()
	assert.ErrorIs(t, err, ErrAmbiguous)

	out, err := s.Call(canvas{})
	require.NoError(t, err)
	assert.Equal(t, []any{"const"}, out)
}

func TestBestFitMutableFallsBackToConst(t *testing.T) {
	s, err := New(reflect.TypeFor[canvas](), "Text", canvas.DrawText)
	require.NoError(t, err)
	o, err := s.BestFit(&canvas{}, reflect.TypeFor[string]())
	require.NoError(t, err)
	out, err := o.Call(&canvas{}, "x")
	require.NoError(t, err)
	assert.Equal(t, []any{"string:x"}, out)
}

func TestBestFitAmbiguous(t *testing.T) {
	s, err := New(reflect.TypeFor[canvas](), "Dim", canvas.Width, canvas.Height)
	require.NoError(t, err)
	_, err = s.BestFit(canvas{})
	assert.ErrorIs(t, err, ErrAmbiguous)
}

func TestResolveReturnsTypedFunc(t *testing.T) {
	s := drawSet(t)
	draw, err := Resolve[func(*canvas, int, float32) string](s)
	require.NoError(t, err)
	assert.Equal(t, "int,float32", draw(&canvas{}, 1, 2))

	_, err = Resolve[func(canvas, int) string](s)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestFreeSets(t *testing.T) {
	s, err := New(nil, "Abs", absInt, absFloat)
	require.NoError(t, err)
	out, err := s.Call(nil, -3)
	require.NoError(t, err)
	assert.Equal(t, []any{3}, out)
	out, err = s.Call(nil, -2.5)
	require.NoError(t, err)
	assert.Equal(t, []any{2.5}, out)

	v, err := New(nil, "Sum", sum)
	require.NoError(t, err)
	out, err = v.Call(nil, 1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []any{6}, out)
	out, err = v.Call(nil)
	require.NoError(t, err)
	assert.Equal(t, []any{0}, out)

	p, err := New(nil, "Deref", deref)
	require.NoError(t, err)
	out, err = p.Call(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{-1}, out)
}

func TestPackAndForEachKeepOrder(t *testing.T) {
	s := drawSet(t)
	var seen []int
	s.ForEach(func(o *Overload) { seen = append(seen, o.Index()) })
	assert.Equal(t, []int{0, 1}, seen)

	var packed int
	s.Pack(func(all ...*Overload) { packed = len(all) })
	assert.Equal(t, 2, packed)
}

func TestNewRejectsBadCandidates(t *testing.T) {
	_, err := New(reflect.TypeFor[canvas](), "Abs", absInt)
	assert.ErrorIs(t, err, ErrReceiver)

	_, err = New(nil, "X", 42)
	assert.ErrorIs(t, err, ErrNotFunc)
}
