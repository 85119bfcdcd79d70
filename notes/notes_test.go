package notes

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type marker struct{}

type boxed[T any] struct {
	V T
}

type labeler interface {
	Label() string
}

type unit string

func (u unit) Label() string { return string(u) }

type scale float64

func (s scale) Label() string { return fmt.Sprintf("x%g", float64(s)) }

func TestGetFirstMatchWins(t *testing.T) {
	l := Of(marker{}, boxed[int]{V: 1}, "c", boxed[int]{V: 2})

	got, ok := Get[boxed[int]](l)
	require.True(t, ok)
	assert.Equal(t, 1, got.V)

	_, ok = Get[boxed[string]](l)
	assert.False(t, ok)
	assert.True(t, Has[marker](l))
	assert.False(t, Has[rune](l))
}

func TestForEachVisitsMatchesInOrder(t *testing.T) {
	l := Of(boxed[int]{V: 1}, marker{}, boxed[int]{V: 2}, boxed[int]{V: 3})

	var seen []int
	ForEach(l, func(b boxed[int]) {
		seen = append(seen, b.V)
	})
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, 3, Count[boxed[int]](l))
}

func TestForEachWithoutMatchesIsNoop(t *testing.T) {
	l := Of(marker{}, boxed[int]{V: 1}, "c")
	calls := 0
	ForEach(l, func(rune) { calls++ })
	assert.Zero(t, calls)
	assert.Empty(t, Filter[float32](l))
}

func TestUntypedForEachVisitsAll(t *testing.T) {
	l := Of(marker{}, boxed[int]{V: 1}, 'c')

	var kinds []string
	l.ForEach(func(i int, v any) {
		kinds = append(kinds, fmt.Sprintf("%d:%T", i, v))
	})
	assert.Equal(t, []string{"0:notes.marker", "1:notes.boxed[int]", "2:int32"}, kinds)
}

func TestInterfaceMatchesEveryImplementation(t *testing.T) {
	l := Of(unit("m"), marker{}, scale(2))

	var labels []string
	ForEach(l, func(lb labeler) {
		labels = append(labels, lb.Label())
	})
	assert.Equal(t, []string{"m", "x2"}, labels)

	first, ok := Get[labeler](l)
	require.True(t, ok)
	assert.Equal(t, "m", first.Label())
}

func TestMustGetPanicsWithMissingError(t *testing.T) {
	l := Of(marker{})
	assert.Equal(t, marker{}, MustGet[marker](l))

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(*MissingError)
		require.True(t, ok)
		assert.Contains(t, err.Error(), "notes.labeler")
	}()
	MustGet[labeler](l)
}

func TestAppendDoesNotAlias(t *testing.T) {
	base := Of(marker{})
	a := base.Append(unit("a"))
	b := base.Append(unit("b"))

	assert.Equal(t, 1, base.Len())
	la, _ := Get[unit](a)
	lb, _ := Get[unit](b)
	assert.Equal(t, unit("a"), la)
	assert.Equal(t, unit("b"), lb)
}

func TestNilValuesDropped(t *testing.T) {
	l := Of(nil, marker{}, nil)
	assert.Equal(t, 1, l.Len())
	v, ok := l.At(0)
	require.True(t, ok)
	assert.Equal(t, marker{}, v)
	_, ok = l.At(1)
	assert.False(t, ok)
}

func TestWellKnownHelpers(t *testing.T) {
	l := Of(
		Tag{Key: "json", Name: "lat", Options: map[string]string{"omitempty": ""}},
		Ignore{Scope: "mapper"},
	)
	tag, ok := TagFor(l, "json")
	require.True(t, ok)
	assert.True(t, tag.HasOption("omitempty"))
	_, ok = TagFor(l, "yaml")
	assert.False(t, ok)

	assert.True(t, Ignored(l, "mapper"))
	assert.False(t, Ignored(l, "json"))
	assert.True(t, Ignored(Of(Ignore{}), "json"))
}
