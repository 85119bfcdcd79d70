// Package notes attaches ordered, heterogeneous annotation values to reflected
// members and types.
//
// Notes are looked up by the type of the value, not by a key. Several
// independent extensions can therefore annotate the same member without
// colliding: each one asks only for the note types it understands.
//
//	l := notes.Of(notes.Rename{Name: "latitude"}, Range{Min: -90, Max: 90})
//	if r, ok := notes.Get[Range](l); ok {
//		...
//	}
//
// When the requested type K is an interface, every note implementing it
// matches.
package notes

import "reflect"

// List is an immutable, ordered list of note values.
// The zero value is an empty list.
type List struct {
	items []any
}

// Annotated is implemented by everything that carries notes.
type Annotated interface {
	Notes() List
}

// Of builds a list from values in declaration order. Nil values are dropped.
func Of(values ...any) List {
	if len(values) == 0 {
		return List{}
	}
	items := make([]any, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		items = append(items, v)
	}
	return List{items: items}
}

// Append returns a new list with values added after the existing notes.
func (l List) Append(values ...any) List {
	if len(values) == 0 {
		return l
	}
	items := make([]any, 0, len(l.items)+len(values))
	items = append(items, l.items...)
	for _, v := range values {
		if v == nil {
			continue
		}
		items = append(items, v)
	}
	return List{items: items}
}

// Len returns the number of notes.
func (l List) Len() int {
	return len(l.items)
}

// At returns the i-th note.
func (l List) At(i int) (any, bool) {
	if i < 0 || i >= len(l.items) {
		return nil, false
	}
	return l.items[i], true
}

// All returns a copy of every note.
func (l List) All() []any {
	if len(l.items) == 0 {
		return nil
	}
	out := make([]any, len(l.items))
	copy(out, l.items)
	return out
}

// ForEach visits every note regardless of its type.
func (l List) ForEach(fn func(i int, v any)) {
	for i, v := range l.items {
		fn(i, v)
	}
}

// Has reports whether at least one note matches K.
func Has[K any](l List) bool {
	for _, v := range l.items {
		if _, ok := v.(K); ok {
			return true
		}
	}
	return false
}

// Get returns the first note matching K.
func Get[K any](l List) (K, bool) {
	for _, v := range l.items {
		if k, ok := v.(K); ok {
			return k, true
		}
	}
	var zero K
	return zero, false
}

// MustGet returns the first note matching K and panics when there is none.
// Guard with Has when absence is possible.
func MustGet[K any](l List) K {
	k, ok := Get[K](l)
	if !ok {
		panic(&MissingError{Want: reflect.TypeFor[K]().String()})
	}
	return k
}

// ForEach visits every note matching K in declaration order.
// Zero matches is not an error.
func ForEach[K any](l List, fn func(K)) {
	for _, v := range l.items {
		if k, ok := v.(K); ok {
			fn(k)
		}
	}
}

// Filter returns every note matching K.
func Filter[K any](l List) []K {
	var out []K
	ForEach(l, func(k K) {
		out = append(out, k)
	})
	return out
}

// Count returns the number of notes matching K.
func Count[K any](l List) int {
	n := 0
	for _, v := range l.items {
		if _, ok := v.(K); ok {
			n++
		}
	}
	return n
}
