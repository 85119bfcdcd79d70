package layout

import (
	"fmt"
	"slices"

	"reflex/internal/types"
)

// TypeLayout is the gc memory layout of a type on one Target. Field slices
// are set for structs only, indexed like the struct's fields.
type TypeLayout struct {
	Size         int
	Align        int
	FieldOffsets []int
	FieldAligns  []int
}

var unsized = TypeLayout{Align: 1}

// LayoutEngine computes and memoizes layouts of interned types.
//
// It shares the interner's concurrency contract: callers that use it from
// several goroutines must serialize access.
type LayoutEngine struct {
	Target Target
	Types  *types.Interner

	memo map[types.TypeID]memoized
}

type memoized struct {
	layout TypeLayout
	err    *LayoutError
}

// New returns an engine for target over the types of in.
func New(target Target, in *types.Interner) *LayoutEngine {
	return &LayoutEngine{Target: target, Types: in, memo: make(map[types.TypeID]memoized, 64)}
}

// LayoutOf returns the layout of id. Failures are memoized too.
func (e *LayoutEngine) LayoutOf(id types.TypeID) (TypeLayout, error) {
	if e == nil {
		return unsized, nil
	}
	if e.memo == nil {
		e.memo = make(map[types.TypeID]memoized, 64)
	}
	l, err := e.layoutOf(id, nil)
	if err != nil {
		return l, err
	}
	return l, nil
}

// layoutOf resolves id below the chain of types whose layout is still being
// computed. Meeting id on that chain means it contains itself by value.
func (e *LayoutEngine) layoutOf(id types.TypeID, chain []types.TypeID) (TypeLayout, *LayoutError) {
	if m, ok := e.memo[id]; ok {
		return m.layout, m.err
	}
	var (
		l   TypeLayout
		err *LayoutError
	)
	if i := slices.Index(chain, id); i >= 0 {
		l, err = unsized, e.recursive(append(slices.Clone(chain[i:]), id))
	} else {
		l, err = e.compute(id, append(chain, id))
	}
	e.memo[id] = memoized{layout: l, err: err}
	return l, err
}

// SizeOf returns the size of id in bytes.
func (e *LayoutEngine) SizeOf(id types.TypeID) (int, error) {
	l, err := e.LayoutOf(id)
	return l.Size, err
}

// AlignOf returns the alignment of id in bytes.
func (e *LayoutEngine) AlignOf(id types.TypeID) (int, error) {
	l, err := e.LayoutOf(id)
	return l.Align, err
}

// FieldOffset returns the byte offset of field i of a struct type.
func (e *LayoutEngine) FieldOffset(id types.TypeID, i int) (int, error) {
	l, err := e.LayoutOf(id)
	if err != nil {
		return 0, err
	}
	if i < 0 || i >= len(l.FieldOffsets) {
		return 0, fmt.Errorf("layout: field %d of %s out of range [0,%d)", i, e.Types.Label(id), len(l.FieldOffsets))
	}
	return l.FieldOffsets[i], nil
}

// Cached reports how many layouts the engine has memoized.
func (e *LayoutEngine) Cached() int {
	if e == nil {
		return 0
	}
	return len(e.memo)
}
