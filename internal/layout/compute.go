package layout

import (
	"fortio.org/safecast"

	"reflex/internal/types"
)

// wordKinds maps kinds laid out as whole machine words to their word count.
var wordKinds = map[types.Kind]int{
	types.KindUintptr:       1,
	types.KindUnsafePointer: 1,
	types.KindPointer:       1,
	types.KindMap:           1,
	types.KindChan:          1,
	types.KindFunc:          1,
	types.KindString:        2,
	types.KindInterface:     2,
	types.KindSlice:         3,
}

func (e *LayoutEngine) compute(id types.TypeID, chain []types.TypeID) (TypeLayout, *LayoutError) {
	t, ok := e.Types.Lookup(id)
	if !ok {
		return unsized, e.fail(LayoutErrUnknown, id, nil)
	}
	if n, ok := wordKinds[t.Kind]; ok {
		return e.words(n), nil
	}
	switch t.Kind {
	case types.KindBool:
		return e.scalar(1), nil
	case types.KindInt, types.KindUint, types.KindFloat:
		if t.Width == types.WidthAny {
			return e.words(1), nil
		}
		return e.scalar(int(t.Width) / 8), nil
	case types.KindComplex:
		// complex64 and complex128 align like [2]float32 and [2]float64.
		half := e.scalar(int(t.Width) / 16)
		return TypeLayout{Size: 2 * half.Size, Align: half.Align}, nil
	case types.KindArray:
		return e.array(id, t, chain)
	case types.KindStruct:
		return e.structure(id, chain)
	}
	return unsized, e.fail(LayoutErrUnknown, id, nil)
}

func (e *LayoutEngine) words(n int) TypeLayout {
	word := e.Target.WordSize
	if word <= 0 {
		word = 8
	}
	return TypeLayout{Size: n * word, Align: word}
}

func (e *LayoutEngine) scalar(size int) TypeLayout {
	if size <= 0 {
		return unsized
	}
	if e.Target.MaxAlign > 0 {
		return TypeLayout{Size: size, Align: min(size, e.Target.MaxAlign)}
	}
	return TypeLayout{Size: size, Align: size}
}

// alignUp rounds n up to a multiple of a, a power of two.
func alignUp(n, a int) int {
	return (n + a - 1) &^ (a - 1)
}

func (e *LayoutEngine) array(id types.TypeID, t types.Type, chain []types.TypeID) (TypeLayout, *LayoutError) {
	elem, err := e.layoutOf(t.Elem, chain)
	if err != nil {
		return unsized, err
	}
	n, convErr := safecast.Conv[int](t.Len)
	if convErr != nil {
		return unsized, e.fail(LayoutErrLength, id, convErr)
	}
	// Element sizes already include their trailing padding.
	return TypeLayout{Size: elem.Size * n, Align: max(elem.Align, 1)}, nil
}

func (e *LayoutEngine) structure(id types.TypeID, chain []types.TypeID) (TypeLayout, *LayoutError) {
	info, ok := e.Types.StructInfo(id)
	if !ok || len(info.Fields) == 0 {
		return unsized, nil
	}
	out := TypeLayout{
		Align:        1,
		FieldOffsets: make([]int, len(info.Fields)),
		FieldAligns:  make([]int, len(info.Fields)),
	}
	end, last := 0, 0
	for i, f := range info.Fields {
		fl, err := e.layoutOf(f.Type, chain)
		if err != nil {
			return unsized, err
		}
		a := max(fl.Align, 1)
		off := alignUp(end, a)
		out.FieldOffsets[i], out.FieldAligns[i] = off, a
		out.Align = max(out.Align, a)
		end, last = off+fl.Size, fl.Size
	}
	// gc pads a zero-size final field of a non-empty struct so that its
	// address stays inside the allocation.
	if last == 0 && end > 0 {
		end++
	}
	out.Size = alignUp(end, out.Align)
	return out, nil
}
