package types

import (
	"fmt"
	gotypes "go/types"
	"reflect"
	"slices"

	"fortio.org/safecast"
)

// StructField describes a single field inside a struct type.
type StructField struct {
	Name     string
	Type     TypeID
	Embedded bool
	Exported bool
}

// StructInfo is the nominal part of a struct type.
type StructInfo struct {
	Name    string // empty for anonymous structs
	PkgPath string
	Fields  []StructField
}

// Interner hands out stable TypeIDs. Non-struct types are structural: equal
// descriptors share an ID. Struct types are nominal: every NewStruct call
// gets a fresh slot.
//
// An Interner is not safe for concurrent use.
type Interner struct {
	types   []Type // by TypeID; index 0 is unused
	ids     map[Type]TypeID
	structs []StructInfo // by Type.Slot; index 0 is unused

	byReflect map[reflect.Type]TypeID
	byGo      map[gotypes.Type]TypeID
}

// NewInterner returns an empty interner.
func NewInterner() *Interner {
	return &Interner{
		types:   make([]Type, 1, 64),
		ids:     make(map[Type]TypeID, 64),
		structs: make([]StructInfo, 1, 16),
	}
}

// Len returns the number of interned types.
func (in *Interner) Len() int {
	return len(in.types) - 1
}

// Intern returns the ID of t, adding it on first sight.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	if id, ok := in.ids[t]; ok {
		return id
	}
	id := TypeID(index32(len(in.types)))
	in.types = append(in.types, t)
	in.ids[t] = id
	return id
}

// Basic interns a non-composite type.
func (in *Interner) Basic(k Kind, w Width) TypeID {
	return in.Intern(Basic(k, w))
}

// Lookup returns the descriptor behind id.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if in == nil || id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// NewStruct allocates a struct slot without fields. Fields are set later
// with SetFields so that self-referencing structs can point at their own ID.
func (in *Interner) NewStruct(name, pkgPath string) TypeID {
	in.structs = append(in.structs, StructInfo{Name: name, PkgPath: pkgPath})
	return in.Intern(Type{Kind: KindStruct, Slot: index32(len(in.structs) - 1)})
}

func index32(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("types: interner overflow: %w", err))
	}
	return v
}

// SetFields replaces the fields of a struct type. It ignores non-structs.
func (in *Interner) SetFields(id TypeID, fields []StructField) {
	if info, ok := in.StructInfo(id); ok {
		info.Fields = slices.Clone(fields)
	}
}

// StructInfo returns the nominal record of a struct type. The record is
// owned by the interner.
func (in *Interner) StructInfo(id TypeID) (*StructInfo, bool) {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindStruct || t.Slot == 0 || int(t.Slot) >= len(in.structs) {
		return nil, false
	}
	return &in.structs[t.Slot], true
}

// StructFields returns a copy of the fields of a struct type, nil when it
// has none.
func (in *Interner) StructFields(id TypeID) []StructField {
	info, ok := in.StructInfo(id)
	if !ok {
		return nil
	}
	return slices.Clone(info.Fields)
}
