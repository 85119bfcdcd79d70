package types

import "fmt"

// TypeID identifies an interned type. IDs are dense and start at 1.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates the type kinds relevant for member classification and
// memory layout.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindUint
	KindUintptr
	KindFloat
	KindComplex
	KindString
	KindUnsafePointer
	KindPointer
	KindSlice
	KindArray
	KindMap
	KindChan
	KindFunc
	KindInterface
	KindStruct
)

var kindNames = [...]string{
	"invalid", "bool", "int", "uint", "uintptr", "float", "complex", "string",
	"unsafe.Pointer", "pointer", "slice", "array", "map", "chan", "func",
	"interface", "struct",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Width is the bit size of a numeric type.
type Width uint8

const (
	WidthAny Width = 0 // platform word: int, uint
	Width8   Width = 8
	Width16  Width = 16
	Width32  Width = 32
	Width64  Width = 64
	Width128 Width = 128 // complex128 only
)

// Type is a compact structural descriptor. Two equal Types are the same
// type, except for structs, which are told apart by Slot.
type Type struct {
	Kind  Kind
	Width Width  // numeric kinds
	Elem  TypeID // pointer, slice, array, chan element; map value
	Key   TypeID // map key
	Len   uint64 // array length
	Slot  uint32 // struct: index into the interner's struct table
}

// Basic describes a non-composite kind; w matters for numeric kinds only.
func Basic(k Kind, w Width) Type         { return Type{Kind: k, Width: w} }
func PointerTo(elem TypeID) Type         { return Type{Kind: KindPointer, Elem: elem} }
func SliceOf(elem TypeID) Type           { return Type{Kind: KindSlice, Elem: elem} }
func ArrayOf(elem TypeID, n uint64) Type { return Type{Kind: KindArray, Elem: elem, Len: n} }
func MapOf(key, elem TypeID) Type        { return Type{Kind: KindMap, Key: key, Elem: elem} }
func ChanOf(elem TypeID) Type            { return Type{Kind: KindChan, Elem: elem} }
