package types

import (
	"reflect"

	"fortio.org/safecast"
)

var reflectBasics = map[reflect.Kind]Type{
	reflect.Bool:          Basic(KindBool, WidthAny),
	reflect.Int:           Basic(KindInt, WidthAny),
	reflect.Int8:          Basic(KindInt, Width8),
	reflect.Int16:         Basic(KindInt, Width16),
	reflect.Int32:         Basic(KindInt, Width32),
	reflect.Int64:         Basic(KindInt, Width64),
	reflect.Uint:          Basic(KindUint, WidthAny),
	reflect.Uint8:         Basic(KindUint, Width8),
	reflect.Uint16:        Basic(KindUint, Width16),
	reflect.Uint32:        Basic(KindUint, Width32),
	reflect.Uint64:        Basic(KindUint, Width64),
	reflect.Uintptr:       Basic(KindUintptr, WidthAny),
	reflect.Float32:       Basic(KindFloat, Width32),
	reflect.Float64:       Basic(KindFloat, Width64),
	reflect.Complex64:     Basic(KindComplex, Width64),
	reflect.Complex128:    Basic(KindComplex, Width128),
	reflect.String:        Basic(KindString, WidthAny),
	reflect.UnsafePointer: Basic(KindUnsafePointer, WidthAny),
	reflect.Func:          Basic(KindFunc, WidthAny),
	reflect.Interface:     Basic(KindInterface, WidthAny),
}

// FromReflect interns a runtime type. Named non-struct types collapse onto
// their underlying descriptor; struct types keep one slot per reflect.Type.
func (in *Interner) FromReflect(rt reflect.Type) TypeID {
	if rt == nil {
		return NoTypeID
	}
	if id, ok := in.byReflect[rt]; ok {
		return id
	}
	if in.byReflect == nil {
		in.byReflect = make(map[reflect.Type]TypeID, 64)
	}
	if b, ok := reflectBasics[rt.Kind()]; ok {
		return in.seenReflect(rt, in.Intern(b))
	}

	var t Type
	switch rt.Kind() {
	case reflect.Pointer:
		// A self-referencing pointer comes back here through its struct,
		// whose slot is remembered before the fields are resolved.
		t = PointerTo(in.FromReflect(rt.Elem()))
	case reflect.Slice:
		t = SliceOf(in.FromReflect(rt.Elem()))
	case reflect.Chan:
		t = ChanOf(in.FromReflect(rt.Elem()))
	case reflect.Map:
		t = MapOf(in.FromReflect(rt.Key()), in.FromReflect(rt.Elem()))
	case reflect.Array:
		n, err := safecast.Conv[uint64](rt.Len())
		if err != nil {
			return NoTypeID
		}
		t = ArrayOf(in.FromReflect(rt.Elem()), n)
	case reflect.Struct:
		return in.reflectStruct(rt)
	default:
		return NoTypeID
	}
	return in.seenReflect(rt, in.Intern(t))
}

func (in *Interner) reflectStruct(rt reflect.Type) TypeID {
	id := in.seenReflect(rt, in.NewStruct(rt.Name(), rt.PkgPath()))
	fields := make([]StructField, rt.NumField())
	for i := range fields {
		f := rt.Field(i)
		fields[i] = StructField{
			Name:     f.Name,
			Type:     in.FromReflect(f.Type),
			Embedded: f.Anonymous,
			Exported: f.IsExported(),
		}
	}
	in.SetFields(id, fields)
	return id
}

func (in *Interner) seenReflect(rt reflect.Type, id TypeID) TypeID {
	in.byReflect[rt] = id
	return id
}
