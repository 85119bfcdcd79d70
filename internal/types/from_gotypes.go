package types

import (
	gotypes "go/types"

	"fortio.org/safecast"
)

// Untyped constants take the type they default to.
var goBasics = map[gotypes.BasicKind]Type{
	gotypes.Bool:           Basic(KindBool, WidthAny),
	gotypes.UntypedBool:    Basic(KindBool, WidthAny),
	gotypes.Int:            Basic(KindInt, WidthAny),
	gotypes.UntypedInt:     Basic(KindInt, WidthAny),
	gotypes.Int8:           Basic(KindInt, Width8),
	gotypes.Int16:          Basic(KindInt, Width16),
	gotypes.Int32:          Basic(KindInt, Width32),
	gotypes.UntypedRune:    Basic(KindInt, Width32),
	gotypes.Int64:          Basic(KindInt, Width64),
	gotypes.Uint:           Basic(KindUint, WidthAny),
	gotypes.Uint8:          Basic(KindUint, Width8),
	gotypes.Uint16:         Basic(KindUint, Width16),
	gotypes.Uint32:         Basic(KindUint, Width32),
	gotypes.Uint64:         Basic(KindUint, Width64),
	gotypes.Uintptr:        Basic(KindUintptr, WidthAny),
	gotypes.Float32:        Basic(KindFloat, Width32),
	gotypes.Float64:        Basic(KindFloat, Width64),
	gotypes.UntypedFloat:   Basic(KindFloat, Width64),
	gotypes.Complex64:      Basic(KindComplex, Width64),
	gotypes.Complex128:     Basic(KindComplex, Width128),
	gotypes.UntypedComplex: Basic(KindComplex, Width128),
	gotypes.String:         Basic(KindString, WidthAny),
	gotypes.UntypedString:  Basic(KindString, WidthAny),
	gotypes.UnsafePointer:  Basic(KindUnsafePointer, WidthAny),
}

// FromGoTypes interns a type-checker type. It mirrors FromReflect so that a
// struct loaded from source lays out exactly like its runtime counterpart.
func (in *Interner) FromGoTypes(gt gotypes.Type) TypeID {
	if gt == nil {
		return NoTypeID
	}
	gt = gotypes.Unalias(gt)
	if id, ok := in.byGo[gt]; ok {
		return id
	}
	if in.byGo == nil {
		in.byGo = make(map[gotypes.Type]TypeID, 64)
	}

	if named, ok := gt.(*gotypes.Named); ok {
		st, isStruct := named.Underlying().(*gotypes.Struct)
		if !isStruct {
			return in.seenGo(gt, in.FromGoTypes(named.Underlying()))
		}
		obj := named.Obj()
		var pkgPath string
		if obj.Pkg() != nil {
			pkgPath = obj.Pkg().Path()
		}
		return in.goStruct(gt, obj.Name(), pkgPath, st)
	}

	var t Type
	switch u := gt.Underlying().(type) {
	case *gotypes.Basic:
		b, ok := goBasics[u.Kind()]
		if !ok {
			return NoTypeID
		}
		t = b
	case *gotypes.Pointer:
		t = PointerTo(in.FromGoTypes(u.Elem()))
	case *gotypes.Slice:
		t = SliceOf(in.FromGoTypes(u.Elem()))
	case *gotypes.Chan:
		t = ChanOf(in.FromGoTypes(u.Elem()))
	case *gotypes.Map:
		t = MapOf(in.FromGoTypes(u.Key()), in.FromGoTypes(u.Elem()))
	case *gotypes.Array:
		n, err := safecast.Conv[uint64](u.Len())
		if err != nil {
			return NoTypeID
		}
		t = ArrayOf(in.FromGoTypes(u.Elem()), n)
	case *gotypes.Signature:
		t = Basic(KindFunc, WidthAny)
	case *gotypes.Interface:
		t = Basic(KindInterface, WidthAny)
	case *gotypes.Struct:
		return in.goStruct(gt, "", "", u)
	default:
		return NoTypeID
	}
	return in.seenGo(gt, in.Intern(t))
}

func (in *Interner) goStruct(gt gotypes.Type, name, pkgPath string, st *gotypes.Struct) TypeID {
	id := in.seenGo(gt, in.NewStruct(name, pkgPath))
	fields := make([]StructField, st.NumFields())
	for i := range fields {
		f := st.Field(i)
		fields[i] = StructField{
			Name:     f.Name(),
			Type:     in.FromGoTypes(f.Type()),
			Embedded: f.Embedded(),
			Exported: f.Exported(),
		}
	}
	in.SetFields(id, fields)
	return id
}

func (in *Interner) seenGo(gt gotypes.Type, id TypeID) TypeID {
	in.byGo[gt] = id
	return id
}
