package types

import (
	"strconv"
	"strings"
)

const labelDepth = 6

// Label renders id the way Go source would spell it, with named structs
// qualified by the last element of their package path.
func (in *Interner) Label(id TypeID) string {
	var b strings.Builder
	in.writeLabel(&b, id, 0)
	return b.String()
}

func (in *Interner) writeLabel(b *strings.Builder, id TypeID, depth int) {
	t, ok := in.Lookup(id)
	switch {
	case !ok:
		b.WriteString("?")
		return
	case depth > labelDepth:
		b.WriteString("...")
		return
	}
	switch t.Kind {
	case KindInt, KindUint, KindFloat, KindComplex:
		b.WriteString(t.Kind.String())
		if t.Width != WidthAny {
			b.WriteString(strconv.Itoa(int(t.Width)))
		}
	case KindPointer:
		b.WriteString("*")
		in.writeLabel(b, t.Elem, depth+1)
	case KindSlice:
		b.WriteString("[]")
		in.writeLabel(b, t.Elem, depth+1)
	case KindArray:
		b.WriteString("[" + strconv.FormatUint(t.Len, 10) + "]")
		in.writeLabel(b, t.Elem, depth+1)
	case KindMap:
		b.WriteString("map[")
		in.writeLabel(b, t.Key, depth+1)
		b.WriteString("]")
		in.writeLabel(b, t.Elem, depth+1)
	case KindChan:
		b.WriteString("chan ")
		in.writeLabel(b, t.Elem, depth+1)
	case KindStruct:
		in.writeStruct(b, id, depth)
	default:
		b.WriteString(t.Kind.String())
	}
}

func (in *Interner) writeStruct(b *strings.Builder, id TypeID, depth int) {
	info, ok := in.StructInfo(id)
	if !ok {
		b.WriteString("?")
		return
	}
	if info.Name != "" {
		if pkg := info.PkgPath[strings.LastIndexByte(info.PkgPath, '/')+1:]; pkg != "" {
			b.WriteString(pkg + ".")
		}
		b.WriteString(info.Name)
		return
	}
	b.WriteString("struct{")
	for i, f := range info.Fields {
		if i > 0 {
			b.WriteString("; ")
		}
		if !f.Embedded {
			b.WriteString(f.Name + " ")
		}
		in.writeLabel(b, f.Type, depth+1)
	}
	b.WriteString("}")
}
