package gen

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/tools/imports"
)

// Header marks generated files. A file that starts with it may be
// overwritten or removed by the generator.
const Header = "// Code generated by reflex gen. DO NOT EDIT.\n"

// Import paths the generated code calls into.
const (
	RuntimePath  = "reflex"
	OverloadPath = "reflex/overload"
)

// IsGenerated reports whether src carries Header.
func IsGenerated(src []byte) bool {
	return bytes.HasPrefix(src, []byte(Header))
}

// Emit renders plan as a Go file and formats it. filename locates the
// file for import resolution and error messages.
func Emit(plan *Plan, filename string) ([]byte, error) {
	var b strings.Builder
	b.WriteString(Header)
	b.WriteString("\n")
	fmt.Fprintf(&b, "package %s\n\n", plan.PkgName)

	b.WriteString("import (\n")
	fmt.Fprintf(&b, "\t%q\n", "reflect")
	fmt.Fprintf(&b, "\t%q\n", RuntimePath)
	fmt.Fprintf(&b, "\t%q\n", OverloadPath)
	reserved := map[string]bool{"reflect": true, "reflex": true, "overload": true}
	for _, imp := range plan.Imports {
		name := imp.Name
		if name == "" {
			name = lastElem(imp.Path)
		}
		if reserved[name] || imp.Path == plan.PkgPath {
			continue
		}
		reserved[name] = true
		if imp.Name != "" {
			fmt.Fprintf(&b, "\t%s %q\n", imp.Name, imp.Path)
		} else {
			fmt.Fprintf(&b, "\t%q\n", imp.Path)
		}
	}
	b.WriteString(")\n\n")

	b.WriteString("func init() {\n")
	for _, tp := range plan.Types {
		writeType(&b, tp)
	}
	b.WriteString("}\n")

	out, err := imports.Process(filename, []byte(b.String()), &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", filename, err)
	}
	return out, nil
}

func writeType(b *strings.Builder, tp *TypePlan) {
	fmt.Fprintf(b, "\treflex.MustRegister[%s](\n", tp.Name)
	if tp.Display != "" {
		fmt.Fprintf(b, "\t\treflex.Named(%s),\n", strconv.Quote(tp.Display))
	}
	if len(tp.Notes) > 0 {
		fmt.Fprintf(b, "\t\treflex.Note(%s),\n", strings.Join(tp.Notes, ", "))
	}
	for _, s := range tp.Supers {
		fmt.Fprintf(b, "\t\treflex.WithSuper[%s](%s),\n", s.Type, strings.Join(s.Notes, ", "))
	}
	for _, m := range tp.Members {
		fmt.Fprintf(b, "\t\t%s,\n", memberOption(tp, m))
	}
	b.WriteString("\t)\n")
}

func memberOption(tp *TypePlan, m MemberPlan) string {
	name := strconv.Quote(m.Name)
	switch m.Kind {
	case MemberField, MemberRef:
		body := "&v." + m.Go
		if m.Kind == MemberRef {
			body = "v." + m.Go
		}
		args := []string{name, fmt.Sprintf("func(v *%s) *%s { return %s }", tp.Name, m.Type, body)}
		args = append(args, m.Notes...)
		if m.Tag != "" {
			args = append(args, fmt.Sprintf("reflect.StructTag(%s)", strconv.Quote(m.Tag)))
		}
		return "reflex.Accessor(" + strings.Join(args, ", ") + ")"
	case MemberStatic:
		return "reflex.Static(" + strings.Join(append([]string{name, "&" + m.Go}, m.Notes...), ", ") + ")"
	case MemberMethod, MemberFunc:
		return "reflex.FuncAs(" + strings.Join(append([]string{name, m.Go}, m.Notes...), ", ") + ")"
	case MemberOverload:
		args := []string{name}
		for _, c := range m.Candidates {
			if len(c.Notes) == 0 {
				args = append(args, c.Expr)
				continue
			}
			args = append(args, "overload.Annotate("+strings.Join(append([]string{c.Expr}, c.Notes...), ", ")+")")
		}
		return "reflex.Overloaded(" + strings.Join(args, ", ") + ")"
	}
	panic(fmt.Sprintf("gen: unexpected member kind %s", m.Kind))
}

func lastElem(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
