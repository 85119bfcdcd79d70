package gen

import (
	"go/ast"
	"go/token"
	"slices"
	"strings"
)

// Prefix starts every generator directive. Like //go: directives it has no
// space after the slashes.
const Prefix = "//reflex:"

// Target is the set of declarations a directive may annotate.
type Target uint8

const (
	TargetNone  Target = 0
	TargetType  Target = 1 << iota // struct type declarations
	TargetField                    // struct fields, embedded ones included
	TargetMethod                   // methods of a registered type
	TargetVar                      // package-level variables
	TargetFunc                     // package-level functions
)

func (t Target) String() string {
	var parts []string
	for _, p := range []struct {
		bit  Target
		name string
	}{
		{TargetType, "type"},
		{TargetField, "field"},
		{TargetMethod, "method"},
		{TargetVar, "var"},
		{TargetFunc, "func"},
	} {
		if t&p.bit != 0 {
			parts = append(parts, p.name)
		}
	}
	if len(parts) == 0 {
		return "nothing"
	}
	return strings.Join(parts, "|")
}

// Flag captures argument rules beyond the target matrix.
type Flag uint8

const (
	FlagNone Flag = 0

	// FlagNeedsArg marks directives that take an argument.
	FlagNeedsArg Flag = 1 << iota

	// FlagRepeatable allows a directive more than once per declaration.
	FlagRepeatable
)

// Spec describes one directive.
type Spec struct {
	Name    string
	Targets Target
	Flags   Flag
	Usage   string
}

func (s Spec) Allows(target Target) bool { return s.Targets&target != 0 }
func (s Spec) HasFlag(flag Flag) bool    { return s.Flags&flag != 0 }

var catalog = map[string]Spec{
	"register":   {Name: "register", Targets: TargetType, Usage: "//reflex:register"},
	"name":       {Name: "name", Targets: TargetType | TargetField | TargetMethod | TargetVar | TargetFunc, Flags: FlagNeedsArg, Usage: "//reflex:name <identifier>"},
	"note":       {Name: "note", Targets: TargetType | TargetField | TargetMethod | TargetVar | TargetFunc, Flags: FlagNeedsArg | FlagRepeatable, Usage: "//reflex:note <expr>"},
	"super-note": {Name: "super-note", Targets: TargetType, Flags: FlagNeedsArg | FlagRepeatable, Usage: "//reflex:super-note <Embedded> <expr>"},
	"ref":        {Name: "ref", Targets: TargetField, Usage: "//reflex:ref"},
	"skip":       {Name: "skip", Targets: TargetField, Usage: "//reflex:skip"},
	"method":     {Name: "method", Targets: TargetMethod, Usage: "//reflex:method"},
	"overload":   {Name: "overload", Targets: TargetMethod | TargetFunc, Flags: FlagNeedsArg, Usage: "//reflex:overload <name>"},
	"static":     {Name: "static", Targets: TargetVar, Flags: FlagNeedsArg, Usage: "//reflex:static <Type>"},
	"func":       {Name: "func", Targets: TargetFunc, Flags: FlagNeedsArg, Usage: "//reflex:func <Type>"},
}

// LookupDirective returns the spec of a directive name.
func LookupDirective(name string) (Spec, bool) {
	spec, ok := catalog[name]
	return spec, ok
}

// Directives returns every spec sorted by name.
func Directives() []Spec {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	slices.Sort(names)
	out := make([]Spec, 0, len(names))
	for _, name := range names {
		out = append(out, catalog[name])
	}
	return out
}

// Directive is one parsed //reflex: line.
type Directive struct {
	Name    string
	Arg     string
	Pos     token.Pos
	comment *ast.Comment
}

// parseDirective splits a comment into name and argument. ok is false for
// comments that are not directives.
func parseDirective(c *ast.Comment) (Directive, bool) {
	rest, ok := strings.CutPrefix(c.Text, Prefix)
	if !ok {
		return Directive{}, false
	}
	name, arg, _ := strings.Cut(rest, " ")
	return Directive{
		Name:    strings.TrimSpace(name),
		Arg:     strings.TrimSpace(arg),
		Pos:     c.Slash,
		comment: c,
	}, true
}

// directives collects the directives of the comment groups, in order.
func directives(groups ...*ast.CommentGroup) []Directive {
	var out []Directive
	for _, g := range groups {
		if g == nil {
			continue
		}
		for _, c := range g.List {
			if d, ok := parseDirective(c); ok {
				out = append(out, d)
			}
		}
	}
	return out
}
