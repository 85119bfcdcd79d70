// Package symname recovers source identifiers of functions and methods from
// the symbol names the Go toolchain records for them.
//
// The gc compiler names a method expression (*T).M "path/to/pkg.(*T).M", a
// method value t.M "path/to/pkg.T.M-fm" and a generic instantiation
// "path/to/pkg.(*T[...]).M". These renderings are a property of the
// toolchain, not of the language: gccgo and other implementations are free to
// spell them differently. Recovery is therefore best effort and fails loudly
// (ErrUnparseable) instead of guessing.
package symname

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrUnparseable is returned when a symbol name cannot be mapped back to an
// identifier, e.g. for closures.
var ErrUnparseable = errors.New("symname: unparseable symbol name")

// ErrNotFunc is returned when Of is called with something that is not a
// non-nil function value.
var ErrNotFunc = errors.New("symname: not a function value")

// Symbol is the decoded form of a toolchain symbol name.
type Symbol struct {
	Raw         string // full symbol name as reported by the runtime
	PkgPath     string // import path, e.g. "reflex/internal/symname"
	Receiver    string // receiver type name without pointer or type arguments
	Pointer     bool   // receiver is *Receiver
	Name        string // function or method identifier
	MethodValue bool   // bound method value (t.M) rather than an expression
}

// IsMethod reports whether the symbol belongs to a receiver type.
func (s Symbol) IsMethod() bool {
	return s.Receiver != ""
}

func (s Symbol) String() string {
	switch {
	case s.Receiver == "":
		return s.Name
	case s.Pointer:
		return "(*" + s.Receiver + ")." + s.Name
	default:
		return s.Receiver + "." + s.Name
	}
}

// Of recovers the symbol of a function value.
func Of(fn any) (Symbol, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return Symbol{}, fmt.Errorf("%w: %T", ErrNotFunc, fn)
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return Symbol{}, fmt.Errorf("%w: no symbol for %T", ErrUnparseable, fn)
	}
	return Parse(f.Name())
}

// Parse decodes a gc symbol name.
func Parse(raw string) (Symbol, error) {
	sym := Symbol{Raw: raw}
	if raw == "" {
		return sym, fmt.Errorf("%w: empty name", ErrUnparseable)
	}

	// The import path may contain dots in its domain part; the package
	// name starts after the last slash.
	dir := ""
	rest := raw
	if slash := strings.LastIndexByte(raw, '/'); slash >= 0 {
		dir = raw[:slash+1]
		rest = raw[slash+1:]
	}
	dot := indexOutsideBrackets(rest, '.')
	if dot <= 0 {
		return sym, fmt.Errorf("%w: %q has no package qualifier", ErrUnparseable, raw)
	}
	// gc escapes dots of the last path element ("yaml%2ev3").
	sym.PkgPath = dir + strings.ReplaceAll(rest[:dot], "%2e", ".")
	rest = rest[dot+1:]

	if trimmed, ok := strings.CutSuffix(rest, "-fm"); ok {
		sym.MethodValue = true
		rest = trimmed
	}

	parts := splitOutsideBrackets(rest, '.')
	switch len(parts) {
	case 1:
		name := stripTypeArgs(parts[0])
		if !isIdent(name) {
			return sym, fmt.Errorf("%w: %q", ErrUnparseable, raw)
		}
		sym.Name = name
	case 2:
		recv := parts[0]
		if strings.HasPrefix(recv, "(*") && strings.HasSuffix(recv, ")") {
			sym.Pointer = true
			recv = recv[2 : len(recv)-1]
		}
		recv = stripTypeArgs(recv)
		name := parts[1]
		// F.func1 and friends are closures inside F.
		if isClosureSegment(name) || !isIdent(recv) || !isIdent(name) {
			return sym, fmt.Errorf("%w: %q", ErrUnparseable, raw)
		}
		sym.Receiver = recv
		sym.Name = name
	default:
		return sym, fmt.Errorf("%w: %q", ErrUnparseable, raw)
	}
	return sym, nil
}

// Synthetic is the positional name used when no identifier exists, e.g. for
// blank fields.
func Synthetic(i int) string {
	return "field" + strconv.Itoa(i)
}

func stripTypeArgs(s string) string {
	if open := strings.IndexByte(s, '['); open >= 0 && strings.HasSuffix(s, "]") {
		return s[:open]
	}
	return s
}

func isClosureSegment(s string) bool {
	if s == "" {
		return false
	}
	if strings.HasPrefix(s, "func") {
		_, err := strconv.Atoi(s[len("func"):])
		return err == nil
	}
	if s[0] >= '0' && s[0] <= '9' {
		return true
	}
	return strings.HasPrefix(s, "gowrap") || strings.HasPrefix(s, "deferwrap")
}

func isIdent(s string) bool {
	if s == "" || s == "_" {
		return false
	}
	for i, r := range s {
		if r == utf8.RuneError {
			return false
		}
		if unicode.IsLetter(r) || r == '_' {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

func indexOutsideBrackets(s string, sep byte) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
		case sep:
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func splitOutsideBrackets(s string, sep byte) []string {
	var parts []string
	for {
		i := indexOutsideBrackets(s, sep)
		if i < 0 {
			return append(parts, s)
		}
		parts = append(parts, s[:i])
		s = s[i+1:]
	}
}
