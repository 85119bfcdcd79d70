// Package overload describes groups of functions that share one member name
// and differ in argument types or receiver qualification.
//
// Go has no overloading, so a set is declared explicitly: each candidate is
// an ordinary function or method expression. A pointer-receiver method
// expression ((*T).M) is a Mutable overload, a value-receiver one (T.M) is
// Const, and a function without receiver is Free.
package overload

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"reflex/internal/symname"
	"reflex/notes"
)

var (
	ErrOutOfRange = errors.New("overload: index out of range")
	ErrNoMatch    = errors.New("overload: no viable overload")
	ErrAmbiguous  = errors.New("overload: ambiguous call")
	ErrNotFunc    = errors.New("overload: candidate is not a function")
	ErrReceiver   = errors.New("overload: candidate does not take the receiver")
)

// Qualifier is the receiver qualification of an overload.
type Qualifier uint8

const (
	Free    Qualifier = iota // no receiver
	Const                    // value receiver, callable on read-only objects
	Mutable                  // pointer receiver
)

func (q Qualifier) String() string {
	switch q {
	case Free:
		return "free"
	case Const:
		return "const"
	case Mutable:
		return "mutable"
	default:
		return fmt.Sprintf("Qualifier(%d)", q)
	}
}

// Overload is one candidate of a Set.
type Overload struct {
	index    int
	name     string
	symbol   string
	qual     Qualifier
	recv     reflect.Type
	args     []reflect.Type
	results  []reflect.Type
	variadic bool
	fn       reflect.Value
	notes    notes.List
}

func (o *Overload) Index() int              { return o.index }
func (o *Overload) Name() string            { return o.name }
func (o *Overload) Qualifier() Qualifier    { return o.qual }
func (o *Overload) Receiver() reflect.Type  { return o.recv }
func (o *Overload) Variadic() bool          { return o.variadic }
func (o *Overload) Func() reflect.Value     { return o.fn }
func (o *Overload) Notes() notes.List       { return o.notes }
func (o *Overload) Args() []reflect.Type    { return append([]reflect.Type(nil), o.args...) }
func (o *Overload) Results() []reflect.Type { return append([]reflect.Type(nil), o.results...) }
func (o *Overload) NumArgs() int            { return len(o.args) }
func (o *Overload) Arg(i int) reflect.Type  { return o.args[i] }

// Symbol is the identifier the function was declared with, when the
// toolchain symbol could be decoded, e.g. "(*Canvas).DrawInts".
func (o *Overload) Symbol() string { return o.symbol }

// Signature renders the overload like a method declaration.
func (o *Overload) Signature() string {
	var sb strings.Builder
	switch o.qual {
	case Mutable:
		fmt.Fprintf(&sb, "(*%s) ", o.recv)
	case Const:
		fmt.Fprintf(&sb, "(%s) ", o.recv)
	}
	sb.WriteString(o.name)
	sb.WriteByte('(')
	for i, a := range o.args {
		if i > 0 {
			sb.WriteString(", ")
		}
		if o.variadic && i == len(o.args)-1 {
			sb.WriteString("..." + a.Elem().String())
			continue
		}
		sb.WriteString(a.String())
	}
	sb.WriteByte(')')
	switch len(o.results) {
	case 0:
	case 1:
		sb.WriteString(" " + o.results[0].String())
	default:
		parts := make([]string, len(o.results))
		for i, r := range o.results {
			parts[i] = r.String()
		}
		sb.WriteString(" (" + strings.Join(parts, ", ") + ")")
	}
	return sb.String()
}

// Call invokes the overload. recv is ignored for Free overloads; otherwise it
// must be a *T for Mutable overloads and a T or *T for Const ones.
func (o *Overload) Call(recv any, args ...any) ([]any, error) {
	rv, _, ok := o.receiverValue(reflect.ValueOf(recv))
	if !ok {
		return nil, fmt.Errorf("%w: %s cannot be called on %T", ErrNoMatch, o.Signature(), recv)
	}
	in, _, ok := o.bindArgs(args)
	if !ok {
		return nil, fmt.Errorf("%w: %s cannot take %s", ErrNoMatch, o.Signature(), describeArgs(args))
	}
	return o.invoke(rv, in), nil
}

// Entry pairs a candidate function with overload-level notes.
type Entry struct {
	Fn    any
	Notes notes.List
}

// Annotate attaches notes to a candidate passed to New.
func Annotate(fn any, values ...any) Entry {
	return Entry{Fn: fn, Notes: notes.Of(values...)}
}

func newOverload(recv reflect.Type, name string, index int, candidate any) (*Overload, error) {
	var list notes.List
	if e, ok := candidate.(Entry); ok {
		candidate, list = e.Fn, e.Notes
	}
	fv := reflect.ValueOf(candidate)
	if !fv.IsValid() || fv.Kind() != reflect.Func || fv.IsNil() {
		return nil, fmt.Errorf("%w: %s[%d] is %T", ErrNotFunc, name, index, candidate)
	}
	ft := fv.Type()
	o := &Overload{
		index:    index,
		name:     name,
		fn:       fv,
		notes:    list,
		variadic: ft.IsVariadic(),
	}
	if sym, err := symname.Of(candidate); err == nil {
		o.symbol = sym.String()
	}

	first := 0
	if recv != nil {
		if ft.NumIn() == 0 {
			return nil, fmt.Errorf("%w: %s[%d] %s", ErrReceiver, name, index, ft)
		}
		switch ft.In(0) {
		case recv:
			o.qual = Const
		case reflect.PointerTo(recv):
			o.qual = Mutable
		default:
			return nil, fmt.Errorf("%w: %s[%d] takes %s, want %s or *%s", ErrReceiver, name, index, ft.In(0), recv, recv)
		}
		o.recv = recv
		first = 1
	}
	for i := first; i < ft.NumIn(); i++ {
		o.args = append(o.args, ft.In(i))
	}
	for i := range ft.NumOut() {
		o.results = append(o.results, ft.Out(i))
	}
	return o, nil
}

// receiverValue adapts obj to the overload's receiver and reports the
// qualification cost: 0 for an exact match, 1 when a mutable object binds a
// const overload.
func (o *Overload) receiverValue(obj reflect.Value) (reflect.Value, int, bool) {
	if o.qual == Free {
		return reflect.Value{}, 0, true
	}
	if !obj.IsValid() {
		return reflect.Value{}, 0, false
	}
	mutable := obj.Kind() == reflect.Pointer && obj.Type().Elem() == o.recv
	switch {
	case mutable && obj.IsNil():
		return reflect.Value{}, 0, false
	case mutable && o.qual == Mutable:
		return obj, 0, true
	case mutable && o.qual == Const:
		return obj.Elem(), 1, true
	case obj.Type() == o.recv && o.qual == Const:
		return obj, 0, true
	default:
		// A read-only object never binds a pointer receiver.
		return reflect.Value{}, 0, false
	}
}

// bindArgs converts dynamic arguments into call values. Each argument costs
// 0 when its dynamic type is the parameter type and 1 when it is merely
// assignable (interfaces, untyped nil).
func (o *Overload) bindArgs(args []any) ([]reflect.Value, int, bool) {
	fixed := len(o.args)
	if o.variadic {
		fixed--
		if len(args) < fixed {
			return nil, 0, false
		}
	} else if len(args) != fixed {
		return nil, 0, false
	}
	in := make([]reflect.Value, 0, len(args))
	cost := 0
	for i, a := range args {
		var param reflect.Type
		if i < fixed {
			param = o.args[i]
		} else {
			param = o.args[fixed].Elem()
		}
		v, c, ok := bindArg(param, a)
		if !ok {
			return nil, 0, false
		}
		in = append(in, v)
		cost += c
	}
	return in, cost, true
}

func bindArg(param reflect.Type, a any) (reflect.Value, int, bool) {
	if a == nil {
		switch param.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
			return reflect.Zero(param), 1, true
		default:
			return reflect.Value{}, 0, false
		}
	}
	v := reflect.ValueOf(a)
	switch {
	case v.Type() == param:
		return v, 0, true
	case v.Type().AssignableTo(param):
		return v, 1, true
	default:
		return reflect.Value{}, 0, false
	}
}

func (o *Overload) invoke(recv reflect.Value, in []reflect.Value) []any {
	if recv.IsValid() {
		in = append([]reflect.Value{recv}, in...)
	}
	out := o.fn.Call(in)
	res := make([]any, len(out))
	for i, v := range out {
		res[i] = v.Interface()
	}
	return res
}

func describeArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("%T", a)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
