package overload

import (
	"fmt"
	"reflect"
	"strings"
)

// Set is an ordered, immutable group of overloads sharing one name.
type Set struct {
	name      string
	recv      reflect.Type
	overloads []*Overload
}

// New builds a set from candidate functions (or Entry values). recv is the
// receiver type; nil declares a set of free functions. Pointer receivers are
// normalized to their element type.
func New(recv reflect.Type, name string, fns ...any) (*Set, error) {
	if recv != nil && recv.Kind() == reflect.Pointer {
		recv = recv.Elem()
	}
	s := &Set{name: name, recv: recv, overloads: make([]*Overload, 0, len(fns))}
	for i, fn := range fns {
		o, err := newOverload(recv, name, i, fn)
		if err != nil {
			return nil, err
		}
		s.overloads = append(s.overloads, o)
	}
	return s, nil
}

// MustNew is like New but panics on error.
func MustNew(recv reflect.Type, name string, fns ...any) *Set {
	s, err := New(recv, name, fns...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Set) Name() string           { return s.name }
func (s *Set) Receiver() reflect.Type { return s.recv }
func (s *Set) Len() int               { return len(s.overloads) }

// At returns the i-th declared overload.
func (s *Set) At(i int) (*Overload, error) {
	if i < 0 || i >= len(s.overloads) {
		return nil, fmt.Errorf("%w: %s[%d] of %d", ErrOutOfRange, s.name, i, len(s.overloads))
	}
	return s.overloads[i], nil
}

// ForEach visits overloads in declaration order.
func (s *Set) ForEach(fn func(*Overload)) {
	for _, o := range s.overloads {
		fn(o)
	}
}

// Pack hands every overload to fn at once.
func (s *Set) Pack(fn func(...*Overload)) {
	fn(append([]*Overload(nil), s.overloads...)...)
}

// ByArgs selects the overload whose parameters are exactly types. No
// conversions are considered; when several qualifications share the same
// parameters the lookup is ambiguous, use BestFit instead.
func (s *Set) ByArgs(types ...reflect.Type) (*Overload, error) {
	var found *Overload
	for _, o := range s.overloads {
		if !sameArgs(o.args, types) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: %s%s", ErrAmbiguous, s.name, typeList(types))
		}
		found = o
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s%s", ErrNoMatch, s.name, typeList(types))
	}
	return found, nil
}

// BestFit selects the overload with exact parameters types that binds obj at
// the lowest qualification cost. A *T object prefers pointer receivers and
// falls back to value receivers; a T object accepts value receivers only.
func (s *Set) BestFit(obj any, types ...reflect.Type) (*Overload, error) {
	ov := reflect.ValueOf(obj)
	best, ambiguous, ok := s.selectBest(func(o *Overload) (int, bool) {
		if !sameArgs(o.args, types) {
			return 0, false
		}
		_, cost, ok := o.receiverValue(ov)
		return cost, ok
	})
	switch {
	case !ok:
		return nil, fmt.Errorf("%w: %s%s on %T", ErrNoMatch, s.name, typeList(types), obj)
	case ambiguous:
		return nil, fmt.Errorf("%w: %s%s on %T", ErrAmbiguous, s.name, typeList(types), obj)
	}
	return best, nil
}

// Call picks the best overload for the dynamic argument types and invokes
// it. The cost of a candidate is its qualification cost plus one per
// argument that is only assignable rather than identical.
func (s *Set) Call(obj any, args ...any) ([]any, error) {
	ov := reflect.ValueOf(obj)
	best, ambiguous, ok := s.selectBest(func(o *Overload) (int, bool) {
		_, qc, ok := o.receiverValue(ov)
		if !ok {
			return 0, false
		}
		_, ac, ok := o.bindArgs(args)
		return qc + ac, ok
	})
	switch {
	case !ok:
		return nil, fmt.Errorf("%w: %s%s on %T", ErrNoMatch, s.name, describeArgs(args), obj)
	case ambiguous:
		return nil, fmt.Errorf("%w: %s%s on %T", ErrAmbiguous, s.name, describeArgs(args), obj)
	}
	rv, _, _ := best.receiverValue(ov)
	in, _, _ := best.bindArgs(args)
	return best.invoke(rv, in), nil
}

func (s *Set) selectBest(eval func(*Overload) (int, bool)) (best *Overload, ambiguous, ok bool) {
	bestCost := -1
	for _, o := range s.overloads {
		cost, viable := eval(o)
		if !viable {
			continue
		}
		if bestCost == -1 || cost < bestCost {
			bestCost = cost
			best = o
			ambiguous = false
		} else if cost == bestCost {
			ambiguous = true
		}
	}
	return best, ambiguous, bestCost != -1
}

// Resolve returns the overload whose function type is exactly F, typed.
func Resolve[F any](s *Set) (F, error) {
	var zero F
	want := reflect.TypeFor[F]()
	for _, o := range s.overloads {
		if o.fn.Type() == want {
			return o.fn.Interface().(F), nil
		}
	}
	return zero, fmt.Errorf("%w: %s as %s", ErrNoMatch, s.name, want)
}

func sameArgs(have, want []reflect.Type) bool {
	if len(have) != len(want) {
		return false
	}
	for i := range have {
		if have[i] != want[i] {
			return false
		}
	}
	return true
}

func typeList(types []reflect.Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
