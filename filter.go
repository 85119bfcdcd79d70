package reflex

import "reflex/notes"

// Predicate selects members.
type Predicate func(*Member) bool

// View is a filtered subset of a descriptor's members. Indices reported
// through a view are the members' own indices.
type View struct {
	d       *Descriptor
	members []*Member
}

// Where returns the members accepted by pred.
func (d *Descriptor) Where(pred Predicate) *View {
	v := &View{d: d}
	for _, m := range d.members {
		if pred(m) {
			v.members = append(v.members, m)
		}
	}
	return v
}

func (v *View) Len() int { return len(v.members) }

// ForEach visits the selected members without an instance.
func (v *View) ForEach(fn func(*Member)) {
	for _, m := range v.members {
		fn(m)
	}
}

// ForEachValue visits the selected members bound to obj.
func (v *View) ForEachValue(obj any, fn func(*Member, Value) error) error {
	b, err := bind(obj, v.d.typ)
	if err != nil {
		return err
	}
	for _, m := range v.members {
		val, err := m.valueIn(b)
		if err != nil {
			return err
		}
		if err := fn(m, val); err != nil {
			return err
		}
	}
	return nil
}

// Names lists the selected member names.
func (v *View) Names() []string {
	out := make([]string, len(v.members))
	for i, m := range v.members {
		out[i] = m.name
	}
	return out
}

// KindIs selects members of kind k.
func KindIs(k Kind) Predicate {
	return func(m *Member) bool { return m.Kind() == k }
}

// HasNote selects members carrying a note of type K.
func HasNote[K any]() Predicate {
	return func(m *Member) bool { return notes.Has[K](m.notes) }
}

// DataOnly selects members that are not functions.
func DataOnly(m *Member) bool { return !m.IsFunction() }

// Not inverts pred.
func Not(pred Predicate) Predicate {
	return func(m *Member) bool { return !pred(m) }
}

// And selects members accepted by every predicate.
func And(preds ...Predicate) Predicate {
	return func(m *Member) bool {
		for _, p := range preds {
			if !p(m) {
				return false
			}
		}
		return true
	}
}
