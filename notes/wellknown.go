package notes

import "fmt"

// Tag is a struct tag entry turned into a note: `json:"name,omitempty"`
// becomes Tag{Key: "json", Name: "name", Options: {"omitempty": ""}}.
type Tag struct {
	Key     string
	Raw     string
	Name    string
	Options map[string]string
}

// HasOption reports whether the tag carries the option.
func (t Tag) HasOption(opt string) bool {
	_, ok := t.Options[opt]
	return ok
}

// Rename asks consumers to expose a member or base under another name.
type Rename struct {
	Name string
}

// Ignore excludes a member, base or type from generic processing.
// An empty Scope applies to every consumer.
type Ignore struct {
	Scope string
}

// AllowPrivate lets consumers such as builders touch unexported members.
type AllowPrivate struct{}

// TagFor returns the tag note with the given key.
func TagFor(l List, key string) (Tag, bool) {
	for _, v := range l.items {
		if t, ok := v.(Tag); ok && t.Key == key {
			return t, true
		}
	}
	return Tag{}, false
}

// Ignored reports whether an Ignore note applies to scope.
func Ignored(l List, scope string) bool {
	ignored := false
	ForEach(l, func(ig Ignore) {
		if ig.Scope == "" || ig.Scope == scope {
			ignored = true
		}
	})
	return ignored
}

// MissingError is the panic value of MustGet.
type MissingError struct {
	Want string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("notes: no note of type %s", e.Want)
}
