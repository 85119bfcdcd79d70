package layout

import (
	"fmt"
	"strings"

	"reflex/internal/types"
)

// LayoutErrorKind tells layout failures apart.
type LayoutErrorKind uint8

const (
	// LayoutErrRecursive: a struct or array contains itself by value.
	LayoutErrRecursive LayoutErrorKind = iota + 1
	// LayoutErrLength: an array length does not fit in int.
	LayoutErrLength
	// LayoutErrUnknown: the ID is not interned or its kind has no layout.
	LayoutErrUnknown
)

// LayoutError reports why a type has no layout.
type LayoutError struct {
	Kind  LayoutErrorKind
	Type  types.TypeID
	Label string         // Type as spelled in Go
	Cycle []types.TypeID // LayoutErrRecursive: first and last are equal
	Path  []string       // labels of Cycle
	Err   error
}

func (e *LayoutError) Error() string {
	switch e.Kind {
	case LayoutErrRecursive:
		return fmt.Sprintf("layout: %s contains itself by value (%s)", e.Label, strings.Join(e.Path, " -> "))
	case LayoutErrLength:
		return fmt.Sprintf("layout: %s: array length: %v", e.Label, e.Err)
	case LayoutErrUnknown:
		return fmt.Sprintf("layout: no layout for %s (type#%d)", e.Label, e.Type)
	}
	return fmt.Sprintf("layout: error kind %d for type#%d", e.Kind, e.Type)
}

func (e *LayoutError) Unwrap() error { return e.Err }

func (e *LayoutEngine) fail(kind LayoutErrorKind, id types.TypeID, err error) *LayoutError {
	return &LayoutError{Kind: kind, Type: id, Label: e.Types.Label(id), Err: err}
}

func (e *LayoutEngine) recursive(cycle []types.TypeID) *LayoutError {
	err := e.fail(LayoutErrRecursive, cycle[0], nil)
	err.Cycle = cycle
	for _, id := range cycle {
		err.Path = append(err.Path, e.Types.Label(id))
	}
	return err
}
