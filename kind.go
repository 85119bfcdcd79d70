package reflex

import "fmt"

// Kind classifies how a member's value can be operated on.
type Kind uint8

const (
	KindScalar      Kind = iota + 1 // anything without further structure
	KindArray                       // array or slice of non-reflected elements
	KindObject                      // reflected struct
	KindObjectArray                 // array or slice of reflected structs
	KindFunc                        // method, function or overload set
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindObjectArray:
		return "object-array"
	case KindFunc:
		return "func"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}
