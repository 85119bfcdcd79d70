package reflex

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Sentinel kinds. Every error returned by this package is an *Error whose
// Kind is one of these, so callers test with errors.Is.
var (
	ErrOutOfRange          = errors.New("index out of range")
	ErrIneligible          = errors.New("type is not eligible for auto-reflection")
	ErrTypeMismatch        = errors.New("type mismatch")
	ErrKindMismatch        = errors.New("member kind mismatch")
	ErrNotSettable         = errors.New("value is not settable")
	ErrNilReference        = errors.New("nil reference")
	ErrNotFound            = errors.New("not found")
	ErrDuplicate           = errors.New("duplicate")
	ErrInvalidRegistration = errors.New("invalid registration")
	ErrUnparseable         = errors.New("unparseable symbol name")
	ErrAmbiguous           = errors.New("ambiguous call")
)

// Error carries the context of a failed reflection operation.
type Error struct {
	Kind   error
	Type   reflect.Type
	Member string
	Index  int // -1 when not applicable
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("reflex: ")
	if e.Type != nil {
		sb.WriteString(e.Type.String())
		if e.Member != "" {
			sb.WriteString(".")
			sb.WriteString(e.Member)
		}
		if e.Index >= 0 {
			fmt.Fprintf(&sb, "[%d]", e.Index)
		}
		sb.WriteString(": ")
	}
	if e.Kind != nil {
		sb.WriteString(e.Kind.Error())
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Is(target error) bool {
	return target != nil && e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind error, t reflect.Type, member string, index int, format string, args ...any) *Error {
	e := &Error{Kind: kind, Type: t, Member: member, Index: index}
	if format != "" {
		e.Detail = fmt.Sprintf(format, args...)
	}
	return e
}

func wrapError(kind error, t reflect.Type, member string, err error) *Error {
	return &Error{Kind: kind, Type: t, Member: member, Index: -1, Err: err}
}
