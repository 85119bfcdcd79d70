package diag

import "fmt"

type Code uint16

const (
	UnknownCode Code = 0

	// Directive syntax and placement
	DirInfo        Code = 1000
	DirUnknown     Code = 1001
	DirMisplaced   Code = 1002
	DirBadArgument Code = 1003
	DirDuplicate   Code = 1004
	DirConflict    Code = 1005
	DirBadNote     Code = 1006

	// Package loading
	LoadInfo       Code = 2000
	LoadPackage    Code = 2001
	LoadTypeErrors Code = 2002

	// Registration planning
	RegInfo              Code = 3000
	RegNotStruct         Code = 3001
	RegUnexportedSkipped Code = 3002
	RegUnknownSuper      Code = 3003
	RegRefNotPointer     Code = 3004
	RegOverloadMismatch  Code = 3005
	RegNameConflict      Code = 3006
	RegGenericType       Code = 3007
	RegEmpty             Code = 3008

	// Output
	IOInfo      Code = 4000
	IOWriteFile Code = 4001
	IOCache     Code = 4002
	IOFormat    Code = 4003
)

var codeDescription = map[Code]string{
	UnknownCode:          "Unknown error",
	DirInfo:              "Directive information",
	DirUnknown:           "unknown //reflex: directive",
	DirMisplaced:         "directive is not allowed here",
	DirBadArgument:       "malformed directive argument",
	DirDuplicate:         "directive repeated",
	DirConflict:          "directives conflict",
	DirBadNote:           "note expression does not compile",
	LoadInfo:             "Load information",
	LoadPackage:          "package could not be loaded",
	LoadTypeErrors:       "package has type errors",
	RegInfo:              "Registration information",
	RegNotStruct:         "only struct types can be registered",
	RegUnexportedSkipped: "unexported member skipped",
	RegUnknownSuper:      "super-note names a type that is not embedded",
	RegRefNotPointer:     "reference member must be a pointer field",
	RegOverloadMismatch:  "overload candidates disagree on the receiver",
	RegNameConflict:      "member name already taken",
	RegGenericType:       "generic types cannot be registered",
	RegEmpty:             "registered type has no members",
	IOInfo:               "Output information",
	IOWriteFile:          "cannot write generated file",
	IOCache:              "generator cache unavailable",
	IOFormat:             "generated source does not format",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("DIR%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("LOD%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("REG%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.ID()), nil
}
