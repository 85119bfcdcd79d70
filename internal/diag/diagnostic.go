package diag

import (
	"cmp"
	"fmt"
	"go/token"
)

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityNames = [...]string{"info", "warning", "error"}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "unknown"
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Note is secondary context attached to a diagnostic.
type Note struct {
	Pos token.Position `json:"pos" msgpack:"pos"`
	Msg string         `json:"msg" msgpack:"msg"`
}

// Diagnostic is one finding of the generator about a source position.
type Diagnostic struct {
	Severity Severity       `json:"severity" msgpack:"severity"`
	Code     Code           `json:"code" msgpack:"code"`
	Message  string         `json:"message" msgpack:"message"`
	Primary  token.Position `json:"primary" msgpack:"primary"`
	Notes    []Note         `json:"notes,omitempty" msgpack:"notes,omitempty"`
}

func New(sev Severity, code Code, primary token.Position, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Primary: primary, Message: msg}
}

func Errorf(code Code, primary token.Position, format string, args ...any) Diagnostic {
	return New(SevError, code, primary, fmt.Sprintf(format, args...))
}

// WithNote returns d with one more note; d itself is not modified.
func (d Diagnostic) WithNote(pos token.Position, msg string) Diagnostic {
	d.Notes = append(d.Notes[:len(d.Notes):len(d.Notes)], Note{Pos: pos, Msg: msg})
	return d
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s %s: %s", d.Primary, d.Severity, d.Code.ID(), d.Message)
}

// comparePos orders positions by file, line and then column.
func comparePos(a, b token.Position) int {
	return cmp.Or(
		cmp.Compare(a.Filename, b.Filename),
		cmp.Compare(a.Line, b.Line),
		cmp.Compare(a.Column, b.Column),
	)
}

// identity is what makes two diagnostics the same report.
type identity struct {
	code Code
	sev  Severity
	pos  token.Position
	msg  string
}

func (d Diagnostic) identity() identity {
	return identity{code: d.Code, sev: d.Severity, pos: d.Primary, msg: d.Message}
}
