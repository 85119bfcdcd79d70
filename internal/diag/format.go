package diag

import (
	"cmp"
	"fmt"
	"go/token"
	"path/filepath"
	"slices"
	"strings"
)

// row is one rendered line: a diagnostic or one of its notes.
type row struct {
	sev  string
	code string
	pos  token.Position // Filename already relative
	msg  string
}

// Format renders diagnostics one per line as
//
//	severity CODE path:line:col message
//
// sorted for stable output. Notes become "note" rows when includeNotes is
// set. Paths under baseDir are shown relative to it.
func Format(diags []Diagnostic, baseDir string, includeNotes bool) string {
	var rows []row
	add := func(sev, code string, pos token.Position, msg string) {
		pos.Filename = displayPath(baseDir, pos.Filename)
		rows = append(rows, row{sev: sev, code: code, pos: pos, msg: oneLine(msg)})
	}
	for _, d := range diags {
		add(d.Severity.String(), d.Code.ID(), d.Primary, d.Message)
		if includeNotes {
			for _, n := range d.Notes {
				add("note", d.Code.ID(), n.Pos, n.Msg)
			}
		}
	}
	slices.SortStableFunc(rows, func(a, b row) int {
		return cmp.Or(
			comparePos(a.pos, b.pos),
			cmp.Compare(a.sev, b.sev),
			cmp.Compare(a.code, b.code),
			cmp.Compare(a.msg, b.msg),
		)
	})

	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = fmt.Sprintf("%s %s %s:%d:%d %s", r.sev, r.code, r.pos.Filename, r.pos.Line, r.pos.Column, r.msg)
	}
	return strings.Join(lines, "\n")
}

func displayPath(baseDir, p string) string {
	if p == "" {
		return "-"
	}
	if baseDir != "" {
		if rel, err := filepath.Rel(baseDir, p); err == nil && !strings.HasPrefix(rel, "..") {
			p = rel
		}
	}
	return filepath.ToSlash(filepath.Clean(p))
}

// oneLine folds line breaks into spaces.
func oneLine(msg string) string {
	return strings.TrimSpace(strings.Join(strings.FieldsFunc(msg, func(r rune) bool {
		return r == '\n' || r == '\r'
	}), " "))
}
