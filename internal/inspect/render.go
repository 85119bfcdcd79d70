package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/vmihailenco/msgpack/v5"
)

// Formats lists the values accepted by Write.
var Formats = []string{"pretty", "json", "msgpack"}

// Output is the document written by the json and msgpack formats.
type Output struct {
	Types []TypeReport `json:"types" msgpack:"types"`
	Count int          `json:"count" msgpack:"count"`
}

var (
	typeColor   = color.New(color.FgCyan, color.Bold)
	headerColor = color.New(color.Faint)
	reasonColor = color.New(color.FgYellow)
)

// Write renders reports in format. Colour in the pretty format follows
// color.NoColor.
func Write(w io.Writer, format string, reports []TypeReport) error {
	switch format {
	case "", "pretty":
		return writePretty(w, reports)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Output{Types: nonNil(reports), Count: len(reports)})
	case "msgpack":
		enc := msgpack.NewEncoder(w)
		enc.UseCompactInts(true)
		return enc.Encode(Output{Types: nonNil(reports), Count: len(reports)})
	default:
		return fmt.Errorf("unknown format %q (expected %s)", format, strings.Join(Formats, "|"))
	}
}

func nonNil(reports []TypeReport) []TypeReport {
	if reports == nil {
		return []TypeReport{}
	}
	return reports
}

var columns = []string{"#", "NAME", "KIND", "TYPE", "OFFSET", "SIZE", "ALIGN", "TAGS"}

func writePretty(w io.Writer, reports []TypeReport) error {
	var b strings.Builder
	for i, rep := range reports {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s  size=%d align=%d target=%s\n",
			typeColor.Sprint(rep.PkgPath+"."+rep.Name), rep.Size, rep.Align, rep.Target)
		if !rep.Eligible {
			fmt.Fprintf(&b, "  %s\n", reasonColor.Sprint("not auto-reflectable: "+rep.Reason))
		}
		for _, s := range rep.Supers {
			embed := s.Type
			if s.Pointer {
				embed = "*" + embed
			}
			fmt.Fprintf(&b, "  super %d: %s @%d%s\n", s.Index, embed, s.Offset, formatTags(s.Tags, " "))
		}
		if len(rep.Members) == 0 {
			b.WriteString("  (no members)\n")
			continue
		}
		rows := make([][]string, 0, len(rep.Members))
		for _, m := range rep.Members {
			kind := m.Kind
			switch {
			case m.Extent > 0:
				kind += "[" + strconv.Itoa(m.Extent) + "]"
			case m.Extent < 0:
				kind += "[]"
			}
			rows = append(rows, []string{
				strconv.Itoa(m.Index),
				m.Name,
				kind,
				m.Type,
				strconv.Itoa(m.Offset),
				strconv.Itoa(m.Size),
				strconv.Itoa(m.Align),
				formatTags(m.Tags, ""),
			})
		}
		writeTable(&b, rows)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// writeTable pads every column to its widest cell in display width.
func writeTable(b *strings.Builder, rows [][]string) {
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = runewidth.StringWidth(c)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	line := func(cells []string, style *color.Color) {
		var l strings.Builder
		l.WriteString("  ")
		for i, cell := range cells {
			if i < len(cells)-1 {
				cell = runewidth.FillRight(cell, widths[i]+2)
			}
			l.WriteString(cell)
		}
		text := strings.TrimRight(l.String(), " ")
		if style != nil {
			text = style.Sprint(text)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	line(columns, headerColor)
	for _, row := range rows {
		line(row, nil)
	}
}

func formatTags(tags []Tag, lead string) string {
	if len(tags) == 0 {
		return ""
	}
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = t.Key + ":" + t.Name
		if len(t.Options) > 0 {
			parts[i] += "," + strings.Join(t.Options, ",")
		}
	}
	return lead + strings.Join(parts, " ")
}
