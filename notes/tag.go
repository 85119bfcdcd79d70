package notes

import (
	"github.com/fatih/structtag"
	"github.com/vmihailenco/tagparser/v2"
)

// FromTag turns every key of a conventional struct tag into a Tag note,
// in the order the keys appear. A malformed tag yields no notes.
func FromTag(tag string) List {
	parsed, err := structtag.Parse(tag)
	if err != nil || parsed == nil {
		return List{}
	}
	var values []any
	for _, t := range parsed.Tags() {
		raw := t.Value()
		opts := tagparser.Parse(raw)
		values = append(values, Tag{
			Key:     t.Key,
			Raw:     raw,
			Name:    opts.Name,
			Options: opts.Options,
		})
	}
	return Of(values...)
}
