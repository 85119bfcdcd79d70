package diag

import (
	"cmp"
	"slices"
)

// Bag collects diagnostics up to a limit and counts what it had to drop.
// A Bag is not safe for concurrent use: parallel producers fill their own
// bags and Merge them, or report through a BagReporter.
type Bag struct {
	items   []Diagnostic
	limit   int
	dropped int
}

// NewBag returns a bag keeping at most limit diagnostics. A non-positive
// limit keeps none.
func NewBag(limit int) *Bag {
	limit = max(limit, 0)
	return &Bag{items: make([]Diagnostic, 0, min(limit, 64)), limit: limit}
}

// Add appends d and reports whether it was kept.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= b.limit {
		b.dropped++
		return false
	}
	b.items = append(b.items, d)
	return true
}

// Merge moves the diagnostics of other into b. The merged bag keeps all of
// them: its limit grows to fit.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	b.items = append(b.items, other.items...)
	b.limit = max(b.limit, len(b.items))
	b.dropped += other.dropped
}

func (b *Bag) Len() int { return len(b.items) }

// Dropped counts diagnostics refused because the bag was full.
func (b *Bag) Dropped() int { return b.dropped }

// Items returns the collected diagnostics. The slice aliases the bag.
func (b *Bag) Items() []Diagnostic { return b.items }

func (b *Bag) HasErrors() bool {
	return slices.ContainsFunc(b.items, func(d Diagnostic) bool { return d.Severity >= SevError })
}

// Sort orders by position, then severity with errors first, then code.
func (b *Bag) Sort() {
	slices.SortStableFunc(b.items, func(x, y Diagnostic) int {
		return cmp.Or(
			comparePos(x.Primary, y.Primary),
			cmp.Compare(y.Severity, x.Severity),
			cmp.Compare(x.Code, y.Code),
		)
	})
}

// Dedup drops diagnostics whose code and position repeat an earlier one.
func (b *Bag) Dedup() {
	type key struct {
		code Code
		pos  string
	}
	seen := make(map[key]struct{}, len(b.items))
	b.items = slices.DeleteFunc(b.items, func(d Diagnostic) bool {
		k := key{d.Code, d.Primary.String()}
		if _, dup := seen[k]; dup {
			return true
		}
		seen[k] = struct{}{}
		return false
	})
}
