package diag

import (
	"go/token"
	"sync"
)

// Reporter receives diagnostics from the generator phases.
type Reporter interface {
	Report(d Diagnostic)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Diagnostic)

func (f ReporterFunc) Report(d Diagnostic) { f(d) }

// Pending is a diagnostic being assembled. Nothing reaches the reporter
// until Emit.
type Pending struct {
	to   Reporter
	d    Diagnostic
	sent bool
}

func ReportError(r Reporter, code Code, primary token.Position, msg string) *Pending {
	return &Pending{to: r, d: New(SevError, code, primary, msg)}
}

func ReportWarning(r Reporter, code Code, primary token.Position, msg string) *Pending {
	return &Pending{to: r, d: New(SevWarning, code, primary, msg)}
}

func (p *Pending) WithNote(pos token.Position, msg string) *Pending {
	p.d = p.d.WithNote(pos, msg)
	return p
}

// Emit reports the diagnostic. Later calls do nothing.
func (p *Pending) Emit() {
	if p.sent || p.to == nil {
		return
	}
	p.sent = true
	p.to.Report(p.d)
}

// BagReporter collects into Bag and may be shared between goroutines.
type BagReporter struct {
	mu  sync.Mutex
	Bag *Bag
}

func (r *BagReporter) Report(d Diagnostic) {
	if r == nil || r.Bag == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Bag.Add(d)
}

// DedupReporter forwards each distinct diagnostic once, comparing code,
// severity, position and message. A package loaded in two build variants
// would otherwise report its directive problems twice.
type DedupReporter struct {
	next Reporter
	mu   sync.Mutex
	seen map[identity]struct{}
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next, seen: make(map[identity]struct{})}
}

func (r *DedupReporter) Report(d Diagnostic) {
	id := d.identity()
	r.mu.Lock()
	_, dup := r.seen[id]
	r.seen[id] = struct{}{}
	r.mu.Unlock()
	if !dup && r.next != nil {
		r.next.Report(d)
	}
}
