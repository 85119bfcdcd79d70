package gen

import "time"

// Stage describes a phase of generating one package.
type Stage string

const (
	StageLoad  Stage = "load"
	StagePlan  Stage = "plan"
	StageEmit  Stage = "emit"
	StageWrite Stage = "write"
)

// Status captures progress within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusCached  Status = "cached"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Event reports progress for a package, or for the whole run when Package
// is empty.
type Event struct {
	Package string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Implementations must be safe for
// concurrent use; packages are processed in parallel.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(ev Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- ev
}

// MultiSink forwards every event to each non-nil sink in order.
type MultiSink []ProgressSink

func (m MultiSink) OnEvent(ev Event) {
	for _, s := range m {
		if s != nil {
			s.OnEvent(ev)
		}
	}
}

func emit(sink ProgressSink, pkg string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{Package: pkg, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}
