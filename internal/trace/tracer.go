package trace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Tracer receives trace events. Implementations must be safe for
// concurrent use.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	// Close flushes and releases the tracer's output.
	Close() error
	Level() Level
	Enabled() bool
}

// StorageMode selects where New keeps events.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1 // write as they happen
	ModeRing                          // keep the last RingSize in memory
	ModeBoth
)

var modeNames = [...]string{ModeStream: "stream", ModeRing: "ring", ModeBoth: "both"}

func (m StorageMode) String() string {
	if int(m) < len(modeNames) && modeNames[m] != "" {
		return modeNames[m]
	}
	return "unknown"
}

// ParseMode converts a case-insensitive mode name to a StorageMode.
func ParseMode(s string) (StorageMode, error) {
	for i, name := range modeNames {
		if name != "" && strings.EqualFold(name, s) {
			return StorageMode(i), nil
		}
	}
	return ModeRing, fmt.Errorf("invalid storage mode: %q (expected: stream|ring|both)", s)
}

// Config describes the tracer New builds.
type Config struct {
	Level  Level
	Mode   StorageMode
	Format Format // FormatAuto picks ndjson for .ndjson/.jsonl paths
	// Output overrides OutputPath. It is not closed by the tracer.
	Output io.Writer
	// OutputPath is a file to create; "" and "-" mean stderr.
	OutputPath string
	RingSize   int
	// Heartbeat is read by callers that start a Heartbeat; New ignores it.
	Heartbeat time.Duration
}

// New builds the tracer cfg describes. LevelOff yields Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	var stream, ring Tracer
	switch cfg.Mode {
	case ModeStream, ModeBoth:
		s, err := newStream(cfg)
		if err != nil {
			return nil, err
		}
		stream = s
	case ModeRing:
	default:
		return nil, fmt.Errorf("unknown storage mode: %v", cfg.Mode)
	}
	if cfg.Mode != ModeStream {
		ring = NewRingTracer(cfg.RingSize, cfg.Level)
	}
	switch {
	case ring == nil:
		return stream, nil
	case stream == nil:
		return ring, nil
	}
	return NewMultiTracer(stream, ring), nil
}

func newStream(cfg Config) (*StreamTracer, error) {
	format := cfg.Format
	if format == FormatAuto {
		format = formatForPath(cfg.OutputPath)
	}
	switch {
	case cfg.Output != nil:
		return NewStreamTracer(cfg.Output, cfg.Level, format), nil
	case cfg.OutputPath == "" || cfg.OutputPath == "-":
		return NewStreamTracer(os.Stderr, cfg.Level, format), nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	return newFileTracer(f, cfg.Level, format), nil
}

func formatForPath(path string) Format {
	switch filepath.Ext(path) {
	case ".ndjson", ".jsonl":
		return FormatNDJSON
	}
	return FormatText
}

// Ring finds the in-memory ring behind t, looking through fan-outs.
func Ring(t Tracer) (*RingTracer, bool) {
	if r, ok := t.(*RingTracer); ok {
		return r, true
	}
	if u, ok := t.(interface{ Unwrap() []Tracer }); ok {
		for _, inner := range u.Unwrap() {
			if r, ok := Ring(inner); ok {
				return r, true
			}
		}
	}
	return nil, false
}
