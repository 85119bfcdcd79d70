package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	// LevelOff disables tracing.
	LevelOff    Level = iota
	LevelError        // only heartbeats and explicit dumps
	LevelPhase        // driver + package boundaries
	LevelDetail       // per-type events
	LevelDebug        // everything including members
)

var levelNames = [...]string{"off", "error", "phase", "detail", "debug"}

// deepest is the finest scope each level lets through; zero admits none.
var deepest = [...]Scope{
	LevelPhase:  ScopePackage,
	LevelDetail: ScopeType,
	LevelDebug:  ScopeMember,
}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel converts a case-insensitive level name to a Level.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(s)
	for i, name := range levelNames {
		if name == s {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: %s)", s, strings.Join(levelNames[:], "|"))
}

// ShouldEmit reports whether events of scope pass at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	return int(l) < len(deepest) && scope != 0 && scope <= deepest[l]
}

// admits is the filter shared by the recording tracers. Heartbeats pass at
// every level above off.
func (l Level) admits(ev *Event) bool {
	if ev == nil || l == LevelOff {
		return false
	}
	return ev.Kind == KindHeartbeat || l.ShouldEmit(ev.Scope)
}
