// Package trace records spans and point events emitted while descriptors are
// derived, registered and generated.
//
// Enable tracing via command-line flags:
//
//	reflex gen --trace=- --trace-level=detail ./...
//
// A library user attaches a tracer to a registry instead:
//
//	tr := trace.NewRingTracer(1024, trace.LevelDebug)
//	reg := reflex.NewRegistry(reflex.WithTracer(tr))
//
// Tracers:
//
//   - Nop: disabled tracing
//   - StreamTracer: immediate write to a file or stderr
//   - RingTracer: last N events kept in memory
//   - MultiTracer: fan-out to several tracers
//
// A Heartbeat beats on a tracer while a run is in progress and names the
// oldest span that has not ended, see OpenSpans.
//
// Scopes, coarsest first: ScopeDriver (CLI commands), ScopePackage (packages
// loaded by the generator), ScopeType (descriptor derivation and
// registration), ScopeMember (per-member work). LevelPhase shows driver and
// package events, LevelDetail adds types, LevelDebug shows everything.
package trace
