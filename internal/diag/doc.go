// Package diag defines the diagnostics the generator reports about
// //reflex: directives and the packages that carry them.
//
// A Diagnostic has a Severity, a numeric Code with a stable ID (DIR1001,
// LOD2001, REG3002, IO4001), a message and a go/token.Position. Producers
// emit through a Reporter; BagReporter collects into a Bag, which the CLI
// sorts, deduplicates and renders with Format.
//
// Codes are grouped by phase:
//
//   - DIR: directive syntax and placement
//   - LOD: package loading and type checking
//   - REG: registration planning
//   - IO: generated output and the cache
package diag
