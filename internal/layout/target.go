package layout

import (
	"fmt"
	"runtime"
	"slices"
	"unsafe"
)

// Target describes the gc ABI properties of an architecture.
type Target struct {
	Arch     string // GOARCH value, e.g. "amd64"
	WordSize int    // bytes
	MaxAlign int    // bytes
}

var targets = map[string]Target{
	"386":      {Arch: "386", WordSize: 4, MaxAlign: 4},
	"amd64":    {Arch: "amd64", WordSize: 8, MaxAlign: 8},
	"arm":      {Arch: "arm", WordSize: 4, MaxAlign: 4},
	"arm64":    {Arch: "arm64", WordSize: 8, MaxAlign: 8},
	"loong64":  {Arch: "loong64", WordSize: 8, MaxAlign: 8},
	"mips":     {Arch: "mips", WordSize: 4, MaxAlign: 4},
	"mipsle":   {Arch: "mipsle", WordSize: 4, MaxAlign: 4},
	"mips64":   {Arch: "mips64", WordSize: 8, MaxAlign: 8},
	"mips64le": {Arch: "mips64le", WordSize: 8, MaxAlign: 8},
	"ppc64":    {Arch: "ppc64", WordSize: 8, MaxAlign: 8},
	"ppc64le":  {Arch: "ppc64le", WordSize: 8, MaxAlign: 8},
	"riscv64":  {Arch: "riscv64", WordSize: 8, MaxAlign: 8},
	"s390x":    {Arch: "s390x", WordSize: 8, MaxAlign: 8},
	"wasm":     {Arch: "wasm", WordSize: 8, MaxAlign: 8},
}

// TargetFor returns the target for a GOARCH value.
func TargetFor(arch string) (Target, error) {
	t, ok := targets[arch]
	if !ok {
		return Target{}, fmt.Errorf("layout: unsupported architecture %q", arch)
	}
	return t, nil
}

// Host returns the target the current binary was compiled for.
func Host() Target {
	if t, ok := targets[runtime.GOARCH]; ok {
		return t
	}
	word := int(unsafe.Sizeof(uintptr(0)))
	return Target{Arch: runtime.GOARCH, WordSize: word, MaxAlign: word}
}

// Arches lists the supported GOARCH values in sorted order.
func Arches() []string {
	out := make([]string, 0, len(targets))
	for arch := range targets {
		out = append(out, arch)
	}
	slices.Sort(out)
	return out
}
