// Package config loads reflex.toml, the project-level settings shared by
// the generator and the inspector. Command-line flags override it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"reflex/internal/layout"
)

// FileName is the name searched for by Find.
const FileName = "reflex.toml"

// Config mirrors the sections of reflex.toml.
type Config struct {
	Generate Generate `toml:"generate"`
	Inspect  Inspect  `toml:"inspect"`
	Registry Registry `toml:"registry"`
}

type Generate struct {
	Output            string `toml:"output"`
	Jobs              int    `toml:"jobs"`
	Cache             bool   `toml:"cache"`
	CacheDir          string `toml:"cache_dir"`
	IncludeUnexported bool   `toml:"include_unexported"`
}

type Inspect struct {
	Target string `toml:"target"`
	Format string `toml:"format"`
}

// Registry holds the limits inspect applies when judging whether a struct
// can be reflected without registration. Keep it in line with the
// options the program passes to reflex.NewRegistry.
type Registry struct {
	MaxAutoMembers int `toml:"max_auto_members"`
}

// Formats accepted by [inspect].format.
var Formats = []string{"pretty", "json", "msgpack"}

// Default returns the settings used when no reflex.toml exists.
func Default() Config {
	return Config{
		Generate: Generate{
			Output: "reflex_gen.go",
			Jobs:   runtime.NumCPU(),
			Cache:  true,
		},
		Inspect: Inspect{
			Target: runtime.GOARCH,
			Format: "pretty",
		},
		Registry: Registry{
			MaxAutoMembers: 121,
		},
	}
}

// Find walks up from startDir to locate reflex.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load decodes path on top of the defaults. Keys missing from the file keep
// their default values; unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover loads the nearest reflex.toml above startDir, or the defaults
// when there is none. path is empty in the latter case.
func Discover(startDir string) (cfg Config, path string, err error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, "", err
	}
	if !ok {
		return Default(), "", nil
	}
	cfg, err = Load(path)
	return cfg, path, err
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Generate.Jobs < 0 {
		errs = append(errs, fmt.Errorf("[generate].jobs must not be negative, got %d", c.Generate.Jobs))
	}
	out := c.Generate.Output
	if filepath.Ext(out) != ".go" || strings.ContainsAny(out, `/\`) {
		errs = append(errs, fmt.Errorf("[generate].output must be a .go file name, got %q", out))
	}
	if strings.HasSuffix(out, "_test.go") {
		errs = append(errs, fmt.Errorf("[generate].output must not be a test file, got %q", out))
	}
	if _, err := layout.TargetFor(c.Inspect.Target); err != nil {
		errs = append(errs, fmt.Errorf("[inspect].target: %w", err))
	}
	if !validFormat(c.Inspect.Format) {
		errs = append(errs, fmt.Errorf("[inspect].format must be one of %s, got %q", strings.Join(Formats, "|"), c.Inspect.Format))
	}
	if c.Registry.MaxAutoMembers < 0 {
		errs = append(errs, fmt.Errorf("[registry].max_auto_members must not be negative, got %d", c.Registry.MaxAutoMembers))
	}
	return errors.Join(errs...)
}

func validFormat(f string) bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}
