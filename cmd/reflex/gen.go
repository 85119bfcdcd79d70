package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"reflex/internal/config"
	"reflex/internal/diag"
	"reflex/internal/gen"
	"reflex/internal/observ"
)

var genCmd = &cobra.Command{
	Use:   "gen [flags] [packages]",
	Short: "Generate registration code from //reflex: directives",
	Long: `gen loads the named packages (default ./...), reads their //reflex:
directives and writes one file per package that registers the annotated
types when the package is initialised.`,
	RunE: genExecution,
}

func init() {
	genCmd.Flags().StringP("output", "o", "", "generated file name (default from reflex.toml, else reflex_gen.go)")
	genCmd.Flags().IntP("jobs", "j", 0, "packages processed in parallel (0 = number of CPUs)")
	genCmd.Flags().Bool("no-cache", false, "ignore and do not update the generator cache")
	genCmd.Flags().Bool("clear-cache", false, "drop every cached entry before running")
	genCmd.Flags().Bool("dry-run", false, "print generated sources instead of writing them")
	genCmd.Flags().Bool("include-unexported", false, "register unexported fields and methods")
	genCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	genCmd.Flags().Bool("notes", true, "print diagnostic notes")
	genCmd.Flags().Bool("timings", false, "print time spent per stage")
}

func genExecution(cmd *cobra.Command, args []string) (runErr error) {
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer func() { cleanup(runErr) }()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyGenFlags(cmd, &cfg); err != nil {
		return err
	}

	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	withNotes, err := cmd.Flags().GetBool("notes")
	if err != nil {
		return err
	}
	showTimings, err := cmd.Flags().GetBool("timings")
	if err != nil {
		return err
	}

	cache, err := openGenCache(cmd, cfg.Generate)
	if err != nil {
		return err
	}

	patterns := args
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	bag := diag.NewBag(500)
	req := &gen.Request{
		Dir:      ".",
		Patterns: patterns,
		Output:   cfg.Generate.Output,
		Jobs:     cfg.Generate.Jobs,
		Options:  gen.Options{IncludeUnexported: cfg.Generate.IncludeUnexported},
		Cache:    cache,
		DryRun:   dryRun,
		Reporter: diag.NewDedupReporter(&diag.BagReporter{Bag: bag}),
	}
	var timer *observ.Timer
	if showTimings {
		timer = observ.NewTimer()
		req.Progress = timingSink{timer: timer}
	}

	start := time.Now()
	var res *gen.Result
	if shouldUseTUI(mode, dryRun) {
		res, err = runGenWithUI(cmd.Context(), "reflex gen", req)
	} else {
		res, err = gen.Run(cmd.Context(), req)
	}
	if err != nil {
		return err
	}

	if bag.Len() > 0 {
		wd, _ := os.Getwd()
		fmt.Fprintln(cmd.ErrOrStderr(), diag.Format(bag.Items(), wd, withNotes))
	}
	if n := bag.Dropped(); n > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d more diagnostics not shown\n", n)
	}
	if dryRun {
		for _, p := range res.Packages {
			if len(p.Source) == 0 {
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "// %s\n%s\n", p.Output, p.Source)
		}
	}
	printGenSummary(cmd, res, start)
	if timer != nil {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}
	if res.Failed() {
		return fmt.Errorf("reflex gen failed")
	}
	return nil
}

// applyGenFlags overrides configuration values with flags the user set.
func applyGenFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("output") {
		v, err := flags.GetString("output")
		if err != nil {
			return err
		}
		cfg.Generate.Output = v
	}
	if flags.Changed("jobs") {
		v, err := flags.GetInt("jobs")
		if err != nil {
			return err
		}
		cfg.Generate.Jobs = v
	}
	if flags.Changed("include-unexported") {
		v, err := flags.GetBool("include-unexported")
		if err != nil {
			return err
		}
		cfg.Generate.IncludeUnexported = v
	}
	if flags.Changed("no-cache") {
		v, err := flags.GetBool("no-cache")
		if err != nil {
			return err
		}
		cfg.Generate.Cache = !v
	}
	return cfg.Validate()
}

// openGenCache returns nil when caching is disabled or the cache directory
// cannot be opened; the latter is reported as a warning.
func openGenCache(cmd *cobra.Command, g config.Generate) (*gen.Cache, error) {
	drop, err := cmd.Flags().GetBool("clear-cache")
	if err != nil {
		return nil, err
	}
	if !g.Cache && !drop {
		return nil, nil
	}
	var cache *gen.Cache
	if g.CacheDir != "" {
		cache, err = gen.NewCache(g.CacheDir)
	} else {
		cache, err = gen.OpenCache("reflex")
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: generator cache disabled: %v\n", err)
		return nil, nil
	}
	if drop {
		if err := cache.DropAll(); err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", cache.Dir(), err)
		}
	}
	if !g.Cache {
		return nil, nil
	}
	return cache, nil
}

func printGenSummary(cmd *cobra.Command, res *gen.Result, start time.Time) {
	var written, removed, cached, failed int
	for _, p := range res.Packages {
		switch {
		case p.Failed:
			failed++
		case p.Cached && !p.Written:
			cached++
		}
		if p.Written {
			written++
		}
		if p.Removed {
			removed++
		}
	}
	status := color.GreenString("ok")
	if failed > 0 {
		status = color.RedString("failed")
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d packages, %d written, %d removed, %d up to date, %d failed (%s)\n",
		status, len(res.Packages), written, removed, cached, failed, elapsed(start))
}

// timingSink sums the elapsed time of finished stages. Run-level load
// events cover listing and type-checking; per-package load events repeat
// the shared type-check time and are skipped.
type timingSink struct {
	timer *observ.Timer
}

func (s timingSink) OnEvent(ev gen.Event) {
	if ev.Status != gen.StatusDone || ev.Elapsed <= 0 {
		return
	}
	if ev.Stage == gen.StageLoad && ev.Package != "" {
		return
	}
	s.timer.Add(string(ev.Stage), ev.Elapsed)
}
