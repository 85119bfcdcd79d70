package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reflex/internal/config"
	"reflex/internal/gen"
	"reflex/internal/observ"
	"reflex/internal/trace"
	"reflex/internal/version"
)

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "AUTO": uiModeAuto, " on ": uiModeOn, "off": uiModeOff} {
		got, err := readUIMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := readUIMode("sometimes")
	assert.Error(t, err)

	assert.True(t, shouldUseTUI(uiModeOn, true))
	assert.False(t, shouldUseTUI(uiModeOff, false))
	assert.False(t, shouldUseTUI(uiModeAuto, true))
}

func TestTraceFlagsConfig(t *testing.T) {
	cfg, err := traceFlags{level: "off", mode: "stream"}.config()
	require.NoError(t, err)
	assert.Equal(t, trace.LevelOff, cfg.Level)

	cfg, err = traceFlags{output: "run.ndjson", level: "off", mode: "both", ringSize: 16, heartbeat: time.Second}.config()
	require.NoError(t, err)
	assert.Equal(t, trace.LevelPhase, cfg.Level)
	assert.Equal(t, trace.ModeBoth, cfg.Mode)
	assert.Equal(t, "run.ndjson", cfg.OutputPath)
	assert.Equal(t, 16, cfg.RingSize)
	assert.Equal(t, time.Second, cfg.Heartbeat)

	_, err = traceFlags{level: "loud", mode: "stream"}.config()
	assert.Error(t, err)
	_, err = traceFlags{level: "debug", mode: "tape"}.config()
	assert.Error(t, err)
}

func TestApplyColor(t *testing.T) {
	saved := color.NoColor
	t.Cleanup(func() {
		color.NoColor = saved
		_ = rootCmd.PersistentFlags().Set("color", "auto")
	})

	require.NoError(t, rootCmd.PersistentFlags().Set("color", "off"))
	require.NoError(t, applyColor(versionCmd))
	assert.True(t, color.NoColor)

	require.NoError(t, rootCmd.PersistentFlags().Set("color", "on"))
	require.NoError(t, applyColor(versionCmd))
	assert.False(t, color.NoColor)

	require.NoError(t, rootCmd.PersistentFlags().Set("color", "rainbow"))
	assert.Error(t, applyColor(versionCmd))
}

func TestApplyGenFlags(t *testing.T) {
	t.Cleanup(func() {
		for _, name := range []string{"output", "jobs", "no-cache"} {
			if f := genCmd.Flags().Lookup(name); f != nil {
				_ = f.Value.Set(f.DefValue)
				f.Changed = false
			}
		}
	})
	cfg := config.Default()
	require.NoError(t, genCmd.Flags().Set("output", "zz_reflex.go"))
	require.NoError(t, genCmd.Flags().Set("jobs", "3"))
	require.NoError(t, genCmd.Flags().Set("no-cache", "true"))
	require.NoError(t, applyGenFlags(genCmd, &cfg))
	assert.Equal(t, "zz_reflex.go", cfg.Generate.Output)
	assert.Equal(t, 3, cfg.Generate.Jobs)
	assert.False(t, cfg.Generate.Cache)

	require.NoError(t, genCmd.Flags().Set("output", "gen_test.go"))
	assert.Error(t, applyGenFlags(genCmd, &cfg))
}

func TestRenderVersionJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderVersionJSON(&buf, version.Info{Version: "1.2.3", GitCommit: "abc", GoVersion: "go1.25.1"}))
	var payload map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
	assert.Equal(t, "reflex", payload["tool"])
	assert.Equal(t, "1.2.3", payload["version"])
	assert.NotContains(t, payload, "git_commit")
}

func TestTimingSinkSkipsPerPackageLoads(t *testing.T) {
	timer := observ.NewTimer()
	sink := timingSink{timer: timer}
	sink.OnEvent(gen.Event{Stage: gen.StageLoad, Status: gen.StatusDone, Elapsed: time.Millisecond})
	sink.OnEvent(gen.Event{Package: "p", Stage: gen.StageLoad, Status: gen.StatusDone, Elapsed: time.Hour})
	sink.OnEvent(gen.Event{Package: "p", Stage: gen.StagePlan, Status: gen.StatusWorking})
	sink.OnEvent(gen.Event{Package: "p", Stage: gen.StagePlan, Status: gen.StatusDone, Elapsed: 2 * time.Millisecond})

	r := timer.Report()
	require.Len(t, r.Phases, 2)
	assert.Equal(t, "load", r.Phases[0].Name)
	assert.Equal(t, 1.0, r.Phases[0].DurationMS)
	assert.Equal(t, "plan", r.Phases[1].Name)
}
