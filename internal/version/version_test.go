package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestCurrentPrefersLdflags(t *testing.T) {
	origCommit, origDate := GitCommit, BuildDate
	t.Cleanup(func() { GitCommit, BuildDate = origCommit, origDate })

	GitCommit = "abc123def456"
	BuildDate = "2024-01-15T10:30:00Z"

	info := Current()
	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
	if info.GitCommit != "abc123def456" {
		t.Errorf("GitCommit = %q", info.GitCommit)
	}
	if info.BuildDate != "2024-01-15T10:30:00Z" {
		t.Errorf("BuildDate = %q", info.BuildDate)
	}
}

func TestStyled(t *testing.T) {
	orig := color.NoColor
	t.Cleanup(func() { color.NoColor = orig })

	color.NoColor = true
	if got := Styled("1.2.3-dev"); got != "1.2.3-dev" {
		t.Errorf("plain Styled = %q", got)
	}
	if got := Styled("weird"); got != "weird" {
		t.Errorf("non-semver Styled = %q", got)
	}

	color.NoColor = false
	if got := Styled("1.2.3"); got == "1.2.3" {
		t.Error("coloured Styled should contain escape sequences")
	}
}
