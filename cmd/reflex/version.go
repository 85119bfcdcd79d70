package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"reflex/internal/version"
)

const versionTagline = "structure you can walk"

type versionPayload struct {
	Tool    string `json:"tool"`
	Tagline string `json:"tagline"`
	version.Info
}

var (
	versionFormat string
	versionFull   bool
)

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
	versionCmd.Flags().BoolVar(&versionFull, "full", false, "include commit, build date and Go version")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show reflex build fingerprints",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Current()
		switch strings.ToLower(versionFormat) {
		case "json":
			return renderVersionJSON(cmd.OutOrStdout(), info)
		case "pretty":
			renderVersionPretty(cmd.OutOrStdout(), info)
			return nil
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", versionFormat)
		}
	},
}

func renderVersionPretty(out io.Writer, info version.Info) {
	fmt.Fprintf(out, "reflex %s: %s\n", version.Styled(info.Version), versionTagline)
	if !versionFull {
		return
	}
	commit := valueOrUnknown(info.GitCommit)
	if info.Modified {
		commit += " (modified)"
	}
	fmt.Fprintf(out, "commit: %s\n", commit)
	fmt.Fprintf(out, "built:  %s\n", valueOrUnknown(info.BuildDate))
	fmt.Fprintf(out, "go:     %s\n", valueOrUnknown(info.GoVersion))
}

func renderVersionJSON(out io.Writer, info version.Info) error {
	if !versionFull {
		info = version.Info{Version: info.Version, GoVersion: info.GoVersion}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(versionPayload{Tool: "reflex", Tagline: versionTagline, Info: info})
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
