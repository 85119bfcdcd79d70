package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/tools/go/packages"

	"reflex/internal/inspect"
	"reflex/internal/layout"
	"reflex/internal/trace"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags] [packages]",
	Short: "Report members, kinds and memory layout of struct types",
	Long: `inspect type-checks the named packages (default .) and prints, for every
struct type, the members auto-reflection would expose together with their
offsets, sizes and alignments on the chosen architecture.`,
	RunE: inspectExecution,
}

func init() {
	inspectCmd.Flags().StringP("type", "t", "", "only types whose name matches this glob")
	inspectCmd.Flags().StringP("format", "f", "", "output format (pretty|json|msgpack)")
	inspectCmd.Flags().String("target", "", "GOARCH whose layout rules to apply")
	inspectCmd.Flags().Bool("list-targets", false, "print supported architectures and exit")
}

func inspectExecution(cmd *cobra.Command, args []string) (runErr error) {
	listTargets, err := cmd.Flags().GetBool("list-targets")
	if err != nil {
		return err
	}
	if listTargets {
		for _, arch := range layout.Arches() {
			fmt.Fprintln(cmd.OutOrStdout(), arch)
		}
		return nil
	}

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
	filter, err := cmd.Flags().GetString("type")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if format == "" {
		format = cfg.Inspect.Format
	}
	arch, err := cmd.Flags().GetString("target")
	if err != nil {
		return err
	}
	if arch == "" {
		arch = cfg.Inspect.Target
	}
	target, err := layout.TargetFor(arch)
	if err != nil {
		return err
	}

	patterns := args
	if len(patterns) == 0 {
		patterns = []string{"."}
	}
	ctx, span := trace.StartSpan(cmd.Context(), trace.ScopeDriver, "inspect")
	defer span.End("")

	pkgs, err := packages.Load(&packages.Config{
		Context: ctx,
		Mode:    packages.NeedName | packages.NeedFiles | packages.NeedTypes,
	}, patterns...)
	if err != nil {
		return fmt.Errorf("failed to load packages: %w", err)
	}
	if n := packages.PrintErrors(pkgs); n > 0 {
		return fmt.Errorf("%d package errors", n)
	}

	var reports []inspect.TypeReport
	for _, pkg := range pkgs {
		rep, err := inspect.FromPackage(ctx, pkg.Types, inspect.Options{
			Target:     target,
			Filter:     filter,
			MaxMembers: cfg.Registry.MaxAutoMembers,
		})
		if err != nil {
			return err
		}
		reports = append(reports, rep...)
	}
	if filter != "" && len(reports) == 0 {
		return fmt.Errorf("no struct type matches %q", filter)
	}
	return inspect.Write(cmd.OutOrStdout(), format, reports)
}
