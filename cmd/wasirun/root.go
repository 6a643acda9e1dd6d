package main

import (
	"github.com/spf13/cobra"

	"github.com/wasirun/preview1/internal/hostconfig"
)

// newRootCmd builds the wasirun command tree: a persistent Config bound
// to every subcommand's flags (the pack's spf13/cobra+pflag pairing,
// per DESIGN.md), with "run" and "inspect" as the two ways to drive a
// syscall script.
func newRootCmd() *cobra.Command {
	cfg := hostconfig.New()

	root := &cobra.Command{
		Use:           "wasirun",
		Short:         "replay wasi_snapshot_preview1 syscall scripts against the host surface",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cfg.BindFlags(root.PersistentFlags())

	root.AddCommand(newRunCmd(cfg))
	root.AddCommand(newInspectCmd(cfg))
	return root
}
