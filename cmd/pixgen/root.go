package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	app := &appContext{}

	rootCmd := &cobra.Command{
		Use:   "pixgen",
		Short: "Generate, edit, and post-process images through tiered providers",
		Long: `pixgen drives a free synchronous image provider and a paid queue-based
provider behind a single tiered interface. Finished artifacts land in the
configured output directory and their paths are printed to stdout.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newGenCommand(app))
	rootCmd.AddCommand(newEditCommand(app))
	rootCmd.AddCommand(newUpscaleCommand(app))
	rootCmd.AddCommand(newRembgCommand(app))
	rootCmd.AddCommand(newSVGCommand(app))

	return rootCmd
}
