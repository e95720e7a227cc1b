package main

import (
	"github.com/spf13/cobra"
)

func newRembgCommand(app *appContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rembg <image>",
		Short: "Remove the background from an image (free)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.ensure(); err != nil {
				return err
			}
			return finish(app.orch.RemoveBackground(cmd.Context(), args[0]))
		},
	}
	return cmd
}
