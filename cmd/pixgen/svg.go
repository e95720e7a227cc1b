package main

import (
	"github.com/spf13/cobra"
)

func newSVGCommand(app *appContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "svg <image>",
		Short: "Vectorize a raster image to SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.ensure(); err != nil {
				return err
			}
			return finish(app.orch.Vectorize(cmd.Context(), args[0]))
		},
	}
	return cmd
}
