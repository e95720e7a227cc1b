package main

import (
	"github.com/spf13/cobra"

	"pixgen/internal/catalog"
	"pixgen/internal/imagegen"
)

func newUpscaleCommand(app *appContext) *cobra.Command {
	var (
		tier  string
		scale int
	)

	cmd := &cobra.Command{
		Use:   "upscale <image>",
		Short: "Enlarge an image by a scale factor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.ensure(); err != nil {
				return err
			}
			res := app.orch.Upscale(cmd.Context(), imagegen.UpscaleOptions{
				ImagePath: args[0],
				Tier:      catalog.ParseTier(tier),
				Scale:     scale,
			})
			return finish(res)
		},
	}

	cmd.Flags().StringVarP(&tier, "tier", "t", string(catalog.TierDefault), "cost/quality tier (iterate|default|premium|max)")
	cmd.Flags().IntVar(&scale, "scale", 2, "upscale factor")

	return cmd
}
