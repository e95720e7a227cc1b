package main

import (
	"strings"

	"github.com/spf13/cobra"

	"pixgen/internal/catalog"
	"pixgen/internal/imagegen"
)

func newEditCommand(app *appContext) *cobra.Command {
	var (
		tier string
		size string
		mask string
		refs []string
	)

	cmd := &cobra.Command{
		Use:   "edit <image> <instruction>",
		Short: "Edit an image with a natural-language instruction",
		Long: `Edit an image with a natural-language instruction. The image may be a
local file or an http(s) URL; local inputs are uploaded first. An optional
mask restricts the edit region, and style or composition references can be
supplied with --ref. Two or more references force the max tier, which is the
only model capable of multi-reference composition.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.ensure(); err != nil {
				return err
			}
			res := app.orch.Edit(cmd.Context(), imagegen.EditOptions{
				ImagePath:   args[0],
				Instruction: strings.Join(args[1:], " "),
				Tier:        catalog.ParseTier(tier),
				MaskPath:    mask,
				Refs:        refs,
			})
			return finish(res)
		},
	}

	cmd.Flags().StringVarP(&tier, "tier", "t", string(catalog.TierDefault), "cost/quality tier (iterate|default|premium|max)")
	// The edit models preserve the input dimensions; the flag is accepted for
	// interface symmetry with gen.
	cmd.Flags().StringVarP(&size, "size", "s", "", "ignored; edit output keeps the input dimensions")
	cmd.Flags().StringVarP(&mask, "mask", "m", "", "mask image restricting the edit region")
	cmd.Flags().StringArrayVar(&refs, "ref", nil, "reference image (repeatable; two or more force the max tier)")

	return cmd
}
