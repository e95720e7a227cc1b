package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pixgen/internal/catalog"
	"pixgen/internal/imagegen"
)

var tierOrder = []catalog.Tier{catalog.TierIterate, catalog.TierDefault, catalog.TierPremium, catalog.TierMax}

func genTierHelp() string {
	var b strings.Builder
	b.WriteString("Tiers:\n")
	for _, tier := range tierOrder {
		image := catalog.ResolveGen(tier, false)
		text := catalog.ResolveGen(tier, true)
		fmt.Fprintf(&b, "  %-8s %-12s (--text: %s)\n", tier, image.Price, text.Price)
	}
	return b.String()
}

func newGenCommand(app *appContext) *cobra.Command {
	var (
		tier string
		size string
		text bool
		svg  bool
	)

	cmd := &cobra.Command{
		Use:   "gen <prompt>",
		Short: "Generate an image from a text prompt",
		Long: `Generate an image from a text prompt. The iterate tier tries the free
provider first and falls back once to the cheapest paid model when it fails
for any reason other than quota or rate-limit exhaustion; those exit with
code 3 so callers can retry after the daily window resets.

` + genTierHelp(),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.ensure(); err != nil {
				return err
			}
			res := app.orch.Generate(cmd.Context(), imagegen.GenerateOptions{
				Prompt: strings.Join(args, " "),
				Tier:   catalog.ParseTier(tier),
				Size:   imagegen.ParseSize(size),
				Text:   text,
				SVG:    svg,
			})
			return finish(res)
		},
	}

	cmd.Flags().StringVarP(&tier, "tier", "t", string(catalog.TierDefault), "cost/quality tier (iterate|default|premium|max)")
	cmd.Flags().StringVarP(&size, "size", "s", "1024x1024", "output size as WIDTHxHEIGHT")
	cmd.Flags().BoolVar(&text, "text", false, "use the text/logo specialist models")
	cmd.Flags().BoolVar(&svg, "svg", false, "also vectorize the result to SVG")

	return cmd
}
