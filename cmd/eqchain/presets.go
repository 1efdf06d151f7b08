package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-eqchain/internal/config"
)

func newPresetsCmd(a *app) *cobra.Command {
	var export string

	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List the preset catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.catalog()
			if err != nil {
				return err
			}

			presets := c.Presets()
			if export != "" {
				if err := config.WritePresets(export, presets); err != nil {
					return err
				}
				a.logger.Info().Str("path", export).Int("count", len(presets)).Msg("presets exported")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tKIND\tGAINS (dB)")
			for _, p := range presets {
				kind := "user"
				if c.IsBuiltin(p.Name) {
					kind = "builtin"
				}
				gains := make([]string, len(p.Gains))
				for i, g := range p.Gains {
					gains[i] = fmt.Sprintf("%+.1f", g)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, kind, strings.Join(gains, " "))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&export, "export", "", "write the catalog to a YAML preset file instead of listing it")
	return cmd
}
