package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/jobsift/internal/source"
)

func newSourcesCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "Validate the config and list the enabled sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			defer syncLogger(logger)

			enabled := source.Enabled(cfg.Sources)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tLISTING\tDETAIL\tRENDER\tURL")
			for _, def := range enabled {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", def.Name, def.Listing, def.Detail, def.Render, def.URL())
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d sources enabled\n", len(enabled), len(cfg.Sources))
			return nil
		},
	}
}
