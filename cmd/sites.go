package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/jobingest/internal/config"
)

// newSitesCmd creates the 'sites' subcommand, which validates the site list
// without touching the store.
func newSitesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "Validates and prints the configured sites",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWith(cfgFile, map[string]any{"store.backend": config.BackendMemory})
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tLIST URL\tDELAY\tDETAIL")
			for _, site := range cfg.Sites {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", site.Name, site.ListURL, site.Delay(), site.Detail.Enabled)
			}
			return tw.Flush()
		},
	}
}
