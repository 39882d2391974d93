package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func domainsCmd(app *App) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "domains",
		Short: "List statistical domains (served from the 7-day cache)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			domains, err := app.Stats.ListDomains(cmd.Context(), refresh)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(domains))
			for _, d := range domains {
				rows = append(rows, []string{d.ID, d.Name, d.URL})
			}
			return printRows(cmd.OutOrStdout(), []string{"ID", "NAME", "URL"}, rows)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache and re-fetch the list")
	return cmd
}

func cacheCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the domain list cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete the cached domain list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.Cache.Invalidate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Domain cache cleared")
			return nil
		},
	})
	return cmd
}
