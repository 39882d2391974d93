package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/stadatax/internal/domain/model"
)

func staticCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "static",
		Short: "Static tables",
	}
	cmd.AddCommand(staticListCmd(app), staticViewCmd(app), staticDownloadCmd(app))
	return cmd
}

func staticListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list [domain]",
		Short: "List the static tables of a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := app.Stats.ListStaticTables(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printSummaries(cmd.OutOrStdout(), tables)
		},
	}
}

func staticViewCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "view [domain] [table-id]",
		Short: "Print a static table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.Stats.ViewStaticTable(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, st.Title)
			fmt.Fprintln(out)
			return printTable(out, st.Table)
		},
	}
}

func staticDownloadCmd(app *App) *cobra.Command {
	var (
		name   string
		format string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "download [domain] [table-id]",
		Short: "Save a static table into the download directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := app.Downloads.DownloadStaticTable(cmd.Context(), args[0], args[1], name,
				model.ParseExportFormat(format), force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", loc)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "file name (default <domain>_<table-id>)")
	cmd.Flags().StringVarP(&format, "format", "f", string(model.FormatCSV), "csv, xlsx, json, md or html")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
