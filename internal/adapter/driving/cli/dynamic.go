package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/stadatax/internal/domain/model"
)

func dynamicCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dynamic",
		Short: "Dynamic tables",
	}
	cmd.AddCommand(dynamicListCmd(app), dynamicMetadataCmd(app), dynamicDataCmd(app))
	return cmd
}

func dynamicListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list [domain]",
		Short: "List the dynamic tables of a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := app.Stats.ListDynamicTables(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printSummaries(cmd.OutOrStdout(), tables)
		},
	}
}

func dynamicMetadataCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata [domain] [var-id]",
		Short: "Show the selectable variables, years and periods of a dynamic table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := app.Stats.GetDynamicMetadata(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if md.SourceDomain != args[0] {
				fmt.Fprintf(out, "Metadata resolved from domain %s\n\n", md.SourceDomain)
			}
			for _, g := range md.OptionGroups() {
				fmt.Fprintf(out, "%s (--%s, %s choice)\n", g.Name, g.Param, g.Selection)
				rows := make([][]string, 0, len(g.Options))
				for _, o := range g.Options {
					rows = append(rows, []string{"  " + o.ID, sanitizeCell(o.Label), sanitizeCell(o.GroupName)})
				}
				if err := printRows(out, []string{"  ID", "LABEL", "GROUP"}, rows); err != nil {
					return err
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

func dynamicDataCmd(app *App) *cobra.Command {
	var (
		q      model.DataQuery
		pivot  bool
		output string
		format string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "data [domain] [var-id]",
		Short: "Fetch dynamic table data, print it or export it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if q.Year == "" {
				return errors.New("--th is required; see `stadatax dynamic metadata`")
			}
			q.Domain, q.VarID = args[0], args[1]
			ctx := cmd.Context()

			var table model.Table
			if pivot {
				md, err := app.Stats.GetDynamicMetadata(ctx, q.Domain, q.VarID)
				if err != nil {
					return err
				}
				if table, err = app.Stats.GetDynamicTable(ctx, q, md); err != nil {
					return err
				}
			} else {
				data, err := app.Stats.GetDynamicData(ctx, q)
				if err != nil {
					return err
				}
				table = data.Table
			}

			if output == "" {
				return printTable(cmd.OutOrStdout(), table)
			}

			f := model.ParseExportFormat(format)
			if format == "" {
				f = model.ParseExportFormat(strings.TrimPrefix(filepath.Ext(output), "."))
			}
			var loc string
			var err error
			if force {
				loc, err = app.Exporter.ExportConfirmed(ctx, table, output, f)
			} else {
				loc, err = app.Exporter.Export(ctx, table, output, f, false)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", loc)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&q.Year, "th", "", "year id")
	flags.StringVar(&q.VerticalVar, "vervar", "", "vertical variable id")
	flags.StringSliceVar(&q.HorizontalVarIDs, "turvar", nil, "horizontal variable ids")
	flags.StringSliceVar(&q.VerticalItemIDs, "turth", nil, "derived period ids")
	flags.StringVar(&q.SourceDomain, "source-domain", "", "domain the metadata was resolved from")
	flags.BoolVar(&pivot, "pivot", false, "lay records out as a labelled table")
	flags.StringVarP(&output, "output", "o", "", "export to a file path or s3://bucket/key")
	flags.StringVarP(&format, "format", "f", "", "export format (default from the output extension)")
	flags.BoolVar(&force, "force", false, "overwrite an existing export")
	return cmd
}
