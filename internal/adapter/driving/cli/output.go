package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ericfisherdev/stadatax/internal/domain/model"
)

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// printRows writes a header line and rows as aligned columns.
func printRows(w io.Writer, header []string, rows [][]string) error {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

// printTable writes a model.Table as aligned columns.
func printTable(w io.Writer, t model.Table) error {
	rows := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells := make([]string, len(t.Columns))
		for i := range cells {
			if i < len(row) {
				cells[i] = sanitizeCell(model.FormatCell(row[i]))
			}
		}
		rows = append(rows, cells)
	}
	return printRows(w, t.Labels(), rows)
}

func printSummaries(w io.Writer, tables []model.TableSummary) error {
	rows := make([][]string, 0, len(tables))
	for _, t := range tables {
		detail := t.Updated
		if t.Kind == model.TableKindDynamic {
			detail = t.SourceDomain
		}
		rows = append(rows, []string{t.ID, sanitizeCell(t.Title), sanitizeCell(t.Subject), detail})
	}
	header := []string{"ID", "TITLE", "SUBJECT", "UPDATED"}
	if len(tables) > 0 && tables[0].Kind == model.TableKindDynamic {
		header[3] = "SOURCE"
	}
	return printRows(w, header, rows)
}

// sanitizeCell keeps tabs and newlines from breaking column alignment.
func sanitizeCell(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
