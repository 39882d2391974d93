package model

import (
	"fmt"
	"strings"
)

// TableKind distinguishes static from dynamic tables.
type TableKind string

const (
	TableKindStatic  TableKind = "static"
	TableKindDynamic TableKind = "dynamic"
)

// TableSummary is one entry of a static or dynamic table listing.
type TableSummary struct {
	ID           string
	Title        string
	Subject      string
	Updated      string // Last update date for static tables; empty for dynamic tables.
	SourceDomain string // Domain the dynamic table's metadata lives in; empty for static tables.
	Kind         TableKind
}

// Column is a table column. A flat column has exactly one level; columns parsed
// from multi-row HTML headers carry one label per header row, outermost first.
type Column struct {
	Levels []string
}

// FlatColumn returns a single-level column with the given label.
func FlatColumn(label string) Column {
	return Column{Levels: []string{label}}
}

// Label returns the column label joined across levels.
func (c Column) Label() string {
	return strings.TrimSpace(strings.Join(c.Levels, " "))
}

// Table is an ordered sequence of uniform rows with named columns. Cells hold
// string, float64, int64 or nil values.
type Table struct {
	Columns []Column
	Rows    [][]any
}

// NewTable builds a flat table from column labels.
func NewTable(labels ...string) Table {
	cols := make([]Column, 0, len(labels))
	for _, l := range labels {
		cols = append(cols, FlatColumn(l))
	}
	return Table{Columns: cols}
}

// Labels returns the label of every column.
func (t Table) Labels() []string {
	labels := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		labels = append(labels, c.Label())
	}
	return labels
}

// HeaderDepth returns the largest number of levels across all columns.
func (t Table) HeaderDepth() int {
	depth := 0
	for _, c := range t.Columns {
		if len(c.Levels) > depth {
			depth = len(c.Levels)
		}
	}
	return depth
}

// IsEmpty reports whether the table has no rows or no columns.
func (t Table) IsEmpty() bool {
	return len(t.Rows) == 0 || len(t.Columns) == 0
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	cols := make([]Column, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = Column{Levels: append([]string(nil), c.Levels...)}
	}
	rows := make([][]any, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = append([]any(nil), r...)
	}
	return Table{Columns: cols, Rows: rows}
}

// FormatCell renders a cell value as text. nil renders as the empty string and
// whole floats render without a fractional part.
func FormatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case int64:
		return fmt.Sprintf("%d", val)
	case int:
		return fmt.Sprintf("%d", val)
	default:
		return fmt.Sprint(val)
	}
}

// StaticTable is the result of viewing a single static table.
type StaticTable struct {
	ID      string
	Title   string
	Updated string
	Table   Table
}
