package application

import (
	"strings"

	"github.com/ericfisherdev/stadatax/internal/domain/model"
)

// Pivot lays dynamic-table records out the way BPS publishes them: one row per
// vertical item and one column per horizontal and derived-period combination,
// labelled from md. Rows and columns follow first appearance in records.
// Segments with no matching option keep their raw code as label.
//
// Records spanning several vertical groups get a leading group column, and
// records spanning several years get a year header level, so no two distinct
// records share a cell.
func Pivot(records []model.DataRecord, md model.DynamicMetadata) model.Table {
	vertical := optionLabels(md.VerticalVars)
	horizontal := optionLabels(md.HorizontalVars)
	years := optionLabels(md.Years)
	derived := optionLabels(md.DerivedYears)

	type rowKey struct{ group, item string }
	type colKey struct{ year, horizontal, derived string }
	var (
		rowOrder []rowKey
		colOrder []colKey
		rowIndex = map[rowKey]int{}
		colIndex = map[colKey]int{}
		cells    = map[rowKey]map[colKey]any{}
		groupSet = map[string]struct{}{}
		yearSet  = map[string]struct{}{}
	)

	for _, r := range records {
		groupSet[r.VerticalGroup] = struct{}{}
		yearSet[r.Year] = struct{}{}

		rk := rowKey{r.VerticalGroup, r.VerticalItem}
		if _, ok := rowIndex[rk]; !ok {
			rowIndex[rk] = len(rowOrder)
			rowOrder = append(rowOrder, rk)
			cells[rk] = map[colKey]any{}
		}
		ck := colKey{r.Year, r.Horizontal, r.Derived}
		if _, ok := colIndex[ck]; !ok {
			colIndex[ck] = len(colOrder)
			colOrder = append(colOrder, ck)
		}
		cells[rk][ck] = r.Value
	}
	multiGroup := len(groupSet) > 1
	multiYear := len(yearSet) > 1

	firstLabel := "Item"
	if len(md.VerticalVars) > 0 && md.VerticalVars[0].GroupName != "" {
		firstLabel = md.VerticalVars[0].GroupName
	}

	depth := 2
	if multiYear {
		depth = 3
	}
	header := func(label string) model.Column {
		levels := make([]string, depth)
		levels[0] = label
		return model.Column{Levels: levels}
	}

	cols := make([]model.Column, 0, len(colOrder)+2)
	if multiGroup {
		cols = append(cols, header("Group"))
	}
	cols = append(cols, header(firstLabel))
	for _, ck := range colOrder {
		levels := make([]string, 0, depth)
		if multiYear {
			levels = append(levels, lookupLabel(years, ck.year))
		}
		levels = append(levels, lookupLabel(horizontal, ck.horizontal), lookupLabel(derived, ck.derived))
		cols = append(cols, model.Column{Levels: levels})
	}

	rows := make([][]any, 0, len(rowOrder))
	for _, rk := range rowOrder {
		row := make([]any, 0, len(cols))
		if multiGroup {
			row = append(row, rk.group)
		}
		row = append(row, lookupLabel(vertical, rk.item))
		for _, ck := range colOrder {
			row = append(row, cells[rk][ck])
		}
		rows = append(rows, row)
	}

	return model.Table{Columns: cols, Rows: rows}
}

// optionLabels indexes option labels by canonical ID.
func optionLabels(opts []model.VariableOption) map[string]string {
	m := make(map[string]string, len(opts))
	for _, o := range opts {
		m[canonicalID(o.ID)] = o.Label
	}
	return m
}

func lookupLabel(labels map[string]string, code string) string {
	if l, ok := labels[canonicalID(code)]; ok {
		return l
	}
	return code
}

// canonicalID strips the zero padding of fixed-width key segments so "00012"
// matches option ID "12".
func canonicalID(id string) string {
	id = strings.TrimLeft(strings.TrimSpace(id), "0")
	if id == "" {
		return "0"
	}
	return id
}
