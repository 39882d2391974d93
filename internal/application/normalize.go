package application

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/stadatax/internal/domain/model"
)

// headerPlaceholders are level labels treated as absent when flattening.
var headerPlaceholders = map[string]bool{"": true, "nan": true, "NaN": true, "None": true}

var errRaggedTable = errors.New("table rows do not match column count")

// Normalize flattens multi-level headers into single labels, names unlabeled
// columns Unnamed_<index> and drops rows with no content. It never fails: a
// table whose shape is inconsistent is logged and returned unchanged.
func Normalize(t model.Table) model.Table {
	out, err := normalize(t)
	if err != nil {
		slog.Warn("table normalization skipped", "error", err,
			"columns", len(t.Columns), "rows", len(t.Rows))
		return t.Clone()
	}
	return out
}

func normalize(t model.Table) (model.Table, error) {
	depth := t.HeaderDepth()
	cols := make([]model.Column, len(t.Columns))
	for i, c := range t.Columns {
		if len(c.Levels) != depth {
			return model.Table{}, fmt.Errorf("column %d has %d header levels, want %d", i, len(c.Levels), depth)
		}
		label := flattenLevels(c.Levels)
		if label == "" {
			label = fmt.Sprintf("Unnamed_%d", i)
		}
		cols[i] = model.FlatColumn(label)
	}

	rows := make([][]any, 0, len(t.Rows))
	for _, r := range t.Rows {
		if len(r) != len(cols) {
			return model.Table{}, errRaggedTable
		}
		if rowIsEmpty(r) {
			continue
		}
		rows = append(rows, append([]any(nil), r...))
	}

	return model.Table{Columns: cols, Rows: rows}, nil
}

func flattenLevels(levels []string) string {
	parts := make([]string, 0, len(levels))
	for _, l := range levels {
		l = strings.TrimSpace(l)
		if headerPlaceholders[l] {
			continue
		}
		parts = append(parts, l)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func rowIsEmpty(row []any) bool {
	for _, cell := range row {
		switch v := cell.(type) {
		case nil:
		case string:
			if strings.TrimSpace(v) != "" {
				return false
			}
		default:
			return false
		}
	}
	return true
}
