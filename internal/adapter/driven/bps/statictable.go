package bps

import (
	"errors"
	"html"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ericfisherdev/stadatax/internal/domain/model"
)

var errNoTable = errors.New("payload contains no <table> element")

// gridCell is one slot of the expanded table grid.
type gridCell struct {
	text   string
	header bool
}

// ParseHTMLTable converts the HTML body of a static table into a model.Table.
// Row and column spans are expanded so every row has the same width. Header
// rows come from <thead> or, failing that, the leading rows made only of <th>
// cells; each header row becomes one column level.
func ParseHTMLTable(raw string) (model.Table, error) {
	if !strings.Contains(raw, "<table") && strings.Contains(raw, "&lt;table") {
		raw = html.UnescapeString(raw)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return model.Table{}, err
	}

	tableSel := doc.Find("table").First()
	if tableSel.Length() == 0 {
		return model.Table{}, errNoTable
	}

	var trs []*goquery.Selection
	headerRows := 0
	tableSel.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		// Skip rows of nested tables.
		if tr.Closest("table").Get(0) != tableSel.Get(0) {
			return
		}
		if tr.ParentsFiltered("thead").Length() > 0 {
			headerRows++
		}
		trs = append(trs, tr)
	})
	if len(trs) == 0 {
		return model.Table{}, errNoTable
	}

	grid := expandGrid(trs)

	if headerRows == 0 {
		for _, row := range grid {
			if !allHeader(row) {
				break
			}
			headerRows++
		}
	}
	if headerRows == 0 {
		headerRows = 1
	}
	if headerRows >= len(grid) && len(grid) > 1 {
		headerRows = len(grid) - 1
	}

	width := 0
	for _, row := range grid {
		if len(row) > width {
			width = len(row)
		}
	}

	cols := make([]model.Column, width)
	for c := 0; c < width; c++ {
		levels := make([]string, 0, headerRows)
		for r := 0; r < headerRows && r < len(grid); r++ {
			levels = append(levels, cellText(grid[r], c))
		}
		cols[c] = model.Column{Levels: levels}
	}

	rows := make([][]any, 0, len(grid)-headerRows)
	for _, row := range grid[min(headerRows, len(grid)):] {
		out := make([]any, width)
		for c := 0; c < width; c++ {
			out[c] = cellValue(cellText(row, c))
		}
		rows = append(rows, out)
	}

	return model.Table{Columns: cols, Rows: rows}, nil
}

// expandGrid lays out the rows into a rectangular grid, copying spanned cell
// text into every slot the span covers.
func expandGrid(trs []*goquery.Selection) [][]gridCell {
	grid := make([][]gridCell, len(trs))
	filled := make([][]bool, len(trs))

	ensure := func(r, c int) {
		for len(grid[r]) <= c {
			grid[r] = append(grid[r], gridCell{})
			filled[r] = append(filled[r], false)
		}
	}

	for r, tr := range trs {
		col := 0
		tr.ChildrenFiltered("td, th").Each(func(_ int, cell *goquery.Selection) {
			for col < len(filled[r]) && filled[r][col] {
				col++
			}
			rowspan := spanAttr(cell, "rowspan")
			colspan := spanAttr(cell, "colspan")
			text := strings.Join(strings.Fields(cell.Text()), " ")
			isHeader := goquery.NodeName(cell) == "th"

			for dr := 0; dr < rowspan && r+dr < len(trs); dr++ {
				for dc := 0; dc < colspan; dc++ {
					ensure(r+dr, col+dc)
					grid[r+dr][col+dc] = gridCell{text: text, header: isHeader}
					filled[r+dr][col+dc] = true
				}
			}
			col += colspan
		})
	}
	return grid
}

// Span limits browsers apply to table cells.
const (
	maxColspan = 1000
	maxRowspan = 65534
)

func spanAttr(cell *goquery.Selection, name string) int {
	v, ok := cell.Attr(name)
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return 1
	}
	limit := maxColspan
	if name == "rowspan" {
		limit = maxRowspan
	}
	return min(n, limit)
}

func allHeader(row []gridCell) bool {
	if len(row) == 0 {
		return false
	}
	for _, c := range row {
		if !c.header {
			return false
		}
	}
	return true
}

func cellText(row []gridCell, c int) string {
	if c >= len(row) {
		return ""
	}
	return row[c].text
}

// cellValue turns cell text into a float64 when it is numeric, nil when it is
// empty, and the trimmed text otherwise.
func cellValue(text string) any {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(text, " ", ""), 64)
	if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return text
}
