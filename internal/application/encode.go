package application

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/microcosm-cc/bluemonday"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ericfisherdev/stadatax/internal/domain/model"
)

const xlsxSheet = "Sheet1"

var (
	mdRenderer    = goldmark.New(goldmark.WithExtensions(extension.GFM))
	htmlSanitizer = bluemonday.UGCPolicy()
)

// contentTypes maps each supported format to its MIME type.
var contentTypes = map[model.ExportFormat]string{
	model.FormatCSV:      "text/csv; charset=utf-8",
	model.FormatXLSX:     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	model.FormatJSON:     "application/json",
	model.FormatMarkdown: "text/markdown; charset=utf-8",
	model.FormatHTML:     "text/html; charset=utf-8",
}

// Encode serializes t in the given format and returns the bytes with their
// content type. Unknown formats fail with UnsupportedFormat.
func Encode(t model.Table, format model.ExportFormat) ([]byte, string, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case model.FormatCSV:
		data, err = encodeCSV(t)
	case model.FormatXLSX:
		data, err = encodeXLSX(t)
	case model.FormatJSON:
		data, err = encodeJSON(t)
	case model.FormatMarkdown:
		data = encodeMarkdown(t)
	case model.FormatHTML:
		data, err = encodeHTML(t)
	default:
		return nil, "", model.NewError(model.KindUnsupportedFormat,
			fmt.Sprintf("unsupported export format %q", format), nil)
	}
	if err != nil {
		return nil, "", fmt.Errorf("encode %s: %w", format, err)
	}
	return data, contentTypes[format], nil
}

// encodeCSV writes UTF-8 with a byte-order mark so spreadsheet programs detect
// the encoding. No row index column is written.
func encodeCSV(t model.Table) ([]byte, error) {
	var buf bytes.Buffer
	tw := transform.NewWriter(&buf, unicode.UTF8BOM.NewEncoder())
	w := csv.NewWriter(tw)

	if err := w.Write(t.Labels()); err != nil {
		return nil, err
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = model.FormatCell(row[i])
			}
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeXLSX(t model.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]any, 0, len(t.Columns))
	for _, l := range t.Labels() {
		header = append(header, l)
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := append([]any(nil), row...)
		if err := f.SetSheetRow(xlsxSheet, cell, &values); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeJSON writes an array of records, one object per row, keeping column
// order, indented by four spaces.
func encodeJSON(t model.Table) ([]byte, error) {
	labels := t.Labels()
	keys := make([][]byte, len(labels))
	for i, l := range labels {
		k, err := gojson.Marshal(l)
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}

	var compact bytes.Buffer
	compact.WriteByte('[')
	for r, row := range t.Rows {
		if r > 0 {
			compact.WriteByte(',')
		}
		compact.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				compact.WriteByte(',')
			}
			compact.Write(k)
			compact.WriteByte(':')
			var cell any
			if i < len(row) {
				cell = row[i]
			}
			v, err := gojson.Marshal(cell)
			if err != nil {
				if v, err = gojson.Marshal(model.FormatCell(cell)); err != nil {
					return nil, err
				}
			}
			compact.Write(v)
		}
		compact.WriteByte('}')
	}
	compact.WriteByte(']')

	var out bytes.Buffer
	if err := gojson.Indent(&out, compact.Bytes(), "", "    "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "|", `\|`, "*", `\*`, "_", `\_`, "`", "\\`",
	"<", `\<`, "[", `\[`, "]", `\]`, "\r\n", " ", "\n", " ",
)

// encodeMarkdown writes a GitHub-flavored pipe table.
func encodeMarkdown(t model.Table) []byte {
	var b strings.Builder

	writeRow := func(cells []string) {
		b.WriteString("|")
		for _, c := range cells {
			b.WriteString(" ")
			b.WriteString(markdownEscaper.Replace(c))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(t.Labels())
	b.WriteString("|")
	for range t.Columns {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")

	cells := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i := range cells {
			cells[i] = ""
			if i < len(row) {
				cells[i] = model.FormatCell(row[i])
			}
		}
		writeRow(cells)
	}
	return []byte(b.String())
}

// encodeHTML renders the markdown table and sanitizes the result.
func encodeHTML(t model.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := mdRenderer.Convert(encodeMarkdown(t), &buf); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"></head>\n<body>\n")
	out.Write(htmlSanitizer.SanitizeBytes(buf.Bytes()))
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}
