package model

import "strings"

// ExportFormat is an output format of the export pipeline.
type ExportFormat string

const (
	FormatCSV      ExportFormat = "csv"
	FormatXLSX     ExportFormat = "xlsx"
	FormatJSON     ExportFormat = "json"
	FormatMarkdown ExportFormat = "md"
	FormatHTML     ExportFormat = "html"
)

// ParseExportFormat normalizes a user-supplied format name. Unknown names are
// returned as-is; the exporter rejects them with UnsupportedFormat.
func ParseExportFormat(s string) ExportFormat {
	f := strings.ToLower(strings.TrimSpace(s))
	switch f {
	case "markdown":
		return FormatMarkdown
	case "excel":
		return FormatXLSX
	}
	return ExportFormat(f)
}

// Extension returns the file extension for the format, including the dot.
func (f ExportFormat) Extension() string {
	return "." + string(f)
}
