package httphandler

import (
	"net/http"

	gojson "github.com/goccy/go-json"

	"github.com/ericfisherdev/stadatax/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := gojson.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body. Kind and Hint are set for
// statistics-layer errors.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Hint  string `json:"hint,omitempty"`
}

// HealthResponse is the JSON representation of the health check.
type HealthResponse struct {
	Status     string `json:"status"`
	Time       string `json:"time"`
	Credential bool   `json:"credential_configured"`
}

// DomainResponse is the JSON representation of a domain.
type DomainResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// TableSummaryResponse is the JSON representation of a table listing entry.
type TableSummaryResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Subject      string `json:"subject,omitempty"`
	Updated      string `json:"updated,omitempty"`
	SourceDomain string `json:"source_domain,omitempty"`
	Kind         string `json:"kind"`
}

// TableResponse is the JSON representation of a table. Rows hold strings,
// numbers and nulls in column order.
type TableResponse struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// StaticTableResponse is the JSON representation of a viewed static table.
type StaticTableResponse struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	Updated string        `json:"updated,omitempty"`
	Table   TableResponse `json:"table"`
}

// MetadataResponse is the JSON representation of dynamic-table metadata.
type MetadataResponse struct {
	SourceDomain string              `json:"source_domain"`
	Groups       []model.OptionGroup `json:"groups"`
}

// ExportRequest is the expected JSON body for POST /api/v1/exports.
type ExportRequest struct {
	Kind           string   `json:"kind"` // "static" (default) or "dynamic".
	Domain         string   `json:"domain"`
	TableID        string   `json:"table_id"`
	Destination    string   `json:"destination"` // Relative to the download directory, or an s3:// URL.
	Format         string   `json:"format"`
	Overwrite      bool     `json:"overwrite"`
	VerticalVar    string   `json:"vervar,omitempty"`
	Year           string   `json:"th,omitempty"`
	HorizontalVars []string `json:"turvar,omitempty"`
	DerivedYears   []string `json:"turth,omitempty"`
	SourceDomain   string   `json:"source_domain,omitempty"`
	Layout         string   `json:"layout,omitempty"`
}

// ExportResponse reports where an export was written.
type ExportResponse struct {
	Location string `json:"location"`
}

func toDomainResponse(d model.Domain) DomainResponse {
	return DomainResponse{ID: d.ID, Name: d.Name, URL: d.URL}
}

func toTableSummaryResponses(tables []model.TableSummary) []TableSummaryResponse {
	resp := make([]TableSummaryResponse, 0, len(tables))
	for _, t := range tables {
		resp = append(resp, TableSummaryResponse{
			ID:           t.ID,
			Title:        t.Title,
			Subject:      t.Subject,
			Updated:      t.Updated,
			SourceDomain: t.SourceDomain,
			Kind:         string(t.Kind),
		})
	}
	return resp
}

func toTableResponse(t model.Table) TableResponse {
	rows := t.Rows
	if rows == nil {
		rows = [][]any{}
	}
	return TableResponse{Columns: t.Labels(), Rows: rows}
}

func toMetadataResponse(md model.DynamicMetadata) MetadataResponse {
	return MetadataResponse{SourceDomain: md.SourceDomain, Groups: md.OptionGroups()}
}
