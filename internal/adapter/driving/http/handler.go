package httphandler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/ericfisherdev/stadatax/internal/application"
	"github.com/ericfisherdev/stadatax/internal/domain/model"
)

// Handler is the HTTP driving adapter that serves the JSON API.
type Handler struct {
	stats     *application.StatisticsService
	exporter  *application.Exporter
	downloads *application.DownloadService
	refresher *application.CacheRefresher
	logger    *slog.Logger

	// inflight collapses identical concurrent metadata and data requests.
	inflight singleflight.Group
}

// NewHandler creates a Handler with all required dependencies. Local export
// destinations are resolved inside the download directory of downloads.
// refresher may be nil, in which case a refresh request fetches the domain
// list directly.
func NewHandler(
	stats *application.StatisticsService,
	exporter *application.Exporter,
	downloads *application.DownloadService,
	refresher *application.CacheRefresher,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		stats:     stats,
		exporter:  exporter,
		downloads: downloads,
		refresher: refresher,
		logger:    logger,
	}
}

// MuxOptions configures the observability surface of NewServeMux.
type MuxOptions struct {
	// Metrics, when non-nil, is served on GET /metrics.
	Metrics http.Handler
	// Registerer, when non-nil, receives the per-route API request metrics.
	Registerer prometheus.Registerer
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger, opts MuxOptions) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/domains", h.ListDomains)
	mux.HandleFunc("POST /api/v1/domains/refresh", h.RefreshDomains)
	mux.HandleFunc("GET /api/v1/domains/{domain}/static-tables", h.ListStaticTables)
	mux.HandleFunc("GET /api/v1/domains/{domain}/static-tables/{table}", h.ViewStaticTable)
	mux.HandleFunc("GET /api/v1/domains/{domain}/dynamic-tables", h.ListDynamicTables)
	mux.HandleFunc("GET /api/v1/domains/{domain}/dynamic-tables/{var}/metadata", h.GetMetadata)
	mux.HandleFunc("GET /api/v1/domains/{domain}/dynamic-tables/{var}/data", h.GetData)
	mux.HandleFunc("POST /api/v1/exports", h.Export)

	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	var m *requestMetrics
	if opts.Registerer != nil {
		m = newRequestMetrics(opts.Registerer)
	}

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	return loggingMiddleware(logger, m, wrapped)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:     "ok",
		Time:       time.Now().UTC().Format(time.RFC3339),
		Credential: h.stats.Ready(),
	})
}

// ListDomains returns the domain list, from cache unless ?refresh=true.
func (h *Handler) ListDomains(w http.ResponseWriter, r *http.Request) {
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	domains, err := h.stats.ListDomains(r.Context(), refresh)
	if err != nil {
		h.writeDomainError(w, "list domains", err)
		return
	}

	resp := make([]DomainResponse, 0, len(domains))
	for _, d := range domains {
		resp = append(resp, toDomainResponse(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

// RefreshDomains re-fetches the domain list and rewrites the cache.
func (h *Handler) RefreshDomains(w http.ResponseWriter, r *http.Request) {
	var err error
	if h.refresher != nil {
		err = h.refresher.Refresh(r.Context())
	} else {
		_, err = h.stats.ListDomains(r.Context(), true)
	}
	if err != nil {
		h.writeDomainError(w, "refresh domains", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListStaticTables returns the static tables of a domain.
func (h *Handler) ListStaticTables(w http.ResponseWriter, r *http.Request) {
	domain := r.PathValue("domain")
	if !isValidDomainID(domain) {
		writeError(w, http.StatusBadRequest, "invalid domain id")
		return
	}

	tables, err := h.stats.ListStaticTables(r.Context(), domain)
	if err != nil {
		h.writeDomainError(w, "list static tables", err)
		return
	}
	writeJSON(w, http.StatusOK, toTableSummaryResponses(tables))
}

// ViewStaticTable returns one static table with flattened headers.
func (h *Handler) ViewStaticTable(w http.ResponseWriter, r *http.Request) {
	domain := r.PathValue("domain")
	if !isValidDomainID(domain) {
		writeError(w, http.StatusBadRequest, "invalid domain id")
		return
	}

	st, err := h.stats.ViewStaticTable(r.Context(), domain, r.PathValue("table"))
	if err != nil {
		h.writeDomainError(w, "view static table", err)
		return
	}
	writeJSON(w, http.StatusOK, StaticTableResponse{
		ID:      st.ID,
		Title:   st.Title,
		Updated: st.Updated,
		Table:   toTableResponse(st.Table),
	})
}

// ListDynamicTables returns the dynamic tables of a domain.
func (h *Handler) ListDynamicTables(w http.ResponseWriter, r *http.Request) {
	domain := r.PathValue("domain")
	if !isValidDomainID(domain) {
		writeError(w, http.StatusBadRequest, "invalid domain id")
		return
	}

	tables, err := h.stats.ListDynamicTables(r.Context(), domain)
	if err != nil {
		h.writeDomainError(w, "list dynamic tables", err)
		return
	}
	writeJSON(w, http.StatusOK, toTableSummaryResponses(tables))
}

// GetMetadata returns the reference lists of a dynamic table as option groups.
func (h *Handler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	domain, varID := r.PathValue("domain"), r.PathValue("var")
	if !isValidDomainID(domain) {
		writeError(w, http.StatusBadRequest, "invalid domain id")
		return
	}

	md, err := h.metadata(r.Context(), domain, varID)
	if err != nil {
		h.writeDomainError(w, "get dynamic metadata", err)
		return
	}
	writeJSON(w, http.StatusOK, toMetadataResponse(md))
}

// GetData returns dynamic-table data. layout=records (the default) returns one
// row per decoded record; layout=table pivots the records using the metadata
// labels.
func (h *Handler) GetData(w http.ResponseWriter, r *http.Request) {
	domain, varID := r.PathValue("domain"), r.PathValue("var")
	if !isValidDomainID(domain) {
		writeError(w, http.StatusBadRequest, "invalid domain id")
		return
	}

	q, layout, err := parseDataQuery(domain, varID, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	table, err := h.dataTable(r.Context(), q, layout)
	if err != nil {
		h.writeDomainError(w, "get dynamic data", err)
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(table))
}

// Export writes a static or dynamic table to a destination. Only JSON bodies
// are accepted, so a plain cross-site form post cannot trigger a write.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mt != "application/json" {
		writeError(w, http.StatusUnsupportedMediaType, "content type must be application/json")
		return
	}

	var req ExportRequest
	if err := gojson.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !isValidDomainID(req.Domain) {
		writeError(w, http.StatusBadRequest, "invalid domain id")
		return
	}
	if strings.TrimSpace(req.Destination) == "" {
		writeError(w, http.StatusBadRequest, "destination is required")
		return
	}
	dest, err := h.resolveDestination(r.Context(), req.Destination)
	if err != nil {
		if errors.Is(err, errDestinationOutside) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.writeDomainError(w, "export", err)
		return
	}

	var table model.Table
	switch req.Kind {
	case "static", "":
		var st *model.StaticTable
		st, err = h.stats.ViewStaticTable(r.Context(), req.Domain, req.TableID)
		if st != nil {
			table = st.Table
		}
	case "dynamic":
		q := model.DataQuery{
			Domain:           req.Domain,
			VarID:            req.TableID,
			VerticalVar:      req.VerticalVar,
			Year:             req.Year,
			HorizontalVarIDs: req.HorizontalVars,
			VerticalItemIDs:  req.DerivedYears,
			SourceDomain:     req.SourceDomain,
		}
		if q.Year == "" {
			writeError(w, http.StatusBadRequest, "year is required for dynamic exports")
			return
		}
		table, err = h.dataTable(r.Context(), q, req.Layout)
	default:
		writeError(w, http.StatusBadRequest, "kind must be static or dynamic")
		return
	}
	if err != nil {
		h.writeDomainError(w, "export fetch", err)
		return
	}

	loc, err := h.exporter.Export(r.Context(), table, dest, model.ParseExportFormat(req.Format), req.Overwrite)
	if err != nil {
		h.writeDomainError(w, "export", err)
		return
	}
	writeJSON(w, http.StatusCreated, ExportResponse{Location: loc})
}

var errDestinationOutside = errors.New("destination must be a relative path inside the download directory")

// resolveDestination maps a requested export destination to a writable
// location. Object storage URLs pass through; local paths must stay inside
// the download directory.
func (h *Handler) resolveDestination(ctx context.Context, dest string) (string, error) {
	if strings.HasPrefix(dest, "s3://") {
		return dest, nil
	}
	if h.downloads == nil || !filepath.IsLocal(dest) || filepath.Clean(dest) == "." {
		return "", errDestinationOutside
	}
	dir, err := h.downloads.DownloadDir(ctx)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, dest), nil
}

// metadata fetches dynamic metadata, sharing one provider round-trip between
// identical concurrent requests.
func (h *Handler) metadata(ctx context.Context, domain, varID string) (model.DynamicMetadata, error) {
	v, err, shared := h.inflight.Do("metadata:"+domain+"/"+varID, func() (any, error) {
		return h.stats.GetDynamicMetadata(context.WithoutCancel(ctx), domain, varID)
	})
	if shared {
		h.logger.Debug("metadata request collapsed", "domain", domain, "var", varID)
	}
	if err != nil {
		return model.DynamicMetadata{}, err
	}
	return v.(model.DynamicMetadata), nil
}

func (h *Handler) dataTable(ctx context.Context, q model.DataQuery, layout string) (model.Table, error) {
	key := fmt.Sprintf("data:%s/%s/%s/%s/%s/%s/%s/%s", layout, q.Domain, q.SourceDomain, q.VarID,
		q.VerticalVar, q.Year, strings.Join(q.HorizontalVarIDs, ";"), strings.Join(q.VerticalItemIDs, ";"))

	v, err, _ := h.inflight.Do(key, func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		if layout == "table" {
			md, err := h.metadata(ctx, q.Domain, q.VarID)
			if err != nil {
				return model.Table{}, err
			}
			return h.stats.GetDynamicTable(ctx, q, md)
		}
		data, err := h.stats.GetDynamicData(ctx, q)
		if err != nil {
			return model.Table{}, err
		}
		return data.Table, nil
	})
	if err != nil {
		return model.Table{}, err
	}
	return v.(model.Table), nil
}

// writeDomainError maps a statistics-layer error onto an HTTP status and body.
func (h *Handler) writeDomainError(w http.ResponseWriter, op string, err error) {
	var domainErr *model.Error
	if !errors.As(err, &domainErr) {
		if errors.Is(err, context.Canceled) {
			writeError(w, http.StatusServiceUnavailable, "request canceled")
			return
		}
		h.logger.Error("request failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	status := statusForKind(domainErr.Kind)
	if status >= http.StatusInternalServerError {
		h.logger.Warn("provider request failed", "op", op, "kind", domainErr.Kind, "error", err)
	}
	category := domainErr.Kind.Category()
	writeJSON(w, status, errorResponse{
		Error: domainErr.Error(),
		Kind:  string(domainErr.Kind),
		Hint:  category.Hint(),
	})
}

func statusForKind(kind model.ErrorKind) int {
	switch kind {
	case model.KindCredentialMissing, model.KindCredentialInvalid:
		return http.StatusUnauthorized
	case model.KindNoConnectivity, model.KindServerUnavailable:
		return http.StatusServiceUnavailable
	case model.KindMetadataUnavailable, model.KindDataUnavailable:
		return http.StatusNotFound
	case model.KindUnsupportedFormat:
		return http.StatusBadRequest
	case model.KindDestinationExists:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

// parseDataQuery reads the data filters from the query string. List filters
// accept comma or semicolon separators.
func parseDataQuery(domain, varID string, r *http.Request) (model.DataQuery, string, error) {
	params := r.URL.Query()

	q := model.DataQuery{
		Domain:           domain,
		VarID:            varID,
		VerticalVar:      params.Get("vervar"),
		Year:             params.Get("th"),
		HorizontalVarIDs: splitList(params.Get("turvar")),
		VerticalItemIDs:  splitList(params.Get("turth")),
		SourceDomain:     params.Get("source_domain"),
	}
	if q.Year == "" {
		return model.DataQuery{}, "", errors.New("query parameter th is required")
	}
	if q.SourceDomain != "" && !isValidDomainID(q.SourceDomain) {
		return model.DataQuery{}, "", errors.New("invalid source_domain")
	}

	layout := params.Get("layout")
	switch layout {
	case "", "records":
		layout = "records"
	case "table":
	default:
		return model.DataQuery{}, "", errors.New("layout must be records or table")
	}
	return q, layout, nil
}

func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// isValidDomainID reports whether id is a four-digit domain code.
func isValidDomainID(id string) bool {
	if len(id) != 4 {
		return false
	}
	for _, ch := range id {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}
