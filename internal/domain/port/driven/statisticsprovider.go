package driven

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ericfisherdev/stadatax/internal/domain/model"
)

// AvailabilityAvailable is the data-availability flag of a usable response.
const AvailabilityAvailable = "available"

// LookupQuery is a keyed lookup against the provider's list endpoint. The
// credential is added by the adapter.
type LookupQuery struct {
	Model  string
	Domain string
	VarID  string
	Params map[string]string // Extra query parameters (th, vervar, turvar, turth).
}

// LookupResponse is the raw envelope of a keyed lookup. Data and DataContent
// are left undecoded because their shape varies by model.
type LookupResponse struct {
	Availability string
	Data         json.RawMessage
	DataContent  json.RawMessage
	Raw          []byte
}

// Available reports whether the provider flagged the response as available.
func (r *LookupResponse) Available() bool {
	return r != nil && r.Availability == AvailabilityAvailable
}

// StatisticsProvider defines the driven port for the remote statistics provider.
type StatisticsProvider interface {
	ListDomains(ctx context.Context) ([]model.Domain, error)
	// ListStaticTables returns every static table of the domain, across all pages.
	ListStaticTables(ctx context.Context, domainID string) ([]model.TableSummary, error)
	// ViewStaticTable returns the parsed content of a static table. A payload that
	// is not a table yields a *model.Error of kind UnexpectedResponseShape.
	ViewStaticTable(ctx context.Context, domainID, tableID string) (*model.StaticTable, error)
	// ListDynamicTables returns every dynamic table (variable) of the domain.
	ListDynamicTables(ctx context.Context, domainID string) ([]model.TableSummary, error)
	Lookup(ctx context.Context, q LookupQuery) (*LookupResponse, error)
}

// StatusError is returned by provider adapters when the remote answered with a
// non-2xx HTTP status.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d %s", e.Endpoint, e.StatusCode, http.StatusText(e.StatusCode))
}

// TooManyRequests reports whether the remote rate-limited the request.
func (e *StatusError) TooManyRequests() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// TransportError is returned when the request never produced an HTTP response:
// DNS failure, refused connection or timeout.
type TransportError struct {
	Endpoint string
	Timeout  bool
	Err      error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: timeout: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("%s: connection failed: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
