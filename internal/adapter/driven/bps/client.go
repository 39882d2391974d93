// Package bps implements the StatisticsProvider port against the BPS WebAPI.
package bps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	gojson "github.com/goccy/go-json"
	"github.com/gregjones/httpcache"
	"golang.org/x/time/rate"

	"github.com/ericfisherdev/stadatax/internal/domain/model"
	"github.com/ericfisherdev/stadatax/internal/domain/port/driven"
)

// DefaultBaseURL is the production WebAPI root.
const DefaultBaseURL = "https://webapi.bps.go.id/v1/api"

// DefaultTimeout bounds every request.
const DefaultTimeout = 30 * time.Second

// maxPages guards against a provider that keeps reporting more pages.
const maxPages = 500

// Compile-time interface satisfaction check.
var _ driven.StatisticsProvider = (*Client)(nil)

// Options tunes a Client. The zero value targets production with the default
// timeout and no client-side pacing.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // Requests per second; 0 disables pacing.
	Metrics   *Metrics

	// HTTPClient replaces the default transport stack. Intended for tests.
	HTTPClient *http.Client
}

// Client implements the driven.StatisticsProvider port over HTTP.
type Client struct {
	rest    *resty.Client
	limiter *rate.Limiter
	metrics *Metrics
}

// NewClient creates a WebAPI client with the following transport stack:
//  1. httpcache (conditional request caching for list responses)
//  2. resty (query building, timeout, key injection)
//
// Rate-limit retries are not done here; the application invoker owns them.
func NewClient(token string, opts Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var rc *resty.Client
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	} else {
		rc = resty.New().SetTransport(httpcache.NewMemoryCacheTransport())
	}
	rc.SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetQueryParam("key", token).
		SetHeader("Accept", "application/json")

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &Client{rest: rc, limiter: limiter, metrics: opts.Metrics}
}

// ListDomains retrieves every domain (national, provincial and regency level).
func (c *Client) ListDomains(ctx context.Context) ([]model.Domain, error) {
	items, err := fetchPages[domainJSON](ctx, c, "/domain", map[string]string{"type": "all"})
	if err != nil {
		return nil, fmt.Errorf("listing domains: %w", err)
	}

	domains := make([]model.Domain, 0, len(items))
	for _, d := range items {
		domains = append(domains, model.Domain{ID: string(d.ID), Name: d.Name, URL: d.URL})
	}
	return domains, nil
}

// ListStaticTables retrieves all static tables of a domain, following pagination.
func (c *Client) ListStaticTables(ctx context.Context, domainID string) ([]model.TableSummary, error) {
	items, err := fetchPages[staticTableJSON](ctx, c, "/list", map[string]string{
		"model":  "statictable",
		"domain": domainID,
	})
	if err != nil {
		return nil, fmt.Errorf("listing static tables for domain %s: %w", domainID, err)
	}

	tables := make([]model.TableSummary, 0, len(items))
	for _, t := range items {
		tables = append(tables, model.TableSummary{
			ID:      string(t.TableID),
			Title:   t.Title,
			Subject: t.Subj,
			Updated: t.UpdtDate,
			Kind:    model.TableKindStatic,
		})
	}
	return tables, nil
}

// ListDynamicTables retrieves all dynamic-table variables of a domain.
func (c *Client) ListDynamicTables(ctx context.Context, domainID string) ([]model.TableSummary, error) {
	items, err := fetchPages[dynamicTableJSON](ctx, c, "/list", map[string]string{
		"model":  "var",
		"domain": domainID,
	})
	if err != nil {
		return nil, fmt.Errorf("listing dynamic tables for domain %s: %w", domainID, err)
	}

	tables := make([]model.TableSummary, 0, len(items))
	for _, t := range items {
		tables = append(tables, model.TableSummary{
			ID:           string(t.VarID),
			Title:        t.Title,
			Subject:      t.SubName,
			SourceDomain: domainID,
			Kind:         model.TableKindDynamic,
		})
	}
	return tables, nil
}

// ViewStaticTable retrieves one static table and parses its HTML body.
func (c *Client) ViewStaticTable(ctx context.Context, domainID, tableID string) (*model.StaticTable, error) {
	body, err := c.get(ctx, "/view", map[string]string{
		"model":  "statictable",
		"lang":   "ind",
		"domain": domainID,
		"id":     tableID,
	})
	if err != nil {
		return nil, fmt.Errorf("viewing static table %s/%s: %w", domainID, tableID, err)
	}

	env, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}
	if env.Availability != driven.AvailabilityAvailable {
		return nil, model.UnexpectedShape(fmt.Sprintf("static table %s not available", tableID), body)
	}

	var view staticViewJSON
	if err := gojson.Unmarshal(env.Data, &view); err != nil || view.Table == nil {
		return nil, model.UnexpectedShape(fmt.Sprintf("static table %s has no table content", tableID), body)
	}

	table, err := ParseHTMLTable(*view.Table)
	if err != nil {
		return nil, model.UnexpectedShape(fmt.Sprintf("static table %s: %v", tableID, err), []byte(*view.Table))
	}

	return &model.StaticTable{
		ID:      string(view.TableID),
		Title:   view.Title,
		Updated: view.UpdtDate,
		Table:   table,
	}, nil
}

// Lookup issues a keyed request against the list endpoint and returns the raw
// envelope for model-specific decoding by the caller.
func (c *Client) Lookup(ctx context.Context, q driven.LookupQuery) (*driven.LookupResponse, error) {
	params := map[string]string{
		"model":  q.Model,
		"domain": q.Domain,
		"var":    q.VarID,
	}
	for k, v := range q.Params {
		params[k] = v
	}

	body, err := c.get(ctx, "/list", params)
	if err != nil {
		return nil, fmt.Errorf("lookup %s for var %s in domain %s: %w", q.Model, q.VarID, q.Domain, err)
	}

	env, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}

	return &driven.LookupResponse{
		Availability: env.Availability,
		Data:         env.Data,
		DataContent:  env.DataContent,
		Raw:          body,
	}, nil
}

// get performs one GET request. Non-2xx statuses become *driven.StatusError and
// requests that never got a response become *driven.TransportError.
func (c *Client) get(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			// Wait fails early when the next slot lies past the deadline.
			return nil, &driven.TransportError{Endpoint: endpoint, Timeout: true, Err: err}
		}
	}

	start := time.Now()
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(endpoint)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.observe(endpoint, params["model"], "error", elapsed)
		return nil, transportError(endpoint, err)
	}

	code := resp.StatusCode()
	c.metrics.observe(endpoint, params["model"], strconv.Itoa(code), elapsed)

	slog.Debug("bps api call",
		"endpoint", endpoint,
		"model", params["model"],
		"domain", params["domain"],
		"status", code,
		"duration", elapsed.Round(time.Millisecond),
	)

	if code < 200 || code > 299 {
		return nil, &driven.StatusError{Endpoint: endpoint, StatusCode: code, Body: resp.Body()}
	}
	return resp.Body(), nil
}

// transportError wraps a request failure that produced no HTTP response.
// Caller cancellation is returned unchanged.
// transportError drops the *url.Error layer: its message carries the request
// URL and with it the API key.
func transportError(endpoint string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	timeout := errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return &driven.TransportError{Endpoint: endpoint, Timeout: timeout, Err: err}
}

func decodeEnvelope(body []byte) (*envelope, error) {
	var env envelope
	if err := gojson.Unmarshal(body, &env); err != nil {
		return nil, model.UnexpectedShape("response is not a JSON object", body)
	}
	return &env, nil
}

// fetchPages walks a paginated list endpoint. A "not available" page ends the
// walk; the provider reports empty listings that way.
func fetchPages[T any](ctx context.Context, c *Client, endpoint string, params map[string]string) ([]T, error) {
	var all []T

	for page := 1; page <= maxPages; page++ {
		p := make(map[string]string, len(params)+1)
		for k, v := range params {
			p[k] = v
		}
		p["page"] = strconv.Itoa(page)

		body, err := c.get(ctx, endpoint, p)
		if err != nil {
			return nil, err
		}

		env, err := decodeEnvelope(body)
		if err != nil {
			return nil, err
		}
		if env.Availability != driven.AvailabilityAvailable {
			break
		}

		var parts []gojson.RawMessage
		if err := gojson.Unmarshal(env.Data, &parts); err != nil || len(parts) != 2 {
			return nil, model.UnexpectedShape("list response data is not [page, items]", body)
		}

		var info pageInfo
		if err := gojson.Unmarshal(parts[0], &info); err != nil {
			return nil, model.UnexpectedShape("list response has malformed page info", body)
		}

		var items []T
		if err := gojson.Unmarshal(parts[1], &items); err != nil {
			return nil, model.UnexpectedShape("list response has malformed items", body)
		}
		all = append(all, items...)

		if info.Pages <= page {
			break
		}
	}

	if all == nil {
		all = []T{}
	}
	return all, nil
}
