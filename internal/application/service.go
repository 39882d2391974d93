package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/stadatax/internal/domain/model"
	"github.com/ericfisherdev/stadatax/internal/domain/port/driven"
)

// DynamicData is the decoded result of a dynamic-table data request.
type DynamicData struct {
	Query   model.DataQuery
	Records []model.DataRecord
	Table   model.Table
}

// StatisticsService is the entry point of the statistics access layer. Every
// method either fully succeeds or returns a *model.Error.
type StatisticsService struct {
	invoker  *Invoker
	cache    driven.DomainCache
	metadata *MetadataAggregator
}

// NewStatisticsService creates a new StatisticsService.
func NewStatisticsService(invoker *Invoker, cache driven.DomainCache) *StatisticsService {
	return &StatisticsService{
		invoker:  invoker,
		cache:    cache,
		metadata: NewMetadataAggregator(invoker),
	}
}

// Ready reports whether a credential is configured.
func (s *StatisticsService) Ready() bool {
	return s.invoker.Ready()
}

// ListDomains returns the domain list, from the cache when it holds a fresh
// entry. refresh skips the cache read. A fetched non-empty list is written back
// to the cache; write failures are logged and do not fail the call.
func (s *StatisticsService) ListDomains(ctx context.Context, refresh bool) ([]model.Domain, error) {
	if !refresh {
		if entry, ok := s.cache.Load(ctx); ok {
			slog.Debug("domain list served from cache", "domains", len(entry.Domains),
				"age", time.Since(entry.WrittenAt).Round(time.Second))
			return entry.Domains, nil
		}
	}

	domains, err := Invoke(ctx, s.invoker, "list_domains", func(ctx context.Context, p driven.StatisticsProvider) ([]model.Domain, error) {
		return p.ListDomains(ctx)
	})
	if err != nil {
		return nil, err
	}

	if len(domains) > 0 {
		if err := s.cache.Save(ctx, domains); err != nil {
			slog.Warn("domain cache write failed", "error", err)
		}
	}
	return domains, nil
}

// ListStaticTables returns every static table of domainID.
func (s *StatisticsService) ListStaticTables(ctx context.Context, domainID string) ([]model.TableSummary, error) {
	return Invoke(ctx, s.invoker, "list_static_tables", func(ctx context.Context, p driven.StatisticsProvider) ([]model.TableSummary, error) {
		return p.ListStaticTables(ctx, domainID)
	})
}

// ViewStaticTable returns a static table with normalized headers. A table with
// no rows fails with UnexpectedResponseShape.
func (s *StatisticsService) ViewStaticTable(ctx context.Context, domainID, tableID string) (*model.StaticTable, error) {
	st, err := Invoke(ctx, s.invoker, "view_static_table", func(ctx context.Context, p driven.StatisticsProvider) (*model.StaticTable, error) {
		return p.ViewStaticTable(ctx, domainID, tableID)
	})
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, model.UnexpectedShape(fmt.Sprintf("static table %s/%s returned no content", domainID, tableID), nil)
	}

	st.Table = Normalize(st.Table)
	if st.Table.IsEmpty() {
		return nil, model.UnexpectedShape(fmt.Sprintf("static table %s/%s is empty", domainID, tableID), nil)
	}
	return st, nil
}

// ListDynamicTables returns every dynamic table of domainID.
func (s *StatisticsService) ListDynamicTables(ctx context.Context, domainID string) ([]model.TableSummary, error) {
	return Invoke(ctx, s.invoker, "list_dynamic_tables", func(ctx context.Context, p driven.StatisticsProvider) ([]model.TableSummary, error) {
		return p.ListDynamicTables(ctx, domainID)
	})
}

// GetDynamicMetadata returns the reference lists of a dynamic table, applying
// the national-domain fallback.
func (s *StatisticsService) GetDynamicMetadata(ctx context.Context, domainID, varID string) (model.DynamicMetadata, error) {
	return s.metadata.Fetch(ctx, domainID, varID)
}

// GetDynamicData fetches and decodes dynamic-table data. The request goes to
// q.SourceDomain when set, since that is where the metadata was resolved.
func (s *StatisticsService) GetDynamicData(ctx context.Context, q model.DataQuery) (*DynamicData, error) {
	if !s.invoker.Ready() {
		return nil, model.NewError(model.KindCredentialMissing, "no BPS API token configured", nil)
	}

	resp, err := Invoke(ctx, s.invoker, "lookup_data", func(ctx context.Context, p driven.StatisticsProvider) (*driven.LookupResponse, error) {
		return p.Lookup(ctx, driven.LookupQuery{
			Model:  "data",
			Domain: q.EffectiveDomain(),
			VarID:  q.VarID,
			Params: dataParams(q),
		})
	})
	if err != nil {
		return nil, err
	}

	if !resp.Available() {
		return nil, model.NewError(model.KindDataUnavailable,
			fmt.Sprintf("no data for var %s in domain %s, year %s", q.VarID, q.EffectiveDomain(), q.Year), nil)
	}

	records, err := DecodeDataContent(resp.DataContent)
	if err != nil {
		return nil, err
	}

	return &DynamicData{Query: q, Records: records, Table: model.RecordsTable(records)}, nil
}

// GetDynamicTable fetches data and lays it out with labels from md.
func (s *StatisticsService) GetDynamicTable(ctx context.Context, q model.DataQuery, md model.DynamicMetadata) (model.Table, error) {
	if q.SourceDomain == "" {
		q.SourceDomain = md.SourceDomain
	}
	if _, ok := model.FindOption(md.Years, q.Year); !ok {
		slog.Warn("requested year is not listed in metadata", "var", q.VarID, "th", q.Year)
	}
	data, err := s.GetDynamicData(ctx, q)
	if err != nil {
		return model.Table{}, err
	}
	return Normalize(Pivot(data.Records, md)), nil
}
