package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/stadatax/internal/application"
	"github.com/ericfisherdev/stadatax/internal/domain/model"
	"github.com/ericfisherdev/stadatax/internal/domain/port/driven"
)

var sampleDomains = []model.Domain{{ID: "0000", Name: "Indonesia"}, {ID: "3200", Name: "Jawa Barat"}}

func newTestService(provider driven.StatisticsProvider, cache driven.DomainCache) *application.StatisticsService {
	inv := application.NewInvoker(application.NewProviderHolder(provider), application.WithTimer(instantTimer))
	return application.NewStatisticsService(inv, cache)
}

func TestListDomains_CacheHitSkipsProvider(t *testing.T) {
	provider := &mockProvider{}
	cache := &mockDomainCache{entry: model.CacheEntry{Domains: sampleDomains, WrittenAt: time.Now().Add(-time.Hour)}, ok: true}
	svc := newTestService(provider, cache)

	got, err := svc.ListDomains(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, sampleDomains, got)
	assert.Equal(t, 0, provider.domainCalls())
	assert.Empty(t, cache.saved)
}

func TestListDomains_CacheMissFetchesAndSaves(t *testing.T) {
	provider := &mockProvider{listDomains: func(context.Context) ([]model.Domain, error) {
		return sampleDomains, nil
	}}
	cache := &mockDomainCache{}
	svc := newTestService(provider, cache)

	got, err := svc.ListDomains(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, sampleDomains, got)
	assert.Equal(t, 1, provider.domainCalls())
	require.Len(t, cache.saved, 1)
	assert.Equal(t, sampleDomains, cache.saved[0])
}

func TestListDomains_RefreshBypassesCache(t *testing.T) {
	provider := &mockProvider{listDomains: func(context.Context) ([]model.Domain, error) {
		return sampleDomains[:1], nil
	}}
	cache := &mockDomainCache{entry: model.CacheEntry{Domains: sampleDomains, WrittenAt: time.Now()}, ok: true}
	svc := newTestService(provider, cache)

	got, err := svc.ListDomains(context.Background(), true)

	require.NoError(t, err)
	assert.Equal(t, sampleDomains[:1], got)
	assert.Equal(t, 1, provider.domainCalls())
}

func TestListDomains_EmptyResultNotCached(t *testing.T) {
	provider := &mockProvider{listDomains: func(context.Context) ([]model.Domain, error) {
		return []model.Domain{}, nil
	}}
	cache := &mockDomainCache{}
	svc := newTestService(provider, cache)

	_, err := svc.ListDomains(context.Background(), false)

	require.NoError(t, err)
	assert.Empty(t, cache.saved)
}

func TestListDomains_CacheWriteFailureIsNotFatal(t *testing.T) {
	provider := &mockProvider{listDomains: func(context.Context) ([]model.Domain, error) {
		return sampleDomains, nil
	}}
	cache := &mockDomainCache{saveErr: errors.New("disk full")}
	svc := newTestService(provider, cache)

	got, err := svc.ListDomains(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, sampleDomains, got)
}

func TestListDomains_MissWithoutCredential(t *testing.T) {
	svc := newTestService(nil, &mockDomainCache{})

	_, err := svc.ListDomains(context.Background(), false)

	assert.ErrorIs(t, err, model.ErrCredentialMissing)
}

func TestListDomains_HitWithoutCredential(t *testing.T) {
	cache := &mockDomainCache{entry: model.CacheEntry{Domains: sampleDomains, WrittenAt: time.Now()}, ok: true}
	svc := newTestService(nil, cache)

	got, err := svc.ListDomains(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, sampleDomains, got)
}

func TestViewStaticTable_NormalizesAndRejectsEmpty(t *testing.T) {
	table := model.Table{
		Columns: []model.Column{{Levels: []string{"Wilayah", ""}}, {Levels: []string{"Penduduk", "2023"}}},
		Rows:    [][]any{{"Bogor", 1.0}, {nil, " "}},
	}
	provider := &mockProvider{viewStaticTable: func(_ context.Context, domainID, tableID string) (*model.StaticTable, error) {
		if tableID == "empty" {
			return &model.StaticTable{ID: tableID, Table: model.NewTable("a")}, nil
		}
		return &model.StaticTable{ID: tableID, Title: "Penduduk", Table: table.Clone()}, nil
	}}
	svc := newTestService(provider, &mockDomainCache{})

	st, err := svc.ViewStaticTable(context.Background(), "3200", "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Wilayah", "Penduduk 2023"}, st.Table.Labels())
	assert.Equal(t, [][]any{{"Bogor", 1.0}}, st.Table.Rows)

	_, err = svc.ViewStaticTable(context.Background(), "3200", "empty")
	assert.ErrorIs(t, err, model.ErrUnexpectedResponseShape)
}

func TestGetDynamicData_BuildsRequest(t *testing.T) {
	provider := &mockProvider{lookup: func(_ context.Context, q driven.LookupQuery) (*driven.LookupResponse, error) {
		return &driven.LookupResponse{
			Availability: driven.AvailabilityAvailable,
			DataContent:  []byte(`{"0000230100001001000": 10, "0000230100002001000": "12.5"}`),
		}, nil
	}}
	svc := newTestService(provider, &mockDomainCache{})

	data, err := svc.GetDynamicData(context.Background(), model.DataQuery{
		Domain:           "3273",
		SourceDomain:     "0000",
		VarID:            "1975",
		VerticalVar:      "8",
		Year:             "123",
		HorizontalVarIDs: []string{"1", "2"},
		VerticalItemIDs:  []string{"0"},
	})

	require.NoError(t, err)
	lookups := provider.recordedLookups()
	require.Len(t, lookups, 1)
	assert.Equal(t, driven.LookupQuery{
		Model:  "data",
		Domain: "0000",
		VarID:  "1975",
		Params: map[string]string{"th": "123", "vervar": "8", "turvar": "1;2", "turth": "0"},
	}, lookups[0])

	require.Len(t, data.Records, 2)
	assert.Equal(t, 10.0, data.Records[0].Value)
	assert.Equal(t, "12.5", data.Records[1].Value)
	assert.Equal(t, model.RecordColumns, data.Table.Labels())
	assert.Len(t, data.Table.Rows, 2)
}

func TestGetDynamicData_OmitsEmptyFilters(t *testing.T) {
	provider := &mockProvider{lookup: func(_ context.Context, q driven.LookupQuery) (*driven.LookupResponse, error) {
		return &driven.LookupResponse{Availability: driven.AvailabilityAvailable, DataContent: []byte(`{"0000230100001001000": 1}`)}, nil
	}}
	svc := newTestService(provider, &mockDomainCache{})

	_, err := svc.GetDynamicData(context.Background(), model.DataQuery{Domain: "3200", VarID: "1", Year: "120"})

	require.NoError(t, err)
	lookups := provider.recordedLookups()
	require.Len(t, lookups, 1)
	assert.Equal(t, "3200", lookups[0].Domain)
	assert.Equal(t, map[string]string{"th": "120"}, lookups[0].Params)
}

func TestGetDynamicData_Unavailable(t *testing.T) {
	tests := []struct {
		name string
		resp *driven.LookupResponse
	}{
		{"not available", &driven.LookupResponse{Availability: "list-not-available"}},
		{"no datacontent", &driven.LookupResponse{Availability: driven.AvailabilityAvailable}},
		{"datacontent not object", &driven.LookupResponse{Availability: driven.AvailabilityAvailable, DataContent: []byte(`[1,2]`)}},
		{"empty datacontent", &driven.LookupResponse{Availability: driven.AvailabilityAvailable, DataContent: []byte(`{}`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &mockProvider{lookup: func(context.Context, driven.LookupQuery) (*driven.LookupResponse, error) {
				return tt.resp, nil
			}}
			svc := newTestService(provider, &mockDomainCache{})

			_, err := svc.GetDynamicData(context.Background(), model.DataQuery{Domain: "3200", VarID: "1", Year: "120"})

			assert.ErrorIs(t, err, model.ErrDataUnavailable)
		})
	}
}

func TestGetDynamicData_CredentialMissing(t *testing.T) {
	svc := newTestService(nil, &mockDomainCache{})

	_, err := svc.GetDynamicData(context.Background(), model.DataQuery{Domain: "3200", VarID: "1", Year: "120"})

	assert.ErrorIs(t, err, model.ErrCredentialMissing)
}
