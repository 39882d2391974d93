package application_test

import (
	"context"
	"sync"
	"time"

	"github.com/ericfisherdev/stadatax/internal/domain/model"
	"github.com/ericfisherdev/stadatax/internal/domain/port/driven"
)

// mockProvider is a hand-written driven.StatisticsProvider. Nil funcs return
// zero values.
type mockProvider struct {
	listDomains       func(ctx context.Context) ([]model.Domain, error)
	listStaticTables  func(ctx context.Context, domainID string) ([]model.TableSummary, error)
	viewStaticTable   func(ctx context.Context, domainID, tableID string) (*model.StaticTable, error)
	listDynamicTables func(ctx context.Context, domainID string) ([]model.TableSummary, error)
	lookup            func(ctx context.Context, q driven.LookupQuery) (*driven.LookupResponse, error)

	mu      sync.Mutex
	lookups []driven.LookupQuery
	domains int
}

func (m *mockProvider) ListDomains(ctx context.Context) ([]model.Domain, error) {
	m.mu.Lock()
	m.domains++
	m.mu.Unlock()
	if m.listDomains == nil {
		return nil, nil
	}
	return m.listDomains(ctx)
}

func (m *mockProvider) ListStaticTables(ctx context.Context, domainID string) ([]model.TableSummary, error) {
	if m.listStaticTables == nil {
		return nil, nil
	}
	return m.listStaticTables(ctx, domainID)
}

func (m *mockProvider) ViewStaticTable(ctx context.Context, domainID, tableID string) (*model.StaticTable, error) {
	if m.viewStaticTable == nil {
		return nil, nil
	}
	return m.viewStaticTable(ctx, domainID, tableID)
}

func (m *mockProvider) ListDynamicTables(ctx context.Context, domainID string) ([]model.TableSummary, error) {
	if m.listDynamicTables == nil {
		return nil, nil
	}
	return m.listDynamicTables(ctx, domainID)
}

func (m *mockProvider) Lookup(ctx context.Context, q driven.LookupQuery) (*driven.LookupResponse, error) {
	m.mu.Lock()
	m.lookups = append(m.lookups, q)
	m.mu.Unlock()
	if m.lookup == nil {
		return &driven.LookupResponse{}, nil
	}
	return m.lookup(ctx, q)
}

func (m *mockProvider) domainCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.domains
}

func (m *mockProvider) recordedLookups() []driven.LookupQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]driven.LookupQuery(nil), m.lookups...)
}

// mockDomainCache is an in-memory driven.DomainCache.
type mockDomainCache struct {
	entry   model.CacheEntry
	ok      bool
	saved   [][]model.Domain
	saveErr error
	cleared int
}

func (m *mockDomainCache) Load(_ context.Context) (model.CacheEntry, bool) {
	return m.entry, m.ok
}

func (m *mockDomainCache) Save(_ context.Context, domains []model.Domain) error {
	m.saved = append(m.saved, domains)
	return m.saveErr
}

func (m *mockDomainCache) Invalidate(_ context.Context) error {
	m.cleared++
	m.ok = false
	return nil
}

// mockSettingsStore is an in-memory driven.SettingsStore.
type mockSettingsStore struct {
	values map[string]string
}

func (m *mockSettingsStore) Get(_ context.Context, key string) (string, error) {
	return m.values[key], nil
}

func (m *mockSettingsStore) Set(_ context.Context, key, value string) error {
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value
	return nil
}

func (m *mockSettingsStore) Delete(_ context.Context, key string) error {
	delete(m.values, key)
	return nil
}

// mockCredentialStore is an in-memory driven.CredentialStore.
type mockCredentialStore struct {
	values    map[string]string
	updatedAt time.Time
	err       error
}

func (m *mockCredentialStore) Set(_ context.Context, service, plaintext string) error {
	if m.err != nil {
		return m.err
	}
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[service] = plaintext
	return nil
}

func (m *mockCredentialStore) Get(_ context.Context, service string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.values[service], nil
}

func (m *mockCredentialStore) List(_ context.Context) ([]model.Credential, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []model.Credential
	for k, v := range m.values {
		out = append(out, model.Credential{Service: k, Value: v, UpdatedAt: m.updatedAt})
	}
	return out, nil
}

func (m *mockCredentialStore) Delete(_ context.Context, service string) error {
	delete(m.values, service)
	return nil
}

// memorySink is an in-memory driven.ExportSink.
type memorySink struct {
	files map[string][]byte
	types map[string]string
}

func newMemorySink() *memorySink {
	return &memorySink{files: map[string][]byte{}, types: map[string]string{}}
}

func (m *memorySink) Exists(_ context.Context, dest string) (bool, error) {
	_, ok := m.files[dest]
	return ok, nil
}

func (m *memorySink) Write(_ context.Context, dest string, data []byte, contentType string) (string, error) {
	m.files[dest] = append([]byte(nil), data...)
	m.types[dest] = contentType
	return dest, nil
}
