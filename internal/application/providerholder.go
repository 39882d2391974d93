package application

import (
	"sync"

	"github.com/ericfisherdev/stadatax/internal/domain/port/driven"
)

// ProviderHolder enables runtime hot-swap of the statistics provider client.
// A nil client means no credential is configured; operations that need the
// provider fail with CredentialMissing until one is installed.
type ProviderHolder struct {
	mu     sync.RWMutex
	client driven.StatisticsProvider
}

// NewProviderHolder creates a holder with the given initial client, which may be nil.
func NewProviderHolder(client driven.StatisticsProvider) *ProviderHolder {
	return &ProviderHolder{client: client}
}

// Get returns the current client, or nil.
func (h *ProviderHolder) Get() driven.StatisticsProvider {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.client
}

// Replace swaps the current client. Calls already in flight keep the client
// they started with.
func (h *ProviderHolder) Replace(client driven.StatisticsProvider) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.client = client
}

// HasClient reports whether a client is installed.
func (h *ProviderHolder) HasClient() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.client != nil
}
