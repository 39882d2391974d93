package driven

import (
	"context"

	"github.com/ericfisherdev/stadatax/internal/domain/model"
)

// DomainCache defines the driven port for the persisted domain list.
type DomainCache interface {
	// Load returns the cached entry. ok is false when nothing usable is cached:
	// missing, expired, unreadable and malformed entries all count as a miss.
	Load(ctx context.Context) (entry model.CacheEntry, ok bool)
	// Save persists domains, replacing any previous entry atomically.
	Save(ctx context.Context, domains []model.Domain) error
	// Invalidate removes the cached entry, if any.
	Invalidate(ctx context.Context) error
}
