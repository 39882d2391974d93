package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/ericfisherdev/stadatax/internal/domain/model"
	"github.com/ericfisherdev/stadatax/internal/domain/port/driven"
)

// CacheRefresher keeps the domain cache warm in long-running processes. It
// re-fetches the domain list on a fixed interval when the cached entry is
// missing or stale, and on demand.
type CacheRefresher struct {
	stats     *StatisticsService
	cache     driven.DomainCache
	interval  time.Duration
	refreshCh chan chan error
}

// NewCacheRefresher creates a new CacheRefresher.
func NewCacheRefresher(stats *StatisticsService, cache driven.DomainCache, interval time.Duration) *CacheRefresher {
	return &CacheRefresher{
		stats:     stats,
		cache:     cache,
		interval:  interval,
		refreshCh: make(chan chan error),
	}
}

// Start runs an immediate check, then checks on the configured interval and
// serves manual refresh requests. Start blocks until the context is canceled.
func (r *CacheRefresher) Start(ctx context.Context) {
	r.warm(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("cache refresher stopped")
			return
		case <-ticker.C:
			r.warm(ctx)
		case done := <-r.refreshCh:
			done <- r.refresh(ctx)
		}
	}
}

// Refresh forces a re-fetch of the domain list. It blocks until the refresh
// completes or the context is canceled.
func (r *CacheRefresher) Refresh(ctx context.Context) error {
	done := make(chan error, 1)

	select {
	case r.refreshCh <- done:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// warm fetches only when the cache has nothing fresh to serve.
func (r *CacheRefresher) warm(ctx context.Context) {
	if _, ok := r.cache.Load(ctx); ok {
		return
	}
	if !r.stats.Ready() {
		slog.Debug("domain cache warm-up skipped, no token configured")
		return
	}
	if err := r.refresh(ctx); err != nil {
		switch model.KindOf(err) {
		case model.KindNoConnectivity, model.KindServerUnavailable:
			slog.Warn("domain cache warm-up deferred to next tick", "error", err)
		default:
			slog.Error("domain cache warm-up failed", "error", err)
		}
	}
}

func (r *CacheRefresher) refresh(ctx context.Context) error {
	start := time.Now()
	domains, err := r.stats.ListDomains(ctx, true)
	if err != nil {
		return err
	}
	slog.Info("domain cache refreshed",
		"domains", len(domains),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}
