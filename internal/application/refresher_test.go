package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/stadatax/internal/application"
	"github.com/ericfisherdev/stadatax/internal/domain/model"
)

// startRefresher runs r in the background and stops it when the test ends.
func startRefresher(t *testing.T, r *application.CacheRefresher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestCacheRefresher_WarmsEmptyCacheThenRefreshes(t *testing.T) {
	provider := &mockProvider{listDomains: func(context.Context) ([]model.Domain, error) {
		return sampleDomains, nil
	}}
	cache := &mockDomainCache{}
	r := application.NewCacheRefresher(newTestService(provider, cache), cache, time.Hour)
	startRefresher(t, r)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Refresh(ctx))

	assert.Equal(t, 2, provider.domainCalls(), "one warm-up fetch and one manual refresh")
	assert.Len(t, cache.saved, 2)
}

func TestCacheRefresher_FreshCacheSkipsWarmUp(t *testing.T) {
	provider := &mockProvider{listDomains: func(context.Context) ([]model.Domain, error) {
		return sampleDomains, nil
	}}
	cache := &mockDomainCache{entry: model.CacheEntry{Domains: sampleDomains, WrittenAt: time.Now()}, ok: true}
	r := application.NewCacheRefresher(newTestService(provider, cache), cache, time.Hour)
	startRefresher(t, r)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Refresh(ctx))

	assert.Equal(t, 1, provider.domainCalls())
}

func TestCacheRefresher_RefreshWithoutToken(t *testing.T) {
	cache := &mockDomainCache{}
	svc := application.NewStatisticsService(application.NewInvoker(application.NewProviderHolder(nil)), cache)
	r := application.NewCacheRefresher(svc, cache, time.Hour)
	startRefresher(t, r)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := r.Refresh(ctx)

	assert.ErrorIs(t, err, model.ErrCredentialMissing)
	assert.Empty(t, cache.saved)
}

func TestCacheRefresher_RefreshHonorsCanceledContext(t *testing.T) {
	cache := &mockDomainCache{}
	r := application.NewCacheRefresher(newTestService(&mockProvider{}, cache), cache, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, r.Refresh(ctx), context.Canceled)
}
