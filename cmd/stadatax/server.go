package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httphandler "github.com/ericfisherdev/stadatax/internal/adapter/driving/http"
	"github.com/ericfisherdev/stadatax/internal/application"
)

// server runs the HTTP API and the background cache refresher.
type server struct {
	addr      string
	stats     *application.StatisticsService
	exporter  *application.Exporter
	downloads *application.DownloadService
	refresher *application.CacheRefresher
	registry  *prometheus.Registry
}

func (s *server) Run(ctx context.Context) error {
	go s.refresher.Start(ctx)

	apiHandler := httphandler.NewHandler(s.stats, s.exporter, s.downloads, s.refresher, slog.Default())
	mux := httphandler.NewServeMux(apiHandler, slog.Default(), httphandler.MuxOptions{
		Metrics:    promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}),
		Registerer: s.registry,
	})

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
