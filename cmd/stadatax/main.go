package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/stadatax/internal/adapter/driven/bps"
	"github.com/ericfisherdev/stadatax/internal/adapter/driven/filecache"
	"github.com/ericfisherdev/stadatax/internal/adapter/driven/localfs"
	"github.com/ericfisherdev/stadatax/internal/adapter/driven/s3sink"
	sqliteadapter "github.com/ericfisherdev/stadatax/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/stadatax/internal/adapter/driving/cli"
	"github.com/ericfisherdev/stadatax/internal/application"
	"github.com/ericfisherdev/stadatax/internal/config"
	"github.com/ericfisherdev/stadatax/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, cli.Describe(err))
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	slog.Debug("config loaded",
		"home", cfg.Home,
		"db_path", cfg.DBPath,
		"cache_path", cfg.CachePath,
		"token_from_env", cfg.HasToken(),
		"s3_enabled", cfg.S3.Enabled,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the configuration database and apply migrations.
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}

	// 4. Wire storage adapters.
	credentialStore, err := sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)
	if err != nil {
		return err
	}
	if cfg.SecretKey == nil {
		slog.Debug("STADATAX_SECRET_KEY not set, token storage disabled")
	}
	settingsStore := sqliteadapter.NewSettingsRepo(db)
	domainCache := filecache.New(cfg.CachePath, filecache.DefaultTTL)

	var objectSink driven.ExportSink
	if cfg.S3.Enabled {
		sink, err := s3sink.New(ctx, s3sink.Config{
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			return err
		}
		objectSink = sink
	}

	// 5. Provider client factory and hot-swappable holder. Stored token wins
	// over STADATAX_TOKEN.
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := bps.NewMetrics(registry)

	factory := func(token string) driven.StatisticsProvider {
		return bps.NewClient(token, bps.Options{
			BaseURL:   cfg.BaseURL,
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			Metrics:   metrics,
		})
	}

	holder := application.NewProviderHolder(nil)
	credentials := application.NewCredentialService(credentialStore, holder, factory, cfg.Token)
	credentials.Init(ctx)

	// 6. Application services.
	invoker := application.NewInvoker(holder,
		application.WithRetryHook(func(op string, _ int, _ time.Duration) {
			metrics.ObserveRetry(op)
		}),
	)
	stats := application.NewStatisticsService(invoker, domainCache)
	exporter := application.NewExporter(localfs.New(), objectSink)
	downloads := application.NewDownloadService(stats, exporter, settingsStore, cfg.DownloadDir)
	refresher := application.NewCacheRefresher(stats, domainCache, cfg.RefreshInterval)

	app := &cli.App{
		Stats:       stats,
		Downloads:   downloads,
		Exporter:    exporter,
		Credentials: credentials,
		Settings:    settingsStore,
		Cache:       domainCache,
		Server: &server{
			addr:      cfg.ListenAddr,
			stats:     stats,
			exporter:  exporter,
			downloads: downloads,
			refresher: refresher,
			registry:  registry,
		},
	}

	return cli.NewRootCommand(app).ExecuteContext(ctx)
}
