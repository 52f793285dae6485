package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oakfit/coursecast/internal/api"
	"github.com/oakfit/coursecast/internal/cache"
	"github.com/oakfit/coursecast/internal/catalog"
	"github.com/oakfit/coursecast/internal/config"
	"github.com/oakfit/coursecast/internal/drip"
	cclog "github.com/oakfit/coursecast/internal/log"
	"github.com/oakfit/coursecast/internal/playback"
	"github.com/oakfit/coursecast/internal/progress"
	"github.com/oakfit/coursecast/internal/telemetry"
	"github.com/oakfit/coursecast/internal/viewer"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration with precedence: ENV > File > Defaults
	loader := config.NewLoader(*configPath, version)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	cclog.Configure(cclog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: version,
	})
	logger := cclog.WithComponent("daemon")

	if *configPath != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file").
			Str("path", *configPath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.invalid").
			Msg("configuration is invalid")
	}

	// Tracing
	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: version,
		Environment:    cfg.Telemetry.Environment,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "telemetry.init_failed").
			Msg("failed to initialize tracing")
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shCtx); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	// Read cache: Redis when configured, in-memory otherwise.
	var store cache.Cache
	if cfg.Redis.Addr != "" {
		store, err = cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cclog.WithComponent("cache"))
		if err != nil {
			logger.Warn().
				Err(err).
				Str("addr", cfg.Redis.Addr).
				Msg("redis unavailable, falling back to in-memory cache")
			store = cache.NewMemoryCache(time.Minute)
		}
	} else {
		store = cache.NewMemoryCache(time.Minute)
	}

	catalogClient, err := catalog.NewClient(catalog.ClientConfig{
		BaseURL:   cfg.DataStore.BaseURL,
		Timeout:   cfg.DataStore.Timeout,
		RateLimit: cfg.DataStore.RateLimit,
		RateBurst: cfg.DataStore.RateBurst,
		CacheTTL:  cfg.CourseCacheTTL,
	}, store)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "datastore.client_failed").
			Msg("failed to build data store client")
	}

	journal, err := progress.OpenJournal(cfg.JournalPath)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "journal.open_failed").
			Str("path", cfg.JournalPath).
			Msg("failed to open completion journal")
	}
	defer func() {
		if err := journal.Close(); err != nil {
			logger.Warn().Err(err).Msg("journal close failed")
		}
	}()

	viewerCfg := viewer.Config{
		Store:   catalogClient,
		Journal: journal,
		Clock:   drip.SystemClock{},
		Engines: playback.CapabilityFactory{
			Caps: playback.Capabilities{
				Native:   cfg.Playback.NativeSupported,
				Software: cfg.Playback.SoftwareSupported,
			},
		},
		StreamHost:        cfg.StreamHost,
		TeaserRef:         cfg.TeaserRef,
		TeaserWait:        cfg.TeaserFallback,
		LoadTimeout:       cfg.ViewerLoadTimeout,
		ReconcileInterval: cfg.ReconcileInterval,
	}

	registry := viewer.NewRegistry(drip.SystemClock{})
	server := api.New(cfg, viewerCfg, registry)

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.ListenAddr).
		Str("stream_host", cfg.StreamHost).
		Msg("starting coursecast")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		registry.RunSweeper(gctx, cfg.SweepInterval, cfg.SessionIdleTTL)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "shutdown.error").
			Msg("daemon exited with error")
	}
	logger.Info().Str("event", "shutdown").Msg("coursecast stopped")
}
