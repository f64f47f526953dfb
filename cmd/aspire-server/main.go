// Command aspire-server serves the scene, editor, catalog and simulation API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dd0wney/aspire-acoustics/pkg/api"
	"github.com/dd0wney/aspire-acoustics/pkg/api/middleware"
	"github.com/dd0wney/aspire-acoustics/pkg/catalog"
	"github.com/dd0wney/aspire-acoustics/pkg/config"
	"github.com/dd0wney/aspire-acoustics/pkg/graphql"
	"github.com/dd0wney/aspire-acoustics/pkg/health"
	"github.com/dd0wney/aspire-acoustics/pkg/logging"
	"github.com/dd0wney/aspire-acoustics/pkg/metrics"
	"github.com/dd0wney/aspire-acoustics/pkg/pgdb"
	"github.com/dd0wney/aspire-acoustics/pkg/pubsub"
	"github.com/dd0wney/aspire-acoustics/pkg/scene"
	"github.com/dd0wney/aspire-acoustics/pkg/server"
	"github.com/dd0wney/aspire-acoustics/pkg/simulation"
)

func main() {
	configPath := flag.String("config", os.Getenv("ASPIRE_CONFIG"), "YAML config file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	engineURL := flag.String("engine", "", "simulation engine URL (overrides config)")
	corsOrigins := flag.String("cors", "", "comma-separated allowed CORS origins")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *engineURL != "" {
		cfg.Engine.URL = *engineURL
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel())
	logging.SetDefaultLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *corsOrigins, logger); err != nil {
		logger.Error("server exited", logging.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, corsOrigins string, logger logging.Logger) error {
	logger.Info("aspire server starting",
		logging.String("version", api.Version),
		logging.String("store", cfg.Store.Driver),
		logging.String("engine_url", cfg.Engine.URL))

	reg := metrics.DefaultRegistry()
	bus := pubsub.NewBus()

	store, cat, pool, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}
	observed := scene.Observe(store, reg)

	engine := simulation.NewClient(simulation.ClientConfig{
		BaseURL: cfg.Engine.URL,
		Timeout: cfg.Engine.Timeout,
		Logger:  logger,
	})
	runner := simulation.NewRunner(simulation.RunnerConfig{
		Engine:      engine,
		Transformer: cfg.Transformer(),
		Logger:      logger,
		Publisher:   bus,
		Observer:    reg,
		Recorder:    observed,
	})

	hc := health.NewHealthChecker()
	hc.RegisterLivenessCheck("process", health.SimpleCheck("process"))
	hc.RegisterCheck("memory", health.MemoryCheck(nil))
	hc.RegisterReadinessCheck("store", health.StoreCheck(observed.Ping))
	hc.RegisterReadinessCheck("engine", health.EngineCheck(engine, reg.SetEngineUp))
	hc.RegisterCheck("engine", health.EngineCheck(engine, reg.SetEngineUp))

	var archiver *scene.Archiver
	if cfg.Archive.Enabled() {
		client, err := scene.NewS3Client(ctx, cfg.Archive)
		if err != nil {
			return err
		}
		archiver = scene.NewArchiver(client, cfg.Archive.Bucket, cfg.Archive.Prefix, logger)
		logger.Info("scene archive enabled", logging.String("bucket", cfg.Archive.Bucket))
	}

	schema, err := graphql.NewSchema(graphql.Config{Store: observed, Catalog: cat})
	if err != nil {
		return err
	}

	var cors *middleware.CORSConfig
	if corsOrigins != "" {
		c := middleware.DefaultCORSConfig()
		c.AllowedOrigins = splitList(corsOrigins)
		cors = c
	}

	srv, err := api.NewServer(api.Config{
		Store:       observed,
		Catalog:     cat,
		Runner:      runner,
		Bus:         bus,
		Metrics:     reg,
		Health:      hc,
		Archiver:    archiver,
		GraphQL:     graphql.NewHandler(schema, 0, logger),
		Logger:      logger,
		Placement:   cfg.Placement(),
		Bands:       cfg.Simulation.Bands,
		DefaultType: cfg.SimulationType(),
		CORS:        cors,
	})
	if err != nil {
		return err
	}

	gs := server.NewGracefulServer(cfg.Addr(), srv.Handler(), server.Options{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Logger:          logger,
	})
	gs.OnShutdown(func(context.Context) error {
		bus.Shutdown()
		return nil
	})
	gs.OnShutdown(func(context.Context) error { return observed.Close() })
	return gs.Run(ctx)
}

// openStores returns the scene store and catalog for the configured driver.
// The pool is nil for the memory driver.
func openStores(ctx context.Context, cfg config.Config, logger logging.Logger) (scene.Store, catalog.Catalog, *pgxpool.Pool, error) {
	seeded, err := catalog.NewSeeded()
	if err != nil {
		return nil, nil, nil, err
	}

	if cfg.Store.Driver == config.StoreMemory {
		store, err := scene.NewMemoryStore(scene.MemoryOptions{
			Dir:      cfg.Store.DataDir,
			RunLimit: cfg.Store.RunHistory,
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("memory scene store ready", logging.String("data_dir", cfg.Store.DataDir), logging.Count(store.Len()))
		return store, seeded, nil, nil
	}

	pool, err := pgdb.Open(ctx, cfg.Store.DatabaseURL, pgdb.PoolOptions{MaxConns: cfg.Store.MaxConns})
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := scene.NewPGStore(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	cat, err := catalog.NewPGCatalog(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	if err := cat.Seed(ctx, seeded); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	logger.Info("postgres scene store ready")
	return store, cat, pool, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
