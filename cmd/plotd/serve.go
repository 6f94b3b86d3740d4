package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/matthewbaird/plotconfig/internal/catalog"
	"github.com/matthewbaird/plotconfig/internal/config"
	"github.com/matthewbaird/plotconfig/internal/event"
	"github.com/matthewbaird/plotconfig/internal/eventbus"
	"github.com/matthewbaird/plotconfig/internal/options"
	"github.com/matthewbaird/plotconfig/internal/server"
	"github.com/matthewbaird/plotconfig/internal/session"
	"github.com/matthewbaird/plotconfig/internal/snapshot"
)

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the editor server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (default: layered plotd.yaml lookup)")
	return cmd
}

func serve(ctx context.Context, configPath string) error {
	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg, err := config.NewLoader(bootLogger).Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	slog.SetDefault(logger)

	client, closeCatalog, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCatalog()

	store, closeStore, err := openSnapshots(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	bus := eventbus.New(256, logger)
	bus.Subscribe("log", eventbus.NewLogConsumer(logger))
	bus.Subscribe("metrics", eventbus.NewMetricsConsumer())
	bus.Start(ctx)
	defer bus.Stop()

	recorder := event.NewStoreRecorder(store)
	recorder.SetPublisher(bus)

	cached := catalog.NewCached(client)
	sessions := session.NewManager(cfg.Session.MaxAge, cfg.Session.IdleTimeout, session.Options{
		Computer:        options.New(cached),
		Recorder:        recorder,
		DefaultAxisMode: cfg.Editor.DefaultAxisMode,
		DiscardStale:    cfg.DiscardStale(),
		Logger:          logger,
	})
	go sessions.Run(ctx, cfg.Session.CleanupInterval)

	logger.Info("plotd ready",
		slog.String("version", Version),
		slog.String("catalog_seed", cfg.Catalog.Seed),
		slog.Bool("sqlite_catalog", cfg.Catalog.DSN != ""),
		slog.Bool("sqlite_snapshots", cfg.Snapshot.DSN != ""))

	return server.Run(ctx, server.Config{
		Port:      cfg.Server.Port,
		Catalog:   cached,
		Sessions:  sessions,
		Snapshots: store,
		Logger:    logger,
	})
}

// openCatalog loads the seed file into memory, or into SQLite when a DSN is
// configured.
func openCatalog(ctx context.Context, cfg *config.Config) (catalog.Client, func(), error) {
	seed, err := catalog.LoadSeed(cfg.Catalog.Seed)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}
	if cfg.Catalog.DSN == "" {
		return seed.Memory(), func() {}, nil
	}

	db, err := openSQLite(cfg.Catalog.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog database: %w", err)
	}
	sc := catalog.NewSQLCatalog(db)
	if err := sc.CreateTables(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	if err := seed.Import(ctx, sc); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("import catalog seed: %w", err)
	}
	return sc, func() { db.Close() }, nil
}

func openSnapshots(ctx context.Context, cfg *config.Config) (snapshot.Store, func(), error) {
	if cfg.Snapshot.DSN == "" {
		return snapshot.NewMemoryStore(), func() {}, nil
	}
	db, err := openSQLite(cfg.Snapshot.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open snapshot database: %w", err)
	}
	s := snapshot.NewSQLStore(db)
	if err := s.CreateTable(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return s, func() { db.Close() }, nil
}

func openSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
