// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matthewbaird/plotconfig/internal/catalog"
	"github.com/matthewbaird/plotconfig/internal/handler"
	"github.com/matthewbaird/plotconfig/internal/session"
	"github.com/matthewbaird/plotconfig/internal/snapshot"
	"github.com/matthewbaird/plotconfig/internal/wire"
)

// Config holds server configuration.
type Config struct {
	Port      int
	Catalog   catalog.Client
	Sessions  *session.Manager
	Snapshots snapshot.Store
	Logger    *slog.Logger
}

// NewRouter registers every route.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(handler.Logging(logger))
	r.Use(middleware.Recoverer)

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	ch := handler.NewCatalogHandler(cfg.Catalog)
	r.Route("/api/catalog", func(r chi.Router) {
		r.Get("/items", ch.ListItems)
		r.Get("/identifiers", ch.ListIdentifiers)
	})

	eh := handler.NewEditorHandler(cfg.Sessions)
	ws := wire.NewHandler(cfg.Sessions, cfg.Catalog, logger)
	r.Route("/api/editor", func(r chi.Router) {
		r.Get("/ws", ws.ServeHTTP)
		r.Post("/session", eh.CreateSession)
		r.Get("/session/{id}", eh.GetSession)
		r.Delete("/session/{id}", eh.DeleteSession)
		r.Post("/validate", eh.Validate)
	})

	if cfg.Snapshots != nil {
		sh := handler.NewSnapshotHandler(cfg.Snapshots)
		r.Route("/api/snapshots", func(r chi.Router) {
			r.Get("/", sh.List)
			r.Get("/{id}", sh.Get)
		})
	}
	return r
}

// Run starts the HTTP server and shuts it down when ctx is done.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
