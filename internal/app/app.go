// Package app wires the DriftDB components together and manages their
// lifecycle.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"

	httpapi "github.com/driftdb/driftdb/internal/api/http"
	"github.com/driftdb/driftdb/internal/config"
	"github.com/driftdb/driftdb/internal/server"
	"github.com/driftdb/driftdb/internal/snapshot"
	"github.com/driftdb/driftdb/internal/storage"
	"github.com/driftdb/driftdb/internal/table"
)

// App owns the engine, snapshot manager, and HTTP server.
type App struct {
	cfg *config.Config

	engine    *table.Engine
	snapshots *snapshot.Manager
	shutdown  *server.ShutdownManager
	httpSrv   *server.GracefulHTTPServer

	mu      sync.Mutex
	running bool
}

// New creates an App with the given configuration.
func New(cfg *config.Config) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	return &App{cfg: cfg}, nil
}

// Start opens the database, ensures the data table, and starts serving HTTP.
// It returns once the listener is running.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app is already running")
	}
	a.running = true
	a.mu.Unlock()

	a.shutdown = server.NewShutdownManager(0, 0)

	engine, err := table.NewEngine(a.cfg.DatabasePath())
	if err != nil {
		return err
	}
	a.engine = engine
	a.shutdown.RegisterCloser(engine)

	if err := engine.EnsureTable(ctx, a.cfg.Table); err != nil {
		return err
	}

	var archive storage.ArchiveStore
	if a.cfg.Snapshot.Upload {
		archive, err = storage.FromConfig(ctx, a.cfg.Storage)
		if err != nil {
			return err
		}
	}
	a.snapshots = snapshot.NewManager(engine, a.cfg.Snapshot.WorkDir, a.cfg.Table,
		a.cfg.Snapshot.ExportLimit, archive)

	api := httpapi.NewAPI(engine, a.snapshots, a.cfg.Table, a.cfg.DefaultActor)
	handler := server.ShutdownMiddleware(a.shutdown)(api.Routes())

	a.httpSrv = server.NewGracefulHTTPServer(&http.Server{
		Addr:         a.cfg.HTTP.Addr,
		Handler:      handler,
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}, a.shutdown)

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil {
			log.Printf("[ERROR] app: http server: %v", err)
		}
	}()

	log.Printf("app: serving table %q on %s (db %s)", a.cfg.Table, a.cfg.HTTP.Addr, a.cfg.DatabasePath())
	return nil
}

// Wait blocks until a termination signal arrives, then shuts down.
func (a *App) Wait(ctx context.Context) error {
	return a.shutdown.ListenForSignals(ctx)
}

// Stop shuts the application down.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return nil
	}
	a.running = false
	return a.shutdown.Shutdown(ctx)
}

// Engine exposes the table engine for tooling built on top of the app.
func (a *App) Engine() *table.Engine {
	return a.engine
}

// Snapshots exposes the snapshot manager.
func (a *App) Snapshots() *snapshot.Manager {
	return a.snapshots
}
