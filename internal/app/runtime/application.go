// Package runtime wires configuration, storage and the HTTP server into a
// runnable application.
package runtime

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	app "github.com/revendify/backoffice/internal/app"
	"github.com/revendify/backoffice/internal/app/httpapi"
	"github.com/revendify/backoffice/internal/app/services/stocksync"
	"github.com/revendify/backoffice/internal/app/storage/postgres"
	"github.com/revendify/backoffice/internal/config"
	"github.com/revendify/backoffice/pkg/logger"
)

// Application manages the process lifecycle: storage, services, the HTTP
// server and the scheduled stock resync.
type Application struct {
	cfg     *config.Config
	log     *logger.Logger
	app     *app.Application
	server  *http.Server
	sweeper *stocksync.Sweeper
	db      *sqlx.DB
}

// NewApplication constructs an application from the environment.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	})

	stores, db, err := buildStores(cfg)
	if err != nil {
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	application := app.New(stores, log)
	sweeper := stocksync.NewSweeper(application.StockSync, cfg.Stock.ResyncCron, log.WithField("component", "sweeper"))

	mux := httpapi.NewHandler(application, log.WithField("component", "httpapi"), httpapi.Options{
		RateLimitRPS:   cfg.RateLimit.RequestsPerSecond,
		RateLimitBurst: cfg.RateLimit.Burst,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Application{
		cfg:     cfg,
		log:     log,
		app:     application,
		server:  server,
		sweeper: sweeper,
		db:      db,
	}, nil
}

func buildStores(cfg *config.Config) (app.Stores, *sqlx.DB, error) {
	if cfg.Database.DSN == "" {
		// No DSN configured: run on the in-memory store.
		return app.Stores{}, nil, nil
	}

	db, err := postgres.Open(cfg.Database.DSN)
	if err != nil {
		return app.Stores{}, nil, err
	}
	if err := postgres.Migrate(db); err != nil {
		db.Close()
		return app.Stores{}, nil, err
	}

	store := postgres.New(db)
	return app.Stores{
		Users:      store,
		Wallets:    store,
		Commission: store,
		Products:   store,
		StockItems: store,
	}, db, nil
}

// Run starts the server and blocks until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.sweeper.Start(); err != nil {
		return fmt.Errorf("start stock sweeper: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	a.sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warnf("close database: %v", err)
		}
	}
	return nil
}
