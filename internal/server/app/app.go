// Package app wires the server together: config, storage, seeding, services
// and the HTTP listener with graceful shutdown.
package app

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/KreatechIT/mrs-sub000/internal/server/config"
	"github.com/KreatechIT/mrs-sub000/internal/server/httpapi"
	"github.com/KreatechIT/mrs-sub000/internal/server/repository/sqlite"
	"github.com/KreatechIT/mrs-sub000/internal/server/seed"
	"github.com/KreatechIT/mrs-sub000/internal/server/service"
)

type App struct {
	version   string
	buildDate string
	log       *zap.Logger
	server    *http.Server
	repo      *sqlite.Repository
}

func New(version, buildDate string, log *zap.Logger) (*App, error) {
	cfg := config.Load()
	repo, err := sqlite.New(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	services := service.NewServices(repo, cfg, log)
	if err := seed.Apply(context.Background(), repo, services, cfg.SeedFile, log); err != nil {
		repo.Close()
		return nil, err
	}
	router := httpapi.NewRouter(services, cfg, log)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return &App{version: version, buildDate: buildDate, log: log, server: server, repo: repo}, nil
}

func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer a.repo.Close()

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	a.log.Info("server listening",
		zap.String("version", a.version),
		zap.String("build_date", a.buildDate),
		zap.String("addr", a.server.Addr))

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.server.Shutdown(shutdownCtx)
}
