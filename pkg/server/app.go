package server

import (
	"context"
	"errors"
	"time"

	drepo "ScreenerView/internal/domain/repository"
	"ScreenerView/internal/usecase"
	"ScreenerView/pkg/config"
	xhttp "ScreenerView/pkg/http"
	applogger "ScreenerView/pkg/logger"
)

// App encapsulates the application lifecycle: the HTTP shell, the initial
// load and the optional periodic reload.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	screener   *usecase.Screener
	source     drepo.Source
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, scr *usecase.Screener, src drepo.Source, srv *xhttp.Server) *App {
	return &App{cfg: cfg, log: l, screener: scr, source: src, httpServer: srv}
}

// Run starts the HTTP server, loads the dataset in the background and blocks
// until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.loadLoop(ctx)
	}()

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	err := a.shutdown()
	<-done
	return err
}

func (a *App) loadLoop(ctx context.Context) {
	a.load(ctx)

	interval := a.cfg.Source.ReloadInterval
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.load(ctx)
		}
	}
}

// load runs one load bounded by source.timeout. Failures are already
// reported through the screener status.
func (a *App) load(ctx context.Context) {
	if a.cfg.Source.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Source.Timeout)
		defer cancel()
	}
	if _, err := a.screener.Load(ctx, a.source); err != nil && !errors.Is(err, context.Canceled) {
		a.log.Warn("load attempt failed", applogger.String("source", a.source.Name()), applogger.Error(err))
	}
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		return err
	}
	a.log.Info("shutdown complete")
	return nil
}
