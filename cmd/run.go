package cmd

import (
	"context"
	"fmt"
	"time"

	"pc28/application"
	"pc28/config"
	"pc28/web"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)
	log.WithField("environment", cfg.Environment).Info("Starting pc28 draw service...")

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	stopSettings := a.settings.Start(ctx)
	defer stopSettings()

	watcher := application.NewWindowWatcher(a.window, a.eventPublisher, application.DefaultWindowWatchInterval)
	stopWatcher := watcher.Start(ctx)
	defer stopWatcher()

	server := web.NewServer(cfg.HTTPAddr, cfg.AdminToken, web.Dependencies{
		Window:   a.window,
		Sources:  a.acquisition,
		Draws:    a.draws,
		Syncer:   a.syncWorker,
		Settler:  a.settlement,
		Settings: a.settings,
		Records:  a.records,
	})
	if cfg.AdminToken == "" {
		log.Warn("ADMIN_TOKEN not set, admin routes are disabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.syncWorker.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := server.ListenAndServe(gctx); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	log.Info("pc28 draw service is running")
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("Shutdown completed")
	return nil
}
