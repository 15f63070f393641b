package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/star/satview/internal/api"
	"github.com/star/satview/internal/auth"
	"github.com/star/satview/internal/config"
	"github.com/star/satview/internal/elements"
	"github.com/star/satview/internal/frame"
	"github.com/star/satview/internal/ingest"
	"github.com/star/satview/internal/instance"
	"github.com/star/satview/internal/propagation"
	"github.com/star/satview/internal/render"
	"github.com/star/satview/internal/tle"
)

func main() {
	configPath := flag.String("config", os.Getenv("SATVIEW_CONFIG"), "path to a TOML config file")
	headless := flag.Bool("headless", false, "drive frame passes without opening a window")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	boot := cfg.Log.NewLogger()
	cfg.ApplyEnv(boot)
	if *headless {
		cfg.Render.Headless = true
	}
	if err := cfg.Validate(); err != nil {
		boot.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := cfg.Log.NewLogger()

	if err := run(cfg, logger); err != nil {
		logger.Error("satview exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("satview stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := elements.NewStore(cfg.Pipeline.Capacity)
	fetcher := tle.NewFetcher(cfg.Ingest.SourceURL, logger, cfg.Ingest.ExtraURLs...).
		WithTimeout(cfg.Ingest.FetchTimeout)
	pool := propagation.NewWorkerPool(cfg.Pipeline.ParseWorkers, propagation.ParseSGP4, logger)
	scheduler := ingest.NewScheduler(fetcher, store, pool, ingest.Config{
		SourceName:    fetcher.SourceURL(),
		RefreshPeriod: cfg.Ingest.RefreshPeriod,
	}, logger)

	buffer := instance.New(cfg.Pipeline.Capacity)
	pipeline := frame.NewPipeline(store, buffer, frame.Config{BodyRadiusKm: cfg.Pipeline.BodyRadiusKm}, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		scheduler.Run(gctx)
		return nil
	})

	if cfg.HTTP.Addr != "" {
		srv := api.NewServer(cfg.HTTP.Addr, logger, api.Deps{
			Store:      store,
			Refresher:  scheduler,
			Frames:     pipeline,
			Auth:       auth.Config{Enabled: cfg.HTTP.AuthEnabled, Token: cfg.HTTP.AuthToken},
			TrustProxy: cfg.HTTP.TrustProxy,
		})
		g.Go(func() error {
			logger.Info("starting server", "addr", cfg.HTTP.Addr, "auth_enabled", cfg.HTTP.AuthEnabled)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.HTTPServer().Shutdown(shutdownCtx)
		})
	}

	if cfg.Render.Headless {
		g.Go(func() error {
			return render.RunHeadless(gctx, pipeline, cfg.Render.HeadlessFPS, logger)
		})
		return g.Wait()
	}

	// ebiten must own the main goroutine; closing the window stops the rest.
	renderErr := render.Run(gctx, pipeline, render.Options{
		Width:      cfg.Render.Width,
		Height:     cfg.Render.Height,
		TPS:        cfg.Render.TPS,
		MarkerSize: float32(cfg.Render.MarkerSize),
	}, logger)
	stop()
	return errors.Join(renderErr, g.Wait())
}
