package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/defeedco/wanderlens/pkg/api"
	"github.com/defeedco/wanderlens/pkg/api/auth"
	"github.com/defeedco/wanderlens/pkg/api/mcp"
	"github.com/defeedco/wanderlens/pkg/config"
	"github.com/defeedco/wanderlens/pkg/lib"
	"github.com/defeedco/wanderlens/pkg/lib/log"
	"github.com/defeedco/wanderlens/pkg/location"
	"github.com/defeedco/wanderlens/pkg/notify"
	"github.com/defeedco/wanderlens/pkg/photos"
	"github.com/defeedco/wanderlens/pkg/photos/flickr"
	"github.com/defeedco/wanderlens/pkg/tracking"
)

const cachePurgePeriod = 5 * time.Minute

func main() {
	err := run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := log.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := initApp(logger, cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}

	return app.run(ctx)
}

type app struct {
	server      *api.Server
	tracker     *tracking.Tracker
	coordinator *tracking.Coordinator
	notifier    *notify.Notifier
	monitor     *tracking.Monitor
	searchCache *lib.Cache
	config      *config.Config
	logger      *zerolog.Logger
}

func initApp(logger *zerolog.Logger, cfg *config.Config) (*app, error) {
	flickrClient := flickr.NewDefaultClient(&cfg.Flickr, logger)

	var searcher photos.Searcher = flickrClient
	var searchCache *lib.Cache
	if cfg.Flickr.CacheTTL > 0 {
		searchCache = lib.NewCache(cfg.Flickr.CacheTTL, logger)
		searcher = photos.NewCachedSearcher(flickrClient, searchCache, logger)
	}

	notifier := notify.NewNotifier(logger)
	monitor := tracking.NewMonitor(logger, cfg.Tracking.MonitorPeriod)
	coordinator := tracking.NewCoordinator(
		logger,
		searcher,
		notifier,
		&cfg.Tracking,
		tracking.WithMonitor(monitor),
		tracking.WithURLBuilder(flickrClient.ImageURL),
	)

	provider, pusher, err := initLocationProvider(logger, &cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("initialize location provider: %w", err)
	}

	tracker := tracking.NewTracker(logger, provider, coordinator)

	keyProvider, err := auth.NewKeyAuthProviderFromConfig(&cfg.Auth, logger)
	if err != nil {
		return nil, fmt.Errorf("create key auth provider: %w", err)
	}

	var authMiddleware *auth.RouteAuthMiddleware
	if keyProvider.Enabled() {
		authMiddleware = auth.NewRouteAuthMiddleware(&auth.AuthConfig{
			Provider: keyProvider,
			Required: true,
		})
	} else {
		logger.Warn().Msg("No API keys configured, authentication disabled")
		authMiddleware = auth.NewRouteAuthMiddleware(nil)
	}

	mcpHandler := mcp.NewHandler(tracker, logger)

	server, err := api.NewServer(logger, &cfg.API, authMiddleware, tracker, notifier, pusher, monitor, mcpHandler)
	if err != nil {
		return nil, fmt.Errorf("create server: %w", err)
	}

	return &app{
		server:      server,
		tracker:     tracker,
		coordinator: coordinator,
		notifier:    notifier,
		monitor:     monitor,
		searchCache: searchCache,
		config:      cfg,
		logger:      logger,
	}, nil
}

// initLocationProvider returns a nil pusher unless fixes are pushed over the API.
func initLocationProvider(logger *zerolog.Logger, cfg *location.Config) (location.Provider, api.LocationPusher, error) {
	switch cfg.Source {
	case location.SourceReplay:
		track, err := location.LoadTrack(cfg.TrackFile)
		if err != nil {
			return nil, nil, fmt.Errorf("load track: %w", err)
		}
		return location.NewReplay(track, cfg.ReplayInterval, logger), nil, nil
	default:
		push := location.NewPush(cfg.PushBuffer)
		return push, push, nil
	}
}

func (a *app) run(ctx context.Context) error {
	a.monitor.Start()
	defer a.monitor.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.server.Start(); err != nil {
			return fmt.Errorf("start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info().Msg("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.API.ShutdownTimeout)
		defer cancel()

		err := a.server.Shutdown(shutdownCtx)
		a.tracker.Stop()
		a.coordinator.Close()
		a.notifier.Close()
		if err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	})

	if a.searchCache != nil {
		g.Go(func() error {
			ticker := lib.JitterTicker(cachePurgePeriod)
			defer ticker.Stop()

			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					removed := a.searchCache.Purge()
					a.logger.Debug().Int("removed", removed).Msg("Purged search cache")
				}
			}
		})
	}

	return g.Wait()
}
