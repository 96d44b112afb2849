package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"focusgate/internal/focus/common/clock"
	"focusgate/internal/focus/common/log"
	"focusgate/internal/focus/config"
	"focusgate/internal/focus/gateways/msgbus"
	"focusgate/internal/focus/gateways/tabs"
	"focusgate/internal/focus/repos/matchcache"
	"focusgate/internal/focus/repos/settings"
	settingsbolt "focusgate/internal/focus/repos/settings/bolt"
	"focusgate/internal/focus/repos/usagelog"
	"focusgate/internal/focus/services/guard"
	"focusgate/internal/focus/services/tracker"
)

const (
	version = "0.1.0-dev"
	appName = "focusgated"
)

// Application holds all the components of the focus daemon.
type Application struct {
	config    *config.AppConfig
	transport *msgbus.UnixTransport
	guard     *guard.Guard
	tracker   *tracker.Tracker
	settings  *settings.Repo
	usage     *usagelog.Store
}

// service adapts the guard and the tracker into the single command
// surface the message transport dispatches to.
type service struct {
	*guard.Guard
	tracker *tracker.Tracker
}

func (s *service) SetActiveURL(url string) { s.tracker.SetActiveURL(url) }
func (s *service) Idle()                   { s.tracker.Idle() }

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	err = log.Configure(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":    version,
		"env":        cfg.Env,
		"log_level":  cfg.LogLevel,
		"socket":     cfg.Socket,
		"db_path":    cfg.DBPath,
		"block_page": cfg.BlockPage,
	}, "Starting focusgate daemon")

	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err}, "Daemon failed")
	}

	log.Info(nil, "focusgate daemon stopped gracefully")
}

// buildApplication constructs all components and wires them together.
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	clk := clock.RealClock{}
	logger := log.GetLogger()

	// settings snapshot repository over bbolt
	store, err := settingsbolt.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store: %w", err)
	}
	settingsRepo := settings.NewRepo(store, logger)

	// per-URL decision cache
	cacheSize := cfg.CacheSize
	if cacheSize > uint(^uint(0)>>1) {
		return nil, fmt.Errorf("cache size too large: %d", cacheSize)
	}
	cache, err := matchcache.New(int(cacheSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create decision cache: %w", err)
	}

	guardService := guard.New(guard.Options{
		Settings:  settingsRepo,
		Tabs:      tabs.NewMemory(),
		Cache:     cache,
		Clock:     clk,
		Logger:    logger,
		BlockPage: cfg.BlockPage,
	})

	// per-site usage tracking
	usageStore, err := usagelog.New(cfg.UsageDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage store: %w", err)
	}
	trackerService := tracker.New(tracker.Options{
		Usage:  usageStore,
		Breaks: guardService,
		Clock:  clk,
		Logger: logger,
	})

	transport := msgbus.NewUnixTransport(cfg.Socket, logger)

	return &Application{
		config:    cfg,
		transport: transport,
		guard:     guardService,
		tracker:   trackerService,
		settings:  settingsRepo,
		usage:     usageStore,
	}, nil
}

// Run starts the daemon and blocks until the context is cancelled.
func (app *Application) Run(ctx context.Context) error {
	if err := app.guard.Load(ctx); err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	svc := &service{Guard: app.guard, tracker: app.tracker}
	if err := app.transport.Start(ctx, svc); err != nil {
		return fmt.Errorf("failed to start message transport: %w", err)
	}

	log.Info(map[string]any{
		"socket": app.transport.Address(),
		"tick_s": app.config.TickSeconds,
	}, "focusgate daemon started")

	// The periodic tick is the sole driver of time-based transitions.
	ticker := time.NewTicker(time.Duration(app.config.TickSeconds) * time.Second)
	defer ticker.Stop()

	app.guard.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return app.shutdown()
		case <-ticker.C:
			app.guard.Tick(ctx)
		}
	}
}

func (app *Application) shutdown() error {
	log.Info(nil, "Shutdown initiated")

	if err := app.transport.Stop(); err != nil {
		log.Warn(map[string]any{"error": err}, "Error during transport shutdown")
	}
	app.tracker.Stop()

	if err := app.usage.Close(); err != nil {
		log.Warn(map[string]any{"error": err}, "Error closing usage store")
	}
	if err := app.settings.Close(); err != nil {
		log.Warn(map[string]any{"error": err}, "Error closing settings store")
	}

	log.Info(nil, "Graceful shutdown completed")
	return nil
}
