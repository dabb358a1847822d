// Package app wires configuration, logging, the driver manager and the
// driver services into the application used by the wdb command.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/ZebulonRouseFrantzich/wdb/internal/binary"
	"github.com/ZebulonRouseFrantzich/wdb/internal/config"
	"github.com/ZebulonRouseFrantzich/wdb/internal/logging"
	"github.com/ZebulonRouseFrantzich/wdb/internal/manifest"
	"github.com/ZebulonRouseFrantzich/wdb/internal/objectstore"
	"github.com/ZebulonRouseFrantzich/wdb/internal/platform"
	"github.com/ZebulonRouseFrantzich/wdb/internal/registry"
	"github.com/ZebulonRouseFrantzich/wdb/internal/service"
)

// Options selects how the application is built.
type Options struct {
	// ConfigPath is an optional config file; environment variables still
	// apply on top of it.
	ConfigPath string
	// LogLevel overrides the configured level when set.
	LogLevel string
	// LogOutput receives log entries when no log file is configured.
	LogOutput io.Writer
	// ExportEnv also publishes driver paths into the process environment.
	ExportEnv bool

	// Detector and Probe replace the runtime implementations.
	Detector platform.Detector
	Probe    binary.BrowserProbe
}

// App represents the main application logic.
type App struct {
	config     *config.Config
	logger     *logrus.Logger
	properties *registry.Memory
	detector   platform.Detector

	setup *service.SetupService
	sync  *service.SyncService
	cache *service.CacheService
}

// New loads the configuration and builds the application.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	logOpts := cfg.Logging()
	logOpts.Output = opts.LogOutput
	logger, err := logging.New(logOpts)
	if err != nil {
		return nil, err
	}

	detector := opts.Detector
	if detector == nil {
		detector = platform.Cached(platform.NewDetector())
	}

	properties := registry.NewMemory()
	var store registry.Store = properties
	if opts.ExportEnv {
		store = registry.Multi{properties, registry.Env{}}
	}

	mcfg := binary.Config{
		CacheDir:    cfg.CacheDir,
		Detector:    detector,
		Registry:    store,
		Probe:       opts.Probe,
		Mirrors:     cfg.MirrorTable(),
		Proxy:       cfg.Proxy,
		HTTPTimeout: cfg.HTTPTimeout,
		UserAgent:   cfg.UserAgent,
		VersionTTL:  cfg.VersionTTL,
		Logger:      logger,
	}
	if objCfg := cfg.Objects(); objCfg.Enabled() {
		fetcher, err := objectstore.New(objCfg)
		if err != nil {
			return nil, err
		}
		mcfg.Objects = fetcher
	}

	manager, err := binary.NewManager(mcfg)
	if err != nil {
		return nil, fmt.Errorf("create driver manager: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"cache_dir": cfg.CacheDir,
		"mirrors":   len(mcfg.Mirrors),
	}).Debug("application initialized")

	return &App{
		config:     cfg,
		logger:     logger,
		properties: properties,
		detector:   detector,
		setup:      service.NewSetupService(manager, logger),
		sync:       service.NewSyncService(manifest.NewParser(detector), manager, service.RealClock{}, logger),
		cache:      service.NewCacheService(manager, logger),
	}, nil
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config {
	return a.config
}

// Setup sets up one driver.
func (a *App) Setup(ctx context.Context, req binary.Request) (*binary.SetupResult, error) {
	return a.setup.Setup(ctx, service.SetupRequest{Request: req})
}

// Sync sets up every driver of a manifest.
func (a *App) Sync(ctx context.Context, req service.SyncRequest) (*service.SyncResult, error) {
	return a.sync.Sync(ctx, req)
}

// ListCache lists cached drivers.
func (a *App) ListCache(ctx context.Context, req service.CacheListRequest) (*service.CacheListResult, error) {
	return a.cache.List(ctx, req)
}

// ClearCache removes one cached driver.
func (a *App) ClearCache(ctx context.Context, req service.CacheClearRequest) error {
	return a.cache.Clear(ctx, req)
}

// Platform returns the detected host platform.
func (a *App) Platform(ctx context.Context) (*platform.Info, error) {
	return a.detector.Detect(ctx)
}

// Properties returns the driver paths published so far.
func (a *App) Properties() map[string]string {
	return a.properties.Snapshot()
}
