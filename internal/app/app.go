package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/beacon/internal/config"
	"github.com/MrSnakeDoc/beacon/internal/httpserver"
	"github.com/MrSnakeDoc/beacon/internal/httpserver/deps"
	"github.com/MrSnakeDoc/beacon/internal/logger"
	"github.com/MrSnakeDoc/beacon/internal/metrics"
	"github.com/MrSnakeDoc/beacon/internal/redis"
	"github.com/MrSnakeDoc/beacon/internal/registry"
	"github.com/MrSnakeDoc/beacon/internal/scheduler"
	"github.com/MrSnakeDoc/beacon/internal/sources/seed"
	"github.com/MrSnakeDoc/beacon/internal/store"
	"github.com/MrSnakeDoc/beacon/internal/store/cached"
	"github.com/MrSnakeDoc/beacon/internal/store/memory"
	"github.com/MrSnakeDoc/beacon/internal/store/redisstore"
	"github.com/MrSnakeDoc/beacon/internal/store/sqlstore"
	"github.com/MrSnakeDoc/beacon/internal/utils"
	"github.com/MrSnakeDoc/beacon/internal/version"
)

type App struct {
	cfg      *config.Config
	logger   logger.Logger
	server   *httpserver.Server
	store    store.Store
	registry *registry.Registry
	monitor  *scheduler.FreshnessMonitor
}

// New loads the configuration, opens the record store and wires the HTTP
// server. Misconfiguration panics inside config.Load.
func New(ctx context.Context) (*App, error) {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	metricsReg := metrics.NewRegistry()

	st, err := OpenStore(ctx, cfg, loggerClient, metricsReg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.StoreDriver, err)
	}

	reg := registry.New(st, loggerClient, registry.WithMetrics(metricsReg))

	monitor := scheduler.NewFreshnessMonitor(reg, metricsReg, loggerClient, cfg.SweepInterval)

	// Dependencies passed to routes.
	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		TimeNow:         time.Now,
		Registry:        reg,
		Metrics:         metricsReg,
		Sweeps:          monitor,
		StatusWidth:     cfg.StatusWidth,
		Location:        time.Local,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitBurst:  cfg.RateLimitBurst,
		RateLimitPerMin: cfg.RateLimitPerMin,
	}

	return &App{
		cfg:      cfg,
		logger:   loggerClient,
		server:   httpserver.New(cfg, loggerClient, d),
		store:    st,
		registry: reg,
		monitor:  monitor,
	}, nil
}

// OpenStore opens the record store selected by cfg.StoreDriver, wrapped in
// the read cache when cfg.CacheTTL > 0.
func OpenStore(ctx context.Context, cfg *config.Config, log logger.Logger, m *metrics.Registry) (store.Store, error) {
	var (
		st  store.Store
		err error
	)

	switch cfg.StoreDriver {
	case store.DriverMemory:
		log.Warn("using in-memory store, records are lost on restart")
		st = memory.New()
	case store.DriverSQLite:
		st, err = sqlstore.Open(store.DriverSQLite, cfg.SQLitePath, log)
	case store.DriverPostgres:
		st, err = sqlstore.Open(store.DriverPostgres, cfg.PostgresDSN, log)
	case store.DriverRedis:
		client, cerr := redis.Connect(ctx, redis.OptionsFromConfig(cfg), log)
		if cerr != nil {
			return nil, cerr
		}
		st = redisstore.NewStore(client)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheTTL > 0 {
		log.Info("read cache enabled", logger.Duration("ttl", cfg.CacheTTL))
		st = cached.New(st, cfg.CacheTTL, m)
	}
	return st, nil
}

// Seed registers the services of cfg.SeedFile, if any.
func (a *App) Seed(ctx context.Context) error {
	if a.cfg.SeedFile == "" {
		return nil
	}

	file, err := seed.NewLoader(a.cfg.SeedFile).Load()
	if err != nil {
		return err
	}
	res, err := seed.Apply(ctx, a.registry, file, a.logger)
	if err != nil {
		return err
	}

	a.logger.Info("seed file applied",
		logger.String("file", a.cfg.SeedFile),
		logger.Int("registered", res.Registered),
		logger.Int("existing", res.Existing))
	return nil
}

func (a *App) Run() error {
	defer utils.MustClose(a.store, a.logger, a.cfg.StoreDriver+" store")

	a.logger.Infof("🚀 Starting beacon %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String(), logger.String("store", a.cfg.StoreDriver))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Seed(ctx); err != nil {
		return fmt.Errorf("failed to seed services: %w", err)
	}

	if err := a.monitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start freshness monitor: %w", err)
	}
	a.logger.Info("freshness monitor started",
		logger.Duration("interval", a.cfg.SweepInterval))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.server.Start(); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("⏳ Shutting down gracefully...")
		a.monitor.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := a.server.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	a.logger.Info("✅ beacon stopped cleanly")
	return nil
}
