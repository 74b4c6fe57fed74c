package app

import (
	"context"
	"fmt"
	"fxsync/internal/adapters"
	"fxsync/internal/domain"
	"fxsync/internal/platform/db"
	httpserver "fxsync/internal/platform/http"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fxsync/internal/adapters/cache"
	"fxsync/internal/adapters/httpclient"
	"fxsync/internal/adapters/memcached"
	"fxsync/internal/adapters/memory"
	"fxsync/internal/adapters/postgres"
	"fxsync/internal/adapters/ratecache"
	"fxsync/internal/api"
	"fxsync/internal/config"
	"fxsync/internal/metrics"
	"fxsync/internal/rate"
	"fxsync/internal/rate/handler"

	"github.com/sirupsen/logrus"
)

// Run wires the application components, starts the sync engine, HTTP server and scheduler
func Run() error {
	appCfg, err := config.Init()
	if err != nil {
		return err
	}
	// Logger
	logrus.SetOutput(os.Stdout)
	cfgLevel := appCfg.Logging.Level
	if parsedLvl, parseErr := logrus.ParseLevel(cfgLevel); parseErr != nil {
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetLevel(parsedLvl)
	}
	logrus.Info("✅ Config initialization successful")

	// Root context bound to OS signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bounded context for startup operations (store connect, migrations)
	startupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	store, closeStore, err := openStore(startupCtx, appCfg)
	if err != nil {
		logrus.WithError(err).WithField("driver", appCfg.Store.Driver).Error("Error opening store")
		return err
	}
	defer closeStore()
	logrus.WithField("driver", appCfg.Store.Driver).Info("✅ Store ready")

	kvCache, err := cache.NewKVCache(store, appCfg.Store.CacheItems)
	if err != nil {
		return fmt.Errorf("failed to create kv cache: %w", err)
	}
	defer kvCache.Close()

	// Base HTTP client (configurable timeout)
	httpTimeout := appCfg.HTTPClient.Timeout()
	if httpTimeout <= 0 {
		httpTimeout = 10 * time.Second
	}
	baseHTTPClient := &http.Client{Timeout: httpTimeout}

	// External client
	rateClient := httpclient.NewExchangeRateClient(
		baseHTTPClient,
		strings.TrimSuffix(appCfg.ExchangeRateAPI.BaseURL, "/"),
		appCfg.ExchangeRateAPI.AppID,
	)

	defaultCurrency, err := rate.ParseCode(appCfg.Sync.DefaultCurrency)
	if err != nil {
		return fmt.Errorf("invalid sync.default_currency: %w", err)
	}

	appMetrics := metrics.NewMetrics()
	engine := rate.NewEngine(
		ratecache.NewKVRateCache(kvCache),
		rateClient,
		rate.WithStalenessPolicy(rate.NewStalenessPolicy(appCfg.Sync.StaleAfter())),
		rate.WithFetchTimeout(appCfg.Sync.FetchTimeout()),
		rate.WithEventBuffer(appCfg.Sync.EventBuffer),
		rate.WithMetrics(appMetrics),
		rate.WithDefaultCurrency(defaultCurrency),
	)
	go consumeEvents(ctx, engine.Events())
	engine.Start(ctx)
	logrus.Info("✅ Sync engine started")

	scheduler := rate.NewScheduler(engine, appCfg.Scheduler.JobDuration())
	// Ensure scheduler stops before the store closes
	defer func() {
		if shutDownErr := scheduler.Shutdown(); shutDownErr != nil {
			logrus.Errorf("Scheduler shutdown error: %v", shutDownErr)
		}
	}()
	if startErr := scheduler.Start(ctx); startErr != nil {
		logrus.WithError(startErr).Error("Failed to start scheduler")
		return startErr
	}
	logrus.Info("✅ Scheduler activation successful")

	// Handlers and router
	rateHandler := handler.NewRateHandler(engine)
	router := api.NewRouter(rateHandler, appMetrics)

	logrus.Info("Starting http server")
	// Block until context is canceled, then perform graceful shutdown.
	if serverErr := httpserver.Start(ctx, appCfg.HTTPServer, router); serverErr != nil {
		// Cancel the root context to stop scheduler and other in-flight work
		stop()
		logrus.Errorf("HTTP server error: %v", serverErr)
		return serverErr
	}
	return nil
}

// openStore returns the durable key-value store selected by store.driver and a func releasing it.
func openStore(ctx context.Context, cfg *config.AppConfig) (adapters.KVStore, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := db.CreatePoolAndPing(ctx, cfg.DbServer)
		if err != nil {
			return nil, nil, fmt.Errorf("error connecting to db: %w", err)
		}
		if err = db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return postgres.NewKVRepository(pool), pool.Close, nil
	case config.DriverMemcached:
		store, err := memcached.NewKVStore(cfg.Memcached.Hosts, cfg.Memcached.Prefix)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case config.DriverMemory, "":
		return memory.NewKVStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// consumeEvents logs each error event of the engine once, until ctx is done.
func consumeEvents(ctx context.Context, events <-chan domain.ErrorEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			logrus.WithError(ev.Err).WithFields(logrus.Fields{
				"source": ev.Source,
				"kind":   ev.Kind,
				"at":     ev.At.Format(time.RFC3339),
			}).Warn("Currency sync error")
		}
	}
}
