package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/procurekit/bidding/internal/adapters/http/api"
	"github.com/procurekit/bidding/internal/adapters/notify"
	"github.com/procurekit/bidding/internal/adapters/repository"
	app "github.com/procurekit/bidding/internal/app"
	"github.com/procurekit/bidding/internal/config"
	"github.com/procurekit/bidding/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	opts := []app.Option{
		app.WithLogger(loggerInstance),
		app.WithOperationTimeout(cfg.OperationTimeout()),
		app.WithSubscriberQueueSize(cfg.SubscriberQueueSize),
	}

	// Durable store when a DSN is configured, in-memory otherwise.
	if cfg.PostgresDSN != "" {
		if err := runDBMigration(cfg.MigrationsURL, cfg.PostgresDSN); err != nil {
			os.Stderr.WriteString("failed to migrate database: " + err.Error() + "\n")
			return
		}
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			os.Stderr.WriteString("failed to connect to postgres: " + err.Error() + "\n")
			return
		}
		defer pool.Close()
		opts = append(opts, app.WithStore(repository.NewPGStore(pool)))
		loggerInstance.Info(ctx, "using postgres store")
	}

	// Bridge signals across instances when Redis is configured.
	localBus := notify.NewInMemoryBus(notify.WithSubscriberQueueSize(cfg.SubscriberQueueSize))
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close() //nolint:errcheck // shutdown path

		bridge := notify.NewRedisBridge(localBus, client, cfg.RedisChannel)
		bridge.Start(ctx)
		defer bridge.Close() //nolint:errcheck // shutdown path

		opts = append(opts, app.WithBus(bridge))
		loggerInstance.Info(ctx, "redis signal bridge enabled", logger.String("channel", cfg.RedisChannel))
	} else {
		opts = append(opts, app.WithBus(localBus))
	}

	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// runDBMigration applies pending schema migrations before the pool opens.
func runDBMigration(migrationsURL, dsn string) error {
	migration, err := migrate.New(migrationsURL, dsn)
	if err != nil {
		return err
	}
	if err := migration.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	srcErr, dbErr := migration.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}

// startServiceMetricsUpdater refreshes gauge metrics from service stats on a
// fixed interval. GetStats itself pushes the values into the registry.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.GetStats()
		}
	}
}
