package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/forex-analyzer/internal/adapters/ai"
	"github.com/selivandex/forex-analyzer/internal/adapters/config"
	"github.com/selivandex/forex-analyzer/internal/adapters/database"
	"github.com/selivandex/forex-analyzer/internal/adapters/news"
	redisAdapter "github.com/selivandex/forex-analyzer/internal/adapters/redis"
	"github.com/selivandex/forex-analyzer/internal/adapters/storage"
	"github.com/selivandex/forex-analyzer/internal/api"
	"github.com/selivandex/forex-analyzer/internal/cache"
	"github.com/selivandex/forex-analyzer/internal/cost"
	"github.com/selivandex/forex-analyzer/internal/refresh"
	"github.com/selivandex/forex-analyzer/internal/settings"
	"github.com/selivandex/forex-analyzer/pkg/logger"
)

func main() {
	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	// Run application
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration and initialize logger
	cfg, err := initConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Forex analyzer starting...",
		zap.String("storage", cfg.Storage.Backend),
		zap.String("feed", cfg.Feed.URL),
	)

	kv, closeStorage, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer closeStorage()

	settingsStore, err := settings.Load(ctx, kv, cfg.Settings.Key, cfg.Settings.Defaults())
	if err != nil {
		return err
	}

	analyzer, err := ai.NewOpenAIAnalyzer(&cfg.AI)
	if err != nil {
		return fmt.Errorf("failed to create analyzer: %w", err)
	}

	coordinator := refresh.NewCoordinator(
		news.NewRSSFetcher(&cfg.Feed),
		analyzer,
		cache.NewStore(kv, cfg.Cache.Key, cfg.Cache.Freshness),
		settingsStore,
		cost.NewAccumulator(),
		refresh.Options{
			FeedRetries:    cfg.Feed.Retries,
			FeedRetryDelay: cfg.Feed.RetryDelay,
			StopTimeout:    cfg.HTTP.ShutdownTimeout,
		},
	)
	settingsStore.OnChange(coordinator.HandleSettingsChange)

	if !settingsStore.Get().HasAPIKey() {
		logger.Warn("⚠️ OpenAI API key not set - news will be shown without correlations until configured")
	}

	coordinator.Start(ctx)

	server := startServer(cfg, coordinator, settingsStore, kv)

	// Wait for shutdown signal
	<-ctx.Done()

	return performGracefulShutdown(cfg, server, coordinator)
}

// initConfig loads configuration and initializes logger
func initConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, nil
}

// initStorage opens the key-value backend holding settings and the analysis cache
func initStorage(cfg *config.Config) (storage.KV, func(), error) {
	switch cfg.Storage.Backend {
	case config.StorageMemory:
		logger.Warn("⚠️ in-memory storage, settings and cache are lost on restart")
		return storage.NewMemoryKV(), func() {}, nil

	case config.StorageFile:
		kv, err := storage.NewFileKV(cfg.Storage.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open storage dir: %w", err)
		}
		logger.Info("file storage ready", zap.String("dir", cfg.Storage.Dir))
		return kv, func() {}, nil

	case config.StorageRedis:
		client, err := redisAdapter.New(&cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return storage.NewRedisKV(client, ""), closer("redis", client.Close), nil

	case config.StoragePostgres:
		db, err := initDatabase(cfg)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewPostgresKV(db), closer("database", db.Close), nil
	}

	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

// initDatabase initializes database connection with sqlx
func initDatabase(cfg *config.Config) (*database.DB, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.RunMigrations(db.Conn()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func closer(name string, closeFn func() error) func() {
	return func() {
		logger.Info("closing " + name + " connection...")
		if err := closeFn(); err != nil {
			logger.Error(name+" close error", zap.Error(err))
		}
	}
}

// startServer starts dashboard server in background
func startServer(cfg *config.Config, coordinator *refresh.Coordinator, settingsStore *settings.Store, kv storage.KV) *api.Server {
	server := api.NewServer(cfg.HTTP.Port, coordinator, settingsStore, map[string]api.HealthCheck{
		"storage": kv.Health,
	})

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("dashboard server error", zap.Error(err))
		}
	}()

	logger.Info("📈 Forex analyzer ready",
		zap.String("port", cfg.HTTP.Port),
		zap.Duration("refresh_interval", settingsStore.Get().Interval()),
	)

	server.SetReady(true)

	return server
}

// performGracefulShutdown stops refresh first so no snapshot is published to closing streams
func performGracefulShutdown(cfg *config.Config, server *api.Server, coordinator *refresh.Coordinator) error {
	logger.Info("🛑 Shutdown signal received, starting graceful shutdown...")

	server.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout+5*time.Second)
	defer shutdownCancel()

	coordinator.Stop()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("dashboard server stop error", zap.Error(err))
	}

	select {
	case <-shutdownCtx.Done():
		logger.Warn("⚠️ shutdown timeout exceeded")
		return fmt.Errorf("graceful shutdown timeout")
	default:
		logger.Info("✅ shutdown completed successfully")
	}

	return nil
}
