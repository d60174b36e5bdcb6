package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/selivandex/forex-analyzer/internal/adapters/config"
	"github.com/selivandex/forex-analyzer/internal/adapters/database"
	"github.com/selivandex/forex-analyzer/pkg/logger"
)

func main() {
	var (
		direction = flag.String("direction", "up", "Migration direction (up/down/version)")
		dsn       = flag.String("dsn", "", "PostgreSQL DSN, defaults to DB_* environment")
	)
	flag.Parse()

	if err := logger.Init("info", ""); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(*direction, *dsn); err != nil {
		logger.Error("migration failed", zap.String("direction", *direction), zap.Error(err))
		os.Exit(1)
	}
}

func run(direction, dsn string) error {
	db, err := connect(dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	switch direction {
	case "up":
		return database.RunMigrations(db.Conn())
	case "down":
		return database.RollbackMigration(db.Conn())
	case "version":
		version, dirty, err := database.GetMigrationVersion(db.Conn())
		if err != nil {
			return err
		}
		logger.Info("current migration version",
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
		)
		return nil
	default:
		return fmt.Errorf("unknown direction %q", direction)
	}
}

func connect(dsn string) (*database.DB, error) {
	if dsn != "" {
		return database.NewFromDSN(dsn)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return database.New(&cfg.Database)
}
