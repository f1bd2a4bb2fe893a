// Command migrate applies the schema for the configured backend without
// starting the server.
package main

import (
	"context"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LiftThanakorn/income-expense-tracker/internal/cli"
	"github.com/LiftThanakorn/income-expense-tracker/internal/log"
	"github.com/LiftThanakorn/income-expense-tracker/internal/storage"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentStorage)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch cfg.DataBackend {
	case "sqlite":
		if err := storage.RunMigrations(cfg.SQLiteDBPath); err != nil {
			logger.Error("SQLite migration failed", log.FieldError, err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("Failed to connect to Postgres", log.FieldError, err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := storage.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Error("Postgres migration failed", log.FieldError, err)
			os.Exit(1)
		}
	default:
		logger.Info("Nothing to migrate", "backend", cfg.DataBackend)
		return
	}
	logger.Info("Migrations applied", "backend", cfg.DataBackend)
}
