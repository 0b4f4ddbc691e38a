// Package main implements the entry point for the companion API server,
// which manages user notes and runs AI note processing in background tasks.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"

	"github.com/companion-app/companion-api/internal/config"
	"github.com/companion-app/companion-api/internal/migrate"
	"github.com/companion-app/companion-api/internal/platform/logger"
)

// migrationsDir is the path to the goose migration files, relative to the
// project root.
const migrationsDir = "migrations"

func main() {
	migrateCmd := flag.String("migrate", "",
		"run a migration command instead of the server (up, down, status, version, reset, create)")
	migrationName := flag.String("migration-name", "",
		"name for a new migration, used with -migrate create")
	flag.Parse()

	if err := run(*migrateCmd, *migrationName); err != nil {
		log.Fatalf("companion-api: %v", err)
	}
}

// run loads configuration, sets up logging, and dispatches to either the
// migration runner or the HTTP server.
func run(migrateCmd, migrationName string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"ai_enabled", cfg.LLM.GeminiAPIKey != "")

	ctx := context.Background()

	if migrateCmd != "" {
		runner := migrate.NewRunner(migrationsDir, appLogger)
		return runner.Run(ctx, cfg.Database.URL, migrateCmd, migrationName)
	}

	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		// The application owns db cleanup only once construction succeeds.
		if closeErr := db.Close(); closeErr != nil {
			appLogger.Error("failed to close database", "error", closeErr)
		}
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}
