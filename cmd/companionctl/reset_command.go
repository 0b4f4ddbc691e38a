package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/companion-app/companion-api/internal/migrate"
)

// baselineMigrationVersion is the highest version shipped with the
// repository. Migrations created at runtime get timestamp versions far
// above it and are pruned by reset-db.
const baselineMigrationVersion = 3

func newResetDBCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset-db",
		Short: "Roll back all migrations and prune generated migration files",
		Long: `Rolls the database back to an empty schema (goose reset) and deletes
migration files created after the shipped baseline. This destroys all
data; it refuses to run without --yes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("reset-db destroys all data; re-run with --yes to confirm")
			}

			dbURL := ctx.resolveDatabaseURL()
			if dbURL == "" {
				return fmt.Errorf("no database URL: set --database-url or $%s", databaseURLEnv)
			}

			runner := migrate.NewRunner(ctx.migrationsDir, ctx.logger())
			if err := runner.Run(cmd.Context(), dbURL, "reset", ""); err != nil {
				return err
			}

			pruned, err := pruneGeneratedMigrations(ctx.migrationsDir)
			if err != nil {
				return fmt.Errorf("schema reset but pruning failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "database reset; %d generated migration(s) removed\n", len(pruned))
			for _, f := range pruned {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", f)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the destructive reset")

	return cmd
}

// pruneGeneratedMigrations deletes migration files whose version is above
// the shipped baseline. Returns the names of the removed files.
func pruneGeneratedMigrations(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory %s: %w", dir, err)
	}

	var pruned []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, ok := migrationVersion(entry.Name())
		if !ok || version <= baselineMigrationVersion {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			return pruned, fmt.Errorf("failed to remove %s: %w", path, err)
		}
		pruned = append(pruned, entry.Name())
	}
	return pruned, nil
}

// migrationVersion parses the numeric version prefix of a goose migration
// file name, e.g. "00002_create_notes.sql" or "20260831120000_add_x.sql".
func migrationVersion(name string) (int64, bool) {
	prefix, _, found := strings.Cut(name, "_")
	if !found {
		return 0, false
	}
	version, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, false
	}
	return version, true
}
