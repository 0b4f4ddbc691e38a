package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// databaseURLEnv is consulted when --database-url is not given.
const databaseURLEnv = "COMPANION_DATABASE_URL"

// commandContext carries the flags shared across subcommands.
type commandContext struct {
	databaseURL   string
	migrationsDir string
	verbose       bool
}

// resolveDatabaseURL prefers the flag, falling back to the environment.
func (c *commandContext) resolveDatabaseURL() string {
	if c.databaseURL != "" {
		return c.databaseURL
	}
	return os.Getenv(databaseURLEnv)
}

// logger builds the CLI logger. Quiet by default so command output stays
// readable; --verbose turns on debug logging to stderr.
func (c *commandContext) logger() *slog.Logger {
	if !c.verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "companionctl",
		Short:         "Operations CLI for the companion API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.databaseURL, "database-url", "",
		"Postgres connection URL (defaults to $"+databaseURLEnv+")")
	rootCmd.PersistentFlags().StringVar(&ctx.migrationsDir, "migrations-dir", "migrations",
		"Directory containing goose migration files")
	rootCmd.PersistentFlags().BoolVarP(&ctx.verbose, "verbose", "v", false,
		"Enable debug logging")

	rootCmd.AddCommand(newInitCommand(ctx))
	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newResetDBCommand(ctx))
	rootCmd.AddCommand(newWaitCommand())

	return rootCmd
}
