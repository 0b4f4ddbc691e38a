package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/companion-app/companion-api/internal/migrate"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [up|down|status|version|create NAME]",
		Short: "Run database migrations",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := args[0]

			var name string
			if command == "create" {
				if len(args) < 2 {
					return fmt.Errorf("migrate create requires a migration name")
				}
				name = args[1]
			} else if len(args) > 1 {
				return fmt.Errorf("unexpected argument %q for migrate %s", args[1], command)
			}

			dbURL := ctx.resolveDatabaseURL()
			if dbURL == "" {
				return fmt.Errorf("no database URL: set --database-url or $%s", databaseURLEnv)
			}

			runner := migrate.NewRunner(ctx.migrationsDir, ctx.logger())
			if err := runner.Run(cmd.Context(), dbURL, command, name); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "migrate %s completed\n",
				strings.TrimSpace(command+" "+name))
			return nil
		},
	}

	return cmd
}
