package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/companion-app/companion-api/internal/scaffold"
)

func newInitCommand(ctx *commandContext) *cobra.Command {
	var settingsPath string
	var targetDir string
	var readmeOnly bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new project directory from a settings file",
		Long: `Reads a key=value settings file and renders the project templates
(compose manifest, env sample, config stub, README) into the target
directory, followed by a setup summary.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := scaffold.NewRunner(ctx.logger())

			if readmeOnly {
				if err := runner.RegenerateReadme(settingsPath, targetDir); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Regenerated README.md in %s\n", targetDir)
				return nil
			}

			report, err := runner.Run(settingsPath, targetDir)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Scaffolded %s into %s (%d files)\n",
				report.ProjectName, report.TargetDir, len(report.Files))
			for _, f := range report.Files {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", f)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&settingsPath, "settings", "s", "setup.env",
		"Path to the key=value settings file")
	cmd.Flags().StringVarP(&targetDir, "target", "t", ".",
		"Directory to scaffold into")
	cmd.Flags().BoolVar(&readmeOnly, "readme-only", false,
		"Regenerate only README.md from the current settings")

	return cmd
}
