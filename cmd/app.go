package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// NewApp builds the genpad command tree
func NewApp(version string) *cli.App {
	return &cli.App{
		Name:    "genpad",
		Usage:   "Prompt-driven code generation for vehicle apps, dashboards and widgets",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE` (default ./genpad.toml, then ~/.genpad.toml)",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from `FILE` before reading config",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if path := c.String("env-file"); path != "" {
				if err := LoadEnvFile(path, false); err != nil {
					return fmt.Errorf("failed to load env file: %w", err)
				}
			}
			return nil
		},
		Commands: []*cli.Command{
			APICommand(),
			CatalogCommand(),
			GenerateCommand(),
			TokenCommand(),
			ConfigCommand(),
		},
	}
}
