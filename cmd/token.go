package cmd

import (
	"fmt"
	"time"

	"github.com/genpad/internal/api/auth"
	"github.com/urfave/cli/v2"
)

// TokenCommand issues API tokens signed with the configured secret
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue an API token",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "subject",
				Aliases:  []string{"s"},
				Usage:    "User the token identifies",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "Display name",
			},
			&cli.StringSliceFlag{
				Name:    "permission",
				Aliases: []string{"P"},
				Usage:   "Permission to grant (repeatable)",
				Value:   cli.NewStringSlice(auth.PermissionGenerate),
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "Token lifetime (overrides auth.token_ttl)",
			},
		},
		Action: runToken,
	}
}

func runToken(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ttl := cfg.Auth.TokenTTL
	if c.IsSet("ttl") {
		ttl = c.Duration("ttl")
	}

	ts := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, ttl)
	token, expires, err := ts.Issue(c.String("subject"), c.String("name"), c.StringSlice("permission"))
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	fmt.Fprintln(c.App.Writer, token)
	fmt.Fprintf(c.App.ErrWriter, "expires %s\n", expires.Format(time.RFC3339))
	return nil
}
