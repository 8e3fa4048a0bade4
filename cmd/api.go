package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/genpad/internal/api"
	"github.com/genpad/internal/api/auth"
	"github.com/genpad/internal/docsync"
	"github.com/urfave/cli/v2"
)

// APICommand returns the CLI command for starting the API server
func APICommand() *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Start the genpad API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides server.port)",
			},
		},
		Action: runAPI,
	}
}

func runAPI(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg, runtimeOptions{
		requireDatabase: true,
		capabilities:    auth.ContextChecker{},
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	port := cfg.Server.Port
	if c.IsSet("port") {
		port = c.Int("port")
	}

	server := api.NewServer(port, api.Deps{
		Tokens:      auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL),
		Catalog:     rt.catalog,
		Dispatcher:  rt.dispatcher,
		Sessions:    docsync.NewRegistry(rt.documents, rt.sink, rt.syncOptions()),
		Documents:   rt.documents,
		Active:      rt.sink,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	return server.Start(ctx)
}

