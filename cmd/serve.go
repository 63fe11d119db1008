package main

import (
	"context"
	"net/http"

	"github.com/urfave/cli/v3"

	"stopmo/internal/server"
)

// Serve runs a disk-backed object store speaking the same surface as
// the production bucket, for development and tests.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	root := cmd.String("root")
	token := cmd.String("token")

	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	// Health probe registers ahead of auth so it never needs the token.
	router.Handle(http.MethodGet, "/healthz", server.Healthz())
	if token != "" {
		router.Use(server.BearerAuth(token))
	}
	router.Handler(server.NewBlobHandler(root, r.logger))

	r.writePlain("Serving %s on %s\n", root, addr)
	return server.Serve(ctx, addr, router, r.logger)
}

// serveCommand runs the local object store
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run a local object store for development",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address",
				Value: "localhost:9280",
			},
			&cli.StringFlag{
				Name:  "root",
				Usage: "Directory to store objects in",
				Value: "./stopmo_store",
			},
			&cli.StringFlag{
				Name:  "token",
				Usage: "Require this bearer token on every request",
			},
		},
		Action: r.Serve,
	}
}
