package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// CacheClear removes recorded sync outcomes from the local database.
//
// The HTTP read caches live inside a single process and expire on
// their own; the sync log is the durable local state worth clearing.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	store, cleanup, err := r.openSession()
	if err != nil {
		return err
	}
	defer cleanup()

	projectID := cmd.String("project")
	removed, err := store.ClearSyncLog(projectID)
	if err != nil {
		return err
	}

	if projectID == "" {
		r.writePlain("✓ Cleared %d sync log entries\n", removed)
	} else {
		r.writePlain("✓ Cleared %d sync log entries for %s\n", removed, projectID)
	}
	return nil
}

// cacheCommand handles local cache maintenance
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Maintain locally cached sync state",
		Commands: []*cli.Command{
			{
				Name:  "clear",
				Usage: "Clear the sync log",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "project",
						Aliases: []string{"p"},
						Usage:   "Only clear entries for this project",
					},
				},
				Action: r.CacheClear,
			},
		},
	}
}
