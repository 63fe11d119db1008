package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"stopmo/internal/formatter"
	"stopmo/internal/models"
	"stopmo/internal/project"
	"stopmo/internal/session"
	"stopmo/internal/shared"
)

// ProjectCreate builds a fresh frame plan and uploads it as a new project.
func (r *Runner) ProjectCreate(ctx context.Context, cmd *cli.Command) error {
	totalFrames := int(cmd.Int("frames"))
	fps := int(cmd.Int("fps"))
	aspect := cmd.Float("aspect")

	projectID := cmd.String("id")
	if projectID == "" {
		projectID = shared.GenerateID()
	}

	config := models.NewProjectConfig(totalFrames, fps, aspect)
	if err := config.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}

	store, cleanup, err := r.openSession()
	if err != nil {
		return err
	}
	defer cleanup()

	creds, err := store.Load()
	if err != nil {
		return err
	}
	client, err := r.newClient(creds)
	if err != nil {
		return err
	}

	exists, err := client.CheckExists(ctx, projectID)
	if err != nil {
		return fmt.Errorf("checking for existing project: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: project %s already exists", shared.ErrInvalidArgument, projectID)
	}

	if err := client.UploadConfig(ctx, projectID, config); err != nil {
		return fmt.Errorf("uploading project config: %w", err)
	}
	if err := store.Set(session.KeyProjectID, projectID); err != nil {
		return err
	}

	r.logger.Info("project created", "project", projectID, "frames", totalFrames, "fps", fps)
	r.writePlain("✓ Project created: %s\n", projectID)
	r.writePlain("  Frames: %d @ %d fps\n", totalFrames, fps)
	r.writePlain("Set as active project.\n")
	return nil
}

// ProjectLoad fetches a project's config and reports its state.
func (r *Runner) ProjectLoad(ctx context.Context, cmd *cli.Command) error {
	sessionStore, cleanup, err := r.openSession()
	if err != nil {
		return err
	}
	defer cleanup()

	creds, err := sessionStore.Load()
	if err != nil {
		return err
	}
	projectID, err := r.requireProject(cmd.String("project"), creds)
	if err != nil {
		return err
	}
	client, err := r.newClient(creds)
	if err != nil {
		return err
	}

	store := project.NewStore(client, r.logger)
	if err := store.LoadConfig(ctx, projectID); err != nil {
		return err
	}

	if projectID != creds.ProjectID {
		if err := sessionStore.Set(session.KeyProjectID, projectID); err != nil {
			return err
		}
	}

	r.writePlain("✓ Project loaded: %s\n", projectID)
	r.writePlain("  %s\n", store.Describe())
	return nil
}

type projectStatus struct {
	ProjectID   string              `json:"project_id"`
	State       string              `json:"state"`
	TotalFrames int                 `json:"total_frames"`
	TakenFrames int                 `json:"taken_frames"`
	Progress    string              `json:"progress"`
	RecentSyncs []session.SyncEntry `json:"recent_syncs,omitempty"`
}

// ProjectStatus loads the active project and prints capture progress
// plus recent sync outcomes.
func (r *Runner) ProjectStatus(ctx context.Context, cmd *cli.Command) error {
	sessionStore, cleanup, err := r.openSession()
	if err != nil {
		return err
	}
	defer cleanup()

	creds, err := sessionStore.Load()
	if err != nil {
		return err
	}
	projectID, err := r.requireProject(cmd.String("project"), creds)
	if err != nil {
		return err
	}
	client, err := r.newClient(creds)
	if err != nil {
		return err
	}

	store := project.NewStore(client, r.logger)
	if err := store.LoadConfig(ctx, projectID); err != nil {
		return err
	}

	syncs, err := sessionStore.RecentSyncs(projectID, int(cmd.Int("syncs")))
	if err != nil {
		r.logger.Warn("sync log unavailable", "error", err)
	}

	status := projectStatus{
		ProjectID:   projectID,
		State:       store.State().String(),
		TotalFrames: store.TotalFrames(),
		TakenFrames: store.TakenFramesCount(),
		Progress:    shared.PercentString(store.TakenFramesCount(), store.TotalFrames()),
		RecentSyncs: syncs,
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, cmd.Bool("pretty"))
	}

	r.writePlain("Project:  %s\n", status.ProjectID)
	r.writePlain("State:    %s\n", status.State)
	r.writePlain("Progress: %d/%d frames (%s)\n", status.TakenFrames, status.TotalFrames, status.Progress)
	if len(status.RecentSyncs) > 0 {
		r.writePlainln("Recent syncs:")
		for _, entry := range status.RecentSyncs {
			mark := "✓"
			detail := ""
			if !entry.Success {
				mark = "✗"
				detail = fmt.Sprintf(" (%s)", entry.Error)
			}
			r.writePlain("  %s frame %04d at %s%s\n", mark, entry.FrameIndex,
				entry.SyncedAt.Format("2006-01-02 15:04:05"), detail)
		}
	}
	return nil
}

// ProjectExport writes the frame sheet in the requested format.
func (r *Runner) ProjectExport(ctx context.Context, cmd *cli.Command) error {
	format := strings.ToLower(cmd.String("format"))
	output := cmd.String("output")

	sessionStore, cleanup, err := r.openSession()
	if err != nil {
		return err
	}
	defer cleanup()

	creds, err := sessionStore.Load()
	if err != nil {
		return err
	}
	projectID, err := r.requireProject(cmd.String("project"), creds)
	if err != nil {
		return err
	}
	client, err := r.newClient(creds)
	if err != nil {
		return err
	}

	store := project.NewStore(client, r.logger)
	if err := store.LoadConfig(ctx, projectID); err != nil {
		return err
	}
	config := store.Snapshot()

	var data []byte
	switch format {
	case "csv":
		result, err := formatter.WriteCSVExport(projectID, config, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %s and %s\n", result.FramesFile, result.MetadataFile)
		return nil
	case "markdown", "md":
		data, err = formatter.ExportToMarkdown(projectID, config)
	case "txt", "text":
		data, err = formatter.ExportToText(projectID, config)
	case "json":
		data, err = shared.MarshalJSON(config, true)
	default:
		return fmt.Errorf("%w: unknown format %q (csv, markdown, txt, json)", shared.ErrInvalidFlag, format)
	}
	if err != nil {
		return err
	}

	if output == "" {
		return r.writePlain("%s", data)
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	r.writePlain("✓ Exported %s\n", output)
	return nil
}

// projectCommand handles project lifecycle operations
func projectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "project",
		Aliases: []string{"proj"},
		Usage:   "Create, load, and inspect projects",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a new project with an empty frame plan",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "frames",
						Usage:    "Total number of frames",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "fps",
						Usage: "Playback frames per second",
						Value: 12,
					},
					&cli.FloatFlag{
						Name:  "aspect",
						Usage: "Aspect ratio (width / height)",
						Value: 16.0 / 9.0,
					},
					&cli.StringFlag{
						Name:  "id",
						Usage: "Project ID (generated when omitted)",
					},
				},
				Action: r.ProjectCreate,
			},
			{
				Name:  "load",
				Usage: "Load a project's config and set it active",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "project",
						Aliases: []string{"p"},
						Usage:   "Project ID (defaults to the session's active project)",
					},
				},
				Action: r.ProjectLoad,
			},
			{
				Name:  "status",
				Usage: "Show capture progress and recent syncs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "project",
						Aliases: []string{"p"},
						Usage:   "Project ID (defaults to the session's active project)",
					},
					&cli.IntFlag{
						Name:  "syncs",
						Usage: "Number of recent sync log entries to show",
						Value: 10,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.ProjectStatus,
			},
			{
				Name:  "export",
				Usage: "Export the frame sheet",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "project",
						Aliases: []string{"p"},
						Usage:   "Project ID (defaults to the session's active project)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: csv, markdown, txt, json",
						Value:   "txt",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (stdout when omitted)",
					},
				},
				Action: r.ProjectExport,
			},
		},
	}
}
