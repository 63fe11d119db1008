package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"stopmo/internal/capture"
	"stopmo/internal/models"
	"stopmo/internal/project"
	"stopmo/internal/shared"
	"stopmo/internal/storage"
	"stopmo/internal/tasks"
)

// frameWorkspace bundles the per-command wiring every frames
// subcommand needs: a loaded project store and a task engine.
type frameWorkspace struct {
	projectID string
	store     *project.Store
	engine    *tasks.Engine
	cleanup   func()
}

func (r *Runner) openFrameWorkspace(ctx context.Context, projectOverride string) (*frameWorkspace, error) {
	sessionStore, cleanup, err := r.openSession()
	if err != nil {
		return nil, err
	}

	creds, err := sessionStore.Load()
	if err != nil {
		cleanup()
		return nil, err
	}
	projectID, err := r.requireProject(projectOverride, creds)
	if err != nil {
		cleanup()
		return nil, err
	}
	client, err := r.newClient(creds)
	if err != nil {
		cleanup()
		return nil, err
	}

	store := project.NewStore(client, r.logger)
	if err := store.LoadConfig(ctx, projectID); err != nil {
		cleanup()
		return nil, err
	}

	return &frameWorkspace{
		projectID: projectID,
		store:     store,
		engine:    tasks.NewEngine(client, store, sessionStore, r.logger),
		cleanup:   cleanup,
	}, nil
}

// nextUntakenFrame picks the first frame that has not been captured.
func nextUntakenFrame(store *project.Store) (int, error) {
	config := store.Snapshot()
	if config == nil {
		return 0, fmt.Errorf("no project loaded: %w", shared.ErrPrecondition)
	}
	for _, frame := range config.Frames {
		if !frame.Taken {
			return frame.Index, nil
		}
	}
	return 0, fmt.Errorf("%w: every frame is already taken", shared.ErrInvalidInput)
}

// FramesCapture grabs a frame from the camera, encodes it, and pushes
// it to remote storage.
func (r *Runner) FramesCapture(ctx context.Context, cmd *cli.Command) error {
	ws, err := r.openFrameWorkspace(ctx, cmd.String("project"))
	if err != nil {
		return err
	}
	defer ws.cleanup()

	index := int(cmd.Int("index"))
	if !cmd.IsSet("index") {
		if index, err = nextUntakenFrame(ws.store); err != nil {
			return err
		}
	}
	if _, err := ws.store.FrameData(index); err != nil {
		return err
	}

	constraints := capture.Constraints{
		DevicePath: r.config.Camera.Device,
		Width:      r.config.Camera.Width,
		Height:     r.config.Camera.Height,
	}
	if constraints.DevicePath == "" {
		constraints = capture.DefaultConstraints()
	}
	if device := cmd.String("device"); device != "" {
		constraints.DevicePath = device
	}

	capSession := capture.NewSession(&capture.FFmpegOpener{}, constraints, r.logger)
	if quality := r.config.Camera.Quality; quality > 0 {
		capSession.SetQuality(quality)
	}

	if status := capSession.CheckPermission(); !status.Granted {
		r.logger.Warn("camera check", "detail", status.Detail)
	}

	if err := capSession.Start(ctx); err != nil {
		return err
	}
	defer capSession.Stop()

	blob, err := capSession.Capture(ctx)
	if err != nil {
		return err
	}
	r.logger.Info("frame captured", "frame", index, "bytes", len(blob))

	if keepDir := cmd.String("keep"); keepDir != "" {
		if err := os.MkdirAll(keepDir, 0755); err != nil {
			return fmt.Errorf("creating keep directory: %w", err)
		}
		local := filepath.Join(keepDir, storage.FrameFilename(index))
		if err := os.WriteFile(local, blob, 0644); err != nil {
			return fmt.Errorf("writing local copy: %w", err)
		}
		r.logger.Info("local copy written", "path", local)
	}

	result, err := ws.engine.Push(ctx, nil,
		[]models.FrameUpload{{Index: index, Blob: blob}}, tasks.PushOpts{SaveConfig: true})
	if err != nil {
		return err
	}
	if result.FailedCount > 0 {
		return fmt.Errorf("%w: %s", shared.ErrTransport, result.Results[0].Error)
	}

	r.writePlain("✓ Frame %04d captured and synced\n", index)
	r.writePlain("  %s\n", ws.store.Describe())
	return nil
}

// collectStagedFrames reads every canonically named frame file in dir.
func collectStagedFrames(dir string) ([]models.FrameUpload, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading staging directory: %w", err)
	}

	var frames []models.FrameUpload
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		index, ok := storage.ParseFrameFilename(entry.Name())
		if !ok {
			continue
		}
		blob, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		frames = append(frames, models.FrameUpload{Index: index, Blob: blob})
	}
	return frames, nil
}

// FramesPush uploads staged frame files to remote storage.
func (r *Runner) FramesPush(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.String("dir")

	frames, err := collectStagedFrames(dir)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("%w: no frame files found in %s", shared.ErrInvalidInput, dir)
	}

	ws, err := r.openFrameWorkspace(ctx, cmd.String("project"))
	if err != nil {
		return err
	}
	defer ws.cleanup()

	result, err := ws.engine.Push(ctx, nil, frames, tasks.PushOpts{SaveConfig: cmd.Bool("save")})
	if err != nil {
		return err
	}

	r.writePlain("✓ Pushed %d/%d frames\n", result.SuccessCount, len(frames))
	for _, res := range result.Results {
		if !res.Success {
			r.writePlain("  ✗ frame %04d: %s\n", res.Index, res.Error)
		}
	}
	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}
	return nil
}

// FramesPull downloads captured frames into a local directory.
func (r *Runner) FramesPull(ctx context.Context, cmd *cli.Command) error {
	ws, err := r.openFrameWorkspace(ctx, cmd.String("project"))
	if err != nil {
		return err
	}
	defer ws.cleanup()

	opts := tasks.PullOpts{
		OutputDir:  cmd.String("out"),
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate"),
		Thumbnails: cmd.Bool("thumbs"),
	}

	result, err := ws.engine.Pull(ctx, nil, opts)
	if err != nil {
		return err
	}

	r.writePlain("✓ Pulled %d/%d frames into %s\n",
		result.SuccessCount, result.TotalFrames, result.OutputDirectory)
	for _, res := range result.Results {
		if !res.Success {
			r.writePlain("  ✗ frame %04d: %s\n", res.Index, res.Error)
		}
	}
	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}
	return nil
}

// FramesNote attaches or clears a note on a frame and saves the config.
func (r *Runner) FramesNote(ctx context.Context, cmd *cli.Command) error {
	ws, err := r.openFrameWorkspace(ctx, cmd.String("project"))
	if err != nil {
		return err
	}
	defer ws.cleanup()

	index := int(cmd.Int("index"))
	text := cmd.String("text")

	if err := ws.store.SetFrameNote(index, text); err != nil {
		return err
	}
	if err := ws.store.SaveConfig(ctx); err != nil {
		return err
	}

	if text == "" {
		r.writePlain("✓ Note cleared on frame %04d\n", index)
	} else {
		r.writePlain("✓ Note set on frame %04d\n", index)
	}
	return nil
}

// FramesWatch monitors a staging directory and pushes frames as they appear.
func (r *Runner) FramesWatch(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.String("dir")
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("staging directory: %w", err)
	}

	ws, err := r.openFrameWorkspace(ctx, cmd.String("project"))
	if err != nil {
		return err
	}
	defer ws.cleanup()

	save := cmd.Bool("save")
	r.writePlain("Watching %s for frames (ctrl+c to stop)\n", dir)

	return ws.engine.Watch(ctx, dir, func(ctx context.Context, index int, path string) error {
		blob, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		result, err := ws.engine.Push(ctx, nil,
			[]models.FrameUpload{{Index: index, Blob: blob}}, tasks.PushOpts{SaveConfig: save})
		if err != nil {
			return err
		}
		if result.FailedCount > 0 {
			return fmt.Errorf("%w: %s", shared.ErrTransport, result.Results[0].Error)
		}
		r.writePlain("✓ frame %04d synced\n", index)
		return nil
	})
}

// framesCommand handles capture and transfer of individual frames
func framesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "frames",
		Aliases: []string{"f"},
		Usage:   "Capture, push, and pull project frames",
		Commands: []*cli.Command{
			{
				Name:  "capture",
				Usage: "Capture a frame from the camera and sync it",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "project",
						Aliases: []string{"p"},
						Usage:   "Project ID (defaults to the session's active project)",
					},
					&cli.IntFlag{
						Name:  "index",
						Usage: "Frame index (defaults to the first untaken frame)",
					},
					&cli.StringFlag{
						Name:  "device",
						Usage: "Camera device path override",
					},
					&cli.StringFlag{
						Name:  "keep",
						Usage: "Also write the encoded frame into this directory",
					},
				},
				Action: r.FramesCapture,
			},
			{
				Name:    "push",
				Aliases: []string{"sync"},
				Usage:   "Upload staged frame files",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "dir",
						Usage:    "Staging directory containing frame_NNNN.webp files",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "project",
						Aliases: []string{"p"},
						Usage:   "Project ID (defaults to the session's active project)",
					},
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Save the project config after pushing",
						Value: true,
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
				Action: r.FramesPush,
			},
			{
				Name:  "pull",
				Usage: "Download captured frames locally",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "project",
						Aliases: []string{"p"},
						Usage:   "Project ID (defaults to the session's active project)",
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Output directory (defaults to {project}_frames)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent download workers",
						Value: 4,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Requests per second",
						Value: 8,
					},
					&cli.BoolFlag{
						Name:  "thumbs",
						Usage: "Also write PNG thumbnails",
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
				Action: r.FramesPull,
			},
			{
				Name:  "note",
				Usage: "Attach a note to a frame",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "index",
						Usage:    "Frame index",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "text",
						Usage: "Note text (empty clears the note)",
					},
					&cli.StringFlag{
						Name:    "project",
						Aliases: []string{"p"},
						Usage:   "Project ID (defaults to the session's active project)",
					},
				},
				Action: r.FramesNote,
			},
			{
				Name:  "watch",
				Usage: "Watch a staging directory and push frames as they appear",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "dir",
						Usage:    "Staging directory to watch",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "project",
						Aliases: []string{"p"},
						Usage:   "Project ID (defaults to the session's active project)",
					},
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Save the project config after each push",
						Value: true,
					},
				},
				Action: r.FramesWatch,
			},
		},
	}
}
