package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"stopmo/internal/shared"
	"stopmo/internal/tasks"
	"stopmo/internal/ui"
)

// TUI launches the interactive terminal UI for browsing and pulling frames.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	ws, err := r.openFrameWorkspace(ctx, cmd.String("project"))
	if err != nil {
		return err
	}
	defer ws.cleanup()

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/stopmo-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	pullOpts := tasks.PullOpts{
		OutputDir:  cmd.String("out"),
		Thumbnails: cmd.Bool("thumbs"),
	}

	model := ui.NewModel(ctx, ws.store, ws.engine, pullOpts)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// tuiCommand launches the interactive terminal interface
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Browse the frame sheet interactively",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "project",
				Aliases: []string{"p"},
				Usage:   "Project ID (defaults to the session's active project)",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Pull output directory",
			},
			&cli.BoolFlag{
				Name:  "thumbs",
				Usage: "Write thumbnails when pulling",
			},
		},
		Action: r.TUI,
	}
}
