package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/livewatch/internal/shared"
	"github.com/desertthunder/livewatch/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive channel browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Logs go to a file while the UI owns the terminal
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.config.Log.Level)
	r.SetLogger(fileLogger)

	engine, err := r.Engine(ctx)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, engine, r.store, cmd.String("provider"))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
