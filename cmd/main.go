package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/livewatch/internal/shared"
	"github.com/urfave/cli/v3"
)

func newApp(runner *Runner) *cli.Command {
	return &cli.Command{
		Name:    "livewatch",
		Usage:   "Track which Twitch channels are live",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error); overrides the config file",
			},
		},
		Before:   runner.Before,
		After:    runner.After,
		Commands: runner.register(),
	}
}

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(runner)
	if err := app.Run(ctx, os.Args); err != nil {
		runner.After(ctx, app)
		stop()
		logger.Fatalf("application error: %v", err)
	}
}
