package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/livewatch/internal/models"
	"github.com/desertthunder/livewatch/internal/scheduler"
	"github.com/desertthunder/livewatch/internal/server"
	"github.com/desertthunder/livewatch/internal/shared"
	"github.com/desertthunder/livewatch/internal/tasks"
	"github.com/urfave/cli/v3"
)

const eventBuffer = 64

// eventRecord is the JSON line written for each event by "watch --json".
type eventRecord struct {
	Time     time.Time         `json:"time"`
	Kind     string            `json:"kind"`
	Run      string            `json:"run"`
	Message  string            `json:"message"`
	ID       int64             `json:"id,omitempty"`
	User     *models.User      `json:"user,omitempty"`
	Channels []*models.Channel `json:"channels,omitempty"`
}

// Watch refreshes everything once, then polls on the configured schedule, printing each event until interrupted.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.Engine(ctx)
	if err != nil {
		return err
	}

	events := engine.Subscribe(eventBuffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.printEvents(events, cmd.Bool("json"))
	}()

	sched, err := r.startScheduler(ctx, engine)
	if err != nil {
		return err
	}

	if err := engine.RefreshChannels(ctx, ""); err != nil {
		r.logger.Warn("initial channel refresh failed", "error", err)
	}
	if err := engine.RefreshFavorites(ctx, 0); err != nil {
		r.logger.Warn("initial favorites refresh failed", "error", err)
	}

	<-ctx.Done()
	sched.Stop()
	engine.Close()
	r.engine = nil
	<-done
	return nil
}

// Serve runs the scheduler and the HTTP API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.Engine(ctx)
	if err != nil {
		return err
	}

	sched, err := r.startScheduler(ctx, engine)
	if err != nil {
		return err
	}
	defer sched.Stop()

	addr := r.config.Address()
	if a := cmd.String("addr"); a != "" {
		addr = a
	}

	logger := shared.WithLogger(r.logger, "component", "server")
	srv := server.New(addr, server.NewAPIHandler(engine, r.store), r.registry, logger)
	return srv.Run(ctx)
}

func (r *Runner) startScheduler(ctx context.Context, engine scheduler.Refresher) (*scheduler.Scheduler, error) {
	timeout, err := r.config.ScheduleTimeout()
	if err != nil {
		return nil, err
	}

	sched := scheduler.New(ctx, engine, r.config.Schedule, timeout, shared.WithLogger(r.logger, "component", "scheduler"))
	if err := sched.Start(); err != nil {
		return nil, err
	}
	r.logger.Info("scheduler started", "jobs", sched.Jobs(),
		"channels", r.config.Schedule.Channels, "favorites", r.config.Schedule.Favorites)
	return sched, nil
}

// printEvents writes each event until events is closed. Write failures are logged and skipped.
func (r *Runner) printEvents(events <-chan tasks.Event, asJSON bool) {
	for ev := range events {
		var err error
		if asJSON {
			err = r.writeJSON(eventRecord{
				Time:     time.Now().UTC(),
				Kind:     ev.Kind.String(),
				Run:      ev.Run,
				Message:  ev.Message,
				ID:       ev.ID,
				User:     ev.User,
				Channels: ev.Channels,
			}, false)
		} else {
			err = r.writePlain("%s\n", eventLine(ev))
		}
		if err != nil {
			r.logger.Error("failed to print event", "kind", ev.Kind, "error", err)
		}
	}
}

func eventLine(ev tasks.Event) string {
	switch ev.Kind {
	case tasks.Error:
		return "✗ " + ev.Message
	case tasks.ChannelUpdated:
		line := "• " + ev.Message
		for _, ch := range ev.Channels {
			if ch.Live {
				line += fmt.Sprintf("\n  ● %s - %s [%d viewers]", ch.Name, ch.Title, ch.Viewers)
			}
		}
		return line
	case tasks.NewChannels:
		line := "★ " + ev.Message
		for _, ch := range ev.Channels {
			line += "\n  + " + ch.Login
		}
		return line
	default:
		return "• " + ev.Message
	}
}
