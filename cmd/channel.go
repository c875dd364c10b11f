package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/livewatch/internal/formatter"
	"github.com/desertthunder/livewatch/internal/models"
	"github.com/desertthunder/livewatch/internal/shared"
	"github.com/urfave/cli/v3"
)

// ChannelAdd fetches a channel and adds it to the working set.
func (r *Runner) ChannelAdd(ctx context.Context, cmd *cli.Command) error {
	login := cmd.StringArg("login")
	if login == "" {
		return fmt.Errorf("%w: login", shared.ErrMissingArgument)
	}

	engine, err := r.Engine(ctx)
	if err != nil {
		return err
	}

	ch, err := engine.AddChannel(ctx, login, cmd.String("provider"))
	if err != nil {
		return err
	}

	status := "offline"
	if ch.Live {
		status = fmt.Sprintf("live, %d viewers", ch.Viewers)
	}
	return r.writePlain("✓ Added %s (#%d, %s)\n", ch.Name, ch.ID, status)
}

// ChannelRemove removes a channel by ID.
func (r *Runner) ChannelRemove(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}

	engine, err := r.Engine(ctx)
	if err != nil {
		return err
	}
	if err := engine.RemoveChannel(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Removed channel #%d\n", id)
}

// ChannelRefresh refreshes one channel when an ID is given, else every channel.
func (r *Runner) ChannelRefresh(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.Engine(ctx)
	if err != nil {
		return err
	}

	if cmd.StringArg("id") == "" {
		if err := engine.RefreshChannels(ctx, cmd.String("provider")); err != nil {
			return err
		}
		channels, err := r.store.Channels(ctx, cmd.String("provider"))
		if err != nil {
			return err
		}
		return formatter.Write(r.output, formatter.FormatText, "", channels)
	}

	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}
	ch, err := engine.RefreshChannel(ctx, id)
	if err != nil {
		return err
	}
	return formatter.Write(r.output, formatter.FormatText, "", []*models.Channel{ch})
}

// ChannelOpen opens the stored URL of a channel, or its chat with --chat.
func (r *Runner) ChannelOpen(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}
	if _, err := r.Engine(ctx); err != nil {
		return err
	}

	ch, err := r.store.Channel(ctx, id)
	if err != nil {
		return err
	}

	url := ch.URL()
	if cmd.Bool("chat") {
		url = ch.ChatURL
	}
	if url == "" {
		return fmt.Errorf("%w: channel %s has no URL", shared.ErrNotFound, ch.Login)
	}
	return r.open(url)
}

// ChannelList prints tracked channels in the requested format.
func (r *Runner) ChannelList(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.Engine(ctx); err != nil {
		return err
	}

	channels, err := r.store.Channels(ctx, cmd.String("provider"))
	if err != nil {
		return err
	}

	title := "Channels"
	if cmd.Bool("live") {
		title = "Live Channels"
		live := channels[:0]
		for _, ch := range channels {
			if ch.Live {
				live = append(live, ch)
			}
		}
		channels = live
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteFile(path, cmd.String("format"), title, channels); err != nil {
			return err
		}
		r.logger.Info("wrote channels", "path", path, "count", len(channels))
		return nil
	}
	return formatter.Write(r.output, cmd.String("format"), title, channels)
}

// Featured prints the provider's featured live channels.
func (r *Runner) Featured(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.Engine(ctx)
	if err != nil {
		return err
	}

	channels, err := engine.Featured(ctx, cmd.String("provider"))
	if err != nil {
		return err
	}
	return r.printChannels(cmd, channels)
}

// Search prints live channels matching the query argument.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.Engine(ctx)
	if err != nil {
		return err
	}

	channels, err := engine.Search(ctx, cmd.String("provider"), cmd.StringArg("query"))
	if err != nil {
		return err
	}
	return r.printChannels(cmd, channels)
}

func (r *Runner) printChannels(cmd *cli.Command, channels []*models.Channel) error {
	if cmd.Bool("json") {
		return r.writeJSON(channels, true)
	}
	return formatter.Write(r.output, formatter.FormatText, "", channels)
}
