package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/livewatch/internal/formatter"
	"github.com/desertthunder/livewatch/internal/shared"
	"github.com/urfave/cli/v3"
)

// UserAdd fetches a user with every followed channel and adds them to the working set.
func (r *Runner) UserAdd(ctx context.Context, cmd *cli.Command) error {
	login := cmd.StringArg("login")
	if login == "" {
		return fmt.Errorf("%w: login", shared.ErrMissingArgument)
	}

	engine, err := r.Engine(ctx)
	if err != nil {
		return err
	}

	u, err := engine.AddUser(ctx, login, cmd.String("provider"))
	if err != nil {
		return err
	}
	return r.writePlain("✓ Added %s (#%d, %d favorites)\n", u.Name, u.ID, len(u.Favorites))
}

// UserRemove removes a user by ID, with --favorites also removing channels nobody else follows.
func (r *Runner) UserRemove(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}

	engine, err := r.Engine(ctx)
	if err != nil {
		return err
	}
	if err := engine.RemoveUser(ctx, id, cmd.Bool("favorites")); err != nil {
		return err
	}
	return r.writePlain("✓ Removed user #%d\n", id)
}

// UserRefresh refreshes followed channels of one user when an ID is given, else of every user.
func (r *Runner) UserRefresh(ctx context.Context, cmd *cli.Command) error {
	var id int64
	if cmd.StringArg("id") != "" {
		parsed, err := idArg(cmd, "id")
		if err != nil {
			return err
		}
		id = parsed
	}

	engine, err := r.Engine(ctx)
	if err != nil {
		return err
	}

	events := engine.Subscribe(eventBuffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.printEvents(events, false)
	}()

	err = engine.RefreshFavorites(ctx, id)
	engine.Close()
	<-done
	r.engine = nil
	return err
}

// UserList prints tracked users.
func (r *Runner) UserList(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.Engine(ctx); err != nil {
		return err
	}

	users, err := r.store.Users(ctx, cmd.String("provider"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(users, true)
	}

	data, err := formatter.UsersToText(users)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}
