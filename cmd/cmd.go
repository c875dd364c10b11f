// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/livewatch/internal/formatter"
	"github.com/urfave/cli/v3"
)

const defaultProvider = "twitch"

func providerFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "provider",
		Aliases: []string{"p"},
		Usage:   "Provider type",
		Value:   defaultProvider,
	}
}

// channelCommand manages tracked channels
func channelCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "channel",
		Aliases: []string{"ch"},
		Usage:   "Manage tracked channels",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Track a channel",
				Arguments: []cli.Argument{&cli.StringArg{Name: "login"}},
				Flags:     []cli.Flag{providerFlag()},
				Action:    r.ChannelAdd,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Stop tracking a channel",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.ChannelRemove,
			},
			{
				Name:      "refresh",
				Usage:     "Refresh one channel by ID, or every channel",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "provider",
						Aliases: []string{"p"},
						Usage:   "Only refresh channels of this provider",
					},
				},
				Action: r.ChannelRefresh,
			},
			{
				Name:      "open",
				Usage:     "Open a channel page in the default browser",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "chat",
						Usage: "Open the chat popout instead",
					},
				},
				Action: r.ChannelOpen,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List tracked channels",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "provider",
						Aliases: []string{"p"},
						Usage:   "Only list channels of this provider",
					},
					&cli.BoolFlag{
						Name:  "live",
						Usage: "Only list live channels",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (text, csv, markdown, json)",
						Value:   formatter.FormatText,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to a file instead of stdout",
					},
				},
				Action: r.ChannelList,
			},
		},
	}
}

// userCommand manages users whose favorites are tracked
func userCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Manage users whose followed channels are tracked",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Track a user and every channel it follows",
				Arguments: []cli.Argument{&cli.StringArg{Name: "login"}},
				Flags:     []cli.Flag{providerFlag()},
				Action:    r.UserAdd,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Stop tracking a user",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "favorites",
						Usage: "Also remove followed channels no other user follows",
					},
				},
				Action: r.UserRemove,
			},
			{
				Name:      "refresh",
				Usage:     "Refresh followed channels of one user by ID, or of every user",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.UserRefresh,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List tracked users",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "provider",
						Aliases: []string{"p"},
						Usage:   "Only list users of this provider",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
				},
				Action: r.UserList,
			},
		},
	}
}

// featuredCommand lists featured live channels
func featuredCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "featured",
		Usage: "List featured live channels",
		Flags: []cli.Flag{
			providerFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output JSON",
			},
		},
		Action: r.Featured,
	}
}

// searchCommand searches live channels
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search live channels",
		Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
		Flags: []cli.Flag{
			providerFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output JSON",
			},
		},
		Action: r.Search,
	}
}

// watchCommand polls on the configured schedule and prints events
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Poll providers on the configured schedule and print changes",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print events as JSON lines",
			},
		},
		Action: r.Watch,
	}
}

// serveCommand runs the scheduler behind the JSON API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Poll providers and serve the working set over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address; overrides the config file",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand launches the terminal UI
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Browse channels in an interactive terminal UI",
		Flags: []cli.Flag{
			providerFlag(),
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "File receiving logs while the UI owns the terminal",
				Value: "./tmp/livewatch-tui.log",
			},
		},
		Action: r.TUI,
	}
}

// setupCommand handles setup operations for the database and config file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write an example config file to the --config path",
				Action: r.SetupConfig,
			},
		},
	}
}
