package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/livewatch/internal/queue"
	"github.com/desertthunder/livewatch/internal/repositories"
	"github.com/desertthunder/livewatch/internal/services"
	"github.com/desertthunder/livewatch/internal/shared"
	"github.com/desertthunder/livewatch/internal/tasks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The engine and its collaborators are built on first use so that commands like "setup config" never open the
// database or talk to the network.
type Runner struct {
	config    *shared.Config
	logger    *log.Logger
	output    io.Writer
	registry  *prometheus.Registry
	db        *sql.DB
	store     tasks.Store
	queue     *queue.Queue
	providers services.Providers
	engine    *tasks.ChannelEngine
	open      func(url string) error
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Store and Providers are mainly for tests; when nil they are built from the config.
type RunnerOpts struct {
	Config    *shared.Config
	Logger    *log.Logger
	Output    io.Writer
	Store     tasks.Store
	Providers services.Providers
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Runner{
		config:    opts.Config,
		logger:    opts.Logger,
		output:    opts.Output,
		registry:  registry,
		store:     opts.Store,
		providers: opts.Providers,
		open:      shared.OpenBrowser,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, channelCommand, userCommand, featuredCommand, searchCommand, watchCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the config file named by --config, falling back to defaults when it does not exist, and applies
// the log level.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")

	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return ctx, err
		}
		r.config = config
	} else {
		config := shared.DefaultConfig()
		if err := shared.ApplyEnv(config); err != nil {
			return ctx, err
		}
		if err := config.Validate(); err != nil {
			return ctx, err
		}
		r.config = config
	}

	level := r.config.Log.Level
	if l := cmd.String("log-level"); l != "" {
		level = l
	}
	shared.SetLogLevel(r.logger, level)
	return ctx, nil
}

// After releases the engine and its collaborators.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	if r.engine != nil {
		r.engine.Close()
		r.engine = nil
	}
	if r.queue != nil {
		r.queue.Close()
		r.queue = nil
	}
	if r.db != nil {
		err := r.db.Close()
		r.db = nil
		return err
	}
	return nil
}

// SetLogger replaces the logger used by the runner and everything it builds afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Engine returns the sync engine, building the store, queue and providers on first use.
func (r *Runner) Engine(ctx context.Context) (*tasks.ChannelEngine, error) {
	if r.engine != nil {
		return r.engine, nil
	}

	if r.store == nil {
		db, err := shared.OpenDatabase(ctx, r.config.Database.Path, r.config.Database.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		r.db = db
		r.store = repositories.NewStore(db)
	}

	if r.providers == nil {
		if err := r.config.Twitch.Credentials(); err != nil {
			return nil, err
		}
		q, err := r.newQueue(ctx)
		if err != nil {
			return nil, err
		}
		r.queue = q
		r.providers = services.NewProviders(services.NewTwitchService(r.config.Twitch, q, r.logger))
	}

	r.engine = tasks.NewChannelEngine(r.providers, r.store, r.logger)
	return r.engine, nil
}

func (r *Runner) newQueue(ctx context.Context) (*queue.Queue, error) {
	timeout, err := r.config.QueueTimeout()
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if r.config.Queue.RatePerSecond > 0 {
		burst := max(r.config.Queue.Burst, 1)
		limiter = rate.NewLimiter(rate.Limit(r.config.Queue.RatePerSecond), burst)
	}

	client := services.NewTwitchClient(ctx, r.config.Twitch, timeout)
	return queue.New(queue.NewHTTPTransport(client), queue.Options{
		Concurrency: r.config.Queue.Concurrency,
		Limiter:     limiter,
		Metrics:     queue.NewMetrics(r.registry),
		Logger:      shared.WithLogger(r.logger, "component", "queue"),
	}), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// idArg parses the positional argument name as an entity ID.
func idArg(cmd *cli.Command, name string) (int64, error) {
	raw := cmd.StringArg(name)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive number, got %q", shared.ErrInvalidArgument, name, raw)
	}
	return id, nil
}
