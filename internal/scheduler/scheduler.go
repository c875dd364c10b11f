// package scheduler polls providers on cron specs
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/livewatch/internal/shared"
	"github.com/robfig/cron/v3"
)

const defaultTimeout = 5 * time.Minute

// Refresher is the part of the sync engine the scheduler drives.
type Refresher interface {
	RefreshChannels(ctx context.Context, typ string) error
	RefreshFavorites(ctx context.Context, id int64) error
}

// Scheduler runs channel and favorites refreshes on cron specs. Overlapping ticks of the same job are skipped.
type Scheduler struct {
	ctx     context.Context
	cron    *cron.Cron
	engine  Refresher
	specs   shared.ScheduleConfig
	timeout time.Duration
	log     *log.Logger
}

// New creates a scheduler whose ticks derive their contexts from ctx. A zero timeout uses five minutes.
func New(ctx context.Context, engine Refresher, specs shared.ScheduleConfig, timeout time.Duration, logger *log.Logger) *Scheduler {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	cronLogger := cron.PrintfLogger(logger.StandardLog(log.StandardLogOptions{ForceLevel: log.DebugLevel}))
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	return &Scheduler{
		ctx:     ctx,
		cron:    c,
		engine:  engine,
		specs:   specs,
		timeout: timeout,
		log:     shared.WithLogger(logger, "component", "scheduler"),
	}
}

// Start registers the configured jobs and starts the cron loop. An empty spec disables its job.
func (s *Scheduler) Start() error {
	jobs := []struct {
		spec string
		name string
		fn   func()
	}{
		{s.specs.Channels, "channels", s.refreshChannels},
		{s.specs.Favorites, "favorites", s.refreshFavorites},
	}

	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		if _, err := s.cron.AddFunc(job.spec, job.fn); err != nil {
			return fmt.Errorf("%w: schedule.%s: %v", shared.ErrInvalidConfig, job.name, err)
		}
		s.log.Info("scheduled", "job", job.name, "spec", job.spec)
	}

	s.cron.Start()
	return nil
}

// Stop stops the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) refreshChannels() {
	s.tick("channels", func(ctx context.Context) error {
		return s.engine.RefreshChannels(ctx, "")
	})
}

func (s *Scheduler) refreshFavorites() {
	s.tick("favorites", func(ctx context.Context) error {
		return s.engine.RefreshFavorites(ctx, 0)
	})
}

func (s *Scheduler) tick(job string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	if ctx.Err() != nil {
		s.log.Info("scheduler context is done", "job", job, "error", ctx.Err())
		return
	}

	start := time.Now()
	if err := fn(ctx); err != nil {
		s.log.Error("scheduled refresh failed", "job", job, "error", err, "elapsed", time.Since(start))
		return
	}
	s.log.Debug("scheduled refresh finished", "job", job, "elapsed", time.Since(start))
}
