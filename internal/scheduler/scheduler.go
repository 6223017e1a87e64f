package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TaskFunc is a unit of scheduled work
type TaskFunc func(ctx context.Context) error

// Refresher refreshes recent prices for every tracked position
type Refresher interface {
	RefreshAll(ctx context.Context, lookbackDays int) error
}

// Scheduler runs background jobs. A job never overlaps with itself.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    zerolog.Logger
}

// New creates a new Scheduler
func New() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{
		scheduler: s,
		logger:    log.Logger.With().Str("component", "scheduler").Logger(),
	}, nil
}

// Start begins running jobs
func (s *Scheduler) Start() {
	s.scheduler.Start()
}

// Stop waits for running jobs and stops the scheduler
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}

// NewIntervalJob runs fn every interval
func (s *Scheduler) NewIntervalJob(name string, fn TaskFunc, interval time.Duration, startImmediately bool) error {
	opts := []gocron.JobOption{
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if startImmediately {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	if _, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.taskWithRecover(fn, name)),
		opts...,
	); err != nil {
		return fmt.Errorf("failed to create job %q: %w", name, err)
	}
	return nil
}

// RefreshTask adapts a Refresher to a TaskFunc
func RefreshTask(r Refresher, lookbackDays int) TaskFunc {
	return func(ctx context.Context) error {
		return r.RefreshAll(ctx, lookbackDays)
	}
}

func (s *Scheduler) taskWithRecover(fn TaskFunc, jobName string) func(ctx context.Context) {
	return func(ctx context.Context) {
		logger := s.logger.With().Str("job", jobName).Logger()
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Interface("panic", r).
					Str("stacktrace", string(debug.Stack())).
					Msg("panic recovered in scheduler job")
			}
		}()

		logger.Info().Msg("job start")
		start := time.Now()

		if err := fn(logger.WithContext(ctx)); err != nil {
			logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("job failed")
			return
		}
		logger.Info().Dur("elapsed", time.Since(start)).Msg("job completed")
	}
}
