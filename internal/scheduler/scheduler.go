package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"metals-dashboard/internal/config"
	"metals-dashboard/internal/logging"
)

// Job runs once per watch cycle. at is the cycle's scheduled time.
type Job func(ctx context.Context, at time.Time) error

// Options tune the watch loop.
type Options struct {
	Interval     time.Duration
	AlignToStart bool
	StartupDelay time.Duration
}

// OptionsFrom maps the watch config section onto Options.
func OptionsFrom(cfg config.WatchConfig) Options {
	return Options{
		Interval:     cfg.Interval,
		AlignToStart: cfg.AlignToStart,
		StartupDelay: cfg.StartupDelay,
	}
}

// Scheduler repeats a job on a fixed cadence until its context ends.
type Scheduler struct {
	opts   Options
	now    func() time.Time
	logger zerolog.Logger
}

// New constructs a Scheduler. The interval must be positive.
func New(opts Options, logger zerolog.Logger) (*Scheduler, error) {
	if opts.Interval <= 0 {
		return nil, errors.New("scheduler: interval must be positive")
	}
	return &Scheduler{
		opts:   opts,
		now:    time.Now,
		logger: logging.Component(logger, "scheduler"),
	}, nil
}

// Run blocks, invoking job on every cycle until ctx is cancelled. A failed
// cycle is logged and the loop carries on.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	if s.opts.StartupDelay > 0 {
		if err := s.sleep(ctx, s.opts.StartupDelay); err != nil {
			return err
		}
	}

	next := s.nextCycle(s.now().UTC())
	for {
		// 机器休眠或任务超时后直接跳到下一个周期, 不补跑错过的周期
		if next.Before(s.now()) {
			next = s.nextCycle(s.now().UTC())
		}
		s.logger.Debug().Time("next_cycle", next).Msg("waiting for next cycle")
		if err := s.sleep(ctx, next.Sub(s.now())); err != nil {
			return err
		}

		at := s.cycleStart(next)
		started := s.now()
		if err := job(ctx, at); err != nil {
			s.logger.Error().Err(err).Time("cycle", at).Msg("watch cycle failed")
		} else {
			s.logger.Info().Time("cycle", at).Dur("took", s.now().Sub(started)).Msg("watch cycle completed")
		}

		next = next.Add(s.opts.Interval)
	}
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) error {
	if d < 0 {
		d = 0
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Scheduler) nextCycle(now time.Time) time.Time {
	if !s.opts.AlignToStart {
		return now.Add(s.opts.Interval)
	}
	cycle := now.Truncate(s.opts.Interval)
	if !cycle.After(now) {
		cycle = cycle.Add(s.opts.Interval)
	}
	return cycle
}

func (s *Scheduler) cycleStart(t time.Time) time.Time {
	if !s.opts.AlignToStart {
		return t
	}
	return t.Truncate(s.opts.Interval)
}
