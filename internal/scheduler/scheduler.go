package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RefreshFunc is invoked once per round with the round's start time.
type RefreshFunc func(ctx context.Context, round time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Interval time.Duration
	// AlignToStart snaps rounds to multiples of Interval (e.g. midnight UTC
	// for a 24h interval).
	AlignToStart bool
	StartupDelay time.Duration
	// RunOnStart fires one round immediately after the startup delay.
	RunOnStart bool
}

// Scheduler drives periodic refresh of upstream data.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{
		opts:   opts,
		logger: logger.With().Str("component", "scheduler").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run blocks, invoking fn each round until ctx is cancelled. Round errors are
// logged and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context, fn RefreshFunc) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if s.opts.RunOnStart {
		s.execute(ctx, fn, s.roundStart(s.now()))
	}

	next := s.nextRound(s.now())
	for {
		delay := next.Sub(s.now())
		if delay < 0 {
			next = s.nextRound(s.now())
			delay = next.Sub(s.now())
		}

		timer := time.NewTimer(delay)
		s.logger.Debug().Time("next_round", next).Msg("waiting for next round")

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		s.execute(ctx, fn, s.roundStart(next))
		next = next.Add(s.opts.Interval)
	}
}

func (s *Scheduler) execute(ctx context.Context, fn RefreshFunc, round time.Time) {
	s.logger.Info().Time("round", round).Msg("executing scheduled refresh")
	if err := fn(ctx, round); err != nil {
		s.logger.Error().Err(err).Time("round", round).Msg("scheduled refresh failed")
	}
}

func (s *Scheduler) nextRound(now time.Time) time.Time {
	if !s.opts.AlignToStart {
		return now.Add(s.opts.Interval)
	}
	round := now.Truncate(s.opts.Interval)
	if !round.After(now) {
		round = round.Add(s.opts.Interval)
	}
	return round
}

func (s *Scheduler) roundStart(t time.Time) time.Time {
	if !s.opts.AlignToStart {
		return t
	}
	return t.Truncate(s.opts.Interval)
}
