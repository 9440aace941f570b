package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"
)

// StaleCallFailer fails calls idle for longer than a duration.
// *CallService implements it.
type StaleCallFailer interface {
	FailStale(ctx context.Context, idle time.Duration) (int, error)
}

// Sweeper periodically fails calls that stopped reporting activity.
type Sweeper struct {
	calls    StaleCallFailer
	schedule string
	idle     time.Duration
	now      func() time.Time
}

// NewSweeper validates the cron schedule and returns a Sweeper.
func NewSweeper(calls StaleCallFailer, schedule string, idle time.Duration) (*Sweeper, error) {
	if !gronx.New().IsValid(schedule) {
		return nil, fmt.Errorf("%w: invalid sweep schedule %q", ErrValidation, schedule)
	}
	if idle <= 0 {
		return nil, fmt.Errorf("%w: idle threshold must be positive", ErrValidation)
	}
	return &Sweeper{calls: calls, schedule: schedule, idle: idle, now: time.Now}, nil
}

// Next returns the next sweep time strictly after ref.
func (s *Sweeper) Next(ref time.Time) (time.Time, error) {
	return gronx.NextTickAfter(s.schedule, ref, false)
}

// Run sweeps on schedule until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	slog.Info("stale call sweeper started", "schedule", s.schedule, "idle", s.idle)
	for {
		next, err := s.Next(s.now())
		if err != nil {
			return fmt.Errorf("next sweep: %w", err)
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("stale call sweeper stopped")
			return nil
		case <-timer.C:
		}

		s.Sweep(ctx)
	}
}

// Sweep runs one pass and returns how many calls were failed.
func (s *Sweeper) Sweep(ctx context.Context) int {
	n, err := s.calls.FailStale(ctx, s.idle)
	if err != nil {
		slog.Error("stale call sweep failed", "error", err)
		return 0
	}
	if n > 0 {
		slog.Info("stale calls failed", "count", n, "idle", s.idle)
	}
	return n
}
