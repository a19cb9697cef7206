package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// DefaultTickInterval is the wall-clock polling period of the Runner.
const DefaultTickInterval = 100 * time.Millisecond

// Runner drives a Scheduler from a wall-clock ticker: every interval it
// advances the virtual clock and ticks. Only one Runner should drive a
// given Scheduler.
type Runner struct {
	scheduler *Scheduler
	interval  time.Duration
	wall      clockwork.Clock
	logger    *zap.Logger

	// OnTick, if set, is called after every pass with its report and error.
	OnTick func(TickReport, error)
}

// NewRunner creates a Runner that shares the scheduler clock's wall time
// source. A non-positive interval selects DefaultTickInterval.
func NewRunner(s *Scheduler, interval time.Duration, logger *zap.Logger) *Runner {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		scheduler: s,
		interval:  interval,
		wall:      s.Clock().Wall(),
		logger:    logger,
	}
}

// Run polls until ctx is done. Tick failures are logged and the loop keeps
// going with whatever state the store still holds.
func (r *Runner) Run(ctx context.Context) error {
	ticker := r.wall.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("simulation loop started", zap.Duration("interval", r.interval))
	defer r.logger.Info("simulation loop stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			report, err := r.scheduler.Advance(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || ctx.Err() != nil {
					return nil
				}
				r.logger.Warn("tick failed", zap.Error(err))
			}
			if r.OnTick != nil {
				r.OnTick(report, err)
			}
		}
	}
}
