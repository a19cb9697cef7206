package workflows

import (
	"time"

	"github.com/cx-tal-miterani/flight-lifecycle/internal/activities"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/models"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	// MinTickInterval is the shortest timer between simulation ticks. Shorter
	// intervals are raised to it.
	MinTickInterval = time.Second
	// DefaultMaxTicksPerRun bounds history size before continue-as-new
	DefaultMaxTicksPerRun = 1000
)

// SimulationWorkflow drives the flight lifecycle clock from a durable timer.
// Operator commands arrive as signals and are applied between ticks.
func SimulationWorkflow(ctx workflow.Context, input models.SimulationWorkflowInput) (*models.SimulationWorkflowState, error) {
	logger := workflow.GetLogger(ctx)

	interval := input.TickInterval
	if interval < MinTickInterval {
		interval = MinTickInterval
	}
	maxTicks := input.MaxTicksPerRun
	if maxTicks <= 0 {
		maxTicks = DefaultMaxTicksPerRun
	}

	state := models.SimulationWorkflowState{}
	if input.Previous != nil {
		state = *input.Previous
	}
	state.Runs++
	state.Outcome = models.SimulationRunning
	logger.Info("Simulation workflow started", "run", state.Runs, "interval", interval)

	err := workflow.SetQueryHandler(ctx, models.QueryGetState, func() (models.SimulationWorkflowState, error) {
		return state, nil
	})
	if err != nil {
		return nil, err
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	})

	delayCh := workflow.GetSignalChannel(ctx, models.SignalInjectDelay)
	cancelCh := workflow.GetSignalChannel(ctx, models.SignalCancelFlight)
	speedCh := workflow.GetSignalChannel(ctx, models.SignalSetSpeed)
	stopCh := workflow.GetSignalChannel(ctx, models.SignalStopSimulation)

	record := func(err error) {
		state.LastError = err.Error()
		state.LastUpdated = workflow.Now(ctx)
		logger.Warn("Simulation command failed", "error", err)
	}

	injectDelay := func(sig models.InjectDelaySignal) {
		var f models.Flight
		if err := workflow.ExecuteActivity(ctx, activities.InjectDelayName, sig).Get(ctx, &f); err != nil {
			record(err)
			return
		}
		state.DelaysInjected++
		state.LastUpdated = workflow.Now(ctx)
	}
	cancelFlight := func(sig models.CancelFlightSignal) {
		var f models.Flight
		if err := workflow.ExecuteActivity(ctx, activities.CancelFlightName, sig).Get(ctx, &f); err != nil {
			record(err)
			return
		}
		state.Cancellations++
		state.LastUpdated = workflow.Now(ctx)
	}
	setSpeed := func(sig models.SetSpeedSignal) {
		var applied float64
		if err := workflow.ExecuteActivity(ctx, activities.SetSpeedName, sig).Get(ctx, &applied); err != nil {
			record(err)
			return
		}
		logger.Info("Simulation speed set", "applied", applied)
	}

	var (
		timer     workflow.Future
		ticks     int
		stopped   bool
		cancelled bool
	)

	for !stopped && !cancelled {
		// One pending timer at a time; signals do not reset it.
		if timer == nil {
			timer = workflow.NewTimer(ctx, interval)
		}

		selector := workflow.NewSelector(ctx)

		selector.AddFuture(timer, func(f workflow.Future) {
			timer = nil
			if err := f.Get(ctx, nil); err != nil {
				cancelled = true
				return
			}

			ticks++
			var res activities.AdvanceResult
			if err := workflow.ExecuteActivity(ctx, activities.AdvanceSimulationName).Get(ctx, &res); err != nil {
				record(err)
				return
			}
			state.Ticks++
			state.Transitions += res.Transitions
			state.VirtualTime = res.VirtualTime
			state.LastUpdated = workflow.Now(ctx)
		})

		selector.AddReceive(delayCh, func(c workflow.ReceiveChannel, more bool) {
			var sig models.InjectDelaySignal
			c.Receive(ctx, &sig)
			logger.Info("Delay signal received", "flight", sig.FlightNumber, "minutes", sig.Minutes)
			injectDelay(sig)
		})

		selector.AddReceive(cancelCh, func(c workflow.ReceiveChannel, more bool) {
			var sig models.CancelFlightSignal
			c.Receive(ctx, &sig)
			logger.Info("Cancel signal received", "flight", sig.FlightNumber)
			cancelFlight(sig)
		})

		selector.AddReceive(speedCh, func(c workflow.ReceiveChannel, more bool) {
			var sig models.SetSpeedSignal
			c.Receive(ctx, &sig)
			setSpeed(sig)
		})

		selector.AddReceive(stopCh, func(c workflow.ReceiveChannel, more bool) {
			c.Receive(ctx, nil)
			logger.Info("Stop signal received")
			stopped = true
		})

		selector.AddReceive(ctx.Done(), func(c workflow.ReceiveChannel, more bool) {
			cancelled = true
		})

		selector.Select(ctx)

		if ctx.Err() != nil {
			cancelled = true
		}

		if !stopped && !cancelled && ticks >= maxTicks {
			// Apply anything already queued so no command is lost across runs.
			for {
				var d models.InjectDelaySignal
				if !delayCh.ReceiveAsync(&d) {
					break
				}
				injectDelay(d)
			}
			for {
				var c models.CancelFlightSignal
				if !cancelCh.ReceiveAsync(&c) {
					break
				}
				cancelFlight(c)
			}
			for {
				var sp models.SetSpeedSignal
				if !speedCh.ReceiveAsync(&sp) {
					break
				}
				setSpeed(sp)
			}
			if stopCh.ReceiveAsync(nil) {
				stopped = true
				break
			}

			logger.Info("Continuing simulation as new", "ticks", state.Ticks)
			next := state
			return nil, workflow.NewContinueAsNewError(ctx, SimulationWorkflow, models.SimulationWorkflowInput{
				TickInterval:   interval,
				MaxTicksPerRun: maxTicks,
				Previous:       &next,
			})
		}
	}

	if cancelled {
		state.Outcome = models.SimulationCancelled
		logger.Info("Simulation workflow cancelled", "ticks", state.Ticks)
		return &state, ctx.Err()
	}

	state.Outcome = models.SimulationStopped
	state.LastUpdated = workflow.Now(ctx)
	logger.Info("Simulation workflow stopped", "ticks", state.Ticks)
	return &state, nil
}
