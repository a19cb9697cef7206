package activities

import (
	"context"
	"errors"
	"time"

	"github.com/cx-tal-miterani/flight-lifecycle/internal/lifecycle"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/models"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

// Registered activity names
const (
	AdvanceSimulationName = "AdvanceSimulation"
	InjectDelayName       = "InjectDelay"
	CancelFlightName      = "CancelFlight"
	SetSpeedName          = "SetSpeed"
)

// Application error types for business-rule failures. These are never retried.
const (
	ErrTypeNotFound          = "FlightNotFound"
	ErrTypeInvalidTransition = "InvalidTransition"
	ErrTypeInvalidArgument   = "InvalidArgument"
)

// AdvanceResult is the outcome of one simulation tick
type AdvanceResult struct {
	VirtualTime time.Time `json:"virtualTime"`
	Evaluated   int       `json:"evaluated"`
	Transitions int       `json:"transitions"`
}

// Activities holds the scheduler the simulation activities drive
type Activities struct {
	scheduler *lifecycle.Scheduler
}

// NewActivities creates a new Activities instance
func NewActivities(s *lifecycle.Scheduler) *Activities {
	return &Activities{scheduler: s}
}

// AdvanceSimulation moves the virtual clock by the elapsed wall time and
// applies every due transition.
func (a *Activities) AdvanceSimulation(ctx context.Context) (*AdvanceResult, error) {
	report, err := a.scheduler.Advance(ctx)
	if err != nil {
		activity.GetLogger(ctx).Warn("Simulation tick failed", "error", err)
		return nil, classify(err)
	}

	if len(report.Transitions) > 0 {
		activity.GetLogger(ctx).Info("Simulation advanced",
			"virtualTime", report.VirtualTime, "transitions", len(report.Transitions))
	}
	return &AdvanceResult{
		VirtualTime: report.VirtualTime,
		Evaluated:   report.Evaluated,
		Transitions: len(report.Transitions),
	}, nil
}

// InjectDelay activity - delays a flight
func (a *Activities) InjectDelay(ctx context.Context, sig models.InjectDelaySignal) (*models.Flight, error) {
	activity.GetLogger(ctx).Info("Injecting delay", "flight", sig.FlightNumber, "minutes", sig.Minutes)

	f, err := a.scheduler.InjectDelay(ctx, sig.FlightNumber, sig.Minutes, sig.Reason)
	if err != nil {
		return nil, classify(err)
	}
	return &f, nil
}

// CancelFlight activity - cancels a flight
func (a *Activities) CancelFlight(ctx context.Context, sig models.CancelFlightSignal) (*models.Flight, error) {
	activity.GetLogger(ctx).Info("Cancelling flight", "flight", sig.FlightNumber)

	f, err := a.scheduler.Cancel(ctx, sig.FlightNumber, sig.Reason)
	if err != nil {
		return nil, classify(err)
	}
	return &f, nil
}

// SetSpeed activity - changes the clock multiplier and returns the applied value
func (a *Activities) SetSpeed(ctx context.Context, sig models.SetSpeedSignal) (float64, error) {
	applied := a.scheduler.Clock().SetSpeed(sig.Multiplier)
	activity.GetLogger(ctx).Info("Clock speed changed", "requested", sig.Multiplier, "applied", applied)
	return applied, nil
}

// classify marks business-rule failures non-retryable. Persistence errors
// keep their retryable default.
func classify(err error) error {
	var errType string
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		errType = ErrTypeNotFound
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		errType = ErrTypeInvalidTransition
	case errors.Is(err, lifecycle.ErrInvalidArgument):
		errType = ErrTypeInvalidArgument
	default:
		return err
	}
	return temporal.NewNonRetryableApplicationError(err.Error(), errType, err)
}
