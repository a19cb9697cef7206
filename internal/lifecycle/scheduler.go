// Package lifecycle keeps flight statuses consistent with the virtual clock.
//
// Transitions, in evaluation order:
//
//	Scheduled -> Boarding   at departure - 30m
//	Boarding  -> Airborne   at departure       (sets ActualDeparture, emits departure)
//	Airborne  -> Landed     at arrival         (sets ActualArrival, emits arrival)
//	Landed    -> Completed  at arrival + 30m
//
// Delayed and Cancelled are side states entered on request from any
// non-terminal status. A Delayed flight resumes the rule of the phase it
// interrupted. Completed and Cancelled are terminal.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cx-tal-miterani/flight-lifecycle/internal/clock"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/eventlog"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/models"
	"go.uber.org/zap"
)

const (
	BoardingLead  = 30 * time.Minute
	CompletionLag = 30 * time.Minute

	// MaxDelayMinutes is the longest single delay InjectDelay accepts (one
	// leap year). It keeps the shift far from time.Duration overflow.
	MaxDelayMinutes = 366 * 24 * 60

	// Longest chain a single evaluation can walk: Scheduled/Delayed ->
	// Boarding -> Airborne -> Landed -> Completed.
	maxCascade = 4
)

// Store is the flight record store the scheduler reads and writes.
// GetFlight returns models.ErrFlightNotFound for unknown flight numbers.
type Store interface {
	ListFlights(ctx context.Context) ([]models.Flight, error)
	GetFlight(ctx context.Context, flightNumber string) (*models.Flight, error)
	SaveFlight(ctx context.Context, f models.Flight) error
}

// Transition is one status change applied during a tick.
type Transition struct {
	FlightNumber string              `json:"flightNumber"`
	From         models.FlightStatus `json:"from"`
	To           models.FlightStatus `json:"to"`
	At           time.Time           `json:"at"`
}

// TickReport summarises one or more evaluation passes.
type TickReport struct {
	VirtualTime time.Time    `json:"virtualTime"`
	Passes      int          `json:"passes"`
	Evaluated   int          `json:"evaluated"`
	Transitions []Transition `json:"transitions"`
}

func (r *TickReport) merge(o TickReport) {
	r.VirtualTime = o.VirtualTime
	r.Passes += o.Passes
	r.Evaluated += o.Evaluated
	r.Transitions = append(r.Transitions, o.Transitions...)
}

// Scheduler applies the flight lifecycle rules on every tick.
//
// All mutating operations are serialised on one mutex so a polling loop and
// request handlers can share a Scheduler. Notifications are delivered after
// the mutex is released, so listeners may call back into the Scheduler.
type Scheduler struct {
	mu     sync.Mutex
	clock  *clock.Clock
	store  Store
	events *eventlog.Log
	logger *zap.Logger
	bus    *bus
}

// Option configures a Scheduler.
type Option func(*Scheduler)

func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithEventLog(l *eventlog.Log) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.events = l
		}
	}
}

// New creates a Scheduler driven by c over store.
func New(c *clock.Clock, store Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:  c,
		store:  store,
		events: eventlog.New(eventlog.DefaultCapacity),
		logger: zap.NewNop(),
		bus:    newBus(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Clock() *clock.Clock {
	return s.clock
}

func (s *Scheduler) Events() *eventlog.Log {
	return s.events
}

// Subscribe registers fn for the given kinds, or for every kind when none
// are given.
func (s *Scheduler) Subscribe(fn Listener, kinds ...Kind) *Subscription {
	return s.bus.add(fn, kinds)
}

// Tick evaluates every flight against the current virtual time.
func (s *Scheduler) Tick(ctx context.Context) (TickReport, error) {
	s.mu.Lock()
	report, notes, err := s.tickLocked(ctx)
	s.mu.Unlock()

	s.bus.publish(notes)
	return report, err
}

// Advance moves the clock by the wall time elapsed since the last call and
// then ticks. This is the body of the polling loop.
func (s *Scheduler) Advance(ctx context.Context) (TickReport, error) {
	s.mu.Lock()
	s.clock.Advance()
	report, notes, err := s.tickLocked(ctx)
	s.mu.Unlock()

	s.bus.publish(notes)
	return report, err
}

// SetVirtualTime force-sets the clock and re-evaluates immediately.
func (s *Scheduler) SetVirtualTime(ctx context.Context, t time.Time) (TickReport, error) {
	s.mu.Lock()
	s.clock.Set(t)
	s.events.Append(t, "clock", "", "virtual time set to "+t.Format(time.RFC3339))
	report, notes, err := s.tickLocked(ctx)
	s.mu.Unlock()

	s.bus.publish(notes)
	return report, err
}

// FastForwardTo moves the clock to target. With processIntermediate every
// clock step is ticked so no transition is skipped. Persistence failures
// in a step are collected and the walk continues.
func (s *Scheduler) FastForwardTo(ctx context.Context, target time.Time, processIntermediate bool) (TickReport, error) {
	s.mu.Lock()

	var (
		report TickReport
		notes  []Notification
		errs   []error
	)
	from := s.clock.Now()
	err := s.clock.FastForwardTo(target, processIntermediate, func(time.Time) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, n, err := s.tickLocked(ctx)
		report.merge(r)
		notes = append(notes, n...)
		if err != nil {
			errs = append(errs, err)
		}
		return nil
	})
	if err == nil {
		s.events.Append(s.clock.Now(), "clock", "", fmt.Sprintf("fast-forwarded from %s (%d passes)",
			from.Format(time.RFC3339), report.Passes))
	}
	s.mu.Unlock()

	s.bus.publish(notes)

	switch {
	case errors.Is(err, clock.ErrTargetInPast), errors.Is(err, clock.ErrTooManySteps):
		return report, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	case err != nil:
		return report, err
	}
	if len(errs) > 0 {
		return report, errors.Join(errs...)
	}
	return report, nil
}

// InjectDelay shifts both scheduled times of a non-terminal flight forward
// by minutes and puts it in Delayed.
func (s *Scheduler) InjectDelay(ctx context.Context, flightNumber string, minutes int, reason string) (models.Flight, error) {
	if minutes <= 0 {
		return models.Flight{}, invalidArgumentf("delay must be a positive number of minutes, got %d", minutes)
	}
	if minutes > MaxDelayMinutes {
		return models.Flight{}, invalidArgumentf("delay of %d minutes exceeds the maximum of %d", minutes, MaxDelayMinutes)
	}

	s.mu.Lock()
	f, err := s.lookup(ctx, flightNumber)
	if err != nil {
		s.mu.Unlock()
		return models.Flight{}, err
	}
	if f.Status.Terminal() {
		s.mu.Unlock()
		return models.Flight{}, invalidTransitionf("cannot delay %s flight %s", f.Status, f.FlightNumber)
	}

	vt := s.clock.Now()
	shift := time.Duration(minutes) * time.Minute
	entry := models.DelayEntry{Minutes: minutes, Reason: reason, AppliedAt: vt}

	updated := f.Clone()
	updated.ScheduledDeparture = updated.ScheduledDeparture.Add(shift)
	updated.ScheduledArrival = updated.ScheduledArrival.Add(shift)
	if f.Status != models.FlightStatusDelayed {
		updated.DelayedFrom = f.Status
	}
	updated.Status = models.FlightStatusDelayed
	updated.DelayLog = append(updated.DelayLog, entry)
	updated.UpdatedAt = vt

	if err := s.store.SaveFlight(ctx, updated); err != nil {
		s.mu.Unlock()
		s.logger.Error("failed to persist delay", zap.String("flight", f.FlightNumber), zap.Error(err))
		return models.Flight{}, persistence("save flight "+f.FlightNumber, err)
	}

	msg := fmt.Sprintf("%s delayed %d min (%s)", f.FlightNumber, minutes, reason)
	s.events.Append(vt, string(KindDelay), f.FlightNumber, msg)
	s.logger.Info("flight delayed",
		zap.String("flight", f.FlightNumber),
		zap.Int("minutes", minutes),
		zap.String("reason", reason),
		zap.Time("newDeparture", updated.ScheduledDeparture))

	notes := []Notification{{Kind: KindDelay, Flight: updated.Clone(), Previous: f.Status, VirtualTime: vt, Delay: &entry}}
	if f.Status != updated.Status {
		notes = append(notes, Notification{Kind: KindFlightUpdate, Flight: updated.Clone(), Previous: f.Status, VirtualTime: vt})
	}
	s.mu.Unlock()

	s.bus.publish(notes)
	return updated, nil
}

// Cancel moves a non-terminal flight to Cancelled.
func (s *Scheduler) Cancel(ctx context.Context, flightNumber, reason string) (models.Flight, error) {
	s.mu.Lock()
	f, err := s.lookup(ctx, flightNumber)
	if err != nil {
		s.mu.Unlock()
		return models.Flight{}, err
	}
	if f.Status.Terminal() {
		s.mu.Unlock()
		return models.Flight{}, invalidTransitionf("cannot cancel %s flight %s", f.Status, f.FlightNumber)
	}

	vt := s.clock.Now()
	updated := f.Clone()
	updated.Status = models.FlightStatusCancelled
	updated.DelayedFrom = ""
	updated.CancellationReason = reason
	updated.UpdatedAt = vt

	if err := s.store.SaveFlight(ctx, updated); err != nil {
		s.mu.Unlock()
		s.logger.Error("failed to persist cancellation", zap.String("flight", f.FlightNumber), zap.Error(err))
		return models.Flight{}, persistence("save flight "+f.FlightNumber, err)
	}

	s.events.Append(vt, "cancel", f.FlightNumber, fmt.Sprintf("%s cancelled (%s)", f.FlightNumber, reason))
	s.logger.Info("flight cancelled", zap.String("flight", f.FlightNumber), zap.String("reason", reason))

	notes := []Notification{{Kind: KindFlightUpdate, Flight: updated.Clone(), Previous: f.Status, VirtualTime: vt}}
	s.mu.Unlock()

	s.bus.publish(notes)
	return updated, nil
}

func (s *Scheduler) lookup(ctx context.Context, flightNumber string) (*models.Flight, error) {
	flightNumber = strings.TrimSpace(flightNumber)
	if flightNumber == "" {
		return nil, invalidArgumentf("flight number is required")
	}
	f, err := s.store.GetFlight(ctx, flightNumber)
	if err != nil {
		if errors.Is(err, models.ErrFlightNotFound) {
			return nil, notFound(flightNumber)
		}
		return nil, persistence("load flight "+flightNumber, err)
	}
	return f, nil
}

// tickLocked runs one evaluation pass. Each flight walks the rule table
// until no rule matches, so a second pass at the same virtual time changes
// nothing. Must be called with s.mu held.
func (s *Scheduler) tickLocked(ctx context.Context) (TickReport, []Notification, error) {
	vt := s.clock.Now()
	report := TickReport{VirtualTime: vt, Passes: 1}

	flights, err := s.store.ListFlights(ctx)
	if err != nil {
		return report, nil, persistence("list flights", err)
	}

	var (
		notes []Notification
		errs  []error
	)
	for _, f := range flights {
		if f.Status.Terminal() {
			continue
		}
		report.Evaluated++

		updated := f.Clone()
		steps := evaluate(&updated, vt)
		if len(steps) == 0 {
			continue
		}

		if err := s.store.SaveFlight(ctx, updated); err != nil {
			s.logger.Error("failed to persist transition",
				zap.String("flight", f.FlightNumber),
				zap.String("from", string(f.Status)),
				zap.String("to", string(updated.Status)),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("flight %s: %w", f.FlightNumber, err))
			continue
		}

		for _, st := range steps {
			report.Transitions = append(report.Transitions, Transition{
				FlightNumber: f.FlightNumber, From: st.from, To: st.to, At: vt,
			})
			s.logger.Debug("flight status changed",
				zap.String("flight", f.FlightNumber),
				zap.String("from", string(st.from)),
				zap.String("to", string(st.to)),
				zap.Time("virtualTime", vt))

			snapshot := st.flight
			switch st.to {
			case models.FlightStatusAirborne:
				s.events.Append(vt, string(KindDeparture), f.FlightNumber, f.FlightNumber+" departed")
				notes = append(notes, Notification{Kind: KindDeparture, Flight: snapshot, Previous: st.from, VirtualTime: vt})
			case models.FlightStatusLanded:
				s.events.Append(vt, string(KindArrival), f.FlightNumber, f.FlightNumber+" arrived")
				notes = append(notes, Notification{Kind: KindArrival, Flight: snapshot, Previous: st.from, VirtualTime: vt})
			default:
				s.events.Append(vt, string(KindFlightUpdate), f.FlightNumber,
					fmt.Sprintf("%s %s -> %s", f.FlightNumber, st.from, st.to))
			}
			notes = append(notes, Notification{Kind: KindFlightUpdate, Flight: snapshot, Previous: st.from, VirtualTime: vt})
		}
	}

	if len(errs) > 0 {
		return report, notes, fmt.Errorf("%w: failed to save %d flight(s): %w", ErrPersistence, len(errs), errors.Join(errs...))
	}
	return report, notes, nil
}

type step struct {
	from, to models.FlightStatus
	flight   models.Flight // record as it was right after this step
}

// evaluate applies matching rules to f in place and returns the steps taken.
func evaluate(f *models.Flight, vt time.Time) []step {
	var steps []step
	for i := 0; i < maxCascade; i++ {
		to, ok := next(f, vt)
		if !ok {
			break
		}
		from := f.Status
		switch to {
		case models.FlightStatusAirborne:
			t := vt
			f.ActualDeparture = &t
		case models.FlightStatusLanded:
			t := vt
			f.ActualArrival = &t
		}
		f.Status = to
		f.DelayedFrom = ""
		f.UpdatedAt = vt
		steps = append(steps, step{from: from, to: to, flight: f.Clone()})
	}
	return steps
}

// next returns the status the first matching rule moves f to.
func next(f *models.Flight, vt time.Time) (models.FlightStatus, bool) {
	phase := f.Status
	if phase == models.FlightStatusDelayed {
		switch f.DelayedFrom {
		case models.FlightStatusAirborne, models.FlightStatusLanded:
			phase = f.DelayedFrom
		default:
			phase = models.FlightStatusScheduled
		}
	}

	switch phase {
	case models.FlightStatusScheduled:
		if !vt.Before(f.ScheduledDeparture.Add(-BoardingLead)) {
			return models.FlightStatusBoarding, true
		}
	case models.FlightStatusBoarding:
		if !vt.Before(f.ScheduledDeparture) {
			return models.FlightStatusAirborne, true
		}
	case models.FlightStatusAirborne:
		if !vt.Before(f.ScheduledArrival) {
			return models.FlightStatusLanded, true
		}
	case models.FlightStatusLanded:
		if !vt.Before(f.ScheduledArrival.Add(CompletionLag)) {
			return models.FlightStatusCompleted, true
		}
	}
	return "", false
}
