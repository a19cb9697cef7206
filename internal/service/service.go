package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cx-tal-miterani/flight-lifecycle/internal/lifecycle"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/models"
	"go.uber.org/zap"
)

// DefaultEventLimit is used by RecentEvents when limit is not positive.
const DefaultEventLimit = 50

// FlightStore is the record store plus creation of new records.
type FlightStore interface {
	lifecycle.Store
	CreateFlight(ctx context.Context, f models.Flight) error
}

// FlightOpsService defines the operations exposed over HTTP
type FlightOpsService interface {
	ListFlights(ctx context.Context) ([]models.Flight, error)
	GetFlight(ctx context.Context, flightNumber string) (*models.Flight, error)
	CreateFlight(ctx context.Context, req *models.CreateFlightRequest) (*models.Flight, error)
	InjectDelay(ctx context.Context, flightNumber string, req *models.DelayRequest) (*models.Flight, error)
	CancelFlight(ctx context.Context, flightNumber string, req *models.CancelRequest) (*models.Flight, error)

	ClockState(ctx context.Context) models.ClockState
	StartClock(ctx context.Context) models.ClockState
	PauseClock(ctx context.Context) models.ClockState
	SetSpeed(ctx context.Context, multiplier float64) models.ClockState
	SetVirtualTime(ctx context.Context, req *models.SetTimeRequest) (*lifecycle.TickReport, error)
	FastForward(ctx context.Context, req *models.FastForwardRequest) (*lifecycle.TickReport, error)

	RecentEvents(ctx context.Context, limit int) []models.EventEntry
}

// flightOpsService implements FlightOpsService on top of a Scheduler
type flightOpsService struct {
	scheduler *lifecycle.Scheduler
	store     FlightStore
	logger    *zap.Logger
}

// NewFlightOpsService creates a new FlightOpsService
func NewFlightOpsService(scheduler *lifecycle.Scheduler, store FlightStore, logger *zap.Logger) FlightOpsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &flightOpsService{scheduler: scheduler, store: store, logger: logger}
}

func (s *flightOpsService) ListFlights(ctx context.Context) ([]models.Flight, error) {
	flights, err := s.store.ListFlights(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list flights: %w", lifecycle.ErrPersistence, err)
	}
	if flights == nil {
		flights = []models.Flight{}
	}
	return flights, nil
}

func (s *flightOpsService) GetFlight(ctx context.Context, flightNumber string) (*models.Flight, error) {
	flightNumber = strings.TrimSpace(flightNumber)
	f, err := s.store.GetFlight(ctx, flightNumber)
	if err != nil {
		if errors.Is(err, models.ErrFlightNotFound) {
			return nil, fmt.Errorf("%w: %s", lifecycle.ErrNotFound, flightNumber)
		}
		return nil, fmt.Errorf("%w: failed to get flight: %w", lifecycle.ErrPersistence, err)
	}
	return f, nil
}

func (s *flightOpsService) CreateFlight(ctx context.Context, req *models.CreateFlightRequest) (*models.Flight, error) {
	f := models.Flight{
		FlightNumber:       strings.TrimSpace(req.FlightNumber),
		Origin:             strings.TrimSpace(req.Origin),
		Destination:        strings.TrimSpace(req.Destination),
		ScheduledDeparture: req.ScheduledDeparture,
		ScheduledArrival:   req.ScheduledArrival,
		Status:             models.FlightStatusScheduled,
		DelayLog:           []models.DelayEntry{},
		UpdatedAt:          s.scheduler.Clock().Now(),
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", lifecycle.ErrInvalidArgument, err)
	}

	if err := s.store.CreateFlight(ctx, f); err != nil {
		if errors.Is(err, models.ErrDuplicateFlight) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: failed to create flight: %w", lifecycle.ErrPersistence, err)
	}

	s.logger.Info("flight created",
		zap.String("flight", f.FlightNumber),
		zap.Time("departure", f.ScheduledDeparture),
		zap.Time("arrival", f.ScheduledArrival))
	return &f, nil
}

func (s *flightOpsService) InjectDelay(ctx context.Context, flightNumber string, req *models.DelayRequest) (*models.Flight, error) {
	f, err := s.scheduler.InjectDelay(ctx, flightNumber, req.Minutes, strings.TrimSpace(req.Reason))
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *flightOpsService) CancelFlight(ctx context.Context, flightNumber string, req *models.CancelRequest) (*models.Flight, error) {
	f, err := s.scheduler.Cancel(ctx, flightNumber, strings.TrimSpace(req.Reason))
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *flightOpsService) ClockState(ctx context.Context) models.ClockState {
	st := s.scheduler.Clock().Snapshot()
	return models.ClockState{VirtualTime: st.VirtualTime, Speed: st.Speed, Running: st.Running}
}

func (s *flightOpsService) StartClock(ctx context.Context) models.ClockState {
	s.scheduler.Clock().Start()
	s.logger.Info("clock started")
	return s.ClockState(ctx)
}

func (s *flightOpsService) PauseClock(ctx context.Context) models.ClockState {
	s.scheduler.Clock().Pause()
	s.logger.Info("clock paused")
	return s.ClockState(ctx)
}

func (s *flightOpsService) SetSpeed(ctx context.Context, multiplier float64) models.ClockState {
	applied := s.scheduler.Clock().SetSpeed(multiplier)
	s.logger.Info("clock speed changed", zap.Float64("speed", applied))
	return s.ClockState(ctx)
}

func (s *flightOpsService) SetVirtualTime(ctx context.Context, req *models.SetTimeRequest) (*lifecycle.TickReport, error) {
	if req.VirtualTime.IsZero() {
		return nil, fmt.Errorf("%w: virtual time is required", lifecycle.ErrInvalidArgument)
	}
	report, err := s.scheduler.SetVirtualTime(ctx, req.VirtualTime)
	return &report, err
}

func (s *flightOpsService) FastForward(ctx context.Context, req *models.FastForwardRequest) (*lifecycle.TickReport, error) {
	if req.Target.IsZero() {
		return nil, fmt.Errorf("%w: target time is required", lifecycle.ErrInvalidArgument)
	}
	report, err := s.scheduler.FastForwardTo(ctx, req.Target, req.ProcessIntermediateEvents)
	if err != nil && errors.Is(err, lifecycle.ErrInvalidArgument) {
		return nil, err
	}
	s.logger.Info("fast-forwarded",
		zap.Time("target", req.Target),
		zap.Int("passes", report.Passes),
		zap.Int("transitions", len(report.Transitions)))
	return &report, err
}

func (s *flightOpsService) RecentEvents(ctx context.Context, limit int) []models.EventEntry {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	entries := s.scheduler.Events().Recent(limit)
	out := make([]models.EventEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.EventEntry{
			ID:           e.ID.String(),
			VirtualTime:  e.VirtualTime,
			RealTime:     e.RealTime,
			Kind:         e.Kind,
			FlightNumber: e.FlightNumber,
			Message:      e.Message,
		})
	}
	return out
}
