package mocks

import (
	"context"

	"github.com/cx-tal-miterani/flight-lifecycle/internal/lifecycle"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockFlightOpsService is a mock implementation of FlightOpsService
type MockFlightOpsService struct {
	mock.Mock
}

func (m *MockFlightOpsService) ListFlights(ctx context.Context) ([]models.Flight, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Flight), args.Error(1)
}

func (m *MockFlightOpsService) GetFlight(ctx context.Context, flightNumber string) (*models.Flight, error) {
	args := m.Called(ctx, flightNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Flight), args.Error(1)
}

func (m *MockFlightOpsService) CreateFlight(ctx context.Context, req *models.CreateFlightRequest) (*models.Flight, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Flight), args.Error(1)
}

func (m *MockFlightOpsService) InjectDelay(ctx context.Context, flightNumber string, req *models.DelayRequest) (*models.Flight, error) {
	args := m.Called(ctx, flightNumber, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Flight), args.Error(1)
}

func (m *MockFlightOpsService) CancelFlight(ctx context.Context, flightNumber string, req *models.CancelRequest) (*models.Flight, error) {
	args := m.Called(ctx, flightNumber, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Flight), args.Error(1)
}

func (m *MockFlightOpsService) ClockState(ctx context.Context) models.ClockState {
	args := m.Called(ctx)
	return args.Get(0).(models.ClockState)
}

func (m *MockFlightOpsService) StartClock(ctx context.Context) models.ClockState {
	args := m.Called(ctx)
	return args.Get(0).(models.ClockState)
}

func (m *MockFlightOpsService) PauseClock(ctx context.Context) models.ClockState {
	args := m.Called(ctx)
	return args.Get(0).(models.ClockState)
}

func (m *MockFlightOpsService) SetSpeed(ctx context.Context, multiplier float64) models.ClockState {
	args := m.Called(ctx, multiplier)
	return args.Get(0).(models.ClockState)
}

func (m *MockFlightOpsService) SetVirtualTime(ctx context.Context, req *models.SetTimeRequest) (*lifecycle.TickReport, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lifecycle.TickReport), args.Error(1)
}

func (m *MockFlightOpsService) FastForward(ctx context.Context, req *models.FastForwardRequest) (*lifecycle.TickReport, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lifecycle.TickReport), args.Error(1)
}

func (m *MockFlightOpsService) RecentEvents(ctx context.Context, limit int) []models.EventEntry {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]models.EventEntry)
}
