package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cx-tal-miterani/flight-lifecycle/internal/lifecycle"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/models"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/service/mocks"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var departure = time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC)

func setupTestRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/flights", h.ListFlights).Methods(http.MethodGet)
	api.HandleFunc("/flights", h.CreateFlight).Methods(http.MethodPost)
	api.HandleFunc("/flights/{number}", h.GetFlight).Methods(http.MethodGet)
	api.HandleFunc("/flights/{number}/delay", h.InjectDelay).Methods(http.MethodPost)
	api.HandleFunc("/flights/{number}/cancel", h.CancelFlight).Methods(http.MethodPost)
	api.HandleFunc("/clock", h.GetClock).Methods(http.MethodGet)
	api.HandleFunc("/clock/speed", h.SetSpeed).Methods(http.MethodPost)
	api.HandleFunc("/clock/time", h.SetVirtualTime).Methods(http.MethodPost)
	api.HandleFunc("/clock/fast-forward", h.FastForward).Methods(http.MethodPost)
	api.HandleFunc("/events", h.RecentEvents).Methods(http.MethodGet)
	return r
}

func flight(number string, status models.FlightStatus) *models.Flight {
	return &models.Flight{
		FlightNumber:       number,
		ScheduledDeparture: departure,
		ScheduledArrival:   departure.Add(2 * time.Hour),
		Status:             status,
	}
}

func TestHandler_ListFlights(t *testing.T) {
	mockService := new(mocks.MockFlightOpsService)
	handler := NewHandler(mockService, nil)
	router := setupTestRouter(handler)

	mockService.On("ListFlights", mock.Anything).Return([]models.Flight{*flight("AF123", models.FlightStatusScheduled)}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/flights", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response []models.Flight
	err := json.NewDecoder(rec.Body).Decode(&response)
	require.NoError(t, err)
	assert.Len(t, response, 1)
	assert.Equal(t, "AF123", response[0].FlightNumber)

	mockService.AssertExpectations(t)
}

func TestHandler_GetFlight(t *testing.T) {
	tests := []struct {
		name           string
		number         string
		mockReturn     *models.Flight
		mockError      error
		expectedStatus int
	}{
		{
			name:           "flight found",
			number:         "AF123",
			mockReturn:     flight("AF123", models.FlightStatusBoarding),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "flight not found",
			number:         "ZZ999",
			mockError:      fmt.Errorf("%w: ZZ999", lifecycle.ErrNotFound),
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "store down",
			number:         "AF123",
			mockError:      fmt.Errorf("%w: connection refused", lifecycle.ErrPersistence),
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockFlightOpsService)
			handler := NewHandler(mockService, nil)
			router := setupTestRouter(handler)

			mockService.On("GetFlight", mock.Anything, tt.number).Return(tt.mockReturn, tt.mockError)

			req := httptest.NewRequest(http.MethodGet, "/api/flights/"+tt.number, nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_CreateFlight(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*mocks.MockFlightOpsService)
		expectedStatus int
	}{
		{
			name: "created",
			body: `{"flightNumber":"AF123","scheduledDeparture":"2024-06-01T14:00:00Z","scheduledArrival":"2024-06-01T16:00:00Z"}`,
			setupMock: func(m *mocks.MockFlightOpsService) {
				m.On("CreateFlight", mock.Anything, mock.MatchedBy(func(r *models.CreateFlightRequest) bool {
					return r.FlightNumber == "AF123" && r.ScheduledDeparture.Equal(departure)
				})).Return(flight("AF123", models.FlightStatusScheduled), nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "duplicate",
			body: `{"flightNumber":"AF123","scheduledDeparture":"2024-06-01T14:00:00Z","scheduledArrival":"2024-06-01T16:00:00Z"}`,
			setupMock: func(m *mocks.MockFlightOpsService) {
				m.On("CreateFlight", mock.Anything, mock.Anything).Return(nil, models.ErrDuplicateFlight)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "missing flight number",
			body:           `{"scheduledDeparture":"2024-06-01T14:00:00Z"}`,
			setupMock:      func(m *mocks.MockFlightOpsService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "arrival before departure",
			body:           `{"flightNumber":"AF123","scheduledDeparture":"2024-06-01T14:00:00Z","scheduledArrival":"2024-06-01T13:00:00Z"}`,
			setupMock:      func(m *mocks.MockFlightOpsService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed body",
			body:           `{"flightNumber":`,
			setupMock:      func(m *mocks.MockFlightOpsService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockFlightOpsService)
			handler := NewHandler(mockService, nil)
			router := setupTestRouter(handler)

			tt.setupMock(mockService)

			req := httptest.NewRequest(http.MethodPost, "/api/flights", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_InjectDelay(t *testing.T) {
	tests := []struct {
		name           string
		number         string
		body           interface{}
		mockError      error
		rejected       bool
		expectedStatus int
	}{
		{"delayed", "AF123", models.DelayRequest{Minutes: 45, Reason: "weather"}, nil, false, http.StatusOK},
		{"non-positive minutes", "AF123", models.DelayRequest{Minutes: 0}, nil, true, http.StatusBadRequest},
		{"longer than a year", "AF123", models.DelayRequest{Minutes: 527041}, nil, true, http.StatusBadRequest},
		{"overflowing minutes", "AF123", models.DelayRequest{Minutes: 200_000_000}, nil, true, http.StatusBadRequest},
		{"unknown flight", "ZZ999", models.DelayRequest{Minutes: 10}, fmt.Errorf("%w: ZZ999", lifecycle.ErrNotFound), false, http.StatusNotFound},
		{"completed flight", "AF123", models.DelayRequest{Minutes: 10}, fmt.Errorf("%w: completed", lifecycle.ErrInvalidTransition), false, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockFlightOpsService)
			handler := NewHandler(mockService, nil)
			router := setupTestRouter(handler)

			if !tt.rejected {
				var ret *models.Flight
				if tt.mockError == nil {
					ret = flight(tt.number, models.FlightStatusDelayed)
				}
				mockService.On("InjectDelay", mock.Anything, tt.number, mock.AnythingOfType("*models.DelayRequest")).Return(ret, tt.mockError)
			}

			body, _ := json.Marshal(tt.body)
			req := httptest.NewRequest(http.MethodPost, "/api/flights/"+tt.number+"/delay", bytes.NewBuffer(body))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_ValidationMessage(t *testing.T) {
	mockService := new(mocks.MockFlightOpsService)
	router := setupTestRouter(NewHandler(mockService, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/flights/AF123/delay", bytes.NewBufferString(`{"minutes":-5}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Contains(t, body["error"], "Minutes")
	mockService.AssertNotCalled(t, "InjectDelay", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_SetVirtualTime_RequiresTime(t *testing.T) {
	mockService := new(mocks.MockFlightOpsService)
	router := setupTestRouter(NewHandler(mockService, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/clock/time", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockService.AssertExpectations(t)
}

func TestHandler_CancelFlight(t *testing.T) {
	mockService := new(mocks.MockFlightOpsService)
	handler := NewHandler(mockService, nil)
	router := setupTestRouter(handler)

	mockService.On("CancelFlight", mock.Anything, "AF123", &models.CancelRequest{Reason: "strike"}).
		Return(flight("AF123", models.FlightStatusCancelled), nil)
	mockService.On("CancelFlight", mock.Anything, "BA284", &models.CancelRequest{}).
		Return(nil, fmt.Errorf("%w: already cancelled", lifecycle.ErrInvalidTransition))

	req := httptest.NewRequest(http.MethodPost, "/api/flights/AF123/cancel", bytes.NewBufferString(`{"reason":"strike"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/flights/BA284/cancel", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	mockService.AssertExpectations(t)
}

func TestHandler_Clock(t *testing.T) {
	mockService := new(mocks.MockFlightOpsService)
	handler := NewHandler(mockService, nil)
	router := setupTestRouter(handler)

	state := models.ClockState{VirtualTime: departure, Speed: 60, Running: true}
	mockService.On("ClockState", mock.Anything).Return(state)
	mockService.On("SetSpeed", mock.Anything, 60.0).Return(state)

	req := httptest.NewRequest(http.MethodGet, "/api/clock", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.ClockState
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.True(t, got.Running)
	assert.Equal(t, 60.0, got.Speed)

	req = httptest.NewRequest(http.MethodPost, "/api/clock/speed", bytes.NewBufferString(`{"multiplier":60}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	mockService.AssertExpectations(t)
}

func TestHandler_FastForward(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		wantProcess    bool
		mockReturn     *lifecycle.TickReport
		mockError      error
		rejected       bool
		expectedStatus int
	}{
		{
			name:           "defaults to processing intermediate events",
			body:           `{"target":"2024-06-01T18:00:00Z"}`,
			wantProcess:    true,
			mockReturn:     &lifecycle.TickReport{VirtualTime: departure.Add(4 * time.Hour), Passes: 16},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "jump",
			body:           `{"target":"2024-06-01T18:00:00Z","processIntermediateEvents":false}`,
			wantProcess:    false,
			mockReturn:     &lifecycle.TickReport{VirtualTime: departure.Add(4 * time.Hour), Passes: 1},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "target in the past",
			body:           `{"target":"2024-06-01T18:00:00Z"}`,
			wantProcess:    true,
			mockError:      fmt.Errorf("%w: past", lifecycle.ErrInvalidArgument),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "save failures",
			body:           `{"target":"2024-06-01T18:00:00Z"}`,
			wantProcess:    true,
			mockReturn:     &lifecycle.TickReport{},
			mockError:      fmt.Errorf("%w: %w", lifecycle.ErrPersistence, errors.New("disk full")),
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "missing target",
			body:           `{"processIntermediateEvents":true}`,
			rejected:       true,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockFlightOpsService)
			handler := NewHandler(mockService, nil)
			router := setupTestRouter(handler)

			if !tt.rejected {
				mockService.On("FastForward", mock.Anything, mock.MatchedBy(func(r *models.FastForwardRequest) bool {
					return r.ProcessIntermediateEvents == tt.wantProcess
				})).Return(tt.mockReturn, tt.mockError)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/clock/fast-forward", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_RecentEvents(t *testing.T) {
	mockService := new(mocks.MockFlightOpsService)
	handler := NewHandler(mockService, nil)
	router := setupTestRouter(handler)

	mockService.On("RecentEvents", mock.Anything, 5).Return([]models.EventEntry{{Kind: "delay", FlightNumber: "AF123"}})

	req := httptest.NewRequest(http.MethodGet, "/api/events?limit=5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/events?limit=abc", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	mockService.AssertExpectations(t)
}
