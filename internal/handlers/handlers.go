package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/cx-tal-miterani/flight-lifecycle/internal/lifecycle"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/models"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers for the API
type Handler struct {
	flightOps service.FlightOpsService
	logger    *zap.Logger
}

// NewHandler creates a new Handler instance
func NewHandler(flightOps service.FlightOpsService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		flightOps: flightOps,
		logger:    logger,
	}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the scheduler's error classes to status codes.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, lifecycle.ErrInvalidTransition), errors.Is(err, models.ErrDuplicateFlight):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, lifecycle.ErrInvalidArgument):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, lifecycle.ErrPersistence):
		h.logger.Error("persistence failure", zap.String("path", r.URL.Path), zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "flight store unavailable")
	default:
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// validate checks the `validate` struct tags of decoded request bodies.
var validate = validator.New()

func decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// respondInvalid reports the first failing field of a request body.
func respondInvalid(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		respondError(w, http.StatusBadRequest, "invalid "+fe.Field()+": failed "+fe.Tag()+" "+fe.Param())
		return
	}
	respondError(w, http.StatusBadRequest, "Invalid request body")
}

// ListFlights handles GET /api/flights
func (h *Handler) ListFlights(w http.ResponseWriter, r *http.Request) {
	flights, err := h.flightOps.ListFlights(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, flights)
}

// GetFlight handles GET /api/flights/{number}
func (h *Handler) GetFlight(w http.ResponseWriter, r *http.Request) {
	flight, err := h.flightOps.GetFlight(r.Context(), mux.Vars(r)["number"])
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, flight)
}

// CreateFlight handles POST /api/flights
func (h *Handler) CreateFlight(w http.ResponseWriter, r *http.Request) {
	var req models.CreateFlightRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondInvalid(w, err)
		return
	}

	flight, err := h.flightOps.CreateFlight(r.Context(), &req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, flight)
}

// InjectDelay handles POST /api/flights/{number}/delay
func (h *Handler) InjectDelay(w http.ResponseWriter, r *http.Request) {
	var req models.DelayRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondInvalid(w, err)
		return
	}

	flight, err := h.flightOps.InjectDelay(r.Context(), mux.Vars(r)["number"], &req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, flight)
}

// CancelFlight handles POST /api/flights/{number}/cancel
func (h *Handler) CancelFlight(w http.ResponseWriter, r *http.Request) {
	var req models.CancelRequest
	if err := decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	flight, err := h.flightOps.CancelFlight(r.Context(), mux.Vars(r)["number"], &req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, flight)
}

// GetClock handles GET /api/clock
func (h *Handler) GetClock(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.flightOps.ClockState(r.Context()))
}

// StartClock handles POST /api/clock/start
func (h *Handler) StartClock(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.flightOps.StartClock(r.Context()))
}

// PauseClock handles POST /api/clock/pause
func (h *Handler) PauseClock(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.flightOps.PauseClock(r.Context()))
}

// SetSpeed handles POST /api/clock/speed
func (h *Handler) SetSpeed(w http.ResponseWriter, r *http.Request) {
	var req models.SpeedRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	respondJSON(w, http.StatusOK, h.flightOps.SetSpeed(r.Context(), req.Multiplier))
}

// SetVirtualTime handles POST /api/clock/time
func (h *Handler) SetVirtualTime(w http.ResponseWriter, r *http.Request) {
	var req models.SetTimeRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondInvalid(w, err)
		return
	}

	report, err := h.flightOps.SetVirtualTime(r.Context(), &req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// FastForward handles POST /api/clock/fast-forward
func (h *Handler) FastForward(w http.ResponseWriter, r *http.Request) {
	req := models.FastForwardRequest{ProcessIntermediateEvents: true}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondInvalid(w, err)
		return
	}

	report, err := h.flightOps.FastForward(r.Context(), &req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// RecentEvents handles GET /api/events?limit=n
func (h *Handler) RecentEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	respondJSON(w, http.StatusOK, h.flightOps.RecentEvents(r.Context(), limit))
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"clock":  h.flightOps.ClockState(r.Context()),
	})
}
