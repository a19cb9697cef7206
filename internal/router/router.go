package router

import (
	"net/http"
	"time"

	"github.com/cx-tal-miterani/flight-lifecycle/internal/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SetupRouter creates and configures the HTTP router. ws serves the
// WebSocket upgrade for both the all-flights and per-flight routes.
func SetupRouter(h *handlers.Handler, ws http.HandlerFunc, logger *zap.Logger) *mux.Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := mux.NewRouter()

	r.Use(corsMiddleware)
	r.Use(loggingMiddleware(logger))

	api := r.PathPrefix("/api").Subrouter()

	// Flights
	api.HandleFunc("/flights", h.ListFlights).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/flights", h.CreateFlight).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/flights/{number}", h.GetFlight).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/flights/{number}/delay", h.InjectDelay).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/flights/{number}/cancel", h.CancelFlight).Methods(http.MethodPost, http.MethodOptions)

	// Simulation clock
	api.HandleFunc("/clock", h.GetClock).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/clock/start", h.StartClock).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/clock/pause", h.PauseClock).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/clock/speed", h.SetSpeed).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/clock/time", h.SetVirtualTime).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/clock/fast-forward", h.FastForward).Methods(http.MethodPost, http.MethodOptions)

	api.HandleFunc("/events", h.RecentEvents).Methods(http.MethodGet, http.MethodOptions)

	// WebSocket for real-time updates
	if ws != nil {
		api.HandleFunc("/ws", ws)
		api.HandleFunc("/flights/{number}/ws", ws)
	}

	// Health check
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Upgrades need the raw writer for hijacking.
			if r.Header.Get("Upgrade") != "" {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
