package router

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/cx-tal-miterani/flight-lifecycle/internal/clock"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/filestore"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/handlers"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/lifecycle"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/models"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/service"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	store, err := filestore.Open(filepath.Join(t.TempDir(), "flights.json"))
	require.NoError(t, err)
	for _, f := range models.SampleFlights(start) {
		require.NoError(t, store.CreateFlight(context.Background(), f))
	}

	c := clock.New(clock.WithWallClock(clockwork.NewFakeClockAt(start)), clock.WithStart(start))
	svc := service.NewFlightOpsService(lifecycle.New(c, store), store, nil)
	return SetupRouter(handlers.NewHandler(svc, nil), nil, nil)
}

func TestRouter_Routes(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/api/flights", "", http.StatusOK},
		{http.MethodGet, "/api/flights/AF123", "", http.StatusOK},
		{http.MethodGet, "/api/flights/NOPE", "", http.StatusNotFound},
		{http.MethodPost, "/api/flights/AF123/delay", `{"minutes":45,"reason":"weather"}`, http.StatusOK},
		{http.MethodPost, "/api/flights/AF123/delay", `{"minutes":-1}`, http.StatusBadRequest},
		{http.MethodPost, "/api/flights/BA284/cancel", `{"reason":"strike"}`, http.StatusOK},
		{http.MethodPost, "/api/flights/BA284/cancel", "", http.StatusConflict},
		{http.MethodGet, "/api/clock", "", http.StatusOK},
		{http.MethodPost, "/api/clock/start", "", http.StatusOK},
		{http.MethodPost, "/api/clock/pause", "", http.StatusOK},
		{http.MethodPost, "/api/clock/speed", `{"multiplier":10}`, http.StatusOK},
		{http.MethodPost, "/api/clock/fast-forward", `{"target":"2024-06-01T11:00:00Z"}`, http.StatusBadRequest},
		{http.MethodPost, "/api/clock/fast-forward", `{"target":"2024-06-01T13:00:00Z"}`, http.StatusOK},
		{http.MethodGet, "/api/events", "", http.StatusOK},
		{http.MethodOptions, "/api/flights", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			var body *bytes.Buffer
			if tt.body != "" {
				body = bytes.NewBufferString(tt.body)
			} else {
				body = &bytes.Buffer{}
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			rec := httptest.NewRecorder()

			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
