package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/cx-tal-miterani/flight-lifecycle/internal/clock"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_AdvancesScaledVirtualTime(t *testing.T) {
	wall := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))
	start := departure.Add(-31 * time.Minute)
	c := clock.New(clock.WithWallClock(wall), clock.WithStart(start), clock.WithSpeed(60))
	c.Start()

	store := newMemStore(newFlight("AF123", departure, models.FlightStatusScheduled))
	s := New(c, store)

	r := NewRunner(s, 100*time.Millisecond, nil)
	reports := make(chan TickReport, 16)
	r.OnTick = func(rep TickReport, err error) {
		assert.NoError(t, err)
		reports <- rep
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	wall.BlockUntil(1)
	wall.Advance(2 * time.Second)

	select {
	case rep := <-reports:
		assert.Equal(t, start.Add(2*time.Minute), rep.VirtualTime)
		require.Len(t, rep.Transitions, 1)
		assert.Equal(t, models.FlightStatusBoarding, rep.Transitions[0].To)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not tick")
	}
	assert.Equal(t, models.FlightStatusBoarding, store.get(t, "AF123").Status)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunner_DefaultInterval(t *testing.T) {
	s := New(clock.New(), newMemStore())
	r := NewRunner(s, 0, nil)
	assert.Equal(t, DefaultTickInterval, r.interval)
}

func TestRunner_PausedClockDoesNotMove(t *testing.T) {
	wall := clockwork.NewFakeClock()
	c := clock.New(clock.WithWallClock(wall), clock.WithStart(departure))
	s := New(c, newMemStore())

	r := NewRunner(s, time.Second, nil)
	reports := make(chan TickReport, 16)
	r.OnTick = func(rep TickReport, _ error) { reports <- rep }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	wall.BlockUntil(1)
	wall.Advance(time.Second)

	select {
	case rep := <-reports:
		assert.Equal(t, departure, rep.VirtualTime)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not tick")
	}
}
