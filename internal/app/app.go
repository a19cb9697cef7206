// Package app wires the flight store, clock and scheduler from a Config.
// Both the API server and the Temporal worker start from here.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/cx-tal-miterani/flight-lifecycle/internal/clock"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/config"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/database"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/eventlog"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/filestore"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/lifecycle"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/models"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Core is the simulation state shared by every entry point.
type Core struct {
	Store     service.FlightStore
	Clock     *clock.Clock
	Events    *eventlog.Log
	Scheduler *lifecycle.Scheduler

	closers []func()
}

// Close releases the store connection, if any.
func (c *Core) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// Build opens the configured store and builds the scheduler on top of it.
// A non-empty DatabaseURL selects Postgres, otherwise the JSON file at
// StorePath is used.
func Build(ctx context.Context, cfg config.Config, wall clockwork.Clock, logger *zap.Logger) (*Core, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if wall == nil {
		wall = clockwork.NewRealClock()
	}

	core := &Core{}
	store, err := openStore(ctx, cfg, core, logger)
	if err != nil {
		core.Close()
		return nil, err
	}
	core.Store = store

	core.Clock = clock.New(
		clock.WithWallClock(wall),
		clock.WithSpeed(cfg.Speed),
		clock.WithStepSize(cfg.StepSize),
		clock.WithMaxSteps(cfg.MaxSteps),
		clock.WithLogger(logger.Named("clock")),
	)

	if cfg.SeedSamples {
		if err := Seed(ctx, store, models.SampleFlights(core.Clock.Now()), logger); err != nil {
			core.Close()
			return nil, err
		}
	}

	core.Events = eventlog.New(cfg.EventLogSize)
	core.Events.SetRealClock(wall.Now)
	core.Scheduler = lifecycle.New(core.Clock, store,
		lifecycle.WithEventLog(core.Events),
		lifecycle.WithLogger(logger.Named("scheduler")),
	)

	if cfg.Autostart {
		core.Clock.Start()
	}
	return core, nil
}

func openStore(ctx context.Context, cfg config.Config, core *Core, logger *zap.Logger) (service.FlightStore, error) {
	if cfg.DatabaseURL == "" {
		store, err := filestore.Open(cfg.StorePath)
		if err != nil {
			return nil, fmt.Errorf("open flight store: %w", err)
		}
		logger.Info("Using JSON flight store", zap.String("path", store.Path()))
		return store, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	core.closers = append(core.closers, pool.Close)

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	repo := database.NewRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	logger.Info("Using Postgres flight store")
	return repo, nil
}

// Seed creates flights that are not in the store yet. Existing records are
// left untouched so restarts keep their progress.
func Seed(ctx context.Context, store service.FlightStore, flights []models.Flight, logger *zap.Logger) error {
	created := 0
	for _, f := range flights {
		err := store.CreateFlight(ctx, f)
		switch {
		case err == nil:
			created++
		case errors.Is(err, models.ErrDuplicateFlight):
		default:
			return fmt.Errorf("seed flight %s: %w", f.FlightNumber, err)
		}
	}
	logger.Info("Seeded sample flights", zap.Int("created", created), zap.Int("total", len(flights)))
	return nil
}
