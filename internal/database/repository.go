package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cx-tal-miterani/flight-lifecycle/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound        = models.ErrFlightNotFound
	ErrDuplicateFlight = models.ErrDuplicateFlight
)

// Schema creates the flights table. EnsureSchema runs it on startup.
const Schema = `
CREATE TABLE IF NOT EXISTS flights (
	id                  UUID PRIMARY KEY,
	flight_number       TEXT NOT NULL UNIQUE,
	origin              TEXT NOT NULL DEFAULT '',
	destination         TEXT NOT NULL DEFAULT '',
	scheduled_departure TIMESTAMPTZ NOT NULL,
	scheduled_arrival   TIMESTAMPTZ NOT NULL,
	status              TEXT NOT NULL,
	delayed_from        TEXT NOT NULL DEFAULT '',
	actual_departure    TIMESTAMPTZ,
	actual_arrival      TIMESTAMPTZ,
	delay_log           JSONB NOT NULL DEFAULT '[]'::jsonb,
	cancellation_reason TEXT NOT NULL DEFAULT '',
	updated_at          TIMESTAMPTZ NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS flights_scheduled_departure_idx ON flights (scheduled_departure);
`

const flightColumns = `
	flight_number, origin, destination, scheduled_departure, scheduled_arrival,
	status, delayed_from, actual_departure, actual_arrival, delay_log,
	cancellation_reason, updated_at
`

// Repository stores flight records in PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the tables if they do not exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// ListFlights returns all flights ordered by scheduled departure
func (r *Repository) ListFlights(ctx context.Context) ([]models.Flight, error) {
	query := `SELECT ` + flightColumns + ` FROM flights ORDER BY scheduled_departure ASC, flight_number ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query flights: %w", err)
	}
	defer rows.Close()

	var flights []models.Flight
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flight: %w", err)
		}
		flights = append(flights, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read flights: %w", err)
	}

	return flights, nil
}

// GetFlight returns a flight by number
func (r *Repository) GetFlight(ctx context.Context, flightNumber string) (*models.Flight, error) {
	query := `SELECT ` + flightColumns + ` FROM flights WHERE flight_number = $1`

	f, err := scanFlight(r.pool.QueryRow(ctx, query, flightNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get flight: %w", err)
	}

	return f, nil
}

// SaveFlight inserts or updates a flight keyed by flight number
func (r *Repository) SaveFlight(ctx context.Context, f models.Flight) error {
	if err := f.Validate(); err != nil {
		return err
	}
	delayLog, err := encodeDelayLog(f.DelayLog)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO flights (id, `+flightColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, $12, $13)
		ON CONFLICT (flight_number) DO UPDATE SET
			origin = EXCLUDED.origin,
			destination = EXCLUDED.destination,
			scheduled_departure = EXCLUDED.scheduled_departure,
			scheduled_arrival = EXCLUDED.scheduled_arrival,
			status = EXCLUDED.status,
			delayed_from = EXCLUDED.delayed_from,
			actual_departure = EXCLUDED.actual_departure,
			actual_arrival = EXCLUDED.actual_arrival,
			delay_log = EXCLUDED.delay_log,
			cancellation_reason = EXCLUDED.cancellation_reason,
			updated_at = EXCLUDED.updated_at
	`, flightArgs(uuid.New(), f, delayLog)...)
	if err != nil {
		return fmt.Errorf("failed to save flight: %w", err)
	}
	return nil
}

// CreateFlight inserts a new flight, failing if the number already exists
func (r *Repository) CreateFlight(ctx context.Context, f models.Flight) error {
	if err := f.Validate(); err != nil {
		return err
	}
	delayLog, err := encodeDelayLog(f.DelayLog)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO flights (id, `+flightColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, $12, $13)
	`, flightArgs(uuid.New(), f, delayLog)...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", ErrDuplicateFlight, f.FlightNumber)
		}
		return fmt.Errorf("failed to create flight: %w", err)
	}
	return nil
}

func flightArgs(id uuid.UUID, f models.Flight, delayLog string) []any {
	return []any{
		id, f.FlightNumber, f.Origin, f.Destination, f.ScheduledDeparture, f.ScheduledArrival,
		string(f.Status), string(f.DelayedFrom), f.ActualDeparture, f.ActualArrival, delayLog,
		f.CancellationReason, f.UpdatedAt,
	}
}

func scanFlight(row pgx.Row) (*models.Flight, error) {
	var (
		f           models.Flight
		status      string
		delayedFrom string
		delayLog    []byte
	)
	err := row.Scan(
		&f.FlightNumber, &f.Origin, &f.Destination, &f.ScheduledDeparture, &f.ScheduledArrival,
		&status, &delayedFrom, &f.ActualDeparture, &f.ActualArrival, &delayLog,
		&f.CancellationReason, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.Status = models.FlightStatus(status)
	f.DelayedFrom = models.FlightStatus(delayedFrom)
	if f.DelayLog, err = decodeDelayLog(delayLog); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("failed to load flight %s: %w", f.FlightNumber, err)
	}
	return &f, nil
}

func encodeDelayLog(entries []models.DelayEntry) (string, error) {
	if entries == nil {
		entries = []models.DelayEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("failed to encode delay log: %w", err)
	}
	return string(data), nil
}

func decodeDelayLog(data []byte) ([]models.DelayEntry, error) {
	entries := []models.DelayEntry{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode delay log: %w", err)
	}
	return entries, nil
}
