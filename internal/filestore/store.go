// Package filestore keeps flight records in a single JSON file.
//
// The whole file is rewritten on every save and the last write wins. Writes
// go to a temporary file first and are renamed into place, so a crash never
// leaves a half-written file behind.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cx-tal-miterani/flight-lifecycle/internal/models"
)

// ErrDuplicateFlight is returned by CreateFlight when the number is taken.
var ErrDuplicateFlight = models.ErrDuplicateFlight

// Store is a flat-file flight record store.
type Store struct {
	mu      sync.RWMutex
	path    string
	flights map[string]models.Flight
	order   []string
}

// Open loads the store at path. A missing file yields an empty store; the
// file is created on the first write.
func Open(path string) (*Store, error) {
	s := &Store{path: path, flights: make(map[string]models.Flight)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read flight store: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}

	var flights []models.Flight
	if err := json.Unmarshal(data, &flights); err != nil {
		return nil, fmt.Errorf("failed to decode flight store %s: %w", path, err)
	}
	for _, f := range flights {
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("failed to load flight store %s: %w", path, err)
		}
		if _, dup := s.flights[f.FlightNumber]; dup {
			return nil, fmt.Errorf("failed to load flight store %s: %w: %s", path, ErrDuplicateFlight, f.FlightNumber)
		}
		s.flights[f.FlightNumber] = f
		s.order = append(s.order, f.FlightNumber)
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// ListFlights returns copies of all records in file order.
func (s *Store) ListFlights(ctx context.Context) ([]models.Flight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	flights := make([]models.Flight, 0, len(s.order))
	for _, num := range s.order {
		flights = append(flights, s.flights[num].Clone())
	}
	return flights, nil
}

// GetFlight returns a copy of one record, or models.ErrFlightNotFound.
func (s *Store) GetFlight(ctx context.Context, flightNumber string) (*models.Flight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.flights[flightNumber]
	if !ok {
		return nil, models.ErrFlightNotFound
	}
	c := f.Clone()
	return &c, nil
}

// SaveFlight inserts or replaces a record and rewrites the file. The
// in-memory state only changes if the write succeeds.
func (s *Store) SaveFlight(ctx context.Context, f models.Flight) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLocked(f)
}

// CreateFlight inserts a new record, failing with ErrDuplicateFlight if the
// flight number is already present.
func (s *Store) CreateFlight(ctx context.Context, f models.Flight) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flights[f.FlightNumber]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFlight, f.FlightNumber)
	}
	return s.putLocked(f)
}

func (s *Store) putLocked(f models.Flight) error {
	_, exists := s.flights[f.FlightNumber]
	order := s.order
	if !exists {
		order = append(append([]string(nil), s.order...), f.FlightNumber)
	}

	flights := make([]models.Flight, 0, len(order))
	for _, num := range order {
		if num == f.FlightNumber {
			flights = append(flights, f)
			continue
		}
		flights = append(flights, s.flights[num])
	}
	if err := s.write(flights); err != nil {
		return err
	}

	s.flights[f.FlightNumber] = f.Clone()
	s.order = order
	return nil
}

func (s *Store) write(flights []models.Flight) error {
	data, err := json.MarshalIndent(flights, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode flights: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write flight store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace flight store: %w", err)
	}
	return nil
}
