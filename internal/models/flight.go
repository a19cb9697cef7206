package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Flight represents a scheduled flight and its lifecycle state
type Flight struct {
	FlightNumber       string       `json:"flightNumber"`
	Origin             string       `json:"origin,omitempty"`
	Destination        string       `json:"destination,omitempty"`
	ScheduledDeparture time.Time    `json:"scheduledDeparture"`
	ScheduledArrival   time.Time    `json:"scheduledArrival"`
	Status             FlightStatus `json:"status"`
	DelayedFrom        FlightStatus `json:"delayedFrom,omitempty"`
	ActualDeparture    *time.Time   `json:"actualDeparture,omitempty"`
	ActualArrival      *time.Time   `json:"actualArrival,omitempty"`
	DelayLog           []DelayEntry `json:"delayLog"`
	CancellationReason string       `json:"cancellationReason,omitempty"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

// DelayEntry records one delay applied to a flight
type DelayEntry struct {
	Minutes   int       `json:"minutes"`
	Reason    string    `json:"reason"`
	AppliedAt time.Time `json:"appliedAt"`
}

type FlightStatus string

const (
	FlightStatusScheduled FlightStatus = "scheduled"
	FlightStatusBoarding  FlightStatus = "boarding"
	FlightStatusAirborne  FlightStatus = "airborne"
	FlightStatusLanded    FlightStatus = "landed"
	FlightStatusCompleted FlightStatus = "completed"
	FlightStatusDelayed   FlightStatus = "delayed"
	FlightStatusCancelled FlightStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s FlightStatus) Valid() bool {
	switch s {
	case FlightStatusScheduled, FlightStatusBoarding, FlightStatusAirborne,
		FlightStatusLanded, FlightStatusCompleted, FlightStatusDelayed, FlightStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions can leave s.
func (s FlightStatus) Terminal() bool {
	return s == FlightStatusCompleted || s == FlightStatusCancelled
}

// ParseFlightStatus accepts any casing, e.g. "Boarding" or "boarding".
func ParseFlightStatus(s string) (FlightStatus, error) {
	st := FlightStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown flight status %q", s)
	}
	return st, nil
}

var ErrInvalidFlight = errors.New("invalid flight")

// Validate checks the fixed record schema. Stores call it before every write.
func (f *Flight) Validate() error {
	if strings.TrimSpace(f.FlightNumber) == "" {
		return fmt.Errorf("%w: flight number is required", ErrInvalidFlight)
	}
	if f.ScheduledDeparture.IsZero() || f.ScheduledArrival.IsZero() {
		return fmt.Errorf("%w: %s: scheduled times are required", ErrInvalidFlight, f.FlightNumber)
	}
	if !f.ScheduledArrival.After(f.ScheduledDeparture) {
		return fmt.Errorf("%w: %s: scheduled arrival must be after departure", ErrInvalidFlight, f.FlightNumber)
	}
	if !f.Status.Valid() {
		return fmt.Errorf("%w: %s: unknown status %q", ErrInvalidFlight, f.FlightNumber, f.Status)
	}
	if f.Status == FlightStatusDelayed && f.DelayedFrom != "" && !f.DelayedFrom.Valid() {
		return fmt.Errorf("%w: %s: unknown delayed-from status %q", ErrInvalidFlight, f.FlightNumber, f.DelayedFrom)
	}
	return nil
}

// Clone returns a deep copy so callers can mutate it without touching store state.
func (f Flight) Clone() Flight {
	c := f
	if f.ActualDeparture != nil {
		t := *f.ActualDeparture
		c.ActualDeparture = &t
	}
	if f.ActualArrival != nil {
		t := *f.ActualArrival
		c.ActualArrival = &t
	}
	if f.DelayLog != nil {
		c.DelayLog = make([]DelayEntry, len(f.DelayLog))
		copy(c.DelayLog, f.DelayLog)
	}
	return c
}

// Store errors shared by every flight record store.
var (
	ErrFlightNotFound  = errors.New("flight not found")
	ErrDuplicateFlight = errors.New("flight already exists")
)
