package models

import "time"

// CreateFlightRequest represents a request to add a flight to the store
type CreateFlightRequest struct {
	FlightNumber       string    `json:"flightNumber" validate:"required,max=16"`
	Origin             string    `json:"origin"`
	Destination        string    `json:"destination"`
	ScheduledDeparture time.Time `json:"scheduledDeparture" validate:"required"`
	ScheduledArrival   time.Time `json:"scheduledArrival" validate:"required,gtfield=ScheduledDeparture"`
}

// DelayRequest represents a delay injection. The upper bound is one leap
// year in minutes.
type DelayRequest struct {
	Minutes int    `json:"minutes" validate:"gt=0,lte=527040"`
	Reason  string `json:"reason"`
}

// CancelRequest represents a cancellation
type CancelRequest struct {
	Reason string `json:"reason"`
}

// SpeedRequest sets the clock speed multiplier
type SpeedRequest struct {
	Multiplier float64 `json:"multiplier"`
}

// SetTimeRequest force-sets the virtual time
type SetTimeRequest struct {
	VirtualTime time.Time `json:"virtualTime" validate:"required"`
}

// FastForwardRequest moves the virtual time forward to Target
type FastForwardRequest struct {
	Target                    time.Time `json:"target" validate:"required"`
	ProcessIntermediateEvents bool      `json:"processIntermediateEvents"`
}

// ClockState is the read-only view of the simulation clock
type ClockState struct {
	VirtualTime time.Time `json:"virtualTime"`
	Speed       float64   `json:"speed"`
	Running     bool      `json:"running"`
}

// EventEntry is the API view of one diagnostic event log entry
type EventEntry struct {
	ID           string    `json:"id"`
	VirtualTime  time.Time `json:"virtualTime"`
	RealTime     time.Time `json:"realTime"`
	Kind         string    `json:"kind"`
	FlightNumber string    `json:"flightNumber,omitempty"`
	Message      string    `json:"message"`
}
