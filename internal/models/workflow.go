package models

import "time"

// SimulationWorkflowInput represents input for the simulation workflow
type SimulationWorkflowInput struct {
	TickInterval   time.Duration `json:"tickInterval"`
	MaxTicksPerRun int           `json:"maxTicksPerRun"`
	// Carried across continue-as-new so totals survive history resets.
	Previous *SimulationWorkflowState `json:"previous,omitempty"`
}

// Simulation workflow outcomes
const (
	SimulationRunning   = "running"
	SimulationStopped   = "stopped"
	SimulationCancelled = "cancelled"
)

// SimulationWorkflowState represents the current state of the simulation workflow
type SimulationWorkflowState struct {
	Outcome        string    `json:"outcome"`
	Runs           int       `json:"runs"`
	Ticks          int       `json:"ticks"`
	Transitions    int       `json:"transitions"`
	DelaysInjected int       `json:"delaysInjected"`
	Cancellations  int       `json:"cancellations"`
	VirtualTime    time.Time `json:"virtualTime"`
	LastError      string    `json:"lastError,omitempty"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

// Signals for workflow communication
const (
	SignalInjectDelay    = "inject-delay"
	SignalCancelFlight   = "cancel-flight"
	SignalSetSpeed       = "set-speed"
	SignalStopSimulation = "stop-simulation"
)

// InjectDelaySignal is sent to delay a flight
type InjectDelaySignal struct {
	FlightNumber string `json:"flightNumber"`
	Minutes      int    `json:"minutes"`
	Reason       string `json:"reason"`
}

// CancelFlightSignal is sent to cancel a flight
type CancelFlightSignal struct {
	FlightNumber string `json:"flightNumber"`
	Reason       string `json:"reason"`
}

// SetSpeedSignal is sent to change the clock speed
type SetSpeedSignal struct {
	Multiplier float64 `json:"multiplier"`
}

// Queries for workflow state
const (
	QueryGetState = "get_state"
)
