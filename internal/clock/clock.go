// Package clock provides the virtual simulation clock.
//
// Virtual time only moves when Advance, Set or FastForwardTo is called.
// Advance converts the wall-clock time elapsed since the last anchor into
// virtual time using the speed multiplier, so a caller polling Advance at a
// fixed interval gets continuous virtual time regardless of speed changes.
package clock

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	MinSpeed = 0.0
	MaxSpeed = 100.0

	// DefaultStepSize is the fast-forward increment when intermediate
	// events are processed.
	DefaultStepSize = 15 * time.Minute
	// DefaultMaxSteps bounds a single fast-forward (about 2.8 years at
	// the default step size).
	DefaultMaxSteps = 100_000
)

var (
	ErrTargetInPast = errors.New("fast-forward target is before the current virtual time")
	ErrTooManySteps = errors.New("fast-forward would exceed the maximum step count")
)

// State is a point-in-time view of the clock.
type State struct {
	VirtualTime time.Time
	Speed       float64
	Running     bool
}

// Clock holds the virtual time, speed multiplier and run state.
// Safe for concurrent use.
type Clock struct {
	mu       sync.RWMutex
	wall     clockwork.Clock
	virtual  time.Time
	speed    float64
	running  bool
	anchor   time.Time
	stepSize time.Duration
	maxSteps int
	logger   *zap.Logger
}

// Option configures a Clock.
type Option func(*Clock)

// WithWallClock replaces the real wall clock, typically with a
// clockwork.FakeClock in tests.
func WithWallClock(w clockwork.Clock) Option {
	return func(c *Clock) { c.wall = w }
}

// WithStart sets the initial virtual time instead of the wall-clock now.
func WithStart(t time.Time) Option {
	return func(c *Clock) { c.virtual = t }
}

// WithSpeed sets the initial multiplier (clamped like SetSpeed).
func WithSpeed(speed float64) Option {
	return func(c *Clock) { c.speed = speed }
}

func WithStepSize(d time.Duration) Option {
	return func(c *Clock) {
		if d > 0 {
			c.stepSize = d
		}
	}
}

func WithMaxSteps(n int) Option {
	return func(c *Clock) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Clock) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a paused clock whose virtual time starts at the wall-clock now.
func New(opts ...Option) *Clock {
	c := &Clock{
		wall:     clockwork.NewRealClock(),
		speed:    1,
		stepSize: DefaultStepSize,
		maxSteps: DefaultMaxSteps,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.virtual.IsZero() {
		c.virtual = c.wall.Now()
	}
	c.speed = c.clamp(c.speed)
	c.anchor = c.wall.Now()
	return c
}

// Start sets the clock running. No-op if already running.
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.anchor = c.wall.Now()
	c.logger.Info("clock started", zap.Time("virtualTime", c.virtual), zap.Float64("speed", c.speed))
}

// Resume is Start under the name the UI uses after a Pause.
func (c *Clock) Resume() {
	c.Start()
}

// Pause stops the clock. Time elapsed since the last Advance is folded in
// first so nothing is lost. No-op if already paused.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.advanceLocked()
	c.running = false
	c.logger.Info("clock paused", zap.Time("virtualTime", c.virtual))
}

// Reset puts the clock back to its start-up state: virtual time equal to
// the wall-clock now, speed 1, paused.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.wall.Now()
	c.virtual = now
	c.speed = 1
	c.running = false
	c.anchor = now
	c.logger.Info("clock reset", zap.Time("virtualTime", c.virtual))
}

// SetSpeed changes the multiplier and returns the value actually applied.
// Values outside [MinSpeed, MaxSpeed] are clamped, NaN becomes 0.
func (c *Clock) SetSpeed(multiplier float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advanceLocked()
	c.speed = c.clamp(multiplier)
	return c.speed
}

func (c *Clock) clamp(multiplier float64) float64 {
	applied := multiplier
	switch {
	case math.IsNaN(multiplier):
		applied = MinSpeed
	case multiplier < MinSpeed:
		applied = MinSpeed
	case multiplier > MaxSpeed:
		applied = MaxSpeed
	}
	if applied != multiplier {
		c.logger.Warn("clock speed clamped", zap.Float64("requested", multiplier), zap.Float64("applied", applied))
	}
	return applied
}

// Set force-sets the virtual time and re-anchors.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.virtual = t
	c.anchor = c.wall.Now()
}

// Advance adds elapsed wall time times the speed to the virtual time and
// returns the new virtual time.
func (c *Clock) Advance() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advanceLocked()
	return c.virtual
}

func (c *Clock) advanceLocked() {
	now := c.wall.Now()
	if c.running {
		if elapsed := now.Sub(c.anchor); elapsed > 0 {
			c.virtual = c.virtual.Add(time.Duration(float64(elapsed) * c.speed))
		}
	}
	c.anchor = now
}

// FastForwardTo moves the virtual time to target. With processIntermediate
// the clock moves in StepSize increments, the last one landing exactly on
// target, and step is called after each increment. Otherwise the clock
// jumps and step is called once. A step error stops the walk with the
// clock left at that step.
func (c *Clock) FastForwardTo(target time.Time, processIntermediate bool, step func(time.Time) error) error {
	c.mu.RLock()
	from := c.virtual
	stepSize, maxSteps := c.stepSize, c.maxSteps
	c.mu.RUnlock()

	if target.Before(from) {
		return ErrTargetInPast
	}
	if !processIntermediate || target.Equal(from) {
		c.Set(target)
		return step(target)
	}

	span := target.Sub(from)
	n := int64(span / stepSize)
	if span%stepSize != 0 {
		n++
	}
	if n > int64(maxSteps) {
		return ErrTooManySteps
	}

	t := from
	for t.Before(target) {
		t = t.Add(stepSize)
		if t.After(target) {
			t = target
		}
		c.Set(t)
		if err := step(t); err != nil {
			return err
		}
	}
	return nil
}

// Now returns the current virtual time without advancing it.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.virtual
}

func (c *Clock) Speed() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.speed
}

func (c *Clock) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

func (c *Clock) StepSize() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stepSize
}

// Snapshot returns all display fields under one lock.
func (c *Clock) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{VirtualTime: c.virtual, Speed: c.speed, Running: c.running}
}

// Wall exposes the wall clock so loops driving this clock share its time source.
func (c *Clock) Wall() clockwork.Clock {
	return c.wall
}
