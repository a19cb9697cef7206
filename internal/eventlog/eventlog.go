// Package eventlog keeps a bounded, append-only diagnostic log of
// simulation events. When full, the oldest entry is discarded.
package eventlog

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultCapacity = 500

// Entry is one logged event.
type Entry struct {
	ID           uuid.UUID `json:"id"`
	VirtualTime  time.Time `json:"virtualTime"`
	RealTime     time.Time `json:"realTime"`
	Kind         string    `json:"kind"`
	FlightNumber string    `json:"flightNumber,omitempty"`
	Message      string    `json:"message"`
}

// Log is a fixed-capacity ring of entries. Safe for concurrent use.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	start   int // index of the oldest entry once the ring is full
	cap     int
	dropped int
	now     func() time.Time
}

// New creates a log holding at most capacity entries. A non-positive
// capacity selects DefaultCapacity.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		entries: make([]Entry, 0, capacity),
		cap:     capacity,
		now:     time.Now,
	}
}

// SetRealClock overrides the wall-clock source used for RealTime stamps.
func (l *Log) SetRealClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Append records an event and returns the stored entry.
func (l *Log) Append(virtual time.Time, kind, flightNumber, message string) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := Entry{
		ID:           uuid.New(),
		VirtualTime:  virtual,
		RealTime:     l.now(),
		Kind:         kind,
		FlightNumber: flightNumber,
		Message:      message,
	}

	if len(l.entries) < l.cap {
		l.entries = append(l.entries, e)
		return e
	}
	l.entries[l.start] = e
	l.start = (l.start + 1) % l.cap
	l.dropped++
	return e
}

// Entries returns all retained entries, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ordered(len(l.entries))
}

// Recent returns up to n of the newest entries, oldest first.
func (l *Log) Recent(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	return l.ordered(n)
}

func (l *Log) ordered(n int) []Entry {
	out := make([]Entry, 0, n)
	total := len(l.entries)
	for i := total - n; i < total; i++ {
		out = append(out, l.entries[(l.start+i)%total])
	}
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *Log) Cap() int {
	return l.cap
}

// Dropped returns how many entries have been discarded to make room.
func (l *Log) Dropped() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dropped
}
