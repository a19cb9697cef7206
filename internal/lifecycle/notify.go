package lifecycle

import (
	"sync"
	"time"

	"github.com/cx-tal-miterani/flight-lifecycle/internal/models"
)

// Kind identifies a notification type.
type Kind string

const (
	KindDeparture    Kind = "departure"
	KindArrival      Kind = "arrival"
	KindDelay        Kind = "delay"
	KindFlightUpdate Kind = "flightUpdate"
)

// AllKinds lists every notification kind.
var AllKinds = []Kind{KindDeparture, KindArrival, KindDelay, KindFlightUpdate}

// Notification is delivered to subscribers after a flight changes.
type Notification struct {
	Kind        Kind                `json:"kind"`
	Flight      models.Flight       `json:"flight"`
	Previous    models.FlightStatus `json:"previous,omitempty"`
	VirtualTime time.Time           `json:"virtualTime"`
	Delay       *models.DelayEntry  `json:"delay,omitempty"`
}

// Listener receives notifications on the goroutine that caused them.
// It must not block for long; hand work off to a channel if needed.
type Listener func(Notification)

// Subscription is a registered listener.
type Subscription struct {
	bus   *bus
	kinds map[Kind]bool
	fn    Listener
}

// Unsubscribe removes the listener. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.bus.remove(s)
}

type bus struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func newBus() *bus {
	return &bus{subs: make(map[*Subscription]struct{})}
}

func (b *bus) add(fn Listener, kinds []Kind) *Subscription {
	if len(kinds) == 0 {
		kinds = AllKinds
	}
	sub := &Subscription{bus: b, kinds: make(map[Kind]bool, len(kinds)), fn: fn}
	for _, k := range kinds {
		sub.kinds[k] = true
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[sub] = struct{}{}
	return sub
}

func (b *bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub)
}

func (b *bus) publish(notes []Notification) {
	if len(notes) == 0 {
		return
	}

	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, n := range notes {
		for _, s := range subs {
			if s.kinds[n.Kind] {
				s.fn(n)
			}
		}
	}
}
