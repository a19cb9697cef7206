package models

import "time"

type route struct {
	number, origin, destination string
	offset, duration            time.Duration
}

var sampleRoutes = []route{
	{"AF123", "CDG", "JFK", 20 * time.Minute, 8*time.Hour + 30*time.Minute},
	{"BA284", "LHR", "SFO", 45 * time.Minute, 11 * time.Hour},
	{"LH400", "FRA", "JFK", 90 * time.Minute, 9 * time.Hour},
	{"KL641", "AMS", "JFK", 2 * time.Hour, 8 * time.Hour},
	{"IB6251", "MAD", "JFK", 3 * time.Hour, 8*time.Hour + 15*time.Minute},
	{"EK201", "DXB", "JFK", 4*time.Hour + 30*time.Minute, 14 * time.Hour},
	{"LX14", "ZRH", "JFK", 6 * time.Hour, 9 * time.Hour},
	{"AZ608", "FCO", "JFK", 8 * time.Hour, 10 * time.Hour},
}

// SampleFlights returns a small schedule of Scheduled flights departing
// after now, for demos and local development.
func SampleFlights(now time.Time) []Flight {
	base := now.Truncate(time.Minute)
	flights := make([]Flight, 0, len(sampleRoutes))
	for _, r := range sampleRoutes {
		dep := base.Add(r.offset)
		flights = append(flights, Flight{
			FlightNumber:       r.number,
			Origin:             r.origin,
			Destination:        r.destination,
			ScheduledDeparture: dep,
			ScheduledArrival:   dep.Add(r.duration),
			Status:             FlightStatusScheduled,
			DelayLog:           []DelayEntry{},
			UpdatedAt:          base,
		})
	}
	return flights
}
