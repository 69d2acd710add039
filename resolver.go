package ptfare

import (
	"context"
	"sort"

	"github.com/cubny/ptfare/internal/logging"
)

// RiderZones is the end-of-day view of a rider: the distinct zones of all their trips
type RiderZones struct {
	RiderID string
	Trips   int
	Zones   []string
}

// resolveTraversedZones force-closes a trip still under construction and returns the sorted,
// distinct zone labels of every stop of every completed trip
func (e *Engine) resolveTraversedZones(ctx context.Context, r *rider) []string {
	if r.finishTrip() {
		e.metrics.TripClosed()
	}

	seen := make(map[string]struct{})
	for _, trip := range r.completed {
		for _, stopID := range trip {
			zone, ok := e.stops.Zone(stopID)
			if !ok {
				e.log.Debug(ctx, "stop without zone",
					logging.String("rider", r.id), logging.String("stop", stopID))
				e.metrics.Ignored("unknown_stop")
				continue
			}
			seen[zone] = struct{}{}
		}
	}

	zones := make([]string, 0, len(seen))
	for zone := range seen {
		zones = append(zones, zone)
	}
	sort.Strings(zones)
	return zones
}

// AfterMobsim ends the day: every rider still onboard is force-closed and the traversed zones
// of every tracked, non-driver rider are returned sorted by rider id
func (e *Engine) AfterMobsim(ctx context.Context) []RiderZones {
	ids := make([]string, 0, len(e.riders))
	for id := range e.riders {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]RiderZones, 0, len(ids))
	for _, id := range ids {
		if e.isDriver(id) {
			continue
		}
		r := e.riders[id]
		zones := e.resolveTraversedZones(ctx, r)
		if !r.tracked() {
			continue
		}
		out = append(out, RiderZones{
			RiderID: id,
			Trips:   len(r.completed),
			Zones:   zones,
		})
	}

	e.metrics.EndOfDay(len(out), len(e.drivers))
	return out
}
