package ptfare

import (
	"context"
	"fmt"

	"github.com/cubny/ptfare/internal/logging"
	"github.com/cubny/ptfare/internal/metrics"
)

// StopZones resolves the zone label attached to a stop facility
type StopZones interface {
	Zone(stopID string) (string, bool)
}

// StopZoneMap is an in-memory StopZones keyed by stop facility id
type StopZoneMap map[string]string

// Zone returns the zone label of a stop, an empty label counts as missing
func (m StopZoneMap) Zone(stopID string) (string, bool) {
	zone, ok := m[stopID]
	return zone, ok && zone != ""
}

// Engine replays the ridership events of a day and keeps the trip state of every rider
// it is not safe for concurrent use, events must be handled in log order
type Engine struct {
	stops    StopZones
	vehicles *vehicleTracker
	riders   map[string]*rider
	drivers  map[string]struct{}

	lastRiderEvent   map[string]float64
	lastVehicleEvent map[string]float64

	log     logging.Logger
	metrics *metrics.Collector
}

// NewEngine creates an Engine resolving stop zones through stops
// log and m may be nil
func NewEngine(stops StopZones, log logging.Logger, m *metrics.Collector) *Engine {
	if log == nil {
		log = logging.Noop()
	}
	return &Engine{
		stops:            stops,
		vehicles:         newVehicleTracker(),
		riders:           make(map[string]*rider),
		drivers:          make(map[string]struct{}),
		lastRiderEvent:   make(map[string]float64),
		lastVehicleEvent: make(map[string]float64),
		log:              log,
		metrics:          m,
	}
}

// Handle applies one event to the engine
// only ordering violations are returned as errors,
// events the engine cannot make sense of are skipped
func (e *Engine) Handle(ctx context.Context, ev Event) error {
	if err := e.checkOrder(ev); err != nil {
		return err
	}

	switch ev.Type {
	case TransitDriverStarts:
		e.onTransitDriverStarts(ctx, ev.Person, ev.Vehicle)
	case PersonEntersVehicle:
		e.onPersonEntersVehicle(ctx, ev.Person, ev.Vehicle)
	case PersonLeavesVehicle:
		e.onPersonLeavesVehicle(ctx, ev.Person, ev.Vehicle)
	case VehicleArrivesAtFacility:
		e.onVehicleArrivesAtFacility(ctx, ev.Vehicle, ev.Facility)
	case ActivityStart, ActivityEnd:
		e.onActivityBoundary(ctx, ev.Person, ev.ActType)
	default:
		e.log.Debug(ctx, "unknown event type", logging.String("type", string(ev.Type)))
		e.metrics.Ignored("unknown_event_type")
		return nil
	}

	e.metrics.EventHandled(string(ev.Type))
	return nil
}

// checkOrder enforces chronological order per rider and per vehicle
func (e *Engine) checkOrder(ev Event) error {
	if ev.Person != "" {
		if last, ok := e.lastRiderEvent[ev.Person]; ok && ev.Time < last {
			return fmt.Errorf("%w: person %s at %v after %v", ErrOutOfOrder, ev.Person, ev.Time, last)
		}
	}
	if ev.Vehicle != "" {
		if last, ok := e.lastVehicleEvent[ev.Vehicle]; ok && ev.Time < last {
			return fmt.Errorf("%w: vehicle %s at %v after %v", ErrOutOfOrder, ev.Vehicle, ev.Time, last)
		}
	}

	if ev.Person != "" {
		e.lastRiderEvent[ev.Person] = ev.Time
	}
	if ev.Vehicle != "" {
		e.lastVehicleEvent[ev.Vehicle] = ev.Time
	}
	return nil
}

func (e *Engine) isDriver(riderID string) bool {
	_, ok := e.drivers[riderID]
	return ok
}

// onTransitDriverStarts excludes the driver from fares and registers the transit vehicle
func (e *Engine) onTransitDriverStarts(ctx context.Context, driverID, vehicleID string) {
	if driverID != "" {
		e.drivers[driverID] = struct{}{}
		// a driver is never charged, even if it was seen riding before
		delete(e.riders, driverID)
	}
	if vehicleID != "" {
		e.vehicles.register(vehicleID)
	}
}

func (e *Engine) onPersonEntersVehicle(ctx context.Context, riderID, vehicleID string) {
	if e.isDriver(riderID) {
		return
	}
	if !e.vehicles.isTransit(vehicleID) {
		e.metrics.Ignored("non_transit_vehicle")
		return
	}

	r, ok := e.riders[riderID]
	if !ok {
		r = newRider(riderID)
		e.riders[riderID] = r
	}

	stop, known := e.vehicles.lastStopOf(vehicleID)
	if !known {
		e.log.Debug(ctx, "boarding vehicle without known position",
			logging.String("rider", riderID), logging.String("vehicle", vehicleID))
		e.metrics.Ignored("unknown_vehicle_position")
	}
	r.board(stop, known)
	e.vehicles.board(vehicleID, riderID)
}

func (e *Engine) onPersonLeavesVehicle(ctx context.Context, riderID, vehicleID string) {
	if e.isDriver(riderID) || !e.vehicles.isTransit(vehicleID) {
		return
	}
	if !e.vehicles.alight(vehicleID, riderID) {
		e.log.Debug(ctx, "leaving vehicle without boarding",
			logging.String("rider", riderID), logging.String("vehicle", vehicleID))
		e.metrics.Ignored("leave_without_board")
	}
}

// onVehicleArrivesAtFacility moves the vehicle and fans the stop out to its passengers
func (e *Engine) onVehicleArrivesAtFacility(ctx context.Context, vehicleID, stopID string) {
	if !e.vehicles.arrive(vehicleID, stopID) {
		return
	}
	for riderID := range e.vehicles.onboard(vehicleID) {
		if r, ok := e.riders[riderID]; ok {
			r.visit(stopID)
		}
	}
}

// onActivityBoundary closes the trip of an onboard rider when a genuine activity starts or ends
// a boundary without a trip under construction is a no-op
func (e *Engine) onActivityBoundary(ctx context.Context, riderID, actType string) {
	if e.isDriver(riderID) || IsPtInteraction(actType) {
		return
	}
	r, ok := e.riders[riderID]
	if !ok || !r.finishTrip() {
		return
	}
	e.metrics.TripClosed()
}
