package ptfare

// vehicleTracker keeps, per transit vehicle, the last stop it arrived at and the riders onboard
type vehicleTracker struct {
	transit    map[string]bool
	lastStop   map[string]string
	passengers map[string]map[string]struct{}
}

func newVehicleTracker() *vehicleTracker {
	return &vehicleTracker{
		transit:    make(map[string]bool),
		lastStop:   make(map[string]string),
		passengers: make(map[string]map[string]struct{}),
	}
}

// register marks vehicleID as a transit vehicle
func (t *vehicleTracker) register(vehicleID string) {
	t.transit[vehicleID] = true
}

func (t *vehicleTracker) isTransit(vehicleID string) bool {
	return t.transit[vehicleID]
}

// arrive records stopID as the last known position of a transit vehicle
// it reports false for vehicles that are not transit vehicles
func (t *vehicleTracker) arrive(vehicleID, stopID string) bool {
	if !t.isTransit(vehicleID) {
		return false
	}
	t.lastStop[vehicleID] = stopID
	return true
}

// lastStopOf returns the last stop a vehicle arrived at, if any
func (t *vehicleTracker) lastStopOf(vehicleID string) (string, bool) {
	stop, ok := t.lastStop[vehicleID]
	return stop, ok
}

func (t *vehicleTracker) board(vehicleID, riderID string) {
	riders, ok := t.passengers[vehicleID]
	if !ok {
		riders = make(map[string]struct{})
		t.passengers[vehicleID] = riders
	}
	riders[riderID] = struct{}{}
}

// alight reports false when the rider was not recorded onboard the vehicle
func (t *vehicleTracker) alight(vehicleID, riderID string) bool {
	riders, ok := t.passengers[vehicleID]
	if !ok {
		return false
	}
	if _, ok := riders[riderID]; !ok {
		return false
	}
	delete(riders, riderID)
	return true
}

// onboard returns the riders currently onboard a vehicle
func (t *vehicleTracker) onboard(vehicleID string) map[string]struct{} {
	return t.passengers[vehicleID]
}
