package ptfare

import "fmt"

type riderState int

const (
	notTracked riderState = iota
	idle
	onboard
)

func (s riderState) String() string {
	switch s {
	case idle:
		return "idle"
	case onboard:
		return "onboard"
	default:
		return "not tracked"
	}
}

// Trip is the ordered list of stop facility ids visited between two genuine activities
type Trip []string

// rider is the per-rider trip state of a processing run
type rider struct {
	id        string
	state     riderState
	current   Trip
	completed []Trip
}

func newRider(id string) *rider {
	return &rider{id: id}
}

// board starts or continues a trip, recording the boarding stop when known
func (r *rider) board(boardingStop string, known bool) {
	if r.state != onboard {
		r.current = Trip{}
	}
	r.state = onboard
	if known {
		r.current = append(r.current, boardingStop)
	}
}

// visit records a stop the rider's vehicle arrived at
func (r *rider) visit(stopID string) {
	if r.state != onboard {
		return
	}
	r.current = append(r.current, stopID)
}

// closeTrip moves the trip under construction to the completed trips
func (r *rider) closeTrip() error {
	if r.state != onboard {
		return fmt.Errorf("%w: rider %s is %s", ErrNotOnboard, r.id, r.state)
	}
	r.completed = append(r.completed, r.current)
	r.current = nil
	r.state = idle
	return nil
}

// finishTrip closes the trip under construction, if any, and reports whether a trip was closed
// activity boundaries and end-of-day both rely on it, closing twice is a no-op
func (r *rider) finishTrip() bool {
	return r.closeTrip() == nil
}

// tracked reports whether the rider has at least one completed trip
func (r *rider) tracked() bool {
	return len(r.completed) > 0
}
