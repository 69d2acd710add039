package ptfare

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EventType is the kind of a ridership event
type EventType string

const (
	TransitDriverStarts      EventType = "TransitDriverStarts"
	PersonEntersVehicle      EventType = "PersonEntersVehicle"
	PersonLeavesVehicle      EventType = "PersonLeavesVehicle"
	VehicleArrivesAtFacility EventType = "VehicleArrivesAtFacility"
	ActivityStart            EventType = "actstart"
	ActivityEnd              EventType = "actend"
)

// PtInteraction prefixes the activity type of transfers between vehicle legs
const PtInteraction = "pt interaction"

// Line is a slice of strings
type Line []string

// Event is one entry of the ridership event log
type Event struct {
	Time     float64
	Type     EventType
	Person   string
	Vehicle  string
	Facility string
	ActType  string
}

// NewEvent creates an Event out of a line of the form (time, type, person, vehicle, facility, actType)
// trailing empty columns may be omitted
func NewEvent(line Line) (Event, error) {
	if len(line) < 2 {
		return Event{}, fmt.Errorf("%w: expected at least 2 columns, got %d", ErrEventFormat, len(line))
	}
	t, err := strconv.ParseFloat(strings.TrimSpace(line[0]), 64)
	if err != nil {
		return Event{}, fmt.Errorf("%w: time %q: %v", ErrEventFormat, line[0], err)
	}
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return Event{}, fmt.Errorf("%w: time %q is not a finite number", ErrEventFormat, line[0])
	}

	column := func(i int) string {
		if i < len(line) {
			return strings.TrimSpace(line[i])
		}
		return ""
	}

	return Event{
		Time:     t,
		Type:     EventType(column(1)),
		Person:   column(2),
		Vehicle:  column(3),
		Facility: column(4),
		ActType:  column(5),
	}, nil
}

// isHeader reports whether line is the header of an event log
func isHeader(line Line) bool {
	return len(line) > 0 && strings.EqualFold(strings.TrimSpace(line[0]), "time")
}

// IsPtInteraction reports whether an activity type is a transit pseudo-activity
func IsPtInteraction(actType string) bool {
	return strings.HasPrefix(actType, PtInteraction)
}
