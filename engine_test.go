package ptfare

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func driverStarts(at float64, driver, vehicle string) Event {
	return Event{Time: at, Type: TransitDriverStarts, Person: driver, Vehicle: vehicle}
}

func enters(at float64, person, vehicle string) Event {
	return Event{Time: at, Type: PersonEntersVehicle, Person: person, Vehicle: vehicle}
}

func leaves(at float64, person, vehicle string) Event {
	return Event{Time: at, Type: PersonLeavesVehicle, Person: person, Vehicle: vehicle}
}

func arrives(at float64, vehicle, stop string) Event {
	return Event{Time: at, Type: VehicleArrivesAtFacility, Vehicle: vehicle, Facility: stop}
}

func activity(at float64, typ EventType, person, actType string) Event {
	return Event{Time: at, Type: typ, Person: person, ActType: actType}
}

func replay(t *testing.T, e *Engine, events ...Event) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, e.Handle(context.TODO(), ev))
	}
}

var testStops = StopZoneMap{
	"s1": "1",
	"s2": "2",
	"s3": "3",
	"s4": "1/2",
	"s5": "out",
	"s6": "",
}

// transferDay is a rider going from home to shopping with a transfer from bus1 to tram1
func transferDay() []Event {
	return []Event{
		driverStarts(0, "d1", "bus1"),
		enters(0, "d1", "bus1"),
		driverStarts(0, "d2", "tram1"),
		arrives(10, "bus1", "s1"),
		activity(20, ActivityEnd, "r1", "home"),
		enters(30, "r1", "bus1"),
		arrives(40, "bus1", "s2"),
		leaves(50, "r1", "bus1"),
		activity(51, ActivityStart, "r1", "pt interaction"),
		activity(52, ActivityEnd, "r1", "pt interaction"),
		arrives(55, "tram1", "s2"),
		enters(60, "r1", "tram1"),
		arrives(70, "tram1", "s3"),
		leaves(80, "r1", "tram1"),
		activity(90, ActivityStart, "r1", "shopping"),
	}
}

func TestEngine_TransferIsOneTrip(t *testing.T) {
	e := NewEngine(testStops, nil, nil)
	replay(t, e, transferDay()...)

	r := e.riders["r1"]
	require.NotNil(t, r)
	assert.Equal(t, idle, r.state)
	assert.Equal(t, []Trip{{"s1", "s2", "s2", "s3"}}, r.completed)
}

func TestEngine_TwoTrips(t *testing.T) {
	e := NewEngine(testStops, nil, nil)
	replay(t, e, transferDay()...)
	replay(t, e,
		activity(100, ActivityEnd, "r1", "shopping"),
		arrives(110, "tram1", "s1"),
		enters(120, "r1", "tram1"),
		arrives(130, "tram1", "s4"),
		leaves(140, "r1", "tram1"),
		activity(150, ActivityStart, "r1", "home"),
	)

	assert.Equal(t, []Trip{{"s1", "s2", "s2", "s3"}, {"s1", "s4"}}, e.riders["r1"].completed)
}

func TestEngine_BoundaryWithoutTrip(t *testing.T) {
	e := NewEngine(testStops, nil, nil)
	replay(t, e, transferDay()...)
	replay(t, e,
		activity(95, ActivityEnd, "r1", "shopping"),
		activity(96, ActivityStart, "r1", "leisure"),
		activity(97, ActivityStart, "nobody", "work"),
	)

	assert.Len(t, e.riders["r1"].completed, 1)
	assert.Equal(t, idle, e.riders["r1"].state)
	assert.NotContains(t, e.riders, "nobody")
}

func TestEngine_IgnoresNonTransitVehicles(t *testing.T) {
	e := NewEngine(testStops, nil, nil)
	replay(t, e,
		arrives(10, "car1", "s1"),
		enters(20, "r1", "car1"),
		leaves(30, "r1", "car1"),
		activity(40, ActivityStart, "r1", "work"),
	)

	assert.Empty(t, e.riders)
	_, ok := e.vehicles.lastStopOf("car1")
	assert.False(t, ok)
}

func TestEngine_DriverExclusion(t *testing.T) {
	t.Run("driver starts before riding", func(t *testing.T) {
		e := NewEngine(testStops, nil, nil)
		replay(t, e,
			driverStarts(0, "d1", "bus1"),
			arrives(10, "bus1", "s1"),
			enters(20, "d1", "bus1"),
			arrives(30, "bus1", "s2"),
			activity(40, ActivityStart, "d1", "work"),
		)
		assert.Empty(t, e.AfterMobsim(context.TODO()))
	})

	t.Run("driver seen riding before starting", func(t *testing.T) {
		e := NewEngine(testStops, nil, nil)
		replay(t, e,
			driverStarts(0, "d1", "bus1"),
			arrives(10, "bus1", "s1"),
			enters(20, "x", "bus1"),
			arrives(30, "bus1", "s2"),
			leaves(35, "x", "bus1"),
			activity(40, ActivityStart, "x", "work"),
			driverStarts(50, "x", "bus2"),
		)
		assert.Empty(t, e.AfterMobsim(context.TODO()))
	})
}

func TestEngine_LeaveWithoutBoard(t *testing.T) {
	e := NewEngine(testStops, nil, nil)
	replay(t, e,
		driverStarts(0, "d1", "bus1"),
		leaves(10, "r1", "bus1"),
	)
	assert.Empty(t, e.riders)
}

func TestEngine_BoardingWithoutVehiclePosition(t *testing.T) {
	e := NewEngine(testStops, nil, nil)
	replay(t, e,
		driverStarts(0, "d1", "bus1"),
		enters(10, "r1", "bus1"),
		arrives(20, "bus1", "s2"),
		leaves(30, "r1", "bus1"),
		activity(40, ActivityStart, "r1", "work"),
	)
	assert.Equal(t, []Trip{{"s2"}}, e.riders["r1"].completed)
}

func TestEngine_UnknownEventType(t *testing.T) {
	e := NewEngine(testStops, nil, nil)
	assert.NoError(t, e.Handle(context.TODO(), Event{Time: 1, Type: "VehicleDepartsAtFacility", Vehicle: "bus1"}))
}

func TestEngine_OutOfOrder(t *testing.T) {
	tests := []struct {
		name   string
		events []Event
	}{
		{
			name: "rider goes back in time",
			events: []Event{
				activity(20, ActivityEnd, "r1", "home"),
				activity(10, ActivityStart, "r1", "work"),
			},
		},
		{
			name: "vehicle goes back in time",
			events: []Event{
				driverStarts(0, "d1", "bus1"),
				arrives(20, "bus1", "s1"),
				arrives(10, "bus1", "s2"),
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e := NewEngine(testStops, nil, nil)
			var err error
			for _, ev := range test.events {
				if err = e.Handle(context.TODO(), ev); err != nil {
					break
				}
			}
			assert.ErrorIs(t, err, ErrOutOfOrder)
			assert.True(t, IsInvariantError(err))
		})
	}
}

func TestEngine_SameTimeIsInOrder(t *testing.T) {
	e := NewEngine(testStops, nil, nil)
	replay(t, e,
		driverStarts(10, "d1", "bus1"),
		arrives(10, "bus1", "s1"),
		enters(10, "r1", "bus1"),
	)
	assert.Equal(t, Trip{"s1"}, e.riders["r1"].current)
}

func TestEngine_AfterMobsim(t *testing.T) {
	e := NewEngine(testStops, nil, nil)
	replay(t, e, transferDay()...)
	replay(t, e,
		// r2 is still riding when the day ends
		arrives(100, "bus1", "s4"),
		enters(110, "r2", "bus1"),
		arrives(120, "bus1", "s5"),
		// r3 only visits a stop without zone
		arrives(130, "tram1", "s6"),
		enters(140, "r3", "tram1"),
		leaves(150, "r3", "tram1"),
		activity(160, ActivityStart, "r3", "work"),
	)

	got := e.AfterMobsim(context.TODO())
	assert.Equal(t, []RiderZones{
		{RiderID: "r1", Trips: 1, Zones: []string{"1", "2", "3"}},
		{RiderID: "r2", Trips: 1, Zones: []string{"1/2", "out"}},
		{RiderID: "r3", Trips: 1, Zones: []string{}},
	}, got)

	// a second end-of-day does not duplicate the force-closed trip
	again := e.AfterMobsim(context.TODO())
	assert.Equal(t, got, again)
	assert.Len(t, e.riders["r2"].completed, 1)
}
