/*
	Package ptfare computes end-of-day public transport fares under a zone based best-price policy.
	It replays a chronological log of ridership events (drivers starting, riders entering and
	leaving vehicles, vehicles arriving at stops, activity boundaries), reconstructs every rider's
	trips as sequences of stops, resolves the zones those stops belong to and charges each rider
	once with the cheapest fare consistent with the zones they traveled through.
*/
package ptfare

import (
	"errors"
	"math"
)

// Price is a monetary amount
type Price float64

const (
	// ReasonPtFare is the reason attached to every fare charge
	ReasonPtFare = "ptFare"

	// EndOfDay is the compensation time used when the simulation end time is not configured
	// it orders the charges after every other event of the day
	EndOfDay = math.MaxFloat64
)

// Config holds the run level settings of the engine
type Config struct {
	// Concurrency is the number of fare workers at end-of-day
	Concurrency int
	// SimEndTime is the configured simulation end time in seconds, zero when undefined
	SimEndTime float64
	// FareCacheSize is the number of distinct zone sets whose best price is remembered
	FareCacheSize int
}

// Validate checks the run level settings
func (c Config) Validate() error {
	switch {
	case c.Concurrency <= 0:
		return errors.New("concurrency should be greater than 0")
	case math.IsNaN(c.SimEndTime) || c.SimEndTime < 0:
		return errors.New("simulation end time should not be negative")
	case c.FareCacheSize < 0:
		return errors.New("fare cache size should not be negative")
	}

	return nil
}

// CompensationTime is the single timestamp given to every fare charge of the run
func (c Config) CompensationTime() float64 {
	if c.SimEndTime > 0 && !math.IsInf(c.SimEndTime, 0) {
		return c.SimEndTime
	}
	return EndOfDay
}
