package ptfare

import (
	"context"
	"errors"
	"fmt"

	"github.com/cubny/ptfare/internal/logging"
	"github.com/cubny/ptfare/internal/metrics"
)

// Charge is the end-of-day money event of a rider
type Charge struct {
	RiderID string  `json:"riderId"`
	Time    float64 `json:"time"`
	Amount  Price   `json:"amount"`
	Reason  string  `json:"reason"`
}

// Emitter turns the end-of-day zones of a rider into a charge
type Emitter struct {
	calc    *Calculator
	at      float64
	log     logging.Logger
	metrics *metrics.Collector
}

// NewEmitter creates an Emitter stamping every charge with compensationTime
func NewEmitter(calc *Calculator, compensationTime float64, log logging.Logger, m *metrics.Collector) *Emitter {
	if log == nil {
		log = logging.Noop()
	}
	return &Emitter{calc: calc, at: compensationTime, log: log, metrics: m}
}

// Charge computes the charge of a rider, ok is false when the rider has nothing to pay for
func (e *Emitter) Charge(ctx context.Context, rz RiderZones) (charge Charge, ok bool, err error) {
	price, err := e.calc.ComputeFare(rz.Zones)
	switch {
	case errors.Is(err, ErrNoZones):
		e.log.Warn(ctx, "rider traveled only through stops without zone", logging.String("rider", rz.RiderID))
		e.metrics.Ignored("no_zones")
		return Charge{}, false, nil
	case err != nil:
		e.metrics.FareFailed()
		return Charge{}, false, fmt.Errorf("rider %s: %w", rz.RiderID, err)
	}

	e.metrics.Charged(float64(price))
	amount := -price
	if price == 0 {
		amount = 0
	}
	return Charge{
		RiderID: rz.RiderID,
		Time:    e.at,
		Amount:  amount,
		Reason:  ReasonPtFare,
	}, true, nil
}
