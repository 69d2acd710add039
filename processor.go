package ptfare

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cubny/ptfare/internal/logging"
	"github.com/cubny/ptfare/internal/metrics"
	"github.com/cubny/ptfare/internal/pipeline"
)

const tracerName = "github.com/cubny/ptfare"

// ChargeSink receives the charges of a run in rider order
type ChargeSink interface {
	WriteCharge(ctx context.Context, runID string, charge Charge) error
	Flush() error
}

// Summary describes a finished run
type Summary struct {
	RunID   string
	Events  int
	Riders  int
	Charges int
	Revenue Price
}

// Processor replays an event log and emits one fare charge per rider
type Processor struct {
	reader  io.Reader
	conf    *Config
	engine  *Engine
	emitter *Emitter
	sinks   []ChargeSink
	runID   string
	log     logging.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// Option customizes a Processor
type Option func(*Processor)

// WithLogger sets the logger of the processor and its engine
func WithLogger(log logging.Logger) Option {
	return func(p *Processor) { p.log = log }
}

// WithMetrics sets the metrics collector
func WithMetrics(m *metrics.Collector) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithSinks adds charge sinks, charges are written to every sink in order
func WithSinks(sinks ...ChargeSink) Option {
	return func(p *Processor) { p.sinks = append(p.sinks, sinks...) }
}

// WithRunID overrides the generated run id
func WithRunID(id string) Option {
	return func(p *Processor) { p.runID = id }
}

// NewProcessor creates a Processor reading events from in
func NewProcessor(in io.Reader, config *Config, catalog *Catalog, stops StopZones, opts ...Option) (*Processor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if catalog == nil {
		return nil, fmt.Errorf("%w: zone catalog is missing", ErrConfig)
	}
	if stops == nil {
		return nil, fmt.Errorf("%w: stop zones are missing", ErrConfig)
	}

	p := &Processor{
		reader: in,
		conf:   config,
		runID:  uuid.NewString(),
		log:    logging.Noop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With(logging.String("run", p.runID))
	p.engine = NewEngine(stops, p.log, p.metrics)
	p.emitter = NewEmitter(NewCalculator(catalog, config.FareCacheSize, p.metrics), config.CompensationTime(), p.log, p.metrics)

	return p, nil
}

// RunID identifies the run in logs and published charges
func (p *Processor) RunID() string {
	return p.runID
}

// Run replays the whole event log, then computes and sinks the charges of every rider
func (p *Processor) Run(ctx context.Context) (Summary, error) {
	ctx, span := p.tracer.Start(ctx, "ptfare.Run", trace.WithAttributes(attribute.String("run.id", p.runID)))
	defer span.End()

	summary := Summary{RunID: p.runID}
	fail := func(err error) (Summary, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return summary, err
	}

	events, err := p.replay(ctx)
	summary.Events = events
	if err != nil {
		return fail(err)
	}

	riders := p.engine.AfterMobsim(ctx)
	summary.Riders = len(riders)

	charges, err := p.fares(ctx, riders)
	if err != nil {
		return fail(err)
	}

	if err := p.sink(ctx, charges); err != nil {
		return fail(err)
	}

	summary.Charges = len(charges)
	for _, c := range charges {
		summary.Revenue -= c.Amount
	}
	p.log.Info(ctx, "fares computed",
		logging.Int("events", summary.Events),
		logging.Int("riders", summary.Riders),
		logging.Int("charges", summary.Charges),
		logging.Float("revenue", float64(summary.Revenue)))
	return summary, nil
}

// replay streams the event log through the engine in log order
func (p *Processor) replay(ctx context.Context) (int, error) {
	ctx, span := p.tracer.Start(ctx, "ptfare.replay")
	defer span.End()
	defer p.observe("replay", time.Now())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := csv.NewReader(p.reader)
	in.FieldsPerRecord = -1
	eventc, errc := pipeline.Generate(ctx, p.streamFromCSV(in))

	count := 0
	err := pipeline.Sink(ctx, eventc, func(ev Event) error {
		count++
		return p.engine.Handle(ctx, ev)
	})
	if err != nil {
		cancel()
		return count, err
	}

	for err := range errc {
		switch {
		case err == io.EOF:
		case err != nil:
			return count, err
		}
	}
	span.SetAttributes(attribute.Int("events", count))
	return count, nil
}

// streamFromCSV returns a generator of events reading one line at a time from a csv.Reader
func (p *Processor) streamFromCSV(in *csv.Reader) func() (Event, bool, error) {
	first := true
	return func() (Event, bool, error) {
		record, err := in.Read()
		if err != nil {
			return Event{}, false, err
		}
		line := Line(record)
		if first {
			first = false
			if isHeader(line) {
				return Event{}, false, nil
			}
		}
		ev, err := NewEvent(line)
		if err != nil {
			row, _ := in.FieldPos(0)
			return Event{}, false, fmt.Errorf("line %d: %w", row, err)
		}
		return ev, true, nil
	}
}

// fares computes the charges of all riders on the worker pool and returns them by rider id
func (p *Processor) fares(ctx context.Context, riders []RiderZones) ([]Charge, error) {
	ctx, span := p.tracer.Start(ctx, "ptfare.fares", trace.WithAttributes(attribute.Int("riders", len(riders))))
	defer span.End()
	defer p.observe("fares", time.Now())

	ridec := pipeline.FromSlice(ctx, riders)
	outc, errc := pipeline.WorkerPool(ctx, p.conf.Concurrency, ridec, p.chargeRider)

	charges := make([]Charge, 0, len(riders))
	for c := range outc {
		if c != nil {
			charges = append(charges, *c)
		}
	}

	var errs []error
	for err := range errc {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	// a canceled pool stops early and leaves riders without a charge
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(charges, func(i, j int) bool { return charges[i].RiderID < charges[j].RiderID })
	return charges, nil
}

// chargeRider is the worker of the fare pool, it returns nil for riders without a charge
func (p *Processor) chargeRider(ctx context.Context, rz RiderZones) (*Charge, error) {
	charge, ok, err := p.emitter.Charge(ctx, rz)
	if err != nil || !ok {
		return nil, err
	}
	return &charge, nil
}

// sink hands every charge to every sink and flushes them
func (p *Processor) sink(ctx context.Context, charges []Charge) error {
	defer p.observe("sink", time.Now())

	if err := ctx.Err(); err != nil {
		return err
	}

	for _, c := range charges {
		for _, s := range p.sinks {
			if err := s.WriteCharge(ctx, p.runID, c); err != nil {
				return err
			}
		}
	}
	for _, s := range p.sinks {
		if err := s.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) observe(phase string, start time.Time) {
	p.metrics.Phase(phase, time.Since(start).Seconds())
}

// CSVSink writes charges as (riderId, time, amount, reason) lines
type CSVSink struct {
	w *csv.Writer
}

// NewCSVSink creates a CSVSink writing to out
func NewCSVSink(out io.Writer) *CSVSink {
	return &CSVSink{w: csv.NewWriter(out)}
}

// WriteCharge writes a charge record
func (s *CSVSink) WriteCharge(_ context.Context, _ string, c Charge) error {
	return s.w.Write(Line{
		c.RiderID,
		strconv.FormatFloat(c.Time, 'g', -1, 64),
		strconv.FormatFloat(float64(c.Amount), 'f', 2, 64),
		c.Reason,
	})
}

// Flush flushes the underlying csv.Writer
func (s *CSVSink) Flush() error {
	s.w.Flush()
	return s.w.Error()
}
