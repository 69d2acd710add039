package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cubny/ptfare/internal/logging"
)

// Collector holds the metrics of a fare run. A nil *Collector is valid and records nothing.
type Collector struct {
	reg *prometheus.Registry

	EventsHandled *prometheus.CounterVec // type label
	EventsIgnored *prometheus.CounterVec // reason label

	TripsClosed   prometheus.Counter
	RidersTracked prometheus.Gauge
	Drivers       prometheus.Gauge

	ChargesEmitted prometheus.Counter
	Revenue        prometheus.Counter
	FareErrors     prometheus.Counter
	FareCacheHits  prometheus.Counter

	ChargesPublished   prometheus.Counter
	ChargePublishErrs  prometheus.Counter
	PublishDuration    prometheus.Histogram
	PhaseDuration      *prometheus.HistogramVec // phase label: replay|fares|sink
	PublisherConnected prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		EventsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ptfare_events_handled_total",
			Help: "Total events applied to the engine.",
		}, []string{"type"}),
		EventsIgnored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ptfare_events_ignored_total",
			Help: "Total events or lookups skipped as a no-op.",
		}, []string{"reason"}),
		TripsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ptfare_trips_closed_total",
			Help: "Total rider trips closed.",
		}),
		RidersTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ptfare_riders_tracked",
			Help: "Number of riders with at least one completed trip at end-of-day.",
		}),
		Drivers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ptfare_drivers",
			Help: "Number of transit drivers excluded from fares.",
		}),
		ChargesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ptfare_charges_emitted_total",
			Help: "Total fare charges emitted.",
		}),
		Revenue: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ptfare_revenue_total",
			Help: "Sum of all fares charged.",
		}),
		FareErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ptfare_fare_errors_total",
			Help: "Total riders whose fare could not be computed.",
		}),
		FareCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ptfare_fare_cache_hits_total",
			Help: "Total best-price lookups answered from the cache.",
		}),
		ChargesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ptfare_charges_published_total",
			Help: "Total charge messages published.",
		}),
		ChargePublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ptfare_charge_publish_errors_total",
			Help: "Total charge publish errors.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ptfare_publish_duration_seconds",
			Help:    "Duration to marshal and publish a charge message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		PhaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ptfare_phase_duration_seconds",
			Help:    "Duration of the phases of a fare run.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 18),
		}, []string{"phase"}),
		PublisherConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ptfare_publisher_connected",
			Help: "1 if the charge publisher is connected, 0 otherwise.",
		}),
	}

	reg.MustRegister(
		c.EventsHandled, c.EventsIgnored,
		c.TripsClosed, c.RidersTracked, c.Drivers,
		c.ChargesEmitted, c.Revenue, c.FareErrors, c.FareCacheHits,
		c.ChargesPublished, c.ChargePublishErrs, c.PublishDuration,
		c.PhaseDuration, c.PublisherConnected,
	)

	return c
}

// Registry exposes the underlying registry, mostly for tests
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string, log logging.Logger) *http.Server {
	if log == nil {
		log = logging.Noop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(context.Background(), "metrics server error", logging.Err(err))
		}
	}()
	log.Info(context.Background(), "metrics listening", logging.String("addr", addr))
	return srv
}

func (c *Collector) EventHandled(eventType string) {
	if c != nil {
		c.EventsHandled.WithLabelValues(eventType).Inc()
	}
}

func (c *Collector) Ignored(reason string) {
	if c != nil {
		c.EventsIgnored.WithLabelValues(reason).Inc()
	}
}

func (c *Collector) TripClosed() {
	if c != nil {
		c.TripsClosed.Inc()
	}
}

func (c *Collector) EndOfDay(riders, drivers int) {
	if c != nil {
		c.RidersTracked.Set(float64(riders))
		c.Drivers.Set(float64(drivers))
	}
}

func (c *Collector) Charged(amount float64) {
	if c != nil {
		c.ChargesEmitted.Inc()
		c.Revenue.Add(amount)
	}
}

func (c *Collector) FareFailed() {
	if c != nil {
		c.FareErrors.Inc()
	}
}

func (c *Collector) CacheHit() {
	if c != nil {
		c.FareCacheHits.Inc()
	}
}

func (c *Collector) Phase(name string, seconds float64) {
	if c != nil {
		c.PhaseDuration.WithLabelValues(name).Observe(seconds)
	}
}
