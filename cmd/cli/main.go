package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cubny/ptfare"
	"github.com/cubny/ptfare/internal/config"
	"github.com/cubny/ptfare/internal/logging"
	"github.com/cubny/ptfare/internal/metrics"
	"github.com/cubny/ptfare/internal/observability"
	"github.com/cubny/ptfare/internal/publisher"
	"github.com/cubny/ptfare/internal/stops"
)

func main() {
	os.Exit(run())
}

// run wires and runs the fare processor, it returns the process exit code once every
// deferred cleanup has run
func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("config error: %v", err)
		return 2
	}

	infile := flag.String("input", cfg.EventsFile, "input events csv file path")
	outfile := flag.String("output", cfg.ChargesFile, "output charges csv file path")
	zonesfile := flag.String("zones", cfg.ZonesFile, "zone catalog yaml file path")
	stopsfile := flag.String("stops", cfg.StopsFile, "stop attributes csv file path")
	concurrency := flag.Int("c", cfg.Concurrency, "concurrent fare workers")
	endTime := flag.Float64("end", cfg.SimEndTime, "simulation end time in seconds, 0 if undefined")
	flag.Parse()

	logger := logging.NewFromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{Enabled: cfg.TracingEnabled}, logger)
	if err != nil {
		logger.Error(ctx, "tracing", logging.Err(err))
		return 1
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)

	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector()
		srv := mcol.Serve(cfg.MetricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	catalog, err := config.LoadCatalog(*zonesfile)
	if err != nil {
		logger.Error(ctx, "zones", logging.Err(err))
		return exitCode(err)
	}
	logger.Info(ctx, "zone catalog loaded",
		logging.String("outOfZoneTag", catalog.OutOfZoneTag()),
		logging.Int("maxRange", catalog.MaxRange()))

	stopZones, err := loadStops(ctx, cfg, *stopsfile)
	if err != nil {
		logger.Error(ctx, "stops", logging.Err(err))
		return 1
	}

	in, err := os.Open(*infile)
	if err != nil {
		logger.Error(ctx, "open input file", logging.Err(err))
		return 1
	}
	defer in.Close()

	out, err := os.Create(*outfile)
	if err != nil {
		logger.Error(ctx, "open output file", logging.Err(err))
		return 1
	}
	defer func() {
		if err := out.Close(); err != nil {
			logger.Error(ctx, "close output file", logging.Err(err))
		}
	}()

	sinks := []ptfare.ChargeSink{ptfare.NewCSVSink(out)}
	if cfg.NATSURL != "" {
		pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject, wrapPublisherMetrics(mcol), logger)
		if err != nil {
			logger.Error(ctx, "nats", logging.Err(err))
			return 1
		}
		defer pub.Close()
		sinks = append(sinks, pub)
	}

	conf := &ptfare.Config{
		Concurrency:   *concurrency,
		SimEndTime:    *endTime,
		FareCacheSize: cfg.FareCacheSize,
	}
	processor, err := ptfare.NewProcessor(in, conf, catalog, stopZones,
		ptfare.WithLogger(logger),
		ptfare.WithMetrics(mcol),
		ptfare.WithSinks(sinks...),
	)
	if err != nil {
		logger.Error(ctx, "NewProcessor", logging.Err(err))
		return exitCode(err)
	}
	logger.Info(ctx, "run started", logging.String("run", processor.RunID()), logging.String("input", *infile))

	summary, err := processor.Run(ctx)
	if err != nil {
		logger.Error(ctx, "run failed", logging.Err(err))
		return exitCode(err)
	}

	fmt.Printf("%d charges of run %s written to %s\n", summary.Charges, summary.RunID, *outfile)
	fmt.Println("exit.")
	return 0
}

// exitCode maps a run error to the process exit code
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case ptfare.IsConfigError(err):
		return 2
	case ptfare.IsInvariantError(err):
		return 3
	default:
		return 1
	}
}

// loadStops prefers the stops csv file and falls back to the GIS database
func loadStops(ctx context.Context, cfg *config.Config, path string) (ptfare.StopZones, error) {
	if path != "" {
		return stops.LoadFile(path, cfg.ZoneAttribute)
	}
	if cfg.StopsDatabaseURL != "" {
		return stops.LoadPostgres(ctx, cfg.StopsDatabaseURL, cfg.StopsTable, cfg.ZoneAttribute)
	}
	return nil, fmt.Errorf("either -stops or STOPS_DATABASE_URL must be set")
}

// wrapPublisherMetrics adapts our Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) ChargePublishedInc()            { p.c.ChargesPublished.Inc() }
func (p *pubMetrics) ChargePublishErrInc()           { p.c.ChargePublishErrs.Inc() }
func (p *pubMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *pubMetrics) SetConnected(b bool) {
	if b {
		p.c.PublisherConnected.Set(1)
	} else {
		p.c.PublisherConnected.Set(0)
	}
}
