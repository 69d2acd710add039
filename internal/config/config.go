// Package config loads the runtime settings from the environment and the zone catalog from YAML.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	EventsFile       string
	ChargesFile      string
	ZonesFile        string
	StopsFile        string
	StopsDatabaseURL string
	StopsTable       string
	ZoneAttribute    string
	Concurrency      int
	SimEndTime       float64
	FareCacheSize    int
	NATSURL          string
	NATSSubject      string
	MetricsAddr      string
	TracingEnabled   bool
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{
		EventsFile:       os.Getenv("EVENTS_FILE"),
		ChargesFile:      getenvDefault("CHARGES_FILE", "charges.csv"),
		ZonesFile:        getenvDefault("ZONES_FILE", "zones.yml"),
		StopsFile:        os.Getenv("STOPS_FILE"),
		StopsDatabaseURL: firstNonEmpty(os.Getenv("STOPS_DATABASE_URL"), os.Getenv("DATABASE_URL")),
		StopsTable:       getenvDefault("STOPS_TABLE", "stops"),
		ZoneAttribute:    getenvDefault("ZONE_ATTRIBUTE", "zone"),
		NATSURL:          os.Getenv("NATS_URL"),
		NATSSubject:      getenvDefault("NATS_SUBJECT", "ptfare.charges"),
		// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
		MetricsAddr: os.Getenv("METRICS_ADDR"),
	}

	if v := os.Getenv("CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid CONCURRENCY: %q", v)
		}
		cfg.Concurrency = n
	} else {
		cfg.Concurrency = 4
	}

	// Simulation end time in seconds; unset or 0 means undefined
	if v := os.Getenv("SIM_END_TIME"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("invalid SIM_END_TIME: %q", v)
		}
		cfg.SimEndTime = f
	}

	if v := os.Getenv("FARE_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid FARE_CACHE_SIZE: %q", v)
		}
		cfg.FareCacheSize = n
	} else {
		cfg.FareCacheSize = 1024
	}

	cfg.TracingEnabled = parseBool(os.Getenv("TRACING_ENABLED"))

	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}
