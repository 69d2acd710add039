package ptfare

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		hasError bool
	}{
		{
			name:     "ok",
			config:   &Config{Concurrency: 2, SimEndTime: 86400},
			hasError: false,
		},
		{
			name:     "concurrency is zero - error",
			config:   &Config{Concurrency: 0},
			hasError: true,
		},
		{
			name:     "negative end time - error",
			config:   &Config{Concurrency: 1, SimEndTime: -1},
			hasError: true,
		},
		{
			name:     "end time is NaN - error",
			config:   &Config{Concurrency: 1, SimEndTime: math.NaN()},
			hasError: true,
		},
		{
			name:     "negative cache size - error",
			config:   &Config{Concurrency: 1, FareCacheSize: -1},
			hasError: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.config.Validate()
			assert.Equal(t, test.hasError, err != nil)
		})
	}
}

func TestConfig_CompensationTime(t *testing.T) {
	tests := []struct {
		name    string
		endTime float64
		want    float64
	}{
		{name: "configured end time", endTime: 108000, want: 108000},
		{name: "undefined end time", endTime: 0, want: EndOfDay},
		{name: "infinite end time", endTime: math.Inf(1), want: EndOfDay},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, Config{Concurrency: 1, SimEndTime: test.endTime}.CompensationTime())
		})
	}
}
