package ptfare

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/bluele/gcache"

	"github.com/cubny/ptfare/internal/metrics"
)

// ErrNoZones is returned for riders whose trips touched no stop with a known zone
var ErrNoZones = errors.New("no zones traversed")

// ComputeFare returns the best price for a set of traversed zone labels
// the out-of-zone tag wins over everything else, otherwise every interpretation of the hybrid
// labels is tried and the one with the narrowest zone range is charged
func ComputeFare(zones []string, catalog *Catalog) (Price, error) {
	fares := catalog.Fares()
	for _, zone := range zones {
		if catalog.IsOutOfZone(zone) {
			return fares.OutOfZone, nil
		}
	}

	width, err := MinZoneRange(zones, catalog)
	if err != nil {
		return 0, err
	}
	return fares.Price(width)
}

// MinZoneRange returns the narrowest range of base zones consistent with the labels
// labels must not contain the out-of-zone tag
func MinZoneRange(zones []string, catalog *Catalog) (int, error) {
	if len(zones) == 0 {
		return 0, ErrNoZones
	}

	lo, hi := math.MaxInt, math.MinInt
	var hybrids [][]int
	seen := make(map[string]struct{}, len(zones))
	for _, zone := range zones {
		if _, dup := seen[zone]; dup {
			continue
		}
		seen[zone] = struct{}{}

		candidates, err := catalog.Expand(zone)
		if err != nil {
			return 0, err
		}
		if catalog.IsHybrid(zone) {
			hybrids = append(hybrids, candidates)
			continue
		}
		lo, hi = min(lo, candidates[0]), max(hi, candidates[0])
	}

	return narrowestRange(lo, hi, hybrids), nil
}

// narrowestRange walks the cartesian product of the hybrid candidates, one code per hybrid,
// around the fixed [lo, hi] of the base zones and returns the smallest max-min+1
func narrowestRange(lo, hi int, hybrids [][]int) int {
	pick := make([]int, len(hybrids))
	best := math.MaxInt
	for {
		l, h := lo, hi
		for i, candidates := range hybrids {
			code := candidates[pick[i]]
			l, h = min(l, code), max(h, code)
		}
		best = min(best, h-l+1)

		i := 0
		for ; i < len(hybrids); i++ {
			pick[i]++
			if pick[i] < len(hybrids[i]) {
				break
			}
			pick[i] = 0
		}
		if i == len(hybrids) {
			return best
		}
	}
}

// Calculator computes best prices and remembers them per distinct zone set
// it is safe for concurrent use
type Calculator struct {
	catalog *Catalog
	cache   gcache.Cache
	metrics *metrics.Collector
}

// NewCalculator creates a Calculator, a cacheSize of zero disables the cache
func NewCalculator(catalog *Catalog, cacheSize int, m *metrics.Collector) *Calculator {
	c := &Calculator{catalog: catalog, metrics: m}
	if cacheSize > 0 {
		c.cache = gcache.New(cacheSize).LRU().Build()
	}
	return c
}

// ComputeFare is ComputeFare over the calculator's catalog
func (c *Calculator) ComputeFare(zones []string) (Price, error) {
	if c.cache == nil {
		return ComputeFare(zones, c.catalog)
	}

	key := zoneSetKey(zones)
	if v, err := c.cache.Get(key); err == nil {
		c.metrics.CacheHit()
		return v.(Price), nil
	} else if !errors.Is(err, gcache.KeyNotFoundError) {
		return 0, fmt.Errorf("fare cache: %w", err)
	}

	price, err := ComputeFare(zones, c.catalog)
	if err != nil {
		return 0, err
	}
	if err := c.cache.Set(key, price); err != nil {
		return 0, fmt.Errorf("fare cache: %w", err)
	}
	return price, nil
}

// zoneSetKey builds an order independent key of a zone set
func zoneSetKey(zones []string) string {
	sorted := append([]string(nil), zones...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x1f")
}
