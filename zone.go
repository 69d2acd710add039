package ptfare

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// HybridSeparator separates the base zone codes of an undeclared hybrid label such as "3/4"
const HybridSeparator = "/"

// FareTable maps the width of the zone range traveled to a ticket price
type FareTable struct {
	Prices    map[int]Price
	OutOfZone Price
}

// Price returns the ticket price for a range of zoneCount zones
// a missing entry is a configuration error, never a free ride
func (t FareTable) Price(zoneCount int) (Price, error) {
	price, ok := t.Prices[zoneCount]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrMissingFare, zoneCount)
	}
	return price, nil
}

// Catalog is the immutable lookup of base zones, hybrid zones and the fare table
type Catalog struct {
	outOfZoneTag string
	base         map[string]int
	hybrids      map[string][]int
	fares        FareTable
	minZone      int
	maxZone      int
}

// NewCatalog builds and validates a Catalog
// baseCodes are the numeric codes of the base zones, hybrids maps a hybrid label to its base codes
func NewCatalog(outOfZoneTag string, baseCodes []string, hybrids map[string][]string, fares FareTable) (*Catalog, error) {
	c := &Catalog{
		outOfZoneTag: outOfZoneTag,
		base:         make(map[string]int, len(baseCodes)),
		hybrids:      make(map[string][]int, len(hybrids)),
		fares:        FareTable{Prices: make(map[int]Price, len(fares.Prices)), OutOfZone: fares.OutOfZone},
	}
	for k, v := range fares.Prices {
		c.fares.Prices[k] = v
	}

	for _, code := range baseCodes {
		idx, err := parseZoneCode(code)
		if err != nil {
			return nil, err
		}
		c.base[code] = idx
	}

	for label, codes := range hybrids {
		idxs, err := c.baseIndexes(label, codes)
		if err != nil {
			return nil, err
		}
		c.hybrids[label] = idxs
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that the catalog has base zones and that the fare table covers
// every range width the base zones can produce
func (c *Catalog) Validate() error {
	if len(c.base) == 0 {
		return fmt.Errorf("%w: no base zones defined", ErrConfig)
	}
	if c.outOfZoneTag == "" {
		return fmt.Errorf("%w: out-of-zone tag is empty", ErrConfig)
	}
	if _, ok := c.base[c.outOfZoneTag]; ok {
		return fmt.Errorf("%w: out-of-zone tag %q is also a base zone", ErrConfig, c.outOfZoneTag)
	}
	if c.fares.OutOfZone < 0 {
		return fmt.Errorf("%w: negative out-of-zone price", ErrConfig)
	}

	first := true
	for _, idx := range c.base {
		if first || idx < c.minZone {
			c.minZone = idx
		}
		if first || idx > c.maxZone {
			c.maxZone = idx
		}
		first = false
	}

	for count := 1; count <= c.MaxRange(); count++ {
		price, err := c.fares.Price(count)
		if err != nil {
			return err
		}
		if price < 0 {
			return fmt.Errorf("%w: negative price for %d zones", ErrConfig, count)
		}
	}
	return nil
}

// MaxRange is the widest zone range a rider can travel through
func (c *Catalog) MaxRange() int {
	return c.maxZone - c.minZone + 1
}

// OutOfZoneTag is the label of stops outside the fare network
func (c *Catalog) OutOfZoneTag() string {
	return c.outOfZoneTag
}

// IsOutOfZone reports whether label marks travel outside the fare network
func (c *Catalog) IsOutOfZone(label string) bool {
	return label == c.outOfZoneTag
}

// IsHybrid reports whether label denotes an ambiguity between several base zones
func (c *Catalog) IsHybrid(label string) bool {
	if _, ok := c.base[label]; ok {
		return false
	}
	if _, ok := c.hybrids[label]; ok {
		return true
	}
	return strings.Contains(label, HybridSeparator)
}

// Fares returns the fare table of the catalog
func (c *Catalog) Fares() FareTable {
	return c.fares
}

// Expand returns the base zone indexes a label can stand for
// a base label expands to itself, a hybrid label to its sorted, distinct candidates
func (c *Catalog) Expand(label string) ([]int, error) {
	if idx, ok := c.base[label]; ok {
		return []int{idx}, nil
	}
	if idxs, ok := c.hybrids[label]; ok {
		return idxs, nil
	}
	if strings.Contains(label, HybridSeparator) {
		return c.baseIndexes(label, strings.Split(label, HybridSeparator))
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownZone, label)
}

// baseIndexes resolves the base codes of a hybrid label
func (c *Catalog) baseIndexes(label string, codes []string) ([]int, error) {
	seen := make(map[int]bool, len(codes))
	idxs := make([]int, 0, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		idx, ok := c.base[code]
		if !ok {
			return nil, fmt.Errorf("%w: %q in hybrid zone %q", ErrUnknownZone, code, label)
		}
		if seen[idx] {
			continue
		}
		seen[idx] = true
		idxs = append(idxs, idx)
	}
	if len(idxs) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyHybrid, label)
	}
	sort.Ints(idxs)
	return idxs, nil
}

func parseZoneCode(code string) (int, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil || idx <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadZoneCode, code)
	}
	return idx, nil
}
