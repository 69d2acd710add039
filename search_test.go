package ptfare

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeFare(t *testing.T) {
	catalog := testCatalog(t)

	tests := []struct {
		name  string
		zones []string
		price Price
		err   error
	}{
		{
			name:  "two base zones",
			zones: []string{"1", "2"},
			price: catalog.Fares().Prices[2],
		},
		{
			name:  "hybrid inside the base range",
			zones: []string{"1", "1/2", "3"},
			price: catalog.Fares().Prices[3],
		},
		{
			name:  "out-of-zone with a base zone",
			zones: []string{"out", "2"},
			price: catalog.Fares().OutOfZone,
		},
		{
			name:  "out-of-zone dominates a cheaper base fare",
			zones: []string{"2", "out"},
			price: 10,
		},
		{
			name:  "single zone",
			zones: []string{"4"},
			price: catalog.Fares().Prices[1],
		},
		{
			name:  "hybrid alone picks one zone",
			zones: []string{"A"},
			price: catalog.Fares().Prices[1],
		},
		{
			name:  "hybrid with a repeated zone",
			zones: []string{"2/2", "3"},
			price: catalog.Fares().Prices[2],
		},
		{
			name:  "hybrid alone with a repeated zone",
			zones: []string{"5/5"},
			price: catalog.Fares().Prices[1],
		},
		{
			name:  "two hybrids resolve to a common zone",
			zones: []string{"1/2", "2/3"},
			price: catalog.Fares().Prices[1],
		},
		{
			name:  "hybrid resolves towards the base zones",
			zones: []string{"4", "5", "A"},
			price: catalog.Fares().Prices[2],
		},
		{
			name:  "declared hybrid and undeclared hybrid",
			zones: []string{"1", "A", "4/5"},
			price: catalog.Fares().Prices[4],
		},
		{
			name:  "duplicate labels",
			zones: []string{"2", "2", "3"},
			price: catalog.Fares().Prices[2],
		},
		{
			name:  "unknown zone",
			zones: []string{"1", "9"},
			err:   ErrUnknownZone,
		},
		{
			name:  "no zones",
			zones: nil,
			err:   ErrNoZones,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			price, err := ComputeFare(test.zones, catalog)
			if test.err != nil {
				assert.ErrorIs(t, err, test.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.price, price)
		})
	}
}

func TestComputeFare_MissingFare(t *testing.T) {
	catalog := testCatalog(t)
	// the fare table is copied by NewCatalog, drop an entry behind its back
	delete(catalog.fares.Prices, 3)

	_, err := ComputeFare([]string{"1", "3"}, catalog)
	assert.ErrorIs(t, err, ErrMissingFare)
	assert.True(t, IsConfigError(err))
}

func TestMinZoneRange_BestPriceMonotonicity(t *testing.T) {
	catalog := testCatalog(t)
	sets := [][]string{
		{"1", "A"},
		{"5", "A", "3/4"},
		{"1/2", "4/5"},
		{"A", "1/5"},
		{"3", "2/3", "3/4", "A"},
	}

	for _, zones := range sets {
		t.Run(fmt.Sprint(zones), func(t *testing.T) {
			best, err := MinZoneRange(zones, catalog)
			require.NoError(t, err)
			assert.LessOrEqual(t, best, worstRange(t, catalog, zones))
		})
	}
}

// worstRange resolves every hybrid to the candidate widening the range the most
func worstRange(t *testing.T, catalog *Catalog, zones []string) int {
	t.Helper()
	var all []int
	for _, zone := range zones {
		idxs, err := catalog.Expand(zone)
		require.NoError(t, err)
		all = append(all, idxs...)
	}
	lo, hi := all[0], all[0]
	for _, idx := range all {
		lo, hi = min(lo, idx), max(hi, idx)
	}
	return hi - lo + 1
}

func TestComputeFare_Deterministic(t *testing.T) {
	catalog := testCatalog(t)
	zones := []string{"A", "1/2", "4/5", "3"}

	first, err := ComputeFare(zones, catalog)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		price, err := ComputeFare(zones, catalog)
		require.NoError(t, err)
		assert.Equal(t, first, price)
	}
}

func TestNarrowestRange(t *testing.T) {
	tests := []struct {
		name    string
		lo, hi  int
		hybrids [][]int
		want    int
	}{
		{name: "no hybrids", lo: 2, hi: 4, want: 3},
		{name: "hybrid inside", lo: 1, hi: 3, hybrids: [][]int{{1, 2}}, want: 3},
		{name: "hybrid outside picks the closest", lo: 3, hi: 3, hybrids: [][]int{{1, 5}}, want: 3},
		{name: "only hybrids", lo: maxInt, hi: minInt, hybrids: [][]int{{1, 2}, {2, 3}}, want: 1},
		{name: "only hybrids, disjoint", lo: maxInt, hi: minInt, hybrids: [][]int{{1, 2}, {4, 5}}, want: 3},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, narrowestRange(test.lo, test.hi, test.hybrids))
		})
	}
}

const (
	maxInt = int(^uint(0) >> 1)
	minInt = -maxInt - 1
)

func TestCalculator_Cache(t *testing.T) {
	calc := NewCalculator(testCatalog(t), 16, nil)

	price, err := calc.ComputeFare([]string{"2", "1"})
	require.NoError(t, err)
	assert.Equal(t, Price(3), price)

	// same set in another order is answered from the cache
	price, err = calc.ComputeFare([]string{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, Price(3), price)
	assert.Equal(t, 1, calc.cache.Len(false))

	_, err = calc.ComputeFare([]string{"1", "Z"})
	assert.ErrorIs(t, err, ErrUnknownZone)
	assert.Equal(t, 1, calc.cache.Len(false))
}

func TestCalculator_NoCache(t *testing.T) {
	calc := NewCalculator(testCatalog(t), 0, nil)

	price, err := calc.ComputeFare([]string{"out"})
	require.NoError(t, err)
	assert.Equal(t, Price(10), price)
	assert.Nil(t, calc.cache)
}

func BenchmarkComputeFare(b *testing.B) {
	catalog := testCatalog(b)
	zones := []string{"1/2", "2/3", "3/4", "4/5", "A"}
	for n := 0; n < b.N; n++ {
		_, _ = ComputeFare(zones, catalog)
	}
}
