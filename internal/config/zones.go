package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/cubny/ptfare"
)

// HybridZone is a label standing for one of several base zones
type HybridZone struct {
	Label string   `yaml:"label" validate:"required"`
	Zones []string `yaml:"zones" validate:"required,min=1,dive,required"`
}

// FareConfig is the fare table as written in the zones file
type FareConfig struct {
	OutOfZone float64         `yaml:"outOfZone" validate:"gte=0"`
	Prices    map[int]float64 `yaml:"prices" validate:"required,min=1,dive,keys,gt=0,endkeys,gte=0"`
}

// ZonesFile is the root of the zones file
type ZonesFile struct {
	OutOfZoneTag string       `yaml:"outOfZoneTag" validate:"required"`
	Zones        []string     `yaml:"zones" validate:"required,min=1,unique,dive,required,numeric"`
	Hybrids      []HybridZone `yaml:"hybrids" validate:"dive"`
	Fares        FareConfig   `yaml:"fares"`
}

// LoadCatalog reads, validates and builds the zone catalog of a zones file
func LoadCatalog(path string) (*ptfare.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(data)
}

// ParseCatalog builds the zone catalog out of the content of a zones file
func ParseCatalog(data []byte) (*ptfare.Catalog, error) {
	var zf ZonesFile
	if err := yaml.Unmarshal(data, &zf); err != nil {
		return nil, fmt.Errorf("%w: zones file: %v", ptfare.ErrConfig, err)
	}
	if err := validator.New().Struct(zf); err != nil {
		return nil, fmt.Errorf("%w: zones file: %v", ptfare.ErrConfig, err)
	}

	hybrids := make(map[string][]string, len(zf.Hybrids))
	for _, h := range zf.Hybrids {
		if _, dup := hybrids[h.Label]; dup {
			return nil, fmt.Errorf("%w: hybrid zone %q defined twice", ptfare.ErrConfig, h.Label)
		}
		hybrids[h.Label] = h.Zones
	}

	fares := ptfare.FareTable{
		Prices:    make(map[int]ptfare.Price, len(zf.Fares.Prices)),
		OutOfZone: ptfare.Price(zf.Fares.OutOfZone),
	}
	for count, price := range zf.Fares.Prices {
		fares.Prices[count] = ptfare.Price(price)
	}

	return ptfare.NewCatalog(zf.OutOfZoneTag, zf.Zones, hybrids, fares)
}
