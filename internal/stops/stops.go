// Package stops loads the zone label of every stop facility, either from a CSV export of the
// stop attributes or from the stops table of a GIS database.
package stops

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cubny/ptfare"
)

// IDColumn is the column holding the stop facility id
const IDColumn = "stop_id"

var ErrMissingColumn = errors.New("missing column")

// LoadFile reads a stop attributes CSV file, see LoadCSV
func LoadFile(path, zoneAttribute string) (ptfare.StopZoneMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCSV(f, zoneAttribute)
}

// LoadCSV reads a CSV with a header line naming at least the stop_id column and the zone
// attribute column, and returns the zone label of every stop
func LoadCSV(r io.Reader, zoneAttribute string) (ptfare.StopZoneMap, error) {
	in := csv.NewReader(r)
	in.FieldsPerRecord = -1

	header, err := in.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idCol, zoneCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case IDColumn:
			idCol = i
		case zoneAttribute:
			zoneCol = i
		}
	}
	if idCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, IDColumn)
	}
	if zoneCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, zoneAttribute)
	}

	zones := make(ptfare.StopZoneMap)
	for {
		record, err := in.Read()
		if err == io.EOF {
			return zones, nil
		}
		if err != nil {
			return nil, err
		}
		if idCol >= len(record) {
			continue
		}
		zone := ""
		if zoneCol < len(record) {
			zone = strings.TrimSpace(record[zoneCol])
		}
		zones[strings.TrimSpace(record[idCol])] = zone
	}
}
