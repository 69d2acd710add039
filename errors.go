package ptfare

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is the root of every zone catalog and fare table error
	ErrConfig = errors.New("configuration error")
	// ErrInvariant is the root of every event ordering and state machine error
	ErrInvariant = errors.New("invariant violation")

	ErrUnknownZone = fmt.Errorf("%w: unknown zone", ErrConfig)
	ErrEmptyHybrid = fmt.Errorf("%w: hybrid zone without base zones", ErrConfig)
	ErrBadZoneCode = fmt.Errorf("%w: base zone code is not a positive integer", ErrConfig)
	ErrMissingFare = fmt.Errorf("%w: no fare for zone count", ErrConfig)

	ErrOutOfOrder  = fmt.Errorf("%w: event out of chronological order", ErrInvariant)
	ErrNotOnboard  = fmt.Errorf("%w: closing a trip of a rider not onboard", ErrInvariant)
	ErrEventFormat = errors.New("malformed event")
)

// IsConfigError reports whether err comes from an invalid zone catalog or fare table
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfig)
}

// IsInvariantError reports whether err comes from an inconsistent event log
func IsInvariantError(err error) bool {
	return errors.Is(err, ErrInvariant)
}
