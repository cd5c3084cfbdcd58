package engine

import "errors"

// Sentinel errors surfaced synchronously to callers. None of them leave the
// engine in a partially mutated state.
var (
	ErrIntersectionNotFound = errors.New("intersection not found")
	ErrVehicleNotFound      = errors.New("emergency vehicle not found")
	ErrIncidentNotFound     = errors.New("incident not found")
	ErrValidation           = errors.New("validation failed")
)

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrIntersectionNotFound) ||
		errors.Is(err, ErrVehicleNotFound) ||
		errors.Is(err, ErrIncidentNotFound)
}
