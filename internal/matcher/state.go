package matcher

import (
	"errors"

	"github.com/example/taxi-dispatch/internal/models"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrMissingFields          = errors.New("missing fields")
	ErrGeocodingFailed        = errors.New("geocoding failed")
	ErrNoVehicleAvailable     = errors.New("no available vehicles")
	ErrCancellationNotAllowed = errors.New("cannot cancel after pickup")
	ErrInvalidTransition      = errors.New("invalid ride state transition")
	ErrActiveBooking          = errors.New("rider already has an active booking")
	ErrStorageUnavailable     = errors.New("storage unavailable")
)

// AllowedTransitions is the per-vehicle ride lifecycle. rejected, trip_ended
// and cancelled are written to the ride record and fold straight back to idle.
var AllowedTransitions = map[models.RideState][]models.RideState{
	models.StateIdle:          {models.StateRequested},
	models.StateRequested:     {models.StateAccepted, models.StateRejected, models.StateCancelled},
	models.StateAccepted:      {models.StatePickupReached, models.StateCancelled},
	models.StatePickupReached: {models.StateTripStarted, models.StateTripEnded},
	models.StateTripStarted:   {models.StateTripEnded},
	models.StateRejected:      {models.StateIdle},
	models.StateTripEnded:     {models.StateIdle},
	models.StateCancelled:     {models.StateIdle},
}

func CanTransition(from, to models.RideState) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func terminal(s models.RideState) bool {
	return s == models.StateRejected || s == models.StateTripEnded || s == models.StateCancelled
}
