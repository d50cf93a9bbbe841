package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type VehicleType string

const (
	VehicleSedan VehicleType = "sedan"
	VehicleSUV   VehicleType = "SUV"
	VehicleMini  VehicleType = "mini"
)

// DefaultVehicleStatus is reported for vehicles whose driver never set a status.
const DefaultVehicleStatus = "Not Set"

type Vehicle struct {
	ID     string      `json:"vehicleId"`
	Type   VehicleType `json:"type"`
	Loc    Coord       `json:"-"`
	Status string      `json:"status"`
}

type RideState string

const (
	StateIdle          RideState = "idle"
	StateRequested     RideState = "requested"
	StateAccepted      RideState = "accepted"
	StateRejected      RideState = "rejected"
	StatePickupReached RideState = "pickup_reached"
	StateTripStarted   RideState = "trip_started"
	StateTripEnded     RideState = "trip_ended"
	StateCancelled     RideState = "cancelled"
)

// Active reports whether a ride in this state still binds its vehicle.
func (s RideState) Active() bool {
	switch s {
	case StateRequested, StateAccepted, StatePickupReached, StateTripStarted:
		return true
	}
	return false
}

// Moving reports whether the driver accepted and the vehicle should travel.
func (s RideState) Moving() bool {
	switch s {
	case StateAccepted, StatePickupReached, StateTripStarted:
		return true
	}
	return false
}

// PickupReached reports whether the ride is past its pickup point.
func (s RideState) PickupReached() bool {
	return s == StatePickupReached || s == StateTripStarted
}

type Ride struct {
	ID         string
	VehicleID  string
	RiderID    string
	Pickup     Coord
	Drop       Coord
	PickupName string
	DropName   string
	State      RideState
	Fare       *float64 // nil when no fare could be quoted
	PaymentID  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Target is where the vehicle currently drives to: the pickup point until it
// is reached, the drop point afterwards.
func (r *Ride) Target() Coord {
	if r.State.PickupReached() {
		return r.Drop
	}
	return r.Pickup
}

type HistoryRecord struct {
	VehicleID  string    `json:"vehicle_id"`
	Loc        Coord     `json:"loc"`
	RecordedAt time.Time `json:"recorded_at"`
}

type RideEvent struct {
	Type      string    `json:"type"` // ride_requested, ride_cancelled, arrived
	VehicleID string    `json:"vehicleId"`
	RiderID   string    `json:"rider,omitempty"`
	Pickup    *Coord    `json:"pickup,omitempty"`
	Drop      *Coord    `json:"drop,omitempty"`
	At        time.Time `json:"at"`
}

const (
	EventRideRequested = "ride_requested"
	EventRideCancelled = "ride_cancelled"
	EventArrived       = "arrived"
)
