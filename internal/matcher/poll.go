package matcher

import (
	"context"
	"fmt"
	"time"

	"github.com/example/taxi-dispatch/internal/dispatch"
	"github.com/example/taxi-dispatch/internal/geo"
	"github.com/example/taxi-dispatch/internal/models"
	"github.com/example/taxi-dispatch/internal/observability"
	"github.com/example/taxi-dispatch/internal/pricing"
)

// Snapshot is the answer to a location poll.
type Snapshot struct {
	VehicleID      string       `json:"vehicleId"`
	Lat            float64      `json:"lat"`
	Lng            float64      `json:"lng"`
	ETAMinutes     float64      `json:"etaMinutes"`
	DistanceKm     float64      `json:"distanceKm"`
	Status         string       `json:"status"`
	Destination    models.Coord `json:"destination"`
	Arrived        bool         `json:"arrived"`
	RideAccepted   bool         `json:"rideAccepted"`
	WaitingForUser bool         `json:"waitingForUser"`
	AtPickup       bool         `json:"atPickup"`
	AtDrop         bool         `json:"atDrop"`
}

// Poll reads a vehicle's position, logs it to history and reports how far
// it is from its current destination.
func (c *Coordinator) Poll(ctx context.Context, vehicleID string) (Snapshot, error) {
	c.mu.Lock()
	v, ok := c.vehicles[vehicleID]
	if !ok {
		c.mu.Unlock()
		return Snapshot{}, ErrNotFound
	}
	ride := c.rides[vehicleID]
	if c.cfg.MotionOnPoll && ride != nil && ride.State.Moving() {
		c.stepLocked(ctx, vehicleID, ride)
	}
	pos, _ := c.motion.Position(vehicleID)

	snap := Snapshot{VehicleID: vehicleID, Lat: pos.Lat, Lng: pos.Lng, Status: v.status}
	var dist float64
	switch {
	case ride != nil && !ride.State.PickupReached():
		snap.Destination = ride.Pickup
		dist = geo.Between(pos, ride.Pickup)
		snap.AtPickup = dist < c.cfg.ArrivalRadiusKm
	case ride != nil:
		snap.Destination = ride.Drop
		dist = geo.Between(pos, ride.Drop)
		snap.AtDrop = dist < c.cfg.ArrivalRadiusKm
	default:
		snap.Destination = c.cfg.DefaultTarget
		dist = geo.Between(pos, c.cfg.DefaultTarget)
	}
	snap.Arrived = dist < c.cfg.ArrivalRadiusKm
	snap.DistanceKm = geo.Round2(dist)
	snap.ETAMinutes = geo.ETAMinutes(dist, c.cfg.SpeedKmh)
	if ride != nil {
		snap.RideAccepted = ride.State.Moving()
		snap.WaitingForUser = ride.State == models.StateRequested
	}

	var rideID, rider string
	if snap.AtDrop && !v.notified {
		rideID, rider = ride.ID, ride.RiderID
	}
	c.mu.Unlock()

	if c.history != nil {
		if err := c.history.Record(ctx, vehicleID, pos); err != nil {
			return Snapshot{}, fmt.Errorf("%w: record position: %v", ErrStorageUnavailable, err)
		}
	}
	if rideID != "" && c.claimArrival(vehicleID, rideID) {
		observability.ArrivalsTotal.WithLabelValues("drop").Inc()
		c.log.Info("vehicle reached destination", "vehicle_id", vehicleID, "rider", rider)
		c.notify(dispatch.AdminTarget, models.RideEvent{Type: models.EventArrived, VehicleID: vehicleID, RiderID: rider, At: time.Now()})
	}
	return snap, nil
}

// claimArrival marks the drop arrival of rideID as announced. It reports
// false when another poll got there first or the ride has since ended.
func (c *Coordinator) claimArrival(vehicleID, rideID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.vehicles[vehicleID]
	r, ok := c.rides[vehicleID]
	if !ok || r.ID != rideID || v.notified {
		return false
	}
	v.notified = true
	return true
}

// Tick advances every vehicle with an accepted ride by one step.
func (c *Coordinator) Tick(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.order {
		if ride, ok := c.rides[id]; ok && ride.State.Moving() {
			c.stepLocked(ctx, id, ride)
		}
	}
}

// stepLocked moves the vehicle toward its ride target. Reaching the pickup
// point flips the ride to pickup_reached, so the next step heads for the
// drop point.
func (c *Coordinator) stepLocked(ctx context.Context, vehicleID string, ride *models.Ride) {
	arrived, ok := c.motion.Advance(vehicleID, ride.Target())
	if !ok {
		return
	}
	observability.MotionSteps.Inc()
	if !arrived || ride.State != models.StateAccepted {
		return
	}
	if _, err := c.transitionLocked(ctx, vehicleID, models.StatePickupReached); err != nil {
		// retried on the next step
		c.log.Warn("pickup arrival not persisted", "vehicle_id", vehicleID, "err", err)
		return
	}
	observability.ArrivalsTotal.WithLabelValues("pickup").Inc()
}

// Restore reloads in-flight rides and the last known vehicle positions,
// typically once at startup before serving traffic.
func (c *Coordinator) Restore(ctx context.Context) error {
	rides, err := c.store.ActiveRides(ctx)
	if err != nil {
		return fmt.Errorf("%w: load active rides: %v", ErrStorageUnavailable, err)
	}

	positions := make(map[string]models.Coord)
	if c.history != nil {
		for _, id := range c.order {
			pos, ok, err := c.history.Latest(ctx, id)
			if err != nil {
				return fmt.Errorf("%w: latest position %s: %v", ErrStorageUnavailable, id, err)
			}
			if ok {
				positions[id] = pos
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	restored := 0
	for i := range rides {
		r := rides[i]
		if _, known := c.vehicles[r.VehicleID]; !known {
			c.log.Warn("skipping ride for unknown vehicle", "ride_id", r.ID, "vehicle_id", r.VehicleID)
			continue
		}
		if _, taken := c.rides[r.VehicleID]; taken {
			c.log.Warn("skipping duplicate active ride", "ride_id", r.ID, "vehicle_id", r.VehicleID)
			continue
		}
		if _, taken := c.riders[r.RiderID]; taken {
			c.log.Warn("skipping duplicate rider booking", "ride_id", r.ID, "rider", r.RiderID)
			continue
		}
		c.rides[r.VehicleID] = &r
		c.riders[r.RiderID] = r.VehicleID
		restored++
	}
	for id, pos := range positions {
		c.motion.Place(id, pos)
	}
	observability.ActiveRides.Set(float64(len(c.rides)))
	c.log.Info("state restored", "rides", restored, "positions", len(positions))
	return nil
}

// BookingInfo describes a vehicle's current ride.
type BookingInfo struct {
	Pickup         models.Coord     `json:"pickup"`
	Drop           models.Coord     `json:"drop"`
	OriginalPickup string           `json:"originalPickup"`
	OriginalDrop   string           `json:"originalDrop"`
	Fare           pricing.Fare     `json:"fare"`
	Rider          string           `json:"rider"`
	State          models.RideState `json:"state"`
}

// BookingInfo reports false when the vehicle has no ride.
func (c *Coordinator) BookingInfo(vehicleID string) (BookingInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.rides[vehicleID]
	if !ok {
		return BookingInfo{}, false
	}
	fare := pricing.NotAvailable
	if r.Fare != nil {
		fare = pricing.Fare{Amount: *r.Fare, Available: true}
	}
	return BookingInfo{
		Pickup:         r.Pickup,
		Drop:           r.Drop,
		OriginalPickup: r.PickupName,
		OriginalDrop:   r.DropName,
		Fare:           fare,
		Rider:          r.RiderID,
		State:          r.State,
	}, true
}

// RiderVehicle returns the vehicle bound to rider.
func (c *Coordinator) RiderVehicle(rider string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.riders[rider]
	return id, ok
}

// PassengerFor returns the rider bound to the vehicle.
func (c *Coordinator) PassengerFor(vehicleID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.rides[vehicleID]
	if !ok {
		return "", false
	}
	return r.RiderID, true
}

// Vehicles lists the fleet in its configured order with live positions.
func (c *Coordinator) Vehicles() []models.Vehicle {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Vehicle, 0, len(c.order))
	for _, id := range c.order {
		pos, _ := c.motion.Position(id)
		v := c.vehicles[id]
		out = append(out, models.Vehicle{ID: id, Type: v.typ, Loc: pos, Status: v.status})
	}
	return out
}

func (c *Coordinator) SetStatus(vehicleID, status string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.vehicles[vehicleID]
	if !ok {
		return ErrNotFound
	}
	v.status = status
	return nil
}

func (c *Coordinator) Known(vehicleID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.vehicles[vehicleID]
	return ok
}
