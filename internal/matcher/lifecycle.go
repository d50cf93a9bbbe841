package matcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/taxi-dispatch/internal/dispatch"
	"github.com/example/taxi-dispatch/internal/models"
	"github.com/example/taxi-dispatch/internal/observability"
	"github.com/example/taxi-dispatch/internal/payments"
)

// Accept is the driver taking a requested ride.
func (c *Coordinator) Accept(ctx context.Context, vehicleID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.transitionLocked(ctx, vehicleID, models.StateAccepted)
	return err
}

// Reject frees the vehicle and the rider; the rider has to book again.
func (c *Coordinator) Reject(ctx context.Context, vehicleID string) error {
	c.mu.Lock()
	ride, err := c.transitionLocked(ctx, vehicleID, models.StateRejected)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.releasePayment(ctx, ride)
	return nil
}

// ConfirmPickup marks the pickup as reached. Confirming twice is a no-op.
func (c *Coordinator) ConfirmPickup(ctx context.Context, vehicleID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.rides[vehicleID]; ok && r.State == models.StatePickupReached {
		return nil
	}
	_, err := c.transitionLocked(ctx, vehicleID, models.StatePickupReached)
	return err
}

func (c *Coordinator) StartTrip(ctx context.Context, vehicleID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.transitionLocked(ctx, vehicleID, models.StateTripStarted); err != nil {
		return err
	}
	c.vehicles[vehicleID].status = "Trip Started"
	return nil
}

// EndTrip closes the ride, frees the vehicle where it stands and captures
// any held payment.
func (c *Coordinator) EndTrip(ctx context.Context, vehicleID string) error {
	c.mu.Lock()
	ride, err := c.transitionLocked(ctx, vehicleID, models.StateTripEnded)
	if err == nil {
		c.vehicles[vehicleID].status = "Trip Ended"
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if c.payments != nil && ride.PaymentID != "" {
		if err := c.payments.Capture(ctx, ride.PaymentID); err != nil {
			c.log.Warn("payment capture failed", "ride_id", ride.ID, "payment_id", ride.PaymentID, "err", err)
		}
	}
	return nil
}

// Cancel withdraws the rider's booking. Only allowed before pickup.
func (c *Coordinator) Cancel(ctx context.Context, rider string) error {
	c.mu.Lock()
	vehicleID, ok := c.riders[rider]
	if !ok {
		c.mu.Unlock()
		return ErrNotFound
	}
	if c.rides[vehicleID].State.PickupReached() {
		c.mu.Unlock()
		return ErrCancellationNotAllowed
	}
	ride, err := c.transitionLocked(ctx, vehicleID, models.StateCancelled)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.releasePayment(ctx, ride)
	c.notify(vehicleID, models.RideEvent{Type: models.EventRideCancelled, VehicleID: vehicleID, RiderID: rider, At: ride.UpdatedAt})
	return nil
}

// transitionLocked persists the new state and only then applies it in
// memory. Terminal states release the vehicle and the rider. The returned
// ride is a copy safe to use after unlocking.
func (c *Coordinator) transitionLocked(ctx context.Context, vehicleID string, to models.RideState) (models.Ride, error) {
	if _, ok := c.vehicles[vehicleID]; !ok {
		return models.Ride{}, ErrNotFound
	}
	ride, ok := c.rides[vehicleID]
	from := models.StateIdle
	if ok {
		from = ride.State
	}
	if !ok || !CanTransition(from, to) {
		return models.Ride{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	next := *ride
	next.State = to
	next.UpdatedAt = c.now()
	if err := c.store.UpdateRide(ctx, &next); err != nil {
		return models.Ride{}, fmt.Errorf("%w: update ride %s: %v", ErrStorageUnavailable, ride.ID, err)
	}
	*ride = next

	if terminal(to) {
		delete(c.rides, vehicleID)
		delete(c.riders, ride.RiderID)
		c.vehicles[vehicleID].notified = false
		observability.ActiveRides.Set(float64(len(c.rides)))
	}
	c.log.Info("ride transition", "ride_id", ride.ID, "vehicle_id", vehicleID, "from", from, "to", to)
	return next, nil
}

func (c *Coordinator) notify(target string, ev models.RideEvent) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(target, ev); err != nil && !errors.Is(err, dispatch.ErrNoSession) {
		c.log.Warn("notify failed", "target", target, "event", ev.Type, "err", err)
	}
}

// holdPayment places a manual-capture hold for the fare. Payment failures
// never fail the booking.
func (c *Coordinator) holdPayment(ctx context.Context, rideID, vehicleID, rider string, fare float64) {
	if c.payments == nil {
		return
	}
	id, err := c.payments.Hold(ctx, payments.MinorUnits(fare), c.cfg.Currency, rider)
	if err != nil {
		c.log.Warn("payment hold failed", "ride_id", rideID, "rider", rider, "err", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	ride, ok := c.rides[vehicleID]
	if !ok || ride.ID != rideID {
		// ride ended before the hold came back
		go c.payments.Cancel(context.WithoutCancel(ctx), id)
		return
	}
	next := *ride
	next.PaymentID = id
	if err := c.store.UpdateRide(ctx, &next); err != nil {
		c.log.Warn("persist payment id failed", "ride_id", rideID, "err", err)
		return
	}
	*ride = next
}

func (c *Coordinator) releasePayment(ctx context.Context, ride models.Ride) {
	if c.payments == nil || ride.PaymentID == "" {
		return
	}
	if err := c.payments.Cancel(ctx, ride.PaymentID); err != nil {
		c.log.Warn("payment release failed", "ride_id", ride.ID, "payment_id", ride.PaymentID, "err", err)
	}
}
