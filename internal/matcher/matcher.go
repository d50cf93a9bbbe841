package matcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/taxi-dispatch/internal/fleet"
	"github.com/example/taxi-dispatch/internal/geo"
	"github.com/example/taxi-dispatch/internal/geocode"
	"github.com/example/taxi-dispatch/internal/models"
	"github.com/example/taxi-dispatch/internal/motion"
	"github.com/example/taxi-dispatch/internal/observability"
	"github.com/example/taxi-dispatch/internal/pricing"
	"github.com/example/taxi-dispatch/internal/storage"
)

type Notifier interface {
	Notify(target string, ev models.RideEvent) error
}

type PositionLog interface {
	Record(ctx context.Context, vehicleID string, c models.Coord) error
	Latest(ctx context.Context, vehicleID string) (models.Coord, bool, error)
}

type FareQuoter interface {
	ForRoute(pickup, drop models.Coord) pricing.Fare
}

type Payments interface {
	Hold(ctx context.Context, amount int64, currency, riderID string) (string, error)
	Capture(ctx context.Context, paymentIntentID string) error
	Cancel(ctx context.Context, paymentIntentID string) error
}

type Config struct {
	ArrivalRadiusKm float64
	SpeedKmh        float64
	DefaultTarget   models.Coord
	GeocodeTimeout  time.Duration
	// MotionOnPoll advances a moving vehicle on every location poll instead
	// of (or in addition to) the tick scheduler.
	MotionOnPoll bool
	Currency     string
}

func DefaultConfig() Config {
	return Config{
		ArrivalRadiusKm: 0.05,
		SpeedKmh:        geo.DefaultSpeedKmh,
		DefaultTarget:   models.Coord{Lat: 12.9352, Lng: 77.6146},
		GeocodeTimeout:  5 * time.Second,
		Currency:        "inr",
	}
}

type Deps struct {
	Fleet    []fleet.Entry
	Motion   *motion.Model
	Geocoder geocode.Geocoder
	Fares    FareQuoter
	Rides    storage.RideStore
	History  PositionLog
	Notifier Notifier // optional
	Payments Payments // optional
	Logger   *slog.Logger
}

type vehicleState struct {
	typ      models.VehicleType
	status   string
	notified bool
}

// Coordinator matches riders to vehicles and owns every vehicle's ride
// lifecycle. All ride and position state is guarded by mu.
type Coordinator struct {
	cfg      Config
	geocoder geocode.Geocoder
	fares    FareQuoter
	store    storage.RideStore
	history  PositionLog
	notifier Notifier
	payments Payments
	log      *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	order    []string
	vehicles map[string]*vehicleState
	motion   *motion.Model
	rides    map[string]*models.Ride // by vehicle id
	riders   map[string]string       // rider -> vehicle id
}

func New(cfg Config, d Deps) *Coordinator {
	if d.Motion == nil {
		d.Motion = motion.NewModel(motion.DefaultStep, motion.DefaultSnap)
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.Rides == nil {
		d.Rides = storage.NewMemoryStore()
	}
	c := &Coordinator{
		cfg:      cfg,
		geocoder: d.Geocoder,
		fares:    d.Fares,
		store:    d.Rides,
		history:  d.History,
		notifier: d.Notifier,
		payments: d.Payments,
		log:      d.Logger,
		now:      time.Now,
		vehicles: make(map[string]*vehicleState, len(d.Fleet)),
		motion:   d.Motion,
		rides:    make(map[string]*models.Ride),
		riders:   make(map[string]string),
	}
	for _, e := range d.Fleet {
		c.order = append(c.order, e.ID)
		c.vehicles[e.ID] = &vehicleState{typ: e.VehicleType(), status: models.DefaultVehicleStatus}
		c.motion.Place(e.ID, e.Start())
	}
	return c
}

type Booking struct {
	RideID     string
	VehicleID  string
	ETAMinutes float64
	Pickup     models.Coord
	Drop       models.Coord
	Fare       pricing.Fare
}

// Book geocodes both places and binds the rider to the nearest free vehicle.
func (c *Coordinator) Book(ctx context.Context, rider, pickupName, dropName string) (Booking, error) {
	start := time.Now()
	b, err := c.book(ctx, strings.TrimSpace(rider), strings.TrimSpace(pickupName), strings.TrimSpace(dropName))
	observability.BookingLatency.Observe(time.Since(start).Seconds())
	observability.BookingsTotal.WithLabelValues(bookingResult(err)).Inc()
	return b, err
}

func (c *Coordinator) book(ctx context.Context, rider, pickupName, dropName string) (Booking, error) {
	if rider == "" || pickupName == "" || dropName == "" {
		return Booking{}, ErrMissingFields
	}
	if c.hasBooking(rider) {
		return Booking{}, ErrActiveBooking
	}

	pickup, err := c.lookup(ctx, pickupName)
	if err != nil {
		return Booking{}, fmt.Errorf("%w: pickup %q: %v", ErrGeocodingFailed, pickupName, err)
	}
	drop, err := c.lookup(ctx, dropName)
	if err != nil {
		return Booking{}, fmt.Errorf("%w: drop %q: %v", ErrGeocodingFailed, dropName, err)
	}
	fare := pricing.NotAvailable
	if c.fares != nil {
		fare = c.fares.ForRoute(pickup, drop)
	}

	c.mu.Lock()
	if _, busy := c.riders[rider]; busy {
		c.mu.Unlock()
		return Booking{}, ErrActiveBooking
	}
	vehicleID, dist, ok := c.nearestFreeLocked(pickup)
	if !ok {
		c.mu.Unlock()
		return Booking{}, ErrNoVehicleAvailable
	}
	now := c.now()
	ride := &models.Ride{
		ID:         uuid.NewString(),
		VehicleID:  vehicleID,
		RiderID:    rider,
		Pickup:     pickup,
		Drop:       drop,
		PickupName: pickupName,
		DropName:   dropName,
		State:      models.StateRequested,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if fare.Available {
		amount := fare.Amount
		ride.Fare = &amount
	}
	if err := c.store.SaveRide(ctx, ride); err != nil {
		c.mu.Unlock()
		return Booking{}, fmt.Errorf("%w: save ride: %v", ErrStorageUnavailable, err)
	}
	c.rides[vehicleID] = ride
	c.riders[rider] = vehicleID
	c.vehicles[vehicleID].notified = false
	observability.ActiveRides.Set(float64(len(c.rides)))
	c.mu.Unlock()

	eta := geo.ETAMinutes(dist, c.cfg.SpeedKmh)
	c.log.Info("ride booked", "ride_id", ride.ID, "vehicle_id", vehicleID, "rider", rider, "eta_min", eta)
	c.notify(vehicleID, models.RideEvent{Type: models.EventRideRequested, VehicleID: vehicleID, RiderID: rider, Pickup: &pickup, Drop: &drop, At: now})
	if fare.Available {
		c.holdPayment(ctx, ride.ID, vehicleID, rider, fare.Amount)
	}

	return Booking{RideID: ride.ID, VehicleID: vehicleID, ETAMinutes: eta, Pickup: pickup, Drop: drop, Fare: fare}, nil
}

// nearestFreeLocked scans vehicles in fleet order; the first minimal
// distance wins ties.
func (c *Coordinator) nearestFreeLocked(p models.Coord) (string, float64, bool) {
	best, bestDist := "", math.Inf(1)
	for _, id := range c.order {
		if _, bound := c.rides[id]; bound {
			continue
		}
		pos, ok := c.motion.Position(id)
		if !ok {
			continue
		}
		if d := geo.Between(pos, p); d < bestDist {
			best, bestDist = id, d
		}
	}
	return best, bestDist, best != ""
}

func (c *Coordinator) lookup(ctx context.Context, place string) (models.Coord, error) {
	if c.geocoder == nil {
		return models.Coord{}, geocode.ErrNotFound
	}
	if c.cfg.GeocodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.GeocodeTimeout)
		defer cancel()
	}
	return c.geocoder.Lookup(ctx, place)
}

func (c *Coordinator) hasBooking(rider string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.riders[rider]
	return ok
}

func bookingResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrGeocodingFailed):
		return "geocoding_failed"
	case errors.Is(err, ErrNoVehicleAvailable):
		return "no_vehicle"
	case errors.Is(err, ErrMissingFields):
		return "missing_fields"
	case errors.Is(err, ErrActiveBooking):
		return "active_booking"
	default:
		return "error"
	}
}
