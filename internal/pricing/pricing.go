// Package pricing estimates ride fares from straight-line distance.
package pricing

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/example/taxi-dispatch/internal/geo"
	"github.com/example/taxi-dispatch/internal/geocode"
	"github.com/example/taxi-dispatch/internal/models"
)

const (
	DefaultBaseFare = 50.0
	DefaultPerKm    = 15.0
)

// Fare is an amount rounded to 2 decimals, or "N/A" when it could not be computed.
type Fare struct {
	Amount    float64
	Available bool
}

var NotAvailable = Fare{}

func (f Fare) MarshalJSON() ([]byte, error) {
	if !f.Available {
		return json.Marshal("N/A")
	}
	return json.Marshal(f.Amount)
}

func (f Fare) String() string {
	if !f.Available {
		return "N/A"
	}
	b, _ := json.Marshal(f.Amount)
	return string(b)
}

type Rates struct {
	BaseFare float64
	PerKm    float64
}

type Estimator struct {
	Rates    Rates
	Geocoder geocode.Geocoder // optional; without it only "lat,lng" inputs resolve
	Timeout  time.Duration
}

func NewEstimator(rates Rates, g geocode.Geocoder, timeout time.Duration) *Estimator {
	return &Estimator{Rates: rates, Geocoder: g, Timeout: timeout}
}

// ForRoute prices the straight-line distance between two points.
func (e *Estimator) ForRoute(pickup, drop models.Coord) Fare {
	km := geo.Between(pickup, drop)
	return Fare{Amount: geo.Round2(e.Rates.BaseFare + km*e.Rates.PerKm), Available: true}
}

// Estimate accepts "lat,lng" literals or place names. It never fails: an
// endpoint that cannot be resolved yields NotAvailable.
func (e *Estimator) Estimate(ctx context.Context, pickup, drop string) Fare {
	p, ok := e.resolve(ctx, pickup)
	if !ok {
		return NotAvailable
	}
	d, ok := e.resolve(ctx, drop)
	if !ok {
		return NotAvailable
	}
	return e.ForRoute(p, d)
}

func (e *Estimator) resolve(ctx context.Context, input string) (models.Coord, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return models.Coord{}, false
	}
	if c, err := geo.ParseCoord(input); err == nil {
		return c, true
	}
	if e.Geocoder == nil {
		return models.Coord{}, false
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	c, err := e.Geocoder.Lookup(ctx, input)
	if err != nil {
		return models.Coord{}, false
	}
	return c, true
}
