// Package geocode resolves human place names to coordinates.
package geocode

import (
	"context"
	"errors"

	"github.com/example/taxi-dispatch/internal/models"
	"github.com/example/taxi-dispatch/internal/observability"
)

// ErrNotFound is returned when the backend has no match for a place.
var ErrNotFound = errors.New("place not found")

type Geocoder interface {
	Lookup(ctx context.Context, place string) (models.Coord, error)
}

// Func adapts a plain function to Geocoder.
type Func func(ctx context.Context, place string) (models.Coord, error)

func (f Func) Lookup(ctx context.Context, place string) (models.Coord, error) { return f(ctx, place) }

func record(backend string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		result = "timeout"
	default:
		result = "error"
	}
	observability.GeocodeLookups.WithLabelValues(backend, result).Inc()
}
