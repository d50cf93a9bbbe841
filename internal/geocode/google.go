package geocode

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"github.com/example/taxi-dispatch/internal/models"
)

// GoogleMaps resolves places with the Google Geocoding API.
type GoogleMaps struct {
	client *maps.Client
	suffix string
	region string
}

func NewGoogleMaps(apiKey, suffix, region string) (*GoogleMaps, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleMaps{client: client, suffix: suffix, region: region}, nil
}

func (g *GoogleMaps) Lookup(ctx context.Context, place string) (c models.Coord, err error) {
	defer func() { record("google", err) }()

	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		Address: place + g.suffix,
		Region:  g.region,
	})
	if err != nil {
		return models.Coord{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(results) == 0 {
		return models.Coord{}, ErrNotFound
	}
	loc := results[0].Geometry.Location
	return models.Coord{Lat: loc.Lat, Lng: loc.Lng}, nil
}
