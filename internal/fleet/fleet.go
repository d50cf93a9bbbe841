// Package fleet defines the static set of vehicles the service simulates.
package fleet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/example/taxi-dispatch/internal/models"
)

// Entry describes one vehicle and where it starts.
type Entry struct {
	ID   string  `mapstructure:"id"`
	Type string  `mapstructure:"type"`
	Lat  float64 `mapstructure:"lat"`
	Lng  float64 `mapstructure:"lng"`
}

func (e Entry) Start() models.Coord { return models.Coord{Lat: e.Lat, Lng: e.Lng} }

func (e Entry) VehicleType() models.VehicleType { return models.VehicleType(e.Type) }

// Default is the seven-taxi Bangalore fleet.
func Default() []Entry {
	return []Entry{
		{ID: "TAXI001", Type: "sedan", Lat: 12.9716, Lng: 77.5946},
		{ID: "TAXI002", Type: "SUV", Lat: 12.9352, Lng: 77.6146},
		{ID: "TAXI003", Type: "mini", Lat: 12.9487, Lng: 77.5725},
		{ID: "TAXI004", Type: "SUV", Lat: 12.9256, Lng: 77.6301},
		{ID: "TAXI005", Type: "mini", Lat: 12.9864, Lng: 77.6035},
		{ID: "TAXI006", Type: "sedan", Lat: 12.9129, Lng: 77.6444},
		{ID: "TAXI007", Type: "SUV", Lat: 13.0012, Lng: 77.5706},
	}
}

type fileConfig struct {
	Fleet []Entry `mapstructure:"fleet"`
}

// Load reads a fleet file (YAML, JSON or TOML by extension) shaped as
//
//	fleet:
//	  - {id: TAXI001, type: sedan, lat: 12.97, lng: 77.59}
//
// An empty path returns Default.
func Load(path string) ([]Entry, error) {
	if path == "" {
		return Default(), nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read fleet file: %w", err)
	}
	var cfg fileConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode fleet file: %w", err)
	}
	if err := Validate(cfg.Fleet); err != nil {
		return nil, err
	}
	return cfg.Fleet, nil
}

func Validate(entries []Entry) error {
	if len(entries) == 0 {
		return errors.New("fleet is empty")
	}
	var errs []error
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.ID) == "" {
			errs = append(errs, fmt.Errorf("fleet[%d]: missing id", i))
			continue
		}
		if seen[e.ID] {
			errs = append(errs, fmt.Errorf("fleet[%d]: duplicate id %s", i, e.ID))
		}
		seen[e.ID] = true
		switch e.VehicleType() {
		case models.VehicleSedan, models.VehicleSUV, models.VehicleMini:
		default:
			errs = append(errs, fmt.Errorf("fleet[%d]: unknown type %q", i, e.Type))
		}
		if e.Lat < -90 || e.Lat > 90 || e.Lng < -180 || e.Lng > 180 {
			errs = append(errs, fmt.Errorf("fleet[%d]: position out of range", i))
		}
	}
	return errors.Join(errs...)
}
