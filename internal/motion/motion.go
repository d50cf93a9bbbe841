// Package motion simulates vehicles driving toward their current target one
// fixed step at a time.
package motion

import (
	"math"

	"github.com/example/taxi-dispatch/internal/models"
)

const (
	DefaultStep = 0.0005
	DefaultSnap = 0.0001
)

// Model holds the live position of every vehicle. It is not safe for
// concurrent use; the owner serializes access.
type Model struct {
	step      float64
	snap      float64
	positions map[string]models.Coord
}

func NewModel(step, snap float64) *Model {
	if step <= 0 {
		step = DefaultStep
	}
	if snap < 0 {
		snap = DefaultSnap
	}
	return &Model{step: step, snap: snap, positions: make(map[string]models.Coord)}
}

// Place registers a vehicle or teleports a known one.
func (m *Model) Place(vehicleID string, c models.Coord) {
	m.positions[vehicleID] = c
}

func (m *Model) Position(vehicleID string) (models.Coord, bool) {
	c, ok := m.positions[vehicleID]
	return c, ok
}

// Advance moves the vehicle one step toward target. arrived is true when the
// vehicle was already within the snap threshold and has been set exactly onto
// the target. ok is false for unknown vehicles.
func (m *Model) Advance(vehicleID string, target models.Coord) (arrived, ok bool) {
	cur, ok := m.positions[vehicleID]
	if !ok {
		return false, false
	}
	next, arrived := StepToward(cur, target, m.step, m.snap)
	m.positions[vehicleID] = next
	return arrived, true
}

// StepToward returns the position one step from cur toward target. Each axis
// moves by at most step and never past the target.
func StepToward(cur, target models.Coord, step, snap float64) (models.Coord, bool) {
	if math.Abs(target.Lat-cur.Lat) <= snap && math.Abs(target.Lng-cur.Lng) <= snap {
		return target, true
	}
	return models.Coord{
		Lat: approach(cur.Lat, target.Lat, step),
		Lng: approach(cur.Lng, target.Lng, step),
	}, false
}

func approach(from, to, step float64) float64 {
	d := to - from
	if math.Abs(d) <= step {
		return to
	}
	if d > 0 {
		return from + step
	}
	return from - step
}
