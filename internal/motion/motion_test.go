package motion

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/taxi-dispatch/internal/models"
)

func TestAdvanceReachesNearTarget(t *testing.T) {
	m := NewModel(0.0005, 0.0001)
	m.Place("TAXI001", models.Coord{Lat: 12.9716, Lng: 77.5946})
	target := models.Coord{Lat: 12.9720, Lng: 77.5950}

	arrivals := 0
	for i := 0; i < 5; i++ {
		arrived, ok := m.Advance("TAXI001", target)
		if !ok {
			t.Fatal("vehicle should be known")
		}
		if arrived {
			arrivals++
			break
		}
	}
	if arrivals != 1 {
		t.Fatalf("expected arrival within 5 steps")
	}
	if pos, _ := m.Position("TAXI001"); pos != target {
		t.Fatalf("expected exact snap to %v, got %v", target, pos)
	}
}

func TestAdvanceNeverOvershoots(t *testing.T) {
	m := NewModel(0.0005, 0.0001)
	start := models.Coord{Lat: 12.9716, Lng: 77.5946}
	target := models.Coord{Lat: 12.9352, Lng: 77.6146}
	m.Place("TAXI001", start)

	prev := math.Inf(1)
	for i := 0; i < 1000; i++ {
		arrived, _ := m.Advance("TAXI001", target)
		pos, _ := m.Position("TAXI001")
		if pos.Lat < target.Lat || pos.Lng > target.Lng {
			t.Fatalf("overshot target at step %d: %v", i, pos)
		}
		d := math.Abs(pos.Lat-target.Lat) + math.Abs(pos.Lng-target.Lng)
		if d > prev {
			t.Fatalf("distance grew at step %d", i)
		}
		prev = d
		if arrived {
			return
		}
	}
	t.Fatal("vehicle never arrived")
}

func TestAdvanceUnknownVehicle(t *testing.T) {
	m := NewModel(0, -1)
	if _, ok := m.Advance("nope", models.Coord{}); ok {
		t.Fatal("unknown vehicle must be a no-op")
	}
}

func TestStepTowardPerAxisClamp(t *testing.T) {
	next, arrived := StepToward(models.Coord{Lat: 0, Lng: 0}, models.Coord{Lat: 0.0002, Lng: -0.01}, 0.0005, 0.0001)
	if arrived {
		t.Fatal("should not report arrival while longitude is far")
	}
	if next.Lat != 0.0002 {
		t.Fatalf("latitude should clamp to target, got %v", next.Lat)
	}
	if next.Lng != -0.0005 {
		t.Fatalf("longitude should move a full step, got %v", next.Lng)
	}
}

type countingTicker struct{ n atomic.Int32 }

func (c *countingTicker) Tick(ctx context.Context) { c.n.Add(1) }

func TestSchedulerTicksUntilCancelled(t *testing.T) {
	ct := &countingTicker{}
	s := &Scheduler{Every: 5 * time.Millisecond, Target: ct}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	time.Sleep(40 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	if ct.n.Load() == 0 {
		t.Fatal("expected at least one tick")
	}
}
