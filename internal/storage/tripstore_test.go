package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/taxi-dispatch/internal/models"
)

func TestMemoryStoreActiveRides(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	t0 := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	r1 := &models.Ride{ID: "r1", VehicleID: "TAXI001", State: models.StateAccepted, CreatedAt: t0.Add(time.Minute)}
	r2 := &models.Ride{ID: "r2", VehicleID: "TAXI002", State: models.StateRequested, CreatedAt: t0}
	r3 := &models.Ride{ID: "r3", VehicleID: "TAXI003", State: models.StateRequested, CreatedAt: t0}
	for _, r := range []*models.Ride{r1, r2, r3} {
		if err := m.SaveRide(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	r3.State = models.StateCancelled
	if err := m.UpdateRide(ctx, r3); err != nil {
		t.Fatal(err)
	}

	active, err := m.ActiveRides(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 2 || active[0].ID != "r2" || active[1].ID != "r1" {
		t.Fatalf("unexpected active rides: %+v", active)
	}

	if err := m.UpdateRide(ctx, &models.Ride{ID: "ghost"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreActiveRidesBreaksTiesByID(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	t0 := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	for _, id := range []string{"r9", "r3", "r5", "r1"} {
		if err := m.SaveRide(ctx, &models.Ride{ID: id, VehicleID: "TAXI001", RiderID: "alice", State: models.StateRequested, CreatedAt: t0}); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 5; i++ {
		active, err := m.ActiveRides(ctx)
		if err != nil {
			t.Fatal(err)
		}
		var got []string
		for _, r := range active {
			got = append(got, r.ID)
		}
		if strings.Join(got, ",") != "r1,r3,r5,r9" {
			t.Fatalf("unexpected order %v", got)
		}
	}
}

func TestMemoryStoreHistoryOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	if _, err := m.LatestPosition(ctx, "TAXI001"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	for i := 0; i < 3; i++ {
		rec := models.HistoryRecord{VehicleID: "TAXI001", Loc: models.Coord{Lat: float64(i), Lng: float64(i)}}
		if err := m.AppendPosition(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
	recs, err := m.Positions(ctx, "TAXI001")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	for i, r := range recs {
		if r.Loc.Lat != float64(i) || r.RecordedAt.IsZero() {
			t.Fatalf("record %d out of order or untimestamped: %+v", i, r)
		}
	}
	last, err := m.LatestPosition(ctx, "TAXI001")
	if err != nil || last.Loc.Lat != 2 {
		t.Fatalf("unexpected latest %+v err=%v", last, err)
	}
	if other, _ := m.Positions(ctx, "TAXI002"); len(other) != 0 {
		t.Fatalf("expected empty history, got %d", len(other))
	}
}
