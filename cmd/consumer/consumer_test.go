package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/taxi-dispatch/internal/models"
)

// fakeUpdater implements RedisUpdater for tests
type fakeUpdater struct {
	failGeo  int // number of times to fail GeoAdd before succeeding
	failH    int // number of times to fail HSet before succeeding
	geoCalls int
	hCalls   int
	lastGeo  *redis.GeoLocation
	lastKey  string
}

func (f *fakeUpdater) GeoAdd(ctx context.Context, key string, loc *redis.GeoLocation) error {
	f.geoCalls++
	if f.geoCalls <= f.failGeo {
		return errors.New("geo fail")
	}
	f.lastGeo = loc
	return nil
}

func (f *fakeUpdater) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	f.hCalls++
	if f.hCalls <= f.failH {
		return errors.New("hset fail")
	}
	f.lastKey = key
	return nil
}

func testRecord() models.HistoryRecord {
	return models.HistoryRecord{VehicleID: "TAXI001", Loc: models.Coord{Lat: 12.97, Lng: 77.59}, RecordedAt: time.Now()}
}

func TestMirrorWithRetry_SucceedsAfterRetries(t *testing.T) {
	f := &fakeUpdater{failGeo: 1, failH: 1}
	start := time.Now()
	if err := mirrorWithRetry(context.Background(), f, "vehicles_geo", testRecord(), 3, 10*time.Millisecond); err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if f.geoCalls < 2 || f.hCalls < 2 {
		t.Fatalf("expected retries, got geo=%d h=%d", f.geoCalls, f.hCalls)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatalf("expected at least one backoff")
	}
	if f.lastGeo.Longitude != 77.59 || f.lastGeo.Latitude != 12.97 || f.lastGeo.Name != "TAXI001" {
		t.Fatalf("unexpected geo location %+v", f.lastGeo)
	}
	if f.lastKey != "vehicle:meta:TAXI001" {
		t.Fatalf("unexpected meta key %q", f.lastKey)
	}
}

func TestMirrorWithRetry_FailsWhenExhausted(t *testing.T) {
	f := &fakeUpdater{failGeo: 5}
	if err := mirrorWithRetry(context.Background(), f, "vehicles_geo", testRecord(), 3, 5*time.Millisecond); err == nil {
		t.Fatalf("expected error after retries")
	}
	if f.geoCalls != 3 {
		t.Fatalf("expected 3 attempts, got %d", f.geoCalls)
	}
}

func TestMirrorWithRetry_StopsOnCancel(t *testing.T) {
	f := &fakeUpdater{failGeo: 5}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := mirrorWithRetry(ctx, f, "vehicles_geo", testRecord(), 3, time.Second); err == nil {
		t.Fatal("expected error")
	}
	if f.geoCalls != 1 {
		t.Fatalf("cancelled context should stop retries, got %d calls", f.geoCalls)
	}
}

func TestDecodePosition(t *testing.T) {
	rec, err := decodePosition([]byte(`{"vehicle_id":"TAXI002","loc":{"lat":12.93,"lng":77.62},"recorded_at":"2024-01-01T00:00:00Z"}`))
	if err != nil || rec.VehicleID != "TAXI002" || rec.Loc.Lng != 77.62 {
		t.Fatalf("decode: %+v %v", rec, err)
	}
	for _, bad := range []string{`nope`, `{"loc":{"lat":1,"lng":2}}`, `{"vehicle_id":"X","loc":{"lat":100,"lng":2}}`} {
		if _, err := decodePosition([]byte(bad)); err == nil {
			t.Errorf("expected error for %s", bad)
		}
	}
}
