package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/taxi-dispatch/internal/models"
)

func TestNominatimLookup(t *testing.T) {
	var gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotUA = r.Header.Get("User-Agent")
		if r.URL.Query().Get("q") == "Nowhere, Bangalore" {
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`[{"lat":"12.9756","lon":"77.6050","display_name":"MG Road"}]`))
	}))
	defer srv.Close()

	n := NewNominatim(srv.URL, ", Bangalore", time.Second)
	c, err := n.Lookup(context.Background(), "MG Road")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if c.Lat != 12.9756 || c.Lng != 77.6050 {
		t.Fatalf("unexpected coord %+v", c)
	}
	if gotQuery != "MG Road, Bangalore" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if gotUA == "" {
		t.Fatal("expected a user agent")
	}

	if _, err := n.Lookup(context.Background(), "Nowhere"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNominatimServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n := NewNominatim(srv.URL, "", time.Second)
	if _, err := n.Lookup(context.Background(), "x"); err == nil {
		t.Fatal("expected error on 429")
	}
}

func TestNominatimTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	n := NewNominatim(srv.URL, "", 0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := n.Lookup(ctx, "slow"); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestCachedServesRepeatsAndExpires(t *testing.T) {
	calls := 0
	backend := Func(func(ctx context.Context, place string) (models.Coord, error) {
		calls++
		if place == "missing" {
			return models.Coord{}, ErrNotFound
		}
		return models.Coord{Lat: 1, Lng: 2}, nil
	})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCached(backend, time.Minute)
	c.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := c.Lookup(ctx, "MG Road"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := c.Lookup(ctx, " mg road "); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 backend call, got %d", calls)
	}

	now = now.Add(2 * time.Minute)
	if _, err := c.Lookup(ctx, "MG Road"); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("expected refetch after ttl, got %d calls", calls)
	}

	c.Lookup(ctx, "missing")
	c.Lookup(ctx, "missing")
	if calls != 4 {
		t.Fatalf("failures must not be cached, got %d calls", calls)
	}
}
