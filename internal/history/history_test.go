package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/taxi-dispatch/internal/models"
	"github.com/example/taxi-dispatch/internal/storage"
)

type fakePublisher struct {
	recs []models.HistoryRecord
	err  error
}

func (f *fakePublisher) PublishPosition(ctx context.Context, rec models.HistoryRecord) error {
	f.recs = append(f.recs, rec)
	return f.err
}

type failingStore struct{ storage.HistoryStore }

func (failingStore) AppendPosition(ctx context.Context, rec models.HistoryRecord) error {
	return errors.New("db down")
}

func TestRecordStoresAndPublishes(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	pub := &fakePublisher{err: errors.New("kafka down")}
	l := New(store, pub, nil)
	fixed := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	l.Now = func() time.Time { return fixed }

	if err := l.Record(ctx, "TAXI001", models.Coord{Lat: 1, Lng: 2}); err != nil {
		t.Fatalf("publish failure must not fail record: %v", err)
	}
	if err := l.Record(ctx, "TAXI001", models.Coord{Lat: 3, Lng: 4}); err != nil {
		t.Fatal(err)
	}
	recs, err := l.List(ctx, "TAXI001")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].Loc.Lat != 1 || !recs[0].RecordedAt.Equal(fixed) {
		t.Fatalf("unexpected records %+v", recs)
	}
	if len(pub.recs) != 2 {
		t.Fatalf("expected 2 published records, got %d", len(pub.recs))
	}

	last, ok, err := l.Latest(ctx, "TAXI001")
	if err != nil || !ok || last.Lat != 3 {
		t.Fatalf("unexpected latest %v ok=%v err=%v", last, ok, err)
	}
	if _, ok, err := l.Latest(ctx, "TAXI009"); ok || err != nil {
		t.Fatalf("expected no position for unknown vehicle, ok=%v err=%v", ok, err)
	}
}

func TestRecordSurfacesStoreError(t *testing.T) {
	pub := &fakePublisher{}
	l := New(failingStore{storage.NewMemoryStore()}, pub, nil)
	if err := l.Record(context.Background(), "TAXI001", models.Coord{}); err == nil {
		t.Fatal("expected store error")
	}
	if len(pub.recs) != 0 {
		t.Fatal("nothing should be published when the store fails")
	}
}
