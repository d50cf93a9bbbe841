package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/example/taxi-dispatch/internal/models"
)

var ErrNotFound = errors.New("not found")

// RideStore persists ride state so in-flight bookings survive a restart.
type RideStore interface {
	SaveRide(ctx context.Context, r *models.Ride) error
	UpdateRide(ctx context.Context, r *models.Ride) error
	ActiveRides(ctx context.Context) ([]models.Ride, error)
}

// HistoryStore is the append-only position log.
type HistoryStore interface {
	AppendPosition(ctx context.Context, rec models.HistoryRecord) error
	Positions(ctx context.Context, vehicleID string) ([]models.HistoryRecord, error)
	LatestPosition(ctx context.Context, vehicleID string) (models.HistoryRecord, error)
}

type MemoryStore struct {
	mu      sync.RWMutex
	rides   map[string]models.Ride
	history map[string][]models.HistoryRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rides:   make(map[string]models.Ride),
		history: make(map[string][]models.HistoryRecord),
	}
}

func (m *MemoryStore) SaveRide(ctx context.Context, r *models.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[r.ID] = *r
	return nil
}

func (m *MemoryStore) UpdateRide(ctx context.Context, r *models.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[r.ID]; !ok {
		return ErrNotFound
	}
	m.rides[r.ID] = *r
	return nil
}

func (m *MemoryStore) ActiveRides(ctx context.Context) ([]models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Ride, 0)
	for _, r := range m.rides {
		if r.State.Active() {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) Ride(id string) (models.Ride, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[id]
	return r, ok
}

func (m *MemoryStore) AppendPosition(ctx context.Context, rec models.HistoryRecord) error {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[rec.VehicleID] = append(m.history[rec.VehicleID], rec)
	return nil
}

func (m *MemoryStore) Positions(ctx context.Context, vehicleID string) ([]models.HistoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := m.history[vehicleID]
	out := make([]models.HistoryRecord, len(recs))
	copy(out, recs)
	return out, nil
}

func (m *MemoryStore) LatestPosition(ctx context.Context, vehicleID string) (models.HistoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := m.history[vehicleID]
	if len(recs) == 0 {
		return models.HistoryRecord{}, ErrNotFound
	}
	return recs[len(recs)-1], nil
}
