// Package history keeps the append-only log of vehicle positions.
package history

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/taxi-dispatch/internal/models"
	"github.com/example/taxi-dispatch/internal/storage"
)

// Publisher streams logged positions to other consumers.
type Publisher interface {
	PublishPosition(ctx context.Context, rec models.HistoryRecord) error
}

type Logger struct {
	Store     storage.HistoryStore
	Publisher Publisher // optional
	Log       *slog.Logger
	Now       func() time.Time
}

func New(store storage.HistoryStore, pub Publisher, log *slog.Logger) *Logger {
	return &Logger{Store: store, Publisher: pub, Log: log, Now: time.Now}
}

// Record persists a position. Publishing is best effort; only the store
// error is returned.
func (l *Logger) Record(ctx context.Context, vehicleID string, c models.Coord) error {
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	rec := models.HistoryRecord{VehicleID: vehicleID, Loc: c, RecordedAt: now().UTC()}
	if err := l.Store.AppendPosition(ctx, rec); err != nil {
		return err
	}
	if l.Publisher != nil {
		if err := l.Publisher.PublishPosition(ctx, rec); err != nil && l.Log != nil {
			l.Log.Warn("publish position failed", "vehicle_id", vehicleID, "error", err)
		}
	}
	return nil
}

func (l *Logger) List(ctx context.Context, vehicleID string) ([]models.HistoryRecord, error) {
	return l.Store.Positions(ctx, vehicleID)
}

// Latest returns the last logged position and false when none exists.
func (l *Logger) Latest(ctx context.Context, vehicleID string) (models.Coord, bool, error) {
	rec, err := l.Store.LatestPosition(ctx, vehicleID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Coord{}, false, nil
	}
	if err != nil {
		return models.Coord{}, false, err
	}
	return rec.Loc, true, nil
}
