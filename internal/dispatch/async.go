package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/example/taxi-dispatch/internal/models"
	"github.com/example/taxi-dispatch/internal/observability"
)

var ErrQueueFull = errors.New("notification queue full")

type queuedEvent struct {
	target string
	ev     models.RideEvent
}

// Async hands events to a background worker that forwards them to next.
// Notify never blocks; it fails with ErrQueueFull once size events are
// waiting. Events still queued when Run returns are dropped.
type Async struct {
	next   Notifier
	queue  chan queuedEvent
	logger *slog.Logger
}

func NewAsync(next Notifier, size int, logger *slog.Logger) *Async {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Async{next: next, queue: make(chan queuedEvent, size), logger: logger}
}

func (a *Async) Notify(target string, ev models.RideEvent) error {
	select {
	case a.queue <- queuedEvent{target: target, ev: ev}:
		return nil
	default:
		observability.NotificationsTotal.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

// Run delivers queued events until ctx is done.
func (a *Async) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case q := <-a.queue:
			if err := a.next.Notify(q.target, q.ev); err != nil {
				a.logger.Warn("async notification failed", "target", q.target, "type", q.ev.Type, "vehicle_id", q.ev.VehicleID, "err", err)
			}
		}
	}
}
