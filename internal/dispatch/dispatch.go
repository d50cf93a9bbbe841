package dispatch

import (
	"errors"
	"log/slog"

	"github.com/example/taxi-dispatch/internal/models"
	"github.com/example/taxi-dispatch/internal/observability"
)

// AdminTarget is the session key for the admin console.
const AdminTarget = "admin"

// Notifier delivers ride events to a driver (keyed by vehicle id) or the admin.
type Notifier interface {
	Notify(target string, ev models.RideEvent) error
}

// LogNotifier writes events to the structured log.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l *LogNotifier) Notify(target string, ev models.RideEvent) error {
	l.Logger.Info("ride event", "target", target, "type", ev.Type, "vehicle_id", ev.VehicleID, "rider", ev.RiderID)
	return nil
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(target string, ev models.RideEvent) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(target, ev); err != nil && !errors.Is(err, ErrNoSession) {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		observability.NotificationsTotal.WithLabelValues("error").Inc()
	} else {
		observability.NotificationsTotal.WithLabelValues("ok").Inc()
	}
	return err
}
