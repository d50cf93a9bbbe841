package motion

import (
	"context"
	"log/slog"
	"time"
)

// Ticker advances every moving vehicle by one step.
type Ticker interface {
	Tick(ctx context.Context)
}

// Scheduler drives a Ticker on a fixed interval so simulated speed does not
// depend on how often clients poll.
type Scheduler struct {
	Every  time.Duration
	Target Ticker
	Logger *slog.Logger
}

func (s *Scheduler) Run(ctx context.Context) {
	if s.Every <= 0 {
		return
	}
	ticker := time.NewTicker(s.Every)
	defer ticker.Stop()

	if s.Logger != nil {
		s.Logger.Info("motion scheduler started", "every", s.Every.String())
	}
	for {
		select {
		case <-ctx.Done():
			if s.Logger != nil {
				s.Logger.Info("motion scheduler stopped")
			}
			return
		case <-ticker.C:
			s.Target.Tick(ctx)
		}
	}
}
