package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/example/taxi-dispatch/internal/config"
	"github.com/example/taxi-dispatch/internal/dispatch"
	"github.com/example/taxi-dispatch/internal/fleet"
	"github.com/example/taxi-dispatch/internal/geocode"
	"github.com/example/taxi-dispatch/internal/history"
	httpapi "github.com/example/taxi-dispatch/internal/http"
	"github.com/example/taxi-dispatch/internal/ingest"
	"github.com/example/taxi-dispatch/internal/logging"
	"github.com/example/taxi-dispatch/internal/matcher"
	"github.com/example/taxi-dispatch/internal/models"
	"github.com/example/taxi-dispatch/internal/motion"
	"github.com/example/taxi-dispatch/internal/payments"
	"github.com/example/taxi-dispatch/internal/pricing"
	"github.com/example/taxi-dispatch/internal/storage"
)

func main() {
	cfg, err := config.LoadServerConfig()
	logger := logging.NewLogger("dispatch-api", cfg.LogLevel)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.ServerConfig, logger *slog.Logger) error {
	entries, err := fleet.Load(cfg.FleetFile)
	if err != nil {
		return err
	}

	var (
		rides     storage.RideStore
		positions storage.HistoryStore
		ready     func(context.Context) error
	)
	if cfg.PGDSN != "" {
		pg, err := storage.NewPostgresStore(ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		defer pg.Close()
		if cfg.RunMigrations {
			script, err := os.ReadFile(filepath.Join("migrations", "001_create_tables.sql"))
			if err != nil {
				return err
			}
			if err := pg.Migrate(ctx, string(script)); err != nil {
				return err
			}
			logger.Info("migration applied", "file", "001_create_tables.sql")
		}
		rides, positions = pg, pg
		ready = func(ctx context.Context) error { return pg.DB().PingContext(ctx) }
	} else {
		mem := storage.NewMemoryStore()
		rides, positions = mem, mem
		logger.Warn("PG_DSN not set, ride state is kept in memory only")
	}

	var backend geocode.Geocoder
	if cfg.GoogleMapsAPIKey != "" {
		gm, err := geocode.NewGoogleMaps(cfg.GoogleMapsAPIKey, cfg.GeocoderSuffix, "in")
		if err != nil {
			return err
		}
		backend = gm
	} else {
		backend = geocode.NewNominatim(cfg.GeocoderURL, cfg.GeocoderSuffix, cfg.GeocodeTimeout)
	}
	geocoder := geocode.NewCached(backend, cfg.GeocodeCacheTTL)

	var publisher history.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
	}
	positionLog := history.New(positions, publisher, logger)

	wsReg := dispatch.NewWSRegistry()
	notifier := dispatch.Multi{wsReg, &dispatch.LogNotifier{Logger: logger}}
	if cfg.AdminWebhookURL != "" {
		webhook := dispatch.NewAsync(dispatch.NewWebhook(cfg.AdminWebhookURL, cfg.AdminWebhookKey), 64, logger)
		go webhook.Run(ctx)
		notifier = append(notifier, adminOnly{webhook})
	}

	var pay matcher.Payments
	if cfg.StripeAPIKey != "" {
		pay = payments.NewStripeClient(cfg.StripeAPIKey)
	}

	fares := pricing.NewEstimator(pricing.Rates{BaseFare: cfg.BaseFare, PerKm: cfg.PerKm}, geocoder, cfg.GeocodeTimeout)
	coord := matcher.New(matcher.Config{
		ArrivalRadiusKm: cfg.ArrivalRadiusKm,
		SpeedKmh:        cfg.AvgSpeedKmh,
		DefaultTarget:   cfg.DefaultTarget,
		GeocodeTimeout:  cfg.GeocodeTimeout,
		MotionOnPoll:    cfg.MotionOnPoll,
		Currency:        cfg.Currency,
	}, matcher.Deps{
		Fleet:    entries,
		Motion:   motion.NewModel(cfg.MotionStep, cfg.MotionSnap),
		Geocoder: geocoder,
		Fares:    fares,
		Rides:    rides,
		History:  positionLog,
		Notifier: notifier,
		Payments: pay,
		Logger:   logger,
	})
	if err := coord.Restore(ctx); err != nil {
		return err
	}

	if !cfg.MotionOnPoll {
		sched := &motion.Scheduler{Every: cfg.MotionTick, Target: coord, Logger: logger}
		go sched.Run(ctx)
	}

	srv := httpapi.NewServer(httpapi.Deps{
		Coordinator: coord,
		Fares:       fares,
		History:     positionLog,
		WSReg:       wsReg,
		Ready:       ready,
		Logger:      logger,
	})
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("taxi dispatch listening", "addr", cfg.HTTPAddr, "vehicles", len(entries), "poll_driven_motion", cfg.MotionOnPoll)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// adminOnly passes admin-channel events through and drops the rest.
type adminOnly struct{ next dispatch.Notifier }

func (a adminOnly) Notify(target string, ev models.RideEvent) error {
	if target != dispatch.AdminTarget {
		return nil
	}
	return a.next.Notify(target, ev)
}
