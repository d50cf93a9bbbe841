package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/taxi-dispatch/internal/geo"
	"github.com/example/taxi-dispatch/internal/models"
)

// ServerConfig captures all tunable parameters for the dispatch API process.
// Values are loaded from environment variables over defaults so the binary
// runs locally with no external services at all.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	PGDSN         string
	RunMigrations bool

	FleetFile string

	MotionStep   float64
	MotionSnap   float64
	MotionTick   time.Duration
	MotionOnPoll bool

	ArrivalRadiusKm float64
	AvgSpeedKmh     float64
	DefaultTarget   models.Coord

	BaseFare float64
	PerKm    float64

	GeocoderURL      string
	GeocoderSuffix   string
	GeocodeTimeout   time.Duration
	GeocodeCacheTTL  time.Duration
	GoogleMapsAPIKey string

	StripeAPIKey string
	Currency     string

	AdminWebhookURL string
	AdminWebhookKey string

	LogLevel string
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:        ":8080",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		KafkaTopic:      "vehicle-positions",
		MotionStep:      0.0005,
		MotionSnap:      0.0001,
		MotionTick:      time.Second,
		ArrivalRadiusKm: 0.05,
		AvgSpeedKmh:     geo.DefaultSpeedKmh,
		DefaultTarget:   models.Coord{Lat: 12.9352, Lng: 77.6146},
		BaseFare:        50,
		PerKm:           15,
		GeocoderSuffix:  ", Bangalore",
		GeocodeTimeout:  5 * time.Second,
		GeocodeCacheTTL: 10 * time.Minute,
		Currency:        "inr",
		LogLevel:        "info",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	cfg.PGDSN = os.Getenv("PG_DSN")
	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")

	setStringFromEnv(&cfg.FleetFile, "FLEET_FILE")

	setFloatFromEnv(&cfg.MotionStep, "MOTION_STEP_DEGREES", &errs)
	setFloatFromEnv(&cfg.MotionSnap, "MOTION_SNAP_DEGREES", &errs)
	setDurationFromEnv(&cfg.MotionTick, "MOTION_TICK", &errs)
	setBoolFromEnv(&cfg.MotionOnPoll, "MOTION_ON_POLL", &errs)

	setFloatFromEnv(&cfg.ArrivalRadiusKm, "ARRIVAL_RADIUS_KM", &errs)
	setFloatFromEnv(&cfg.AvgSpeedKmh, "AVG_SPEED_KMH", &errs)
	if v := strings.TrimSpace(os.Getenv("DEFAULT_TARGET")); v != "" {
		c, err := geo.ParseCoord(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid DEFAULT_TARGET: %w", err))
		} else {
			cfg.DefaultTarget = c
		}
	}

	setFloatFromEnv(&cfg.BaseFare, "PRICING_BASE_FARE", &errs)
	setFloatFromEnv(&cfg.PerKm, "PRICING_PER_KM", &errs)

	setStringFromEnv(&cfg.GeocoderURL, "GEOCODER_URL")
	if v, ok := os.LookupEnv("GEOCODER_SUFFIX"); ok {
		cfg.GeocoderSuffix = v
	}
	setDurationFromEnv(&cfg.GeocodeTimeout, "GEOCODE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.GeocodeCacheTTL, "GEOCODE_CACHE_TTL", &errs)
	cfg.GoogleMapsAPIKey = strings.TrimSpace(os.Getenv("GOOGLE_MAPS_API_KEY"))

	cfg.StripeAPIKey = strings.TrimSpace(os.Getenv("STRIPE_API_KEY"))
	setStringFromEnv(&cfg.Currency, "PAYMENTS_CURRENCY")

	cfg.AdminWebhookURL = strings.TrimSpace(os.Getenv("ADMIN_WEBHOOK_URL"))
	cfg.AdminWebhookKey = os.Getenv("ADMIN_WEBHOOK_KEY")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if cfg.MotionStep <= 0 {
		errs = append(errs, fmt.Errorf("MOTION_STEP_DEGREES must be > 0"))
	}
	if cfg.MotionSnap < 0 {
		errs = append(errs, fmt.Errorf("MOTION_SNAP_DEGREES must be >= 0"))
	}
	if cfg.MotionTick <= 0 && !cfg.MotionOnPoll {
		errs = append(errs, fmt.Errorf("MOTION_TICK must be > 0 unless MOTION_ON_POLL is set"))
	}
	if cfg.AvgSpeedKmh <= 0 {
		errs = append(errs, fmt.Errorf("AVG_SPEED_KMH must be > 0"))
	}
	if cfg.ArrivalRadiusKm <= 0 {
		errs = append(errs, fmt.Errorf("ARRIVAL_RADIUS_KM must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

// ConsumerConfig drives the position stream consumer.
type ConsumerConfig struct {
	MetricsAddr   string
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaGroup    string
	RedisAddr     string
	RedisPassword string
	RedisGeoKey   string
	LogLevel      string
}

func LoadConsumerConfig() (ConsumerConfig, error) {
	cfg := ConsumerConfig{
		MetricsAddr:  ":2112",
		KafkaBrokers: []string{"localhost:9092"},
		KafkaTopic:   "vehicle-positions",
		KafkaGroup:   "taxi-dispatch-consumer",
		RedisAddr:    "localhost:6379",
		RedisGeoKey:  "vehicles_geo",
		LogLevel:     "info",
	}
	setStringFromEnv(&cfg.MetricsAddr, "METRICS_ADDR")
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")
	setStringFromEnv(&cfg.KafkaGroup, "KAFKA_GROUP")
	setStringFromEnv(&cfg.RedisAddr, "REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setStringFromEnv(&cfg.RedisGeoKey, "REDIS_GEO_KEY")
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if len(cfg.KafkaBrokers) == 0 {
		return cfg, errors.New("KAFKA_BROKERS must name at least one broker")
	}
	return cfg, nil
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setFloatFromEnv(target *float64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = f
	}
}

func setBoolFromEnv(target *bool, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = b
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
