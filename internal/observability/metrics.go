package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "bookings_total", Help: "Booking attempts by result"},
		[]string{"result"},
	)
	BookingLatency = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "ride_dispatch", Name: "booking_latency_seconds", Help: "Booking latency seconds, geocoding included"})
	ActiveRides    = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "ride_dispatch", Name: "active_rides", Help: "Vehicles currently bound to a rider"})
	MotionSteps    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "motion_steps_total", Help: "Vehicle motion steps applied"})

	ArrivalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "arrivals_total", Help: "Vehicles reaching pickup or drop"},
		[]string{"kind"},
	)
	GeocodeLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "geocode_lookups_total", Help: "Geocoder lookups by backend and result"},
		[]string{"backend", "result"},
	)
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "notifications_total", Help: "Ride notifications sent"},
		[]string{"result"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ride_dispatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
