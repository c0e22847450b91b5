package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Check-in attempt outcomes.
const (
	OutcomeAccepted    = "accepted"
	OutcomeNotFound    = "not_found"
	OutcomeInvalid     = "invalid"
	OutcomeOutOfRange  = "out_of_range"
	OutcomePhotoFailed = "photo_failed"
	OutcomeError       = "error"
)

// Visits records check-in admission and store discovery metrics.
// A nil *Visits is valid and records nothing.
type Visits struct {
	attempts *prometheus.CounterVec
	distance prometheus.Histogram
	nearby   prometheus.Histogram
}

// NewVisits registers the visit metrics on the provided registerer.
func NewVisits(reg prometheus.Registerer) *Visits {
	if reg == nil {
		return &Visits{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkin_attempts_total",
		Help: "Check-in attempts by outcome.",
	}, []string{"outcome"})
	distance := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkin_distance_km",
		Help:    "Distance between the claimed position and the store for evaluated check-ins.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 5, 25, 100, 1000},
	})
	nearby := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stores_nearby_results",
		Help:    "Number of stores returned by nearby searches.",
		Buckets: []float64{0, 1, 2, 5, 10, 25},
	})
	reg.MustRegister(attempts, distance, nearby)
	return &Visits{
		attempts: attempts,
		distance: distance,
		nearby:   nearby,
	}
}

func (v *Visits) RecordAttempt(outcome string) {
	if v == nil || v.attempts == nil {
		return
	}
	v.attempts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (v *Visits) ObserveDistance(km float64) {
	if v == nil || v.distance == nil {
		return
	}
	v.distance.Observe(km)
}

func (v *Visits) ObserveNearbyResults(n int) {
	if v == nil || v.nearby == nil {
		return
	}
	v.nearby.Observe(float64(n))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
