// Package metrics provides Prometheus metrics for check-ins, enrollment and the kiosk pipeline.
package metrics

import (
	"time"

	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/prometheus/client_golang/prometheus"
)

// Frame drop reasons.
const (
	DropBusy = "busy"
	DropHold = "hold"
)

// Metrics contains the Prometheus collectors of the attendance service.
// Its Record and Set methods are no-ops on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	checkInsTotal      *prometheus.CounterVec
	checkInDuration    prometheus.Histogram
	matchDistance      prometheus.Histogram
	enrollmentsTotal   *prometheus.CounterVec
	framesDroppedTotal *prometheus.CounterVec
	errorsTotal        *prometheus.CounterVec
	enrolledIdentities prometheus.Gauge
}

// New creates and registers the metrics on registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Registry returns the registry the metrics were registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) initMetrics() {
	m.checkInsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_checkins_total",
			Help: "Total number of check-in attempts by outcome",
		},
		[]string{"outcome"},
	)

	// 1ms to ~4s covers embedding lookups on CPU-only hosts
	m.checkInDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attendance_checkin_duration_seconds",
			Help:    "Time taken by a check-in attempt including face embedding",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 13),
		},
	)

	m.matchDistance = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attendance_match_distance",
			Help:    "Distance to the nearest enrolled identity",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 15),
		},
	)

	m.enrollmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_enrollments_total",
			Help: "Total number of enrollment attempts",
		},
		[]string{"status"}, // success, error
	)

	m.framesDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_frames_dropped_total",
			Help: "Camera frames dropped by the kiosk pipeline",
		},
		[]string{"reason"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_errors_total",
			Help: "Total number of failed operations",
		},
		[]string{"operation"},
	)

	m.enrolledIdentities = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "attendance_enrolled_identities",
			Help: "Number of identities in the last gallery snapshot",
		},
	)
}

// Describe implements the Collector interface
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.checkInsTotal.Describe(ch)
	m.checkInDuration.Describe(ch)
	m.matchDistance.Describe(ch)
	m.enrollmentsTotal.Describe(ch)
	m.framesDroppedTotal.Describe(ch)
	m.errorsTotal.Describe(ch)
	m.enrolledIdentities.Describe(ch)
}

// Collect implements the Collector interface
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.checkInsTotal.Collect(ch)
	m.checkInDuration.Collect(ch)
	m.matchDistance.Collect(ch)
	m.enrollmentsTotal.Collect(ch)
	m.framesDroppedTotal.Collect(ch)
	m.errorsTotal.Collect(ch)
	m.enrolledIdentities.Collect(ch)
}

// RecordCheckIn records the outcome and duration of one check-in attempt.
func (m *Metrics) RecordCheckIn(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.checkInsTotal.WithLabelValues(outcome).Inc()
	m.checkInDuration.Observe(duration.Seconds())
}

// RecordMatchDistance records the nearest distance of a scan.
// Sentinel distances from unusable vectors are skipped.
func (m *Metrics) RecordMatchDistance(distance float64) {
	if m == nil || distance >= facematch.MaxDistance {
		return
	}
	m.matchDistance.Observe(distance)
}

// RecordEnrollment records an enrollment attempt.
func (m *Metrics) RecordEnrollment(success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.enrollmentsTotal.WithLabelValues(status).Inc()
}

// RecordFrameDropped records a frame dropped by the kiosk pipeline.
func (m *Metrics) RecordFrameDropped(reason string) {
	if m == nil {
		return
	}
	m.framesDroppedTotal.WithLabelValues(reason).Inc()
}

// RecordError records a failed operation.
func (m *Metrics) RecordError(operation string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(operation).Inc()
}

// SetEnrolledIdentities sets the gallery size gauge.
func (m *Metrics) SetEnrolledIdentities(n int) {
	if m == nil {
		return
	}
	m.enrolledIdentities.Set(float64(n))
}
