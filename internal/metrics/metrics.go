// Package metrics exposes decoder activity as Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sweeney/dcf77-clock/internal/dcf77"
)

const namespace = "dcf77"

// Metrics holds the collectors updated by the run loop.
type Metrics struct {
	pulses      *prometheus.CounterVec // by class
	boundaries  prometheus.Counter
	commits     *prometheus.CounterVec // by field
	failures    *prometheus.CounterVec // by reason
	rotation    prometheus.Gauge       // rotation applied at the last boundary
	phase       *prometheus.GaugeVec   // 1 for the current phase, 0 otherwise
	hours       prometheus.Gauge       // -1 while unknown
	minutes     prometheus.Gauge
	mqttUp      prometheus.Gauge
	feedUp      prometheus.Gauge
	lastMinuteS prometheus.Gauge // unix time of the last boundary
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		pulses: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pulses_total",
				Help:      "Pulses received, by classification",
			},
			[]string{"class"},
		),
		boundaries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "minute_boundaries_total",
			Help:      "Minute boundaries detected",
		}),
		commits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commits_total",
				Help:      "Fields committed after passing validation, by field",
			},
			[]string{"field"},
		),
		failures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_failures_total",
				Help:      "Minute boundaries that failed validation, by first failing check",
			},
			[]string{"reason"},
		),
		rotation: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_rotation",
			Help:      "Buffer rotation applied at the most recent boundary",
		}),
		phase: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "phase",
				Help:      "Decoder phase (1 for the current phase)",
			},
			[]string{"phase"},
		),
		hours: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hours",
			Help:      "Last committed hours, -1 if unknown",
		}),
		minutes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "minutes",
			Help:      "Last committed minutes, -1 if unknown",
		}),
		mqttUp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mqtt_connected",
			Help:      "MQTT broker connection status (1=connected)",
		}),
		feedUp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_connected",
			Help:      "Pulse feed connection status (1=connected)",
		}),
		lastMinuteS: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_boundary_timestamp_seconds",
			Help:      "Unix time of the most recent minute boundary",
		}),
	}

	// Pre-create label values so they export as 0 before the first event.
	for _, c := range []dcf77.Class{dcf77.ClassZero, dcf77.ClassOne, dcf77.ClassIgnored} {
		m.pulses.WithLabelValues(classLabel(c))
	}
	for _, field := range []string{"minute", "hour"} {
		m.commits.WithLabelValues(field)
	}
	m.SetFrame(dcf77.NewDecoder().Frame())
	return m
}

func classLabel(c dcf77.Class) string {
	switch c {
	case dcf77.ClassZero:
		return "zero"
	case dcf77.ClassOne:
		return "one"
	default:
		return "ignored"
	}
}

// Observe records one decoder step and the state after it.
func (m *Metrics) Observe(frame dcf77.Frame, step dcf77.Step, unixSeconds float64) {
	m.pulses.WithLabelValues(classLabel(step.Class)).Inc()
	if step.Boundary {
		m.boundaries.Inc()
		m.rotation.Set(float64(step.Rotation))
		m.lastMinuteS.Set(unixSeconds)
		if step.Check.MinuteCommitted {
			m.commits.WithLabelValues("minute").Inc()
		}
		if step.Check.HourCommitted {
			m.commits.WithLabelValues("hour").Inc()
		}
		if reason := step.Check.Reason(); reason != "" {
			m.failures.WithLabelValues(reason).Inc()
		}
	}
	m.SetFrame(frame)
}

// SetFrame updates the state gauges.
func (m *Metrics) SetFrame(frame dcf77.Frame) {
	for _, p := range []dcf77.Phase{dcf77.PhaseUnsynced, dcf77.PhaseSynced, dcf77.PhaseValid} {
		v := 0.0
		if p == frame.Phase {
			v = 1
		}
		m.phase.WithLabelValues(string(p)).Set(v)
	}
	m.hours.Set(float64(frame.RealHours.Int()))
	m.minutes.Set(float64(frame.RealMinutes.Int()))
}

// SetMQTTConnected records the broker connection state.
func (m *Metrics) SetMQTTConnected(up bool) {
	m.mqttUp.Set(boolGauge(up))
}

// SetFeedConnected records the pulse feed connection state.
func (m *Metrics) SetFeedConnected(up bool) {
	m.feedUp.Set(boolGauge(up))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
