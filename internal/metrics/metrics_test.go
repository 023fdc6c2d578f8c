package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/dcf77-clock/internal/dcf77"
)

func TestNewExportsZeroes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.pulses.WithLabelValues("zero")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.phase.WithLabelValues("UNSYNCED")))
	assert.Equal(t, -1.0, testutil.ToFloat64(m.hours))
	assert.Equal(t, -1.0, testutil.ToFloat64(m.minutes))

	// Three classes of pulse, two fields of commits.
	assert.Equal(t, 3, testutil.CollectAndCount(m.pulses))
	assert.Equal(t, 2, testutil.CollectAndCount(m.commits))
}

func TestObserveMinute(t *testing.T) {
	m := New(prometheus.NewRegistry())
	d := dcf77.NewDecoder()

	tm := dcf77.Time{Hours: 13, Minutes: 37, Day: 14, Weekday: 3, Month: 10, Year: 26}
	bits := dcf77.Encode(tm)
	ones := 0
	for i := 0; i < dcf77.Seconds-1; i++ {
		ones += bits.Bit(i)
	}
	for _, p := range dcf77.Transmit(bits) {
		step := d.Process(p)
		m.Observe(d.Frame(), step, 1791990000)
	}

	assert.Equal(t, float64(ones), testutil.ToFloat64(m.pulses.WithLabelValues("one")))
	assert.Equal(t, float64(dcf77.Seconds-1-ones), testutil.ToFloat64(m.pulses.WithLabelValues("zero")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.boundaries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commits.WithLabelValues("minute")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commits.WithLabelValues("hour")))
	assert.Equal(t, 13.0, testutil.ToFloat64(m.hours))
	assert.Equal(t, 37.0, testutil.ToFloat64(m.minutes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.phase.WithLabelValues("VALID")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.phase.WithLabelValues("UNSYNCED")))
	assert.Equal(t, 1791990000.0, testutil.ToFloat64(m.lastMinuteS))
	assert.Equal(t, 0, testutil.CollectAndCount(m.failures))
}

func TestObserveFailureReason(t *testing.T) {
	m := New(prometheus.NewRegistry())
	d := dcf77.NewDecoder()

	// An all-zero minute has no start marker.
	step := dcf77.Step{}
	for i := 0; i < dcf77.Seconds-2; i++ {
		step = d.Process(dcf77.Pulse{PulseMs: 100, PauseMs: 900})
		m.Observe(d.Frame(), step, 0)
	}
	step = d.Process(dcf77.Pulse{PulseMs: 100, PauseMs: 1900})
	require.True(t, step.Boundary)
	m.Observe(d.Frame(), step, 0)

	expected := `
# HELP dcf77_validation_failures_total Minute boundaries that failed validation, by first failing check
# TYPE dcf77_validation_failures_total counter
dcf77_validation_failures_total{reason="start_marker"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(m.failures, strings.NewReader(expected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.phase.WithLabelValues("SYNCED")))
}

func TestConnectionGauges(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetMQTTConnected(true)
	m.SetFeedConnected(false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mqttUp))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.feedUp))

	m.SetMQTTConnected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.mqttUp))
}

func TestRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) }, "duplicate registration should panic")
}
