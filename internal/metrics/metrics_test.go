package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveObligation("postcondition", "proved", 3*time.Millisecond, false)
	m.ObserveObligation("postcondition", "proved", 0, true)
	m.ObserveObligation("overflow", "disproved", time.Millisecond, false)
	m.ObserveFunction("failed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Obligations().WithLabelValues("postcondition", "proved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Obligations().WithLabelValues("overflow", "disproved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits()))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Functions().WithLabelValues("failed")))

	n, err := testutil.GatherAndCount(reg, "contractvc_solve_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "cached verdicts are not timed")
}

func TestDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveObligation("assert", "unknown", time.Second, false)
		m.ObserveFunction("verified")
	})

	unregistered, err := New(nil)
	require.NoError(t, err)
	unregistered.ObserveFunction("verified")
	assert.Equal(t, 1.0, testutil.ToFloat64(unregistered.Functions().WithLabelValues("verified")))
}
