package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersAreLabelledByOutcome(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementSubmission("success")
	m.IncrementSubmission("success")
	m.IncrementSubmission("upload_failed")
	m.IncrementRegistration("registry_rejected")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Submissions.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("upload_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Registrations.WithLabelValues("registry_rejected")))
}

func TestHistogramsCollect(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveStep("seal", 20*time.Millisecond)
	m.ObserveProof("groth16", time.Second)
	m.ObserveHTTP("/v1/reports", 200, time.Second)

	assert.Equal(t, 1, testutil.CollectAndCount(m.StepLatency))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ProofLatency))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPLatency))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementSubmission("success")
		m.ObserveStep("prove", time.Second)
		m.IncrementRegistration("success")
		m.ObserveProof("remote", time.Second)
	})
}
