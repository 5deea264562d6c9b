package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the reporter.
type Metrics struct {
	// Submissions by outcome: "success" or a failure code
	Submissions *prometheus.CounterVec

	// Per-step pipeline latency
	StepLatency *prometheus.HistogramVec

	// Registrations by outcome
	Registrations *prometheus.CounterVec

	// Proof generation latency by backend
	ProofLatency *prometheus.HistogramVec

	// Local API latency by route pattern and status
	HTTPLatency *prometheus.HistogramVec
}

// New creates and registers all metrics with reg. A nil reg registers with the
// process default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clearcrew_submissions_total",
			Help: "Total report submissions by outcome",
		}, []string{"outcome"}),

		StepLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clearcrew_pipeline_step_duration_seconds",
			Help:    "Duration of each submission pipeline step",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"step"}),

		Registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clearcrew_registrations_total",
			Help: "Total identity registrations by outcome",
		}, []string{"outcome"}),

		ProofLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clearcrew_proof_duration_seconds",
			Help:    "Duration of proof generation by backend",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"backend"}),

		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clearcrew_http_request_duration_seconds",
			Help:    "Duration of local API requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// IncrementSubmission records the outcome of one Submit call.
func (m *Metrics) IncrementSubmission(outcome string) {
	if m != nil {
		m.Submissions.WithLabelValues(outcome).Inc()
	}
}

// ObserveStep records how long a pipeline step took.
func (m *Metrics) ObserveStep(step string, d time.Duration) {
	if m != nil {
		m.StepLatency.WithLabelValues(step).Observe(d.Seconds())
	}
}

// IncrementRegistration records the outcome of one Register call.
func (m *Metrics) IncrementRegistration(outcome string) {
	if m != nil {
		m.Registrations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveProof(backend string, d time.Duration) {
	if m != nil {
		m.ProofLatency.WithLabelValues(backend).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveHTTP(route string, status int, d time.Duration) {
	if m != nil {
		m.HTTPLatency.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
	}
}
