package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runsTotal      *prometheus.CounterVec
	proposalsTotal *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	chainDuration  prometheus.Histogram
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		runsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regimescan_runs_total",
				Help: "Analysis runs by terminal status",
			},
			[]string{"status"},
		),
		proposalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regimescan_sampler_proposals_total",
				Help: "Metropolis proposals by parameter block and outcome",
			},
			[]string{"block", "outcome"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regimescan_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		chainDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "regimescan_chain_duration_seconds",
				Help:    "Wall time per MCMC chain",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
		),
	}
}

// RecordRun records a run reaching a terminal status.
func (r *Recorder) RecordRun(status string) {
	r.runsTotal.WithLabelValues(status).Inc()
}

// RecordProposals records proposal outcomes for one parameter block of one
// chain. Called once per chain, not per proposal.
func (r *Recorder) RecordProposals(block string, accepted, rejected uint64) {
	r.proposalsTotal.WithLabelValues(block, "accepted").Add(float64(accepted))
	r.proposalsTotal.WithLabelValues(block, "rejected").Add(float64(rejected))
}

// RecordChainDuration records the wall time of one completed chain.
func (r *Recorder) RecordChainDuration(seconds float64) {
	r.chainDuration.Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
