// Package metrics exports extraction progress as Prometheus metrics.
//
// Each run owns a registry; the CLI writes it in the text exposition format
// to the file named by --metrics-file when the run ends, for pickup by a
// node_exporter textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pathminer"

// Recorder implements engine.Recorder over a dedicated registry.
type Recorder struct {
	registry *prometheus.Registry

	attempts        *prometheus.CounterVec
	sequences       prometheus.Counter
	methods         prometheus.Counter
	loc             prometheus.Counter
	methodSequences prometheus.Histogram
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Path sampling attempts by outcome",
		}, []string{"outcome"}),
		sequences: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sequences_total",
			Help:      "Sequences emitted",
		}),
		methods: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "methods_total",
			Help:      "Entry methods walked",
		}),
		loc: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entry_statements_total",
			Help:      "Statements of walked entry method bodies",
		}),
		methodSequences: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "method_sequences",
			Help:      "Sequences emitted per entry method",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		}),
	}
}

// ObserveAttempt counts one attempt by outcome.
func (r *Recorder) ObserveAttempt(outcome string) {
	r.attempts.WithLabelValues(outcome).Inc()
}

// ObserveSequence counts one emitted sequence.
func (r *Recorder) ObserveSequence(string) {
	r.sequences.Inc()
}

// ObserveMethod records the totals of one walked entry method.
func (r *Recorder) ObserveMethod(_ string, sequences, loc int) {
	r.methods.Inc()
	r.loc.Add(float64(loc))
	r.methodSequences.Observe(float64(sequences))
}

// Registry returns the registry holding the run's metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteFile writes the metrics to path in the text exposition format.
func (r *Recorder) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
