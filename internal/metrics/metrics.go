// Package metrics holds the prometheus collectors of the reproduction loop.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "reproschnell"

// Metrics groups every collector so tests can use a private registry.
type Metrics struct {
	modelCalls        *prometheus.CounterVec
	modelCallDuration *prometheus.HistogramVec
	retries           prometheus.Counter
	compactions       *prometheus.CounterVec
	loopDetections    prometheus.Counter
	unusableReplies   *prometheus.CounterVec
	attempts          *prometheus.CounterVec
	attemptDuration   prometheus.Histogram
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		modelCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "model_calls_total",
			Help:      "Model calls by model and outcome (success, failure)",
		}, []string{"model", "outcome"}),
		modelCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "model_call_duration_seconds",
			Help:      "Latency of single model calls",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"model"}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "retries_total",
			Help:      "Backoff sleeps taken after failed model calls",
		}),
		compactions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "compactions_total",
			Help:      "History compactions by result (ok, truncated, shortened, dropped, failed)",
		}, []string{"result"}),
		loopDetections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "attempt",
			Name:      "loop_detections_total",
			Help:      "Repeated command blocks detected",
		}),
		unusableReplies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "attempt",
			Name:      "unusable_replies_total",
			Help:      "Model replies without usable commands, by kind (none, malformed)",
		}, []string{"kind"}),
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "attempt",
			Name:      "finished_total",
			Help:      "Finished reproduction attempts by status",
		}, []string{"status"}),
		attemptDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "attempt",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of reproduction attempts",
			Buckets:   []float64{10, 30, 60, 120, 180, 240, 300, 600},
		}),
	}
}

// ObserveModelCall records one model call.
func (m *Metrics) ObserveModelCall(model string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.modelCalls.WithLabelValues(model, outcome).Inc()
	m.modelCallDuration.WithLabelValues(model).Observe(d.Seconds())
}

// IncRetry records a backoff sleep.
func (m *Metrics) IncRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

// IncCompaction records a compaction with the given result label.
func (m *Metrics) IncCompaction(result string) {
	if m == nil {
		return
	}
	m.compactions.WithLabelValues(result).Inc()
}

// IncLoopDetection records a stuck-loop verdict.
func (m *Metrics) IncLoopDetection() {
	if m == nil {
		return
	}
	m.loopDetections.Inc()
}

// IncUnusableReply records a reply that yielded no commands.
func (m *Metrics) IncUnusableReply(kind string) {
	if m == nil {
		return
	}
	m.unusableReplies.WithLabelValues(kind).Inc()
}

// ObserveAttempt records a finished attempt.
func (m *Metrics) ObserveAttempt(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(status).Inc()
	m.attemptDuration.Observe(d.Seconds())
}
