// Package metrics exposes Prometheus collectors for pipeline runs and render
// dispatch. A nil *Collector is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "discovery"

// Collector groups the pipeline's Prometheus metrics
type Collector struct {
	runs            *prometheus.CounterVec
	renderAttempts  *prometheus.CounterVec
	renderRequests  *prometheus.CounterVec
	renderDuration  *prometheus.HistogramVec
	taxonomyUnknown prometheus.Counter
}

// NewCollector creates the collectors and registers them with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome and failed phase.",
		}, []string{"outcome", "phase"}),
		renderAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_attempts_total",
			Help:      "Individual render submissions by document type and result.",
		}, []string{"document_type", "result"}),
		renderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_requests_total",
			Help:      "Generation requests by document type and final outcome.",
		}, []string{"document_type", "outcome"}),
		renderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_attempt_seconds",
			Help:      "Latency of a single render submission.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"document_type"}),
		taxonomyUnknown: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "taxonomy_warnings_total",
			Help:      "Issue codes not found in the taxonomy registry.",
		}),
	}
	reg.MustRegister(c.runs, c.renderAttempts, c.renderRequests, c.renderDuration, c.taxonomyUnknown)
	return c
}

// ObserveRun counts a finished run; phase is empty on success
func (c *Collector) ObserveRun(success bool, phase string) {
	if c == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	c.runs.WithLabelValues(outcome, phase).Inc()
}

// ObserveAttempt records one render submission
func (c *Collector) ObserveAttempt(docType, result string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.renderAttempts.WithLabelValues(docType, result).Inc()
	c.renderDuration.WithLabelValues(docType).Observe(elapsed.Seconds())
}

// ObserveRequest records the final outcome of a generation request
func (c *Collector) ObserveRequest(docType string, succeeded bool) {
	if c == nil {
		return
	}
	outcome := "succeeded"
	if !succeeded {
		outcome = "failed"
	}
	c.renderRequests.WithLabelValues(docType, outcome).Inc()
}

// ObserveTaxonomyWarnings counts unknown issue codes
func (c *Collector) ObserveTaxonomyWarnings(n int) {
	if c == nil || n == 0 {
		return
	}
	c.taxonomyUnknown.Add(float64(n))
}
