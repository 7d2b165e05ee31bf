// Package metrics counts batch activity on a private prometheus registry. The
// CLI runs to completion, so the registry is written as a node_exporter
// textfile instead of being scraped.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "krm"

// Recorder holds the batch collectors.
type Recorder struct {
	registry  *prometheus.Registry
	documents *prometheus.CounterVec
	findings  *prometheus.CounterVec
	matches   *prometheus.CounterVec
	secondary *prometheus.CounterVec
	duration  prometheus.Histogram
}

// New registers the collectors on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Analyzed KRM reports by outcome.",
		}, []string{"outcome"}),
		findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Anomaly findings by severity.",
		}, []string{"severity"}),
		matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Accepted cross-source matches by confidence.",
		}, []string{"confidence"}),
		secondary: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "secondary_reports_total",
			Help:      "Findeks report processing by status.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "document_duration_seconds",
			Help:      "Time spent analyzing one report.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
	r.registry.MustRegister(r.documents, r.findings, r.matches, r.secondary, r.duration)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveDocument counts one analyzed report.
func (r *Recorder) ObserveDocument(success bool, took time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	r.documents.WithLabelValues(outcome).Inc()
	r.duration.Observe(took.Seconds())
}

// AddFindings counts findings per severity label.
func (r *Recorder) AddFindings(severity string, n int) {
	if n > 0 {
		r.findings.WithLabelValues(severity).Add(float64(n))
	}
}

// AddMatch counts one accepted match.
func (r *Recorder) AddMatch(confidence string) {
	r.matches.WithLabelValues(confidence).Inc()
}

// SecondaryStatus counts how a Findeks report was handled.
func (r *Recorder) SecondaryStatus(status string) {
	r.secondary.WithLabelValues(status).Inc()
}

// WriteTextfile writes the registry in text exposition format. The file is
// replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
