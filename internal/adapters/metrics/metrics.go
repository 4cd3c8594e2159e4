// Package metrics records run metrics in a Prometheus registry and pushes
// them to a Pushgateway at the end of a run.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/example/orphanscan/internal/ports/secondary"
)

const namespace = "orphanscan"

// Recorder implements secondary.MetricsRecorder.
type Recorder struct {
	registry *prometheus.Registry
	pusher   *push.Pusher

	categoryRuns *prometheus.CounterVec
	openTickets  *prometheus.GaugeVec
	remoteIssues *prometheus.GaugeVec
	orphans      *prometheus.GaugeVec
	marks        *prometheus.CounterVec
	runs         *prometheus.CounterVec
	runDuration  prometheus.Gauge
	lastSuccess  prometheus.Gauge
}

// New creates a recorder. An empty pushgatewayURL makes Flush a no-op.
func New(pushgatewayURL, job string) *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		categoryRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "category_runs_total",
			Help:      "Category reconciliations by outcome.",
		}, []string{"category", "outcome"}),
		openTickets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_tickets",
			Help:      "Open Tracker A tickets seen in the last run.",
		}, []string{"category"}),
		remoteIssues: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "remote_open_issues",
			Help:      "Open Tracker B issues seen in the last run.",
		}, []string{"category"}),
		orphans: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orphans",
			Help:      "Orphans found in the last run.",
		}, []string{"category"}),
		marks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "marks_total",
			Help:      "Orphan marking attempts by result.",
		}, []string{"category", "result"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed runs by status.",
		}, []string{"status"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}

	reg.MustRegister(r.categoryRuns, r.openTickets, r.remoteIssues, r.orphans, r.marks, r.runs, r.runDuration, r.lastSuccess)

	if pushgatewayURL != "" {
		r.pusher = push.New(pushgatewayURL, job).Gatherer(reg)
	}
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveCategory records the counters of a finished category.
func (r *Recorder) ObserveCategory(category, outcome string, open, remote, orphans int) {
	r.categoryRuns.WithLabelValues(category, outcome).Inc()
	r.openTickets.WithLabelValues(category).Set(float64(open))
	r.remoteIssues.WithLabelValues(category).Set(float64(remote))
	r.orphans.WithLabelValues(category).Set(float64(orphans))
}

// ObserveMark records one marking attempt.
func (r *Recorder) ObserveMark(category, result string) {
	r.marks.WithLabelValues(category, result).Inc()
}

// ObserveRun records the end of a run.
func (r *Recorder) ObserveRun(status string, durationSeconds float64) {
	r.runs.WithLabelValues(status).Inc()
	r.runDuration.Set(durationSeconds)
	if status == "success" {
		r.lastSuccess.SetToCurrentTime()
	}
}

// Flush pushes the registry to the Pushgateway, replacing the job's group.
func (r *Recorder) Flush(ctx context.Context) error {
	if r.pusher == nil {
		return nil
	}
	if err := r.pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}

var _ secondary.MetricsRecorder = (*Recorder)(nil)
