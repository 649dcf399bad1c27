// Package metrics provides Prometheus metrics instrumentation for the
// autoscaler. It implements the reconcile loop's Recorder interface, so one
// Metrics instance serves every registered target.
//
// Metrics exposed:
//   - replicactl_autoscaler_ticks_total: Counter of reconcile cycles by target
//   - replicactl_autoscaler_tick_duration_seconds: Histogram of cycle durations by target
//   - replicactl_autoscaler_decisions_total: Counter of decisions by target and reason
//   - replicactl_autoscaler_metric_failures_total: Counter of failed metric samples by target
//   - replicactl_autoscaler_backend_failures_total: Counter of failed backend calls by target
//   - replicactl_autoscaler_current_replicas: Gauge of the last observed replica count
//   - replicactl_autoscaler_desired_replicas: Gauge of the last desired replica count
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/DRAJ6/replicactl/pkg/autoscaler"
	"github.com/DRAJ6/replicactl/pkg/scaling"
)

var _ autoscaler.Recorder = (*Metrics)(nil)

type Metrics struct {
	TicksTotal           *prometheus.CounterVec
	TickDuration         *prometheus.HistogramVec
	DecisionsTotal       *prometheus.CounterVec
	MetricFailuresTotal  *prometheus.CounterVec
	BackendFailuresTotal *prometheus.CounterVec
	CurrentReplicas      *prometheus.GaugeVec
	DesiredReplicas      *prometheus.GaugeVec
}

func New() *Metrics {
	return &Metrics{
		TicksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "replicactl_autoscaler_ticks_total",
			Help: "Total number of reconcile cycles by target",
		}, []string{"target"}),

		TickDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "replicactl_autoscaler_tick_duration_seconds",
			Help:    "Duration of reconcile cycles by target",
			Buckets: prometheus.DefBuckets,
		}, []string{"target"}),

		DecisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "replicactl_autoscaler_decisions_total",
			Help: "Total number of scaling decisions by target and reason",
		}, []string{"target", "reason"}),

		MetricFailuresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "replicactl_autoscaler_metric_failures_total",
			Help: "Total number of failed metric samples by target",
		}, []string{"target"}),

		BackendFailuresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "replicactl_autoscaler_backend_failures_total",
			Help: "Total number of failed backend reads and writes by target",
		}, []string{"target"}),

		CurrentReplicas: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "replicactl_autoscaler_current_replicas",
			Help: "Last observed replica count by target",
		}, []string{"target"}),

		DesiredReplicas: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "replicactl_autoscaler_desired_replicas",
			Help: "Last desired replica count by target",
		}, []string{"target"}),
	}
}

func (m *Metrics) ObserveTick(target string, duration time.Duration) {
	m.TicksTotal.WithLabelValues(target).Inc()
	m.TickDuration.WithLabelValues(target).Observe(duration.Seconds())
}

func (m *Metrics) RecordDecision(target string, reason scaling.Reason) {
	m.DecisionsTotal.WithLabelValues(target, string(reason)).Inc()
}

func (m *Metrics) RecordMetricFailure(target string) {
	m.MetricFailuresTotal.WithLabelValues(target).Inc()
}

func (m *Metrics) RecordBackendFailure(target string) {
	m.BackendFailuresTotal.WithLabelValues(target).Inc()
}

func (m *Metrics) SetReplicas(target string, current, desired int32) {
	m.CurrentReplicas.WithLabelValues(target).Set(float64(current))
	m.DesiredReplicas.WithLabelValues(target).Set(float64(desired))
}
