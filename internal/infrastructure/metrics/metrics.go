// Package metrics records backup activity in a private Prometheus registry and can
// flush it to a node_exporter textfile, since the service exposes no HTTP endpoint.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vaultkeep"

type Metrics struct {
	registry *prometheus.Registry

	backupsTotal     *prometheus.CounterVec
	backupDuration   *prometheus.HistogramVec
	restoresTotal    *prometheus.CounterVec
	retentionDeleted prometheus.Counter
	drillSuccess     prometheus.Gauge
	drillTimestamp   prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		backupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backups_total",
			Help:      "Backups attempted, by artifact type and result.",
		}, []string{"type", "result"}),
		backupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backup_duration_seconds",
			Help:      "Time spent creating a backup artifact.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"type"}),
		restoresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restores_total",
			Help:      "Restores attempted, by result.",
		}, []string{"result"}),
		retentionDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_deleted_total",
			Help:      "Artifacts removed by retention cleanup.",
		}),
		drillSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dr_drill_success",
			Help:      "1 if the last disaster recovery drill passed.",
		}),
		drillTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dr_drill_last_run_timestamp_seconds",
			Help:      "Unix time of the last disaster recovery drill.",
		}),
	}

	m.registry.MustRegister(
		m.backupsTotal,
		m.backupDuration,
		m.restoresTotal,
		m.retentionDeleted,
		m.drillSuccess,
		m.drillTimestamp,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) BackupFinished(artifactType string, d time.Duration, err error) {
	m.backupsTotal.WithLabelValues(artifactType, result(err)).Inc()
	if err == nil {
		m.backupDuration.WithLabelValues(artifactType).Observe(d.Seconds())
	}
}

func (m *Metrics) RestoreFinished(outcome string) {
	m.restoresTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RetentionDeleted(n int) {
	m.retentionDeleted.Add(float64(n))
}

func (m *Metrics) DrillFinished(ok bool, at time.Time) {
	v := 0.0
	if ok {
		v = 1
	}
	m.drillSuccess.Set(v)
	m.drillTimestamp.Set(float64(at.Unix()))
}

// WriteTextfile atomically writes the registry in text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
