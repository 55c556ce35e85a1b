// Package telemetry exposes live scheduling progress as Prometheus gauges.
// It mirrors the shape of pkg/http/metrics.Exporter from the teacher
// codebase (Set* methods guarding a snapshot, served over HTTP) but is
// backed by github.com/prometheus/client_golang instead of hand-rolled
// OpenMetrics text.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter tracks per-tier worker progress across one or more migrations.
type Exporter struct {
	registry         *prometheus.Registry
	activeWorkers    *prometheus.GaugeVec
	completedWorkers *prometheus.GaugeVec
	activeMigrations prometheus.Gauge
}

// NewExporter constructs an Exporter with its own private registry, so a
// process embedding migsim's driver doesn't collide with metrics it
// registers itself.
func NewExporter() *Exporter {
	registry := prometheus.NewRegistry()

	activeWorkers := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "migsim_active_workers",
		Help: "Number of workers currently running, by tier.",
	}, []string{"tier"})

	completedWorkers := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "migsim_completed_workers",
		Help: "Number of workers that have completed, by tier.",
	}, []string{"tier"})

	activeMigrations := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "migsim_active_migrations",
		Help: "Number of migrations currently being scheduled by the driver.",
	})

	registry.MustRegister(activeWorkers, completedWorkers, activeMigrations)

	return &Exporter{
		registry:         registry,
		activeWorkers:    activeWorkers,
		completedWorkers: completedWorkers,
		activeMigrations: activeMigrations,
	}
}

// SetActiveWorkers records the number of currently running workers for tier.
func (e *Exporter) SetActiveWorkers(tier string, count int) {
	e.activeWorkers.WithLabelValues(tier).Set(clampNonNegative(count))
}

// SetCompletedWorkers records the number of completed workers for tier.
func (e *Exporter) SetCompletedWorkers(tier string, count int) {
	e.completedWorkers.WithLabelValues(tier).Set(clampNonNegative(count))
}

// SetActiveMigrations records how many migrations the driver currently has
// in flight.
func (e *Exporter) SetActiveMigrations(count int) {
	e.activeMigrations.Set(clampNonNegative(count))
}

// Handler serves the registry's metrics in Prometheus text exposition
// format, for wiring into an HTTP mux under --progress-addr.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

func clampNonNegative(n int) float64 {
	if n < 0 {
		return 0
	}

	return float64(n)
}
