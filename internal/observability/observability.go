// Package observability wires the Prometheus registry and metric groups for
// the labeler backend.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/observability/metrics"
)

// Metrics holds all metric groups and the registry they are registered on.
type Metrics struct {
	registry *prometheus.Registry
	Labeler  *metrics.LabelerMetrics
}

// NewMetrics creates a registry with process/go collectors plus the labeler
// metric group.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}

	labeler, err := metrics.NewLabelerMetrics(registry)
	if err != nil {
		return nil, err
	}

	return &Metrics{registry: registry, Labeler: labeler}, nil
}

// Registry returns the underlying Prometheus registry, e.g. for an exporter
// endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
