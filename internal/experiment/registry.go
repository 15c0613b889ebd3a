package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/mpmsim/internal/material"
	"github.com/san-kum/mpmsim/internal/metrics"
	"github.com/san-kum/mpmsim/internal/solver"
)

// DefaultSpeedLimit is the particle speed above which a run is reported
// unstable.
const DefaultSpeedLimit = 1e3

type Registry struct {
	metrics map[string]func() solver.Metric
}

func NewRegistry() *Registry {
	r := &Registry{metrics: make(map[string]func() solver.Metric)}

	r.metrics["kinetic_energy"] = func() solver.Metric { return metrics.NewKineticEnergy() }
	r.metrics["mass_drift"] = func() solver.Metric { return metrics.NewMassDrift() }
	r.metrics["max_speed"] = func() solver.Metric { return metrics.NewMaxSpeed() }
	r.metrics["stability"] = func() solver.Metric { return metrics.NewStability(DefaultSpeedLimit) }

	return r
}

func (r *Registry) GetMetric(name string) (solver.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListMetrics() []string {
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListMaterials returns the registered constitutive model names.
func (r *Registry) ListMaterials() []string {
	return material.Names()
}

// DefaultMetrics returns one fresh instance of every metric.
func (r *Registry) DefaultMetrics() []solver.Metric {
	out := make([]solver.Metric, 0, len(r.metrics))
	for _, name := range r.ListMetrics() {
		out = append(out, r.metrics[name]())
	}
	return out
}
