package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/crowdsim/internal/dynamo"
	"github.com/san-kum/crowdsim/internal/metrics"
)

// MetricFactory builds a fresh metric for one run over scene.
type MetricFactory func(scene *dynamo.Scene, cfg dynamo.Config) dynamo.Metric

type Registry struct {
	metrics map[string]MetricFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		metrics: make(map[string]MetricFactory),
	}

	r.metrics["mean_speed"] = func(*dynamo.Scene, dynamo.Config) dynamo.Metric { return metrics.NewMeanSpeed() }
	r.metrics["kinetic_energy"] = func(*dynamo.Scene, dynamo.Config) dynamo.Metric { return metrics.NewKineticEnergy() }
	r.metrics["max_overlap"] = func(*dynamo.Scene, dynamo.Config) dynamo.Metric { return metrics.NewMaxOverlap() }
	r.metrics["wall_clearance"] = func(s *dynamo.Scene, _ dynamo.Config) dynamo.Metric { return metrics.NewWallClearance(s.Walls) }
	r.metrics["arrived"] = func(_ *dynamo.Scene, c dynamo.Config) dynamo.Metric { return metrics.NewArrivals(c.ArrivalRadius) }

	return r
}

func (r *Registry) GetMetric(name string, scene *dynamo.Scene, cfg dynamo.Config) (dynamo.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(scene, cfg), nil
}

func (r *Registry) ListMetrics() []string {
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics returns one instance of every registered metric.
func (r *Registry) DefaultMetrics(scene *dynamo.Scene, cfg dynamo.Config) []dynamo.Metric {
	names := r.ListMetrics()
	out := make([]dynamo.Metric, 0, len(names))
	for _, name := range names {
		out = append(out, r.metrics[name](scene, cfg))
	}
	return out
}
