package experiment

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/san-kum/crowdsim/internal/config"
	"github.com/san-kum/crowdsim/internal/dynamo"
	"github.com/san-kum/crowdsim/internal/integrators"
	"github.com/san-kum/crowdsim/internal/physics"
	"github.com/san-kum/crowdsim/internal/storage"
)

type Experiment struct {
	cfg       *config.Config
	registry  *Registry
	log       *zap.Logger
	field     *physics.SocialForce
	scene     *dynamo.Scene
	simulator *dynamo.Simulator
}

type Option func(*Experiment)

func WithLogger(l *zap.Logger) Option {
	return func(e *Experiment) { e.log = l }
}

func WithRegistry(r *Registry) Option {
	return func(e *Experiment) { e.registry = r }
}

func New(cfg *config.Config, opts ...Option) *Experiment {
	e := &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Setup builds the scene, the force model, the Euler stepper and a
// simulator carrying every registered metric.
func (e *Experiment) Setup() error {
	scene, err := e.cfg.Build()
	if err != nil {
		return fmt.Errorf("build %s: %w", e.cfg.Name, err)
	}
	field, err := physics.New(e.cfg.Params())
	if err != nil {
		return err
	}
	e.scene = scene
	e.field = field
	e.simulator = e.newSimulator(scene)
	return nil
}

func (e *Experiment) newSimulator(scene *dynamo.Scene) *dynamo.Simulator {
	sim := dynamo.New(e.field, integrators.NewEuler())
	sim.SetLogger(e.log.With(zap.String("scenario", e.cfg.Name)))
	for _, m := range e.registry.DefaultMetrics(scene, e.cfg.SimConfig()) {
		sim.AddMetric(m)
	}
	return sim
}

// Run simulates a copy of the built scene, so repeated runs start from the
// same state.
func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, e.scene.Clone(), e.cfg.SimConfig())
}

// RunEnsemble runs n copies of the scenario with seeds Seed, Seed+1, ...
// on up to workers goroutines. Seeds only matter for jittered groups.
func (e *Experiment) RunEnsemble(ctx context.Context, n, workers int) ([]*dynamo.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	if n < 1 {
		return nil, &dynamo.ParameterError{Name: "runs", Value: float64(n)}
	}

	scenes := make([]*dynamo.Scene, n)
	for i := range scenes {
		cfg := e.cfg.Clone()
		cfg.Seed = e.cfg.Seed + int64(i)
		scene, err := cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", i, err)
		}
		scenes[i] = scene
	}

	ens := dynamo.NewEnsemble(func() *dynamo.Simulator { return e.newSimulator(e.scene) }, workers)
	return ens.Run(ctx, scenes, e.cfg.SimConfig())
}

// Scene is the scene built by Setup. Run never mutates it.
// Save stores result with the scenario's name, seed, walls and digest and
// returns the new run ID.
func (e *Experiment) Save(st *storage.Store, result *dynamo.Result) (string, error) {
	if e.scene == nil {
		return "", fmt.Errorf("experiment not setup")
	}
	digest, err := e.cfg.Digest()
	if err != nil {
		return "", err
	}
	runID, err := st.Save(storage.RunInfo{
		Name:     e.cfg.Name,
		Seed:     e.cfg.Seed,
		Dt:       e.cfg.Dt,
		Duration: e.cfg.Duration,
		Walls:    e.scene.Walls,
		Digest:   digest,
	}, result)
	if err != nil {
		return "", err
	}
	e.log.Info("run stored", zap.String("run_id", runID), zap.String("digest", digest))
	return runID, nil
}

func (e *Experiment) Scene() *dynamo.Scene { return e.scene }

func (e *Experiment) Field() *physics.SocialForce { return e.field }

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *dynamo.Simulator {
	return e.simulator
}

// Summary of one metric across an ensemble.
type Summary struct {
	Mean, Std, Min, Max float64
}

// Aggregate summarizes every metric over results.
func Aggregate(results []*dynamo.Result) map[string]Summary {
	values := make(map[string][]float64)
	for _, r := range results {
		for name, v := range r.Metrics {
			values[name] = append(values[name], v)
		}
	}

	out := make(map[string]Summary, len(values))
	for name, vs := range values {
		s := Summary{Min: math.Inf(1), Max: math.Inf(-1)}
		for _, v := range vs {
			s.Mean += v
			s.Min = math.Min(s.Min, v)
			s.Max = math.Max(s.Max, v)
		}
		s.Mean /= float64(len(vs))
		for _, v := range vs {
			s.Std += (v - s.Mean) * (v - s.Mean)
		}
		s.Std = math.Sqrt(s.Std / float64(len(vs)))
		out[name] = s
	}
	return out
}

// SortedKeys returns the metric names of m in order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
