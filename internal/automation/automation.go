package automation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/crowdsim/internal/config"
	"github.com/san-kum/crowdsim/internal/dynamo"
	"github.com/san-kum/crowdsim/internal/experiment"
	"github.com/san-kum/crowdsim/internal/storage"
)

// Batch is a scripted list of runs read from YAML.
type Batch struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Runs        []BatchRun `yaml:"runs"`

	dir string
}

// BatchRun names a scenario by preset or by scenario file and overrides parts
// of it. Zero Dt and Duration keep the scenario's values. Repeat > 1 runs
// copies with seeds Seed, Seed+1, ...
type BatchRun struct {
	Preset   string             `yaml:"preset,omitempty"`
	Config   string             `yaml:"config,omitempty"`
	Name     string             `yaml:"name,omitempty"`
	Dt       float64            `yaml:"dt,omitempty"`
	Duration float64            `yaml:"duration,omitempty"`
	Seed     *int64             `yaml:"seed,omitempty"`
	Repeat   int                `yaml:"repeat,omitempty"`
	Params   map[string]float64 `yaml:"params,omitempty"`
}

// LoadBatch reads a batch file. Scenario paths inside it are relative to the
// file's directory.
func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var b Batch
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(b.Runs) == 0 {
		return nil, fmt.Errorf("batch %s has no runs", path)
	}
	b.dir = filepath.Dir(path)
	return &b, nil
}

// Scenario resolves one run entry into a validated config.
func (b *Batch) Scenario(r BatchRun) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case r.Preset != "" && r.Config != "":
		return nil, fmt.Errorf("set preset or config, not both")
	case r.Preset != "":
		if cfg = config.GetPreset(r.Preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", r.Preset)
		}
	case r.Config != "":
		path := r.Config
		if !filepath.IsAbs(path) && b.dir != "" {
			path = filepath.Join(b.dir, path)
		}
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	default:
		return nil, fmt.Errorf("run needs a preset or a config")
	}

	if r.Name != "" {
		cfg.Name = r.Name
	}
	if r.Dt != 0 {
		cfg.Dt = r.Dt
	}
	if r.Duration != 0 {
		cfg.Duration = r.Duration
	}
	if r.Seed != nil {
		cfg.Seed = *r.Seed
	}

	names := make([]string, 0, len(r.Params))
	for k := range r.Params {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if err := cfg.SetParam(k, r.Params[k]); err != nil {
			return nil, err
		}
	}
	return cfg, cfg.Validate()
}

// Outcome is one completed run. RunID is empty when no store was given.
type Outcome struct {
	Name   string
	Seed   int64
	RunID  string
	Result *dynamo.Result
}

type Runner struct {
	store *storage.Store
	log   *zap.Logger
}

// NewRunner returns a runner that saves every result to store, or keeps
// results in memory only when store is nil.
func NewRunner(store *storage.Store, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{store: store, log: log}
}

// Run executes the batch in order and stops at the first failing run.
func (r *Runner) Run(ctx context.Context, b *Batch) ([]Outcome, error) {
	var outcomes []Outcome

	for i, run := range b.Runs {
		cfg, err := b.Scenario(run)
		if err != nil {
			return outcomes, fmt.Errorf("run %d: %w", i+1, err)
		}

		for k := 0; k < max(1, run.Repeat); k++ {
			c := cfg.Clone()
			c.Seed = cfg.Seed + int64(k)

			out, err := r.runOne(ctx, c)
			if err != nil {
				return outcomes, fmt.Errorf("run %d (%s, seed %d): %w", i+1, c.Name, c.Seed, err)
			}
			outcomes = append(outcomes, out)
		}
	}
	return outcomes, nil
}

func (r *Runner) runOne(ctx context.Context, cfg *config.Config) (Outcome, error) {
	log := r.log.With(zap.String("scenario", cfg.Name), zap.Int64("seed", cfg.Seed))

	exp := experiment.New(cfg, experiment.WithLogger(log))
	if err := exp.Setup(); err != nil {
		return Outcome{}, err
	}
	result, err := exp.Run(ctx)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Name: cfg.Name, Seed: cfg.Seed, Result: result}
	if r.store != nil {
		if out.RunID, err = exp.Save(r.store, result); err != nil {
			return Outcome{}, err
		}
	}
	log.Info("batch run finished", zap.Int("steps", result.StepsTaken), zap.Bool("arrived", result.Arrived))
	return out, nil
}
