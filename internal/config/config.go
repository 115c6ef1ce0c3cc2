package config

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/crowdsim/internal/dynamo"
	"github.com/san-kum/crowdsim/internal/physics"
)

const (
	DefaultDt            = 0.01
	DefaultDuration      = 10.0
	DefaultDesiredSpeed  = 1.3
	DefaultRadius        = 0.3
	DefaultMass          = 80.0
	DefaultTau           = 0.5
	DefaultArrivalRadius = 0.5
)

// Point is an (x, y) pair written as a two-element list in scenario files.
type Point [2]float64

func (p Point) Vec() dynamo.Vec2 { return dynamo.V(p[0], p[1]) }

// Config describes one scenario: the simulation clock, the force constants
// and the agents and walls that populate the scene.
type Config struct {
	Name          string        `yaml:"name" toml:"name"`
	Dt            float64       `yaml:"dt" toml:"dt"`
	Duration      float64       `yaml:"duration" toml:"duration"`
	Seed          int64         `yaml:"seed" toml:"seed"`
	RecordEvery   int           `yaml:"record_every,omitempty" toml:"record_every,omitempty"`
	StopOnArrival bool          `yaml:"stop_on_arrival,omitempty" toml:"stop_on_arrival,omitempty"`
	ArrivalRadius float64       `yaml:"arrival_radius,omitempty" toml:"arrival_radius,omitempty"`
	Force         ForceConfig   `yaml:"force" toml:"force"`
	Agents        []AgentConfig `yaml:"agents,omitempty" toml:"agents,omitempty"`
	Groups        []GroupConfig `yaml:"groups,omitempty" toml:"groups,omitempty"`
	Walls         []WallConfig  `yaml:"walls,omitempty" toml:"walls,omitempty"`
}

type ForceConfig struct {
	A     float64 `yaml:"a" toml:"a"`
	B     float64 `yaml:"b" toml:"b"`
	K     float64 `yaml:"k" toml:"k"`
	Kappa float64 `yaml:"kappa" toml:"kappa"`
}

// Body holds the per-agent physical parameters. Zero fields take the
// package defaults.
type Body struct {
	DesiredSpeed   float64 `yaml:"desired_speed,omitempty" toml:"desired_speed,omitempty"`
	Radius         float64 `yaml:"radius,omitempty" toml:"radius,omitempty"`
	Mass           float64 `yaml:"mass,omitempty" toml:"mass,omitempty"`
	Tau            float64 `yaml:"tau,omitempty" toml:"tau,omitempty"`
	StartAtDesired bool    `yaml:"start_at_desired_velocity,omitempty" toml:"start_at_desired_velocity,omitempty"`
}

type AgentConfig struct {
	Position Point `yaml:"position" toml:"position"`
	Goal     Point `yaml:"goal" toml:"goal"`
	Body     `yaml:",inline"`
}

// GroupConfig spawns Count agents on a grid filling the box [Min, Max],
// each displaced by up to Jitter in x and y. Every agent walks to Goal, or,
// when Shift is non-zero, to its own spawn point plus Shift.
type GroupConfig struct {
	Count  int     `yaml:"count" toml:"count"`
	Min    Point   `yaml:"min" toml:"min"`
	Max    Point   `yaml:"max" toml:"max"`
	Goal   Point   `yaml:"goal,omitempty" toml:"goal,omitempty"`
	Shift  Point   `yaml:"shift,omitempty" toml:"shift,omitempty"`
	Jitter float64 `yaml:"jitter,omitempty" toml:"jitter,omitempty"`
	Body   `yaml:",inline"`
}

type WallConfig struct {
	A Point `yaml:"a" toml:"a"`
	B Point `yaml:"b" toml:"b"`
}

func DefaultConfig() *Config {
	p := physics.DefaultParams()
	return &Config{
		Name:          "custom",
		Dt:            DefaultDt,
		Duration:      DefaultDuration,
		RecordEvery:   1,
		ArrivalRadius: DefaultArrivalRadius,
		Force:         ForceConfig{A: p.A, B: p.B, K: p.K, Kappa: p.Kappa},
	}
}

// Load reads a scenario. Files ending in .toml are decoded as TOML, anything
// else as YAML. Keys absent from the file keep their DefaultConfig values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if isTOML(path) {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return toml.NewEncoder(f).Encode(cfg)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func (c *Config) Params() physics.Params {
	return physics.Params{A: c.Force.A, B: c.Force.B, K: c.Force.K, Kappa: c.Force.Kappa}
}

func (c *Config) SimConfig() dynamo.Config {
	cfg := dynamo.DefaultConfig()
	cfg.Dt = c.Dt
	cfg.Duration = c.Duration
	cfg.Seed = c.Seed
	cfg.StopOnArrival = c.StopOnArrival
	if c.RecordEvery > 0 {
		cfg.RecordEvery = c.RecordEvery
	}
	if c.ArrivalRadius > 0 {
		cfg.ArrivalRadius = c.ArrivalRadius
	}
	return cfg
}

// Validate checks everything that can be checked without building the scene.
func (c *Config) Validate() error {
	if err := dynamo.RequirePositive("dt", c.Dt); err != nil {
		return err
	}
	if err := dynamo.RequirePositive("duration", c.Duration); err != nil {
		return err
	}
	if err := c.Params().Validate(); err != nil {
		return err
	}
	if len(c.Agents) == 0 && len(c.Groups) == 0 {
		return fmt.Errorf("scenario %q has no agents", c.Name)
	}
	for i, g := range c.Groups {
		if g.Count <= 0 {
			return fmt.Errorf("group %d: count must be positive, got %d", i, g.Count)
		}
		if g.Max[0] < g.Min[0] || g.Max[1] < g.Min[1] {
			return fmt.Errorf("group %d: max %v below min %v", i, g.Max, g.Min)
		}
		if g.Jitter < 0 {
			return fmt.Errorf("group %d: negative jitter", i)
		}
	}
	return nil
}

// Build instantiates the scene. Group jitter is drawn from a source seeded
// with Seed, so a config always builds the same scene.
func (c *Config) Build() (*dynamo.Scene, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(c.Seed))

	agents := make([]*dynamo.Agent, 0, len(c.Agents))
	for i, ac := range c.Agents {
		a, err := ac.Body.agent(ac.Position.Vec(), ac.Goal.Vec())
		if err != nil {
			return nil, fmt.Errorf("agent %d: %w", i, err)
		}
		agents = append(agents, a)
	}
	for i, g := range c.Groups {
		spawned, err := g.spawn(rng)
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", i, err)
		}
		agents = append(agents, spawned...)
	}

	walls := make([]dynamo.Wall, 0, len(c.Walls))
	for i, wc := range c.Walls {
		w, err := dynamo.NewWall(wc.A.Vec(), wc.B.Vec())
		if err != nil {
			return nil, fmt.Errorf("wall %d: %w", i, err)
		}
		walls = append(walls, w)
	}

	return dynamo.NewScene(agents, walls)
}

func (b Body) agent(pos, goal dynamo.Vec2) (*dynamo.Agent, error) {
	a, err := dynamo.NewAgent(pos, goal,
		orDefault(b.DesiredSpeed, DefaultDesiredSpeed),
		orDefault(b.Radius, DefaultRadius),
		orDefault(b.Mass, DefaultMass),
		orDefault(b.Tau, DefaultTau),
	)
	if err != nil {
		return nil, err
	}
	if b.StartAtDesired {
		if a.Velocity, err = a.DesiredVelocity(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (g GroupConfig) spawn(rng *rand.Rand) ([]*dynamo.Agent, error) {
	w, h := g.Max[0]-g.Min[0], g.Max[1]-g.Min[1]
	cols := g.Count
	if h > 0 {
		cols = int(math.Ceil(math.Sqrt(float64(g.Count) * w / h)))
	}
	cols = max(1, min(cols, g.Count))
	rows := (g.Count + cols - 1) / cols
	dx, dy := w/float64(cols), h/float64(rows)

	agents := make([]*dynamo.Agent, 0, g.Count)
	for k := 0; k < g.Count; k++ {
		r, c := k/cols, k%cols
		pos := dynamo.V(
			g.Min[0]+(float64(c)+0.5)*dx+(rng.Float64()*2-1)*g.Jitter,
			g.Min[1]+(float64(r)+0.5)*dy+(rng.Float64()*2-1)*g.Jitter,
		)
		goal := g.Goal.Vec()
		if g.Shift != (Point{}) {
			goal = pos.Add(g.Shift.Vec())
		}
		a, err := g.Body.agent(pos, goal)
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", k, err)
		}
		agents = append(agents, a)
	}
	return agents, nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// AgentCount is the number of agents Build will create.
func (c *Config) AgentCount() int {
	n := len(c.Agents)
	for _, g := range c.Groups {
		n += g.Count
	}
	return n
}

// Digest fingerprints the scenario so stored runs can be matched to the
// exact configuration that produced them.
func (c *Config) Digest() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data)), nil
}

// Tunable lists the parameter names SetParam accepts.
var Tunable = []string{"a", "b", "k", "kappa", "dt", "desired_speed", "radius", "mass", "tau"}

// SetParam sets a force constant, the timestep, or a body parameter on every
// agent and group.
func (c *Config) SetParam(name string, v float64) error {
	switch strings.ToLower(name) {
	case "a":
		c.Force.A = v
	case "b":
		c.Force.B = v
	case "k":
		c.Force.K = v
	case "kappa":
		c.Force.Kappa = v
	case "dt":
		c.Dt = v
	case "desired_speed", "radius", "mass", "tau":
		for i := range c.Agents {
			c.Agents[i].Body.set(name, v)
		}
		for i := range c.Groups {
			c.Groups[i].Body.set(name, v)
		}
	default:
		return fmt.Errorf("unknown parameter %q (tunable: %v)", name, Tunable)
	}
	return nil
}

func (b *Body) set(name string, v float64) {
	switch strings.ToLower(name) {
	case "desired_speed":
		b.DesiredSpeed = v
	case "radius":
		b.Radius = v
	case "mass":
		b.Mass = v
	case "tau":
		b.Tau = v
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Agents = append([]AgentConfig(nil), c.Agents...)
	cp.Groups = append([]GroupConfig(nil), c.Groups...)
	cp.Walls = append([]WallConfig(nil), c.Walls...)
	return &cp
}
