package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/crowdsim/internal/dynamo"
	"github.com/san-kum/crowdsim/internal/physics"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "custom", cfg.Name)
	assert.Greater(t, cfg.Dt, 0.0)
	assert.Greater(t, cfg.Duration, 0.0)
	assert.Equal(t, physics.DefaultParams(), cfg.Params())
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("single")
	require.NotNil(t, cfg)
	require.Len(t, cfg.Agents, 1)
	assert.Equal(t, Point{10, 0}, cfg.Agents[0].Goal)

	cfg.Agents[0].Goal = Point{-1, -1}
	assert.Equal(t, Point{10, 0}, GetPreset("single").Agents[0].Goal, "preset mutated through a copy")

	assert.Nil(t, GetPreset("nonexistent"))
}

func TestListPresets(t *testing.T) {
	assert.Equal(t, []string{"bottleneck", "corridor", "counterflow", "pair", "single"}, ListPresets())
}

func TestPresetsBuild(t *testing.T) {
	for _, name := range ListPresets() {
		t.Run(name, func(t *testing.T) {
			cfg := GetPreset(name)
			scene, err := cfg.Build()
			require.NoError(t, err)
			assert.Len(t, scene.Agents, cfg.AgentCount())
			assert.Len(t, scene.Walls, len(cfg.Walls))
			require.NoError(t, cfg.SimConfig().Validate())
		})
	}
}

func TestBuildSingleAgent(t *testing.T) {
	scene, err := GetPreset("single").Build()
	require.NoError(t, err)

	a := scene.Agents[0]
	assert.Equal(t, dynamo.V(0, 0), a.Position)
	assert.True(t, a.Velocity.IsZero())
	assert.Equal(t, DefaultDesiredSpeed, a.DesiredSpeed)
	assert.Equal(t, DefaultRadius, a.Radius)
	assert.Equal(t, DefaultMass, a.Mass)
	assert.Equal(t, DefaultTau, a.Tau)
}

func TestBuildStartAtDesired(t *testing.T) {
	cfg := GetPreset("single")
	cfg.Agents[0].StartAtDesired = true

	scene, err := cfg.Build()
	require.NoError(t, err)
	assert.InDelta(t, 1.3, scene.Agents[0].Velocity.X, 1e-12)
	assert.Equal(t, 0.0, scene.Agents[0].Velocity.Y)
}

func TestBuildDeterministic(t *testing.T) {
	first, err := GetPreset("corridor").Build()
	require.NoError(t, err)
	second, err := GetPreset("corridor").Build()
	require.NoError(t, err)

	for i := range first.Agents {
		assert.Equal(t, first.Agents[i].Position, second.Agents[i].Position)
	}

	cfg := GetPreset("corridor")
	cfg.Seed = 99
	other, err := cfg.Build()
	require.NoError(t, err)
	assert.NotEqual(t, first.Agents[0].Position, other.Agents[0].Position)
}

func TestGroupSpawnInsideBox(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Groups = []GroupConfig{{Count: 12, Min: Point{2, 1}, Max: Point{8, 4}, Goal: Point{20, 2}}}

	scene, err := cfg.Build()
	require.NoError(t, err)
	require.Len(t, scene.Agents, 12)
	for _, a := range scene.Agents {
		assert.True(t, a.Position.X > 2 && a.Position.X < 8, "x out of box: %v", a.Position)
		assert.True(t, a.Position.Y > 1 && a.Position.Y < 4, "y out of box: %v", a.Position)
		assert.Equal(t, dynamo.V(20, 2), a.Goal)
	}
}

func TestGroupShift(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Groups = []GroupConfig{{Count: 3, Min: Point{0, 0}, Max: Point{3, 0}, Shift: Point{5, 1}}}

	scene, err := cfg.Build()
	require.NoError(t, err)
	for _, a := range scene.Agents {
		assert.Equal(t, a.Position.Add(dynamo.V(5, 1)), a.Goal)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		target error
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }, dynamo.ErrInvalidParameter},
		{"negative duration", func(c *Config) { c.Duration = -1 }, dynamo.ErrInvalidParameter},
		{"zero B", func(c *Config) { c.Force.B = 0 }, dynamo.ErrInvalidParameter},
		{"no agents", func(c *Config) { c.Agents = nil }, nil},
		{"empty group", func(c *Config) { c.Groups = []GroupConfig{{Count: 0}} }, nil},
		{"inverted box", func(c *Config) {
			c.Groups = []GroupConfig{{Count: 2, Min: Point{1, 1}, Max: Point{0, 0}}}
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetPreset("single")
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			if tt.target != nil {
				assert.True(t, errors.Is(err, tt.target), "got %v", err)
			}
		})
	}
}

func TestBuildRejectsBadGeometry(t *testing.T) {
	cfg := GetPreset("single")
	cfg.Agents[0].Goal = cfg.Agents[0].Position
	_, err := cfg.Build()
	assert.ErrorIs(t, err, dynamo.ErrDegenerateGeometry)

	cfg = GetPreset("single")
	cfg.Walls = []WallConfig{{A: Point{1, 1}, B: Point{1, 1}}}
	_, err = cfg.Build()
	assert.ErrorIs(t, err, dynamo.ErrDegenerateGeometry)

	cfg = GetPreset("single")
	cfg.Agents[0].Radius = -0.3
	_, err = cfg.Build()
	assert.ErrorIs(t, err, dynamo.ErrInvalidParameter)
}

func TestSaveLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	cfg := GetPreset("counterflow")

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg, loaded)
}

func TestSaveLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.toml")
	cfg := GetPreset("bottleneck")

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Name, loaded.Name)
	assert.Equal(t, cfg.Walls, loaded.Walls)
	assert.Equal(t, cfg.Groups, loaded.Groups)
	assert.Equal(t, cfg.Params(), loaded.Params())
}

func TestLoadTOMLKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.toml")
	src := `
name = "hall"
duration = 4.0

[[agents]]
position = [0.0, 0.0]
goal = [5.0, 0.0]
desired_speed = 1.0

[[walls]]
a = [-1.0, -1.0]
b = [6.0, -1.0]
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "hall", cfg.Name)
	assert.Equal(t, DefaultDt, cfg.Dt)
	assert.Equal(t, 4.0, cfg.Duration)
	assert.Equal(t, physics.DefaultParams(), cfg.Params())
	require.Len(t, cfg.Agents, 1)
	assert.Equal(t, 1.0, cfg.Agents[0].DesiredSpeed)

	scene, err := cfg.Build()
	require.NoError(t, err)
	assert.Len(t, scene.Walls, 1)
}

func TestLoadYAMLKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yml")
	src := `
name: yard
agents:
  - position: [0, 0]
    goal: [3, 4]
    mass: 60
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultDuration, cfg.Duration)
	require.Len(t, cfg.Agents, 1)
	assert.Equal(t, Point{3, 4}, cfg.Agents[0].Goal)
	assert.Equal(t, 60.0, cfg.Agents[0].Mass)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dt: [1, 2"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestDigest(t *testing.T) {
	a, err := GetPreset("pair").Digest()
	require.NoError(t, err)
	b, err := GetPreset("pair").Digest()
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)

	cfg := GetPreset("pair")
	cfg.Dt = 0.002
	c, err := cfg.Digest()
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestSetParam(t *testing.T) {
	cfg := GetPreset("counterflow")

	require.NoError(t, cfg.SetParam("kappa", 1e5))
	require.NoError(t, cfg.SetParam("Tau", 0.8))
	require.NoError(t, cfg.SetParam("dt", 0.005))
	assert.Equal(t, 1e5, cfg.Force.Kappa)
	assert.Equal(t, 0.005, cfg.Dt)

	scene, err := cfg.Build()
	require.NoError(t, err)
	for _, a := range scene.Agents {
		assert.Equal(t, 0.8, a.Tau)
	}

	assert.Error(t, cfg.SetParam("gravity", 9.81))
	assert.Zero(t, GetPreset("counterflow").Groups[0].Tau, "preset mutated")
}
