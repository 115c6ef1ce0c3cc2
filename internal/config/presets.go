package config

import "sort"

func scenario(name string, dt, duration float64) *Config {
	cfg := DefaultConfig()
	cfg.Name = name
	cfg.Dt = dt
	cfg.Duration = duration
	return cfg
}

func corridorWalls(x0, x1, y0, y1 float64) []WallConfig {
	return []WallConfig{
		{A: Point{x0, y0}, B: Point{x1, y0}},
		{A: Point{x0, y1}, B: Point{x1, y1}},
	}
}

var Presets = map[string]*Config{
	"single": func() *Config {
		cfg := scenario("single", 0.1, 5.0)
		cfg.Agents = []AgentConfig{
			{Position: Point{0, 0}, Goal: Point{10, 0}},
		}
		return cfg
	}(),
	"pair": func() *Config {
		cfg := scenario("pair", 0.001, 1.0)
		cfg.Agents = []AgentConfig{
			{Position: Point{0, 0}, Goal: Point{10, 0}},
			{Position: Point{0.4, 0}, Goal: Point{-10, 0}},
		}
		return cfg
	}(),
	"corridor": func() *Config {
		cfg := scenario("corridor", 0.01, 20.0)
		cfg.Seed = 1
		cfg.Walls = corridorWalls(-2, 32, 0, 4)
		cfg.Groups = []GroupConfig{
			{Count: 20, Min: Point{0, 0.5}, Max: Point{6, 3.5}, Shift: Point{22, 0}, Jitter: 0.05},
		}
		cfg.StopOnArrival = true
		cfg.ArrivalRadius = 0.5
		return cfg
	}(),
	"bottleneck": func() *Config {
		cfg := scenario("bottleneck", 0.01, 60.0)
		cfg.Seed = 1
		cfg.Walls = []WallConfig{
			{A: Point{0, 0}, B: Point{10, 0}},
			{A: Point{0, 10}, B: Point{10, 10}},
			{A: Point{0, 0}, B: Point{0, 10}},
			{A: Point{10, 0}, B: Point{10, 4.4}},
			{A: Point{10, 5.6}, B: Point{10, 10}},
		}
		cfg.Groups = []GroupConfig{
			{Count: 30, Min: Point{1, 1}, Max: Point{8, 9}, Goal: Point{14, 5}, Jitter: 0.1},
		}
		cfg.ArrivalRadius = 3.0
		return cfg
	}(),
	"counterflow": func() *Config {
		cfg := scenario("counterflow", 0.01, 30.0)
		cfg.Seed = 1
		cfg.Walls = corridorWalls(-5, 25, 0, 5)
		cfg.Groups = []GroupConfig{
			{Count: 10, Min: Point{0, 0.5}, Max: Point{4, 4.5}, Shift: Point{20, 0}, Jitter: 0.05},
			{Count: 10, Min: Point{16, 0.5}, Max: Point{20, 4.5}, Shift: Point{-20, 0}, Jitter: 0.05},
		}
		return cfg
	}(),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
