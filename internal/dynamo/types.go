package dynamo

import (
	"fmt"
	"math"
)

// ForceField computes one acceleration per agent from the current state of
// agents and walls. Implementations must not mutate their arguments.
type ForceField interface {
	Acceleration(agents []*Agent, walls []Wall) ([]Vec2, error)
}

// Stepper advances agents in place by one time step of length dt.
type Stepper interface {
	Step(field ForceField, agents []*Agent, walls []Wall, dt float64) error
}

type Metric interface {
	Name() string
	Observe(agents []*Agent, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(agents []*Agent, t float64)
}

// Scene is the fixed population of one run. Agents are mutated in place by
// the stepper; walls never change.
type Scene struct {
	Agents []*Agent
	Walls  []Wall
}

// NewScene validates every entity and rejects coincident agents.
func NewScene(agents []*Agent, walls []Wall) (*Scene, error) {
	s := &Scene{Agents: agents, Walls: walls}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scene) Validate() error {
	for i, a := range s.Agents {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("agent %d: %w", i, err)
		}
		for j := 0; j < i; j++ {
			if s.Agents[j].Position == a.Position {
				return fmt.Errorf("agents %d and %d coincide at %v: %w", j, i, a.Position, ErrDegenerateGeometry)
			}
		}
	}
	for i, w := range s.Walls {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("wall %d: %w", i, err)
		}
	}
	return nil
}

func (s *Scene) Clone() *Scene {
	c := &Scene{
		Agents: make([]*Agent, len(s.Agents)),
		Walls:  make([]Wall, len(s.Walls)),
	}
	for i, a := range s.Agents {
		c.Agents[i] = a.Clone()
	}
	copy(c.Walls, s.Walls)
	return c
}

// IsValid reports whether every position and velocity is finite.
func (s *Scene) IsValid() bool {
	for _, a := range s.Agents {
		if !a.Position.IsValid() || !a.Velocity.IsValid() {
			return false
		}
	}
	return true
}

// AllArrived reports whether every agent is within radius of its goal.
func (s *Scene) AllArrived(radius float64) bool {
	for _, a := range s.Agents {
		if a.DistanceToGoal() > radius {
			return false
		}
	}
	return true
}

func (s *Scene) Snapshot(t float64) Frame {
	f := Frame{Time: t, Agents: make([]AgentState, len(s.Agents))}
	for i, a := range s.Agents {
		f.Agents[i] = AgentState{Position: a.Position, Velocity: a.Velocity}
	}
	return f
}

type AgentState struct {
	Position Vec2 `json:"position"`
	Velocity Vec2 `json:"velocity"`
}

// Frame is the recorded kinematic state of all agents at one instant.
type Frame struct {
	Time   float64      `json:"time"`
	Agents []AgentState `json:"agents"`
}

// MeanSpeed of the agents in the frame, 0 for an empty frame.
func (f Frame) MeanSpeed() float64 {
	if len(f.Agents) == 0 {
		return 0
	}
	sum := 0.0
	for _, a := range f.Agents {
		sum += a.Velocity.Norm()
	}
	return sum / float64(len(f.Agents))
}

type Config struct {
	Dt            float64
	Duration      float64
	Seed          int64
	RecordEvery   int
	ValidateState bool
	StopOnArrival bool
	ArrivalRadius float64
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.01,
		Duration:      10.0,
		RecordEvery:   1,
		ValidateState: true,
		ArrivalRadius: 0.5,
	}
}

// Validate requires positive dt and duration, and a positive arrival radius
// when the run stops on arrival.
func (c Config) Validate() error {
	if err := RequirePositive("dt", c.Dt); err != nil {
		return err
	}
	if err := RequirePositive("duration", c.Duration); err != nil {
		return err
	}
	if c.StopOnArrival {
		if err := RequirePositive("arrival radius", c.ArrivalRadius); err != nil {
			return err
		}
	}
	return nil
}

// Steps is the number of whole steps of length Dt that fit in Duration.
func (c Config) Steps() int {
	return int(math.Floor(c.Duration/c.Dt + 1e-9))
}

type Result struct {
	Frames     []Frame
	Metrics    map[string]float64
	StepsTaken int
	SimTime    float64
	Arrived    bool
}
