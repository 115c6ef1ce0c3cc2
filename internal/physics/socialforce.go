package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/crowdsim/internal/dynamo"
)

// Params are the constants of the social-force law.
type Params struct {
	A     float64 // repulsion amplitude
	B     float64 // repulsion decay length
	K     float64 // body-compression stiffness
	Kappa float64 // sliding-friction coefficient
}

// DefaultParams returns the usual pedestrian constants:
// A = 2000 N, B = 0.08 m, k = 1.2e5 kg/s^2, kappa = 2.4e5 kg/(m s).
func DefaultParams() Params {
	return Params{A: 2e3, B: 0.08, K: 1.2e5, Kappa: 2.4e5}
}

func (p Params) Validate() error {
	for _, c := range []struct {
		name string
		v    float64
	}{{"A", p.A}, {"B", p.B}, {"k", p.K}, {"kappa", p.Kappa}} {
		if err := dynamo.RequirePositive(c.name, c.v); err != nil {
			return err
		}
	}
	return nil
}

// SocialForce is the force model. Its parameters are fixed at construction
// and it holds no mutable state, so one instance may serve concurrent runs.
type SocialForce struct {
	params Params
	pairs  PairAccumulator
}

type Option func(*SocialForce)

// WithPairAccumulator replaces the all-pairs agent interaction loop.
func WithPairAccumulator(pa PairAccumulator) Option {
	return func(sf *SocialForce) { sf.pairs = pa }
}

func New(p Params, opts ...Option) (*SocialForce, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	sf := &SocialForce{params: p, pairs: AllPairs{}}
	for _, opt := range opts {
		opt(sf)
	}
	return sf, nil
}

func (sf *SocialForce) Params() Params { return sf.params }

// RampUp is max(x, 0). It switches on the contact terms only once bodies
// overlap.
func RampUp(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// contact combines the normal and tangential terms shared by agent-agent and
// agent-wall interactions. rd is rSum - d, positive when bodies overlap, and
// dvt the relative tangential speed.
func (sf *SocialForce) contact(n dynamo.Vec2, rd, dvt float64) dynamo.Vec2 {
	p := sf.params
	a := p.A*math.Exp(rd/p.B) + p.K*RampUp(rd)
	b := p.Kappa * RampUp(rd) * dvt
	return n.Scale(a).Add(n.Perp().Scale(b))
}

// ForceBetween is the force exerted on i by j. Swapping the arguments negates
// the result exactly.
func (sf *SocialForce) ForceBetween(i, j *dynamo.Agent) (dynamo.Vec2, error) {
	diff := i.Position.Sub(j.Position)
	d := diff.Norm()
	if d == 0 {
		return dynamo.Vec2{}, fmt.Errorf("coincident agents at %v: %w", i.Position, dynamo.ErrDegenerateGeometry)
	}
	n := diff.Div(d)
	dvt := j.Velocity.Sub(i.Velocity).Dot(n.Perp())
	return sf.contact(n, i.Radius+j.Radius-d, dvt), nil
}

// ForceFromWall is the force exerted on a by w. Walls are static and have no
// thickness.
func (sf *SocialForce) ForceFromWall(a *dynamo.Agent, w dynamo.Wall) (dynamo.Vec2, error) {
	if err := w.Validate(); err != nil {
		return dynamo.Vec2{}, err
	}
	diff := a.Position.Sub(w.ClosestPoint(a.Position))
	d := diff.Norm()
	if d == 0 {
		return dynamo.Vec2{}, fmt.Errorf("agent on wall %v-%v: %w", w.A, w.B, dynamo.ErrDegenerateGeometry)
	}
	n := diff.Div(d)
	dvt := -a.Velocity.Dot(n.Perp())
	return sf.contact(n, a.Radius-d, dvt), nil
}

// AgentForces returns the total interaction force on every agent.
func (sf *SocialForce) AgentForces(agents []*dynamo.Agent) ([]dynamo.Vec2, error) {
	return sf.pairs.Accumulate(agents, sf.ForceBetween)
}

// WallForces returns the total wall force on every agent. O(agents*walls).
func (sf *SocialForce) WallForces(agents []*dynamo.Agent, walls []dynamo.Wall) ([]dynamo.Vec2, error) {
	out := make([]dynamo.Vec2, len(agents))
	for i, a := range agents {
		for k, w := range walls {
			f, err := sf.ForceFromWall(a, w)
			if err != nil {
				return nil, fmt.Errorf("agent %d, wall %d: %w", i, k, err)
			}
			out[i] = out[i].Add(f)
		}
	}
	return out, nil
}

// Acceleration implements dynamo.ForceField:
//
//	a_i = (v0_i e_i - v_i)/tau_i + (F_agents_i + F_walls_i)/m_i
//
// It only reads its arguments.
func (sf *SocialForce) Acceleration(agents []*dynamo.Agent, walls []dynamo.Wall) ([]dynamo.Vec2, error) {
	for i, a := range agents {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("agent %d: %w", i, err)
		}
	}

	fa, err := sf.AgentForces(agents)
	if err != nil {
		return nil, err
	}
	fw, err := sf.WallForces(agents, walls)
	if err != nil {
		return nil, err
	}

	acc := make([]dynamo.Vec2, len(agents))
	for i, a := range agents {
		desired, err := a.DesiredVelocity()
		if err != nil {
			return nil, fmt.Errorf("agent %d: %w", i, err)
		}
		drive := desired.Sub(a.Velocity).Div(a.Tau)
		acc[i] = drive.Add(fa[i].Div(a.Mass)).Add(fw[i].Div(a.Mass))
	}
	return acc, nil
}
