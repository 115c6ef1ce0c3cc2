package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/crowdsim/internal/dynamo"
	"github.com/san-kum/crowdsim/internal/physics"
)

func newField(t *testing.T) *physics.SocialForce {
	t.Helper()
	sf, err := physics.New(physics.Params{A: 2000, B: 0.08, K: 1.2e5, Kappa: 2.4e5})
	if err != nil {
		t.Fatalf("physics.New: %v", err)
	}
	return sf
}

func newAgent(t *testing.T, pos, goal dynamo.Vec2) *dynamo.Agent {
	t.Helper()
	a, err := dynamo.NewAgent(pos, goal, 1.3, 0.3, 80, 0.5)
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	return a
}

func TestEulerSingleAgent(t *testing.T) {
	a := newAgent(t, dynamo.V(0, 0), dynamo.V(10, 0))

	if err := NewEuler().Step(newField(t), []*dynamo.Agent{a}, nil, 0.1); err != nil {
		t.Fatalf("step failed: %v", err)
	}

	if math.Abs(a.Velocity.X-0.26) > 1e-12 || a.Velocity.Y != 0 {
		t.Errorf("velocity = %v, want (0.26, 0)", a.Velocity)
	}
	if math.Abs(a.Position.X-0.026) > 1e-12 || a.Position.Y != 0 {
		t.Errorf("position = %v, want (0.026, 0)", a.Position)
	}
}

func TestEulerUsesUpdatedVelocityForPosition(t *testing.T) {
	a := newAgent(t, dynamo.V(0, 0), dynamo.V(10, 0))
	a.Velocity = dynamo.V(1.0, 0)

	if err := NewEuler().Step(newField(t), []*dynamo.Agent{a}, nil, 0.1); err != nil {
		t.Fatalf("step failed: %v", err)
	}

	// a = (1.3 - 1.0)/0.5 = 0.6, v = 1.06, x = 0.106.
	if math.Abs(a.Velocity.X-1.06) > 1e-12 {
		t.Errorf("velocity = %v, want 1.06", a.Velocity.X)
	}
	if math.Abs(a.Position.X-0.106) > 1e-12 {
		t.Errorf("position = %v, want 0.106", a.Position.X)
	}
}

func TestEulerSymmetricAboutWall(t *testing.T) {
	upper := newAgent(t, dynamo.V(0, 0.5), dynamo.V(10, 0.5))
	lower := newAgent(t, dynamo.V(0, -0.5), dynamo.V(10, -0.5))
	walls := []dynamo.Wall{{A: dynamo.V(-10, 0), B: dynamo.V(10, 0)}}

	if err := NewEuler().Step(newField(t), []*dynamo.Agent{upper, lower}, walls, 0.1); err != nil {
		t.Fatalf("step failed: %v", err)
	}

	if math.Abs(upper.Position.X-lower.Position.X) > 1e-12 {
		t.Errorf("x positions differ: %v vs %v", upper.Position.X, lower.Position.X)
	}
	if math.Abs(upper.Position.Y+lower.Position.Y) > 1e-12 {
		t.Errorf("positions are not mirror images: %v vs %v", upper.Position, lower.Position)
	}
	if upper.Position.Y <= 0.5 {
		t.Errorf("upper agent should move away from the wall, got y=%v", upper.Position.Y)
	}
}

func TestEulerOrderIndependent(t *testing.T) {
	build := func() []*dynamo.Agent {
		return []*dynamo.Agent{
			newAgent(t, dynamo.V(0, 0), dynamo.V(10, 0)),
			newAgent(t, dynamo.V(0.5, 0.1), dynamo.V(-10, 0)),
			newAgent(t, dynamo.V(0.2, 0.55), dynamo.V(0, -10)),
		}
	}
	walls := []dynamo.Wall{{A: dynamo.V(-5, -0.4), B: dynamo.V(5, -0.4)}}

	forward := build()
	if err := NewEuler().Step(newField(t), forward, walls, 0.01); err != nil {
		t.Fatalf("step failed: %v", err)
	}

	backward := build()
	reversed := []*dynamo.Agent{backward[2], backward[1], backward[0]}
	if err := NewEuler().Step(newField(t), reversed, walls, 0.01); err != nil {
		t.Fatalf("step failed: %v", err)
	}

	for i := range forward {
		if !forward[i].Position.ApproxEqual(backward[i].Position, 1e-9) {
			t.Errorf("agent %d: position %v depends on order (%v)", i, forward[i].Position, backward[i].Position)
		}
		if !forward[i].Velocity.ApproxEqual(backward[i].Velocity, 1e-9) {
			t.Errorf("agent %d: velocity %v depends on order (%v)", i, forward[i].Velocity, backward[i].Velocity)
		}
	}
}

func TestEulerInvalidDt(t *testing.T) {
	for _, dt := range []float64{0, -0.1, math.NaN(), math.Inf(1)} {
		a := newAgent(t, dynamo.V(0, 0), dynamo.V(10, 0))
		err := NewEuler().Step(newField(t), []*dynamo.Agent{a}, nil, dt)
		if !errors.Is(err, dynamo.ErrInvalidParameter) {
			t.Errorf("dt=%v: expected ErrInvalidParameter, got %v", dt, err)
		}
		if a.Position != dynamo.V(0, 0) || !a.Velocity.IsZero() {
			t.Errorf("dt=%v: agent mutated on error", dt)
		}
	}
}

func TestEulerLeavesAgentsUntouchedOnError(t *testing.T) {
	a := newAgent(t, dynamo.V(0, 0), dynamo.V(10, 0))
	b := newAgent(t, dynamo.V(1, 1), dynamo.V(10, 0))
	b.Position = a.Position

	err := NewEuler().Step(newField(t), []*dynamo.Agent{a, b}, nil, 0.1)
	if !errors.Is(err, dynamo.ErrDegenerateGeometry) {
		t.Fatalf("expected ErrDegenerateGeometry, got %v", err)
	}
	if !a.Velocity.IsZero() || !b.Velocity.IsZero() {
		t.Error("velocities changed despite the error")
	}
}

type shortField struct{}

func (shortField) Acceleration(agents []*dynamo.Agent, walls []dynamo.Wall) ([]dynamo.Vec2, error) {
	return nil, nil
}

func TestEulerDimensionMismatch(t *testing.T) {
	a := newAgent(t, dynamo.V(0, 0), dynamo.V(10, 0))
	err := NewEuler().Step(shortField{}, []*dynamo.Agent{a}, nil, 0.1)
	if !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}
