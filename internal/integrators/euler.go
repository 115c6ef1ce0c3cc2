package integrators

import (
	"fmt"

	"github.com/san-kum/crowdsim/internal/dynamo"
)

// Euler is the semi-implicit (symplectic) Euler scheme:
//
//	v(t+dt) = v(t) + dt a(t)
//	x(t+dt) = x(t) + dt v(t+dt)
//
// Accelerations come from one ForceField evaluation over the pre-step state,
// so the update does not depend on agent order.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

// Step mutates every agent's velocity and position. On error no agent is
// modified.
func (e *Euler) Step(field dynamo.ForceField, agents []*dynamo.Agent, walls []dynamo.Wall, dt float64) error {
	if err := dynamo.RequirePositive("dt", dt); err != nil {
		return err
	}

	acc, err := field.Acceleration(agents, walls)
	if err != nil {
		return err
	}
	if len(acc) != len(agents) {
		return fmt.Errorf("%d accelerations for %d agents: %w", len(acc), len(agents), dynamo.ErrDimensionMismatch)
	}

	for i, a := range agents {
		a.Velocity = a.Velocity.Add(acc[i].Scale(dt))
		a.Position = a.Position.Add(a.Velocity.Scale(dt))
	}
	return nil
}
