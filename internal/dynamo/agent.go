package dynamo

import "fmt"

// Agent is a pedestrian modelled as a self-propelled disc.
//
// Position and Velocity are mutated by a [Stepper] once per step. All other
// fields are fixed for the duration of a run.
type Agent struct {
	Position     Vec2
	Velocity     Vec2
	Goal         Vec2
	DesiredSpeed float64 // v0, preferred walking speed
	Radius       float64
	Mass         float64
	Tau          float64 // relaxation time towards the desired velocity
}

// NewAgent returns an agent at rest. It fails with ErrInvalidParameter for a
// non-positive scalar and with ErrDegenerateGeometry when position == goal.
func NewAgent(position, goal Vec2, desiredSpeed, radius, mass, tau float64) (*Agent, error) {
	a := &Agent{
		Position:     position,
		Goal:         goal,
		DesiredSpeed: desiredSpeed,
		Radius:       radius,
		Mass:         mass,
		Tau:          tau,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if position == goal {
		return nil, fmt.Errorf("agent starts on its goal %v: %w", goal, ErrDegenerateGeometry)
	}
	return a, nil
}

// Validate checks the physical parameters and that the kinematic state is
// finite. It does not reject an agent standing on its goal; that condition
// surfaces from DesiredDirection.
func (a *Agent) Validate() error {
	checks := []struct {
		name string
		v    float64
	}{
		{"desired speed", a.DesiredSpeed},
		{"radius", a.Radius},
		{"mass", a.Mass},
		{"relaxation time", a.Tau},
	}
	for _, c := range checks {
		if err := RequirePositive(c.name, c.v); err != nil {
			return err
		}
	}
	if !a.Position.IsValid() || !a.Velocity.IsValid() || !a.Goal.IsValid() {
		return ErrInvalidState
	}
	return nil
}

// DesiredDirection is the unit vector from Position towards Goal.
func (a *Agent) DesiredDirection() (Vec2, error) {
	e, err := a.Goal.Sub(a.Position).Normalize()
	if err != nil {
		return Vec2{}, fmt.Errorf("agent at goal %v: %w", a.Goal, err)
	}
	return e, nil
}

// DesiredVelocity is DesiredDirection scaled to DesiredSpeed.
func (a *Agent) DesiredVelocity() (Vec2, error) {
	e, err := a.DesiredDirection()
	if err != nil {
		return Vec2{}, err
	}
	return e.Scale(a.DesiredSpeed), nil
}

func (a *Agent) Speed() float64 { return a.Velocity.Norm() }

func (a *Agent) DistanceToGoal() float64 { return a.Position.Dist(a.Goal) }

func (a *Agent) Clone() *Agent {
	c := *a
	return &c
}
