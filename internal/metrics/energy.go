package metrics

import (
	"github.com/san-kum/crowdsim/internal/dynamo"
)

// KineticEnergy is the time-averaged total kinetic energy of the crowd.
type KineticEnergy struct {
	name        string
	samples     int
	totalEnergy float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) Observe(agents []*dynamo.Agent, t float64) {
	e.totalEnergy += Kinetic(agents)
	e.samples++
}

func (e *KineticEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *KineticEnergy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// Kinetic returns sum(0.5 m |v|^2).
func Kinetic(agents []*dynamo.Agent) float64 {
	ke := 0.0
	for _, a := range agents {
		ke += 0.5 * a.Mass * a.Velocity.Dot(a.Velocity)
	}
	return ke
}

// MeanSpeed is the time-averaged mean agent speed.
type MeanSpeed struct {
	name    string
	sum     float64
	samples int
}

func NewMeanSpeed() *MeanSpeed {
	return &MeanSpeed{name: "mean_speed"}
}

func (m *MeanSpeed) Name() string { return m.name }

func (m *MeanSpeed) Observe(agents []*dynamo.Agent, t float64) {
	if len(agents) == 0 {
		return
	}
	s := 0.0
	for _, a := range agents {
		s += a.Speed()
	}
	m.sum += s / float64(len(agents))
	m.samples++
}

func (m *MeanSpeed) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanSpeed) Reset() {
	m.sum = 0
	m.samples = 0
}
