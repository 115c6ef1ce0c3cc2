package metrics

import (
	"math"

	"github.com/san-kum/crowdsim/internal/dynamo"
)

// MaxOverlap tracks the deepest body interpenetration (rSum - d) seen between
// any two agents. It stays 0 when agents never touch.
type MaxOverlap struct {
	name string
	max  float64
}

func NewMaxOverlap() *MaxOverlap {
	return &MaxOverlap{name: "max_overlap"}
}

func (m *MaxOverlap) Name() string { return m.name }

func (m *MaxOverlap) Observe(agents []*dynamo.Agent, t float64) {
	for i := 0; i < len(agents); i++ {
		for j := 0; j < i; j++ {
			overlap := agents[i].Radius + agents[j].Radius - agents[i].Position.Dist(agents[j].Position)
			m.max = math.Max(m.max, overlap)
		}
	}
}

func (m *MaxOverlap) Value() float64 { return m.max }
func (m *MaxOverlap) Reset()         { m.max = 0 }

// WallClearance is the smallest gap between an agent's body and a wall over
// the run. Negative values mean an agent pushed into a wall.
type WallClearance struct {
	name    string
	walls   []dynamo.Wall
	min     float64
	samples int
}

func NewWallClearance(walls []dynamo.Wall) *WallClearance {
	return &WallClearance{name: "wall_clearance", walls: walls, min: math.Inf(1)}
}

func (w *WallClearance) Name() string { return w.name }

func (w *WallClearance) Observe(agents []*dynamo.Agent, t float64) {
	if len(w.walls) == 0 {
		return
	}
	for _, a := range agents {
		for _, wall := range w.walls {
			w.min = math.Min(w.min, wall.Distance(a.Position)-a.Radius)
		}
	}
	w.samples++
}

// Value is 0 when there were no walls or no samples.
func (w *WallClearance) Value() float64 {
	if w.samples == 0 || math.IsInf(w.min, 1) {
		return 0
	}
	return w.min
}

func (w *WallClearance) Reset() {
	w.min = math.Inf(1)
	w.samples = 0
}

// Arrivals is the fraction of agents within radius of their goal at the most
// recent observation.
type Arrivals struct {
	name     string
	radius   float64
	fraction float64
}

func NewArrivals(radius float64) *Arrivals {
	return &Arrivals{name: "arrived", radius: radius}
}

func (a *Arrivals) Name() string { return a.name }

func (a *Arrivals) Observe(agents []*dynamo.Agent, t float64) {
	if len(agents) == 0 {
		a.fraction = 0
		return
	}
	n := 0
	for _, ag := range agents {
		if ag.DistanceToGoal() <= a.radius {
			n++
		}
	}
	a.fraction = float64(n) / float64(len(agents))
}

func (a *Arrivals) Value() float64 { return a.fraction }
func (a *Arrivals) Reset()         { a.fraction = 0 }
