package analysis

import (
	"math"

	"github.com/san-kum/crowdsim/internal/dynamo"
)

// SpeedSeries is the mean agent speed of every frame.
func SpeedSeries(frames []dynamo.Frame) []float64 {
	out := make([]float64, len(frames))
	for i, f := range frames {
		out[i] = f.MeanSpeed()
	}
	return out
}

// Crossing records an agent passing the gate between two recorded frames.
// Dir is +1 for a crossing towards increasing x, -1 otherwise.
type Crossing struct {
	Agent int
	Time  float64
	Dir   int
}

// GateCrossings scans consecutive frames for agents whose x coordinate passes
// gateX. The crossing time is interpolated linearly between the frames.
func GateCrossings(frames []dynamo.Frame, gateX float64) []Crossing {
	var out []Crossing
	for k := 1; k < len(frames); k++ {
		prev, cur := frames[k-1], frames[k]
		n := min(len(prev.Agents), len(cur.Agents))
		for i := 0; i < n; i++ {
			x0, x1 := prev.Agents[i].Position.X-gateX, cur.Agents[i].Position.X-gateX
			if x0 == x1 || (x0 < 0) == (x1 < 0) {
				continue
			}
			frac := x0 / (x0 - x1)
			c := Crossing{Agent: i, Time: prev.Time + frac*(cur.Time-prev.Time), Dir: 1}
			if x1 < x0 {
				c.Dir = -1
			}
			out = append(out, c)
		}
	}
	return out
}

// FlowRate is the net number of gate crossings per second over the span of
// the frames.
func FlowRate(frames []dynamo.Frame, gateX float64) float64 {
	if len(frames) < 2 {
		return 0
	}
	span := frames[len(frames)-1].Time - frames[0].Time
	if span <= 0 {
		return 0
	}
	net := 0
	for _, c := range GateCrossings(frames, gateX) {
		net += c.Dir
	}
	return float64(net) / span
}

// Density counts agents inside the box [lo, hi] per unit area.
func Density(f dynamo.Frame, lo, hi dynamo.Vec2) float64 {
	area := (hi.X - lo.X) * (hi.Y - lo.Y)
	if area <= 0 {
		return 0
	}
	n := 0
	for _, a := range f.Agents {
		p := a.Position
		if p.X >= lo.X && p.X <= hi.X && p.Y >= lo.Y && p.Y <= hi.Y {
			n++
		}
	}
	return float64(n) / area
}

type PathStats struct {
	Length       float64
	Displacement float64
	// Efficiency is Displacement/Length, 1 for a straight walk.
	Efficiency float64
}

// Paths measures how far each agent walked and how directly.
func Paths(frames []dynamo.Frame) []PathStats {
	if len(frames) == 0 {
		return nil
	}
	out := make([]PathStats, len(frames[0].Agents))
	for k := 1; k < len(frames); k++ {
		for i := range out {
			if i < len(frames[k].Agents) && i < len(frames[k-1].Agents) {
				out[i].Length += frames[k].Agents[i].Position.Dist(frames[k-1].Agents[i].Position)
			}
		}
	}
	last := frames[len(frames)-1]
	for i := range out {
		if i < len(last.Agents) {
			out[i].Displacement = last.Agents[i].Position.Dist(frames[0].Agents[i].Position)
		}
		if out[i].Length > 0 {
			out[i].Efficiency = out[i].Displacement / out[i].Length
		}
	}
	return out
}

type Report struct {
	Frames         int
	Duration       float64
	MeanSpeed      float64
	PeakSpeed      float64
	SpeedFrequency float64
	Crossings      int
	FlowRate       float64
	MeanEfficiency float64
}

// Analyze summarises a run. Frames are assumed evenly spaced in time.
func Analyze(frames []dynamo.Frame, gateX float64) Report {
	r := Report{Frames: len(frames)}
	if len(frames) == 0 {
		return r
	}
	r.Duration = frames[len(frames)-1].Time - frames[0].Time

	speeds := SpeedSeries(frames)
	sum := 0.0
	for _, s := range speeds {
		sum += s
		r.PeakSpeed = math.Max(r.PeakSpeed, s)
	}
	r.MeanSpeed = sum / float64(len(speeds))
	if len(frames) > 1 {
		r.SpeedFrequency = DominantFrequency(speeds, r.Duration/float64(len(frames)-1))
	}

	r.Crossings = len(GateCrossings(frames, gateX))
	r.FlowRate = FlowRate(frames, gateX)

	paths := Paths(frames)
	if len(paths) > 0 {
		eff := 0.0
		for _, p := range paths {
			eff += p.Efficiency
		}
		r.MeanEfficiency = eff / float64(len(paths))
	}
	return r
}
