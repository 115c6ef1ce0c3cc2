package dynamo

import (
	"fmt"
	"math"
)

// Wall is a line-segment obstacle between A and B.
type Wall struct {
	A Vec2 `json:"a"`
	B Vec2 `json:"b"`
}

// NewWall rejects segments whose endpoints coincide.
func NewWall(a, b Vec2) (Wall, error) {
	w := Wall{A: a, B: b}
	if err := w.Validate(); err != nil {
		return Wall{}, err
	}
	return w, nil
}

func (w Wall) Validate() error {
	if !w.A.IsValid() || !w.B.IsValid() {
		return ErrInvalidState
	}
	if w.A == w.B {
		return fmt.Errorf("wall endpoints coincide at %v: %w", w.A, ErrDegenerateGeometry)
	}
	return nil
}

// ClosestPoint projects p onto the segment, clamping the projection
// parameter to [0, 1]. A degenerate wall yields A.
func (w Wall) ClosestPoint(p Vec2) Vec2 {
	d := w.B.Sub(w.A)
	l2 := d.Dot(d)
	if l2 == 0 {
		return w.A
	}
	t := p.Sub(w.A).Dot(d) / l2
	t = math.Min(math.Max(t, 0), 1)
	return w.A.Add(d.Scale(t))
}

// Distance from p to the nearest point of the segment.
func (w Wall) Distance(p Vec2) float64 {
	return p.Dist(w.ClosestPoint(p))
}

func (w Wall) Length() float64 { return w.A.Dist(w.B) }
