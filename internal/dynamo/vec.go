package dynamo

import (
	"fmt"
	"math"
)

// Vec2 is a 2D vector in world units.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// V is shorthand for Vec2{x, y}.
func V(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(f float64) Vec2 { return Vec2{v.X * f, v.Y * f} }
func (v Vec2) Neg() Vec2            { return Vec2{-v.X, -v.Y} }
func (v Vec2) Dot(o Vec2) float64   { return v.X*o.X + v.Y*o.Y }
func (v Vec2) Norm() float64        { return math.Hypot(v.X, v.Y) }
func (v Vec2) Dist(o Vec2) float64  { return v.Sub(o).Norm() }
func (v Vec2) String() string       { return fmt.Sprintf("(%g, %g)", v.X, v.Y) }
func (v Vec2) Div(f float64) Vec2   { return Vec2{v.X / f, v.Y / f} }
func (v Vec2) IsZero() bool         { return v.X == 0 && v.Y == 0 }

func (v Vec2) ApproxEqual(o Vec2, tol float64) bool {
	return math.Abs(v.X-o.X) <= tol && math.Abs(v.Y-o.Y) <= tol
}

// Perp rotates v by +90 degrees: (x, y) -> (-y, x).
func (v Vec2) Perp() Vec2 { return Vec2{-v.Y, v.X} }

// Normalize returns v/|v|, or ErrDegenerateGeometry for the zero vector.
func (v Vec2) Normalize() (Vec2, error) {
	n := v.Norm()
	if n == 0 {
		return Vec2{}, ErrDegenerateGeometry
	}
	return v.Div(n), nil
}

func (v Vec2) IsValid() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}
