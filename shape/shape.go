// Package shape generates the unit-space polygon outlines of body parts.
//
// Every outline starts with vertex 0 on the +Y axis (the part's forward
// direction) and proceeds counter-clockwise; the clockwise winding mirrors
// the outline across the Y axis.
package shape

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Winding selects the chirality of a generated outline.
type Winding uint8

const (
	CounterClockwise Winding = iota
	Clockwise
)

func (w Winding) String() string {
	if w == Clockwise {
		return "cw"
	}
	return "ccw"
}

const (
	// BallSides is the number of vertices approximating a circle.
	BallSides = 12
	// PolyInnerRadius is the alternate radius of upside-down polygons.
	PolyInnerRadius = 0.75
	// StarMinDamp is the floor of a star's decaying radius factor.
	StarMinDamp = 0.01
)

// Shape describes a body part outline independent of its placement.
type Shape interface {
	// Vertices returns the unit-space outline in the given winding.
	Vertices(w Winding) []r2.Vec
	// Radius is the scale applied to the unit outline.
	Radius() float64
	// Len is the number of vertices.
	Len() int
	// IsConvex reports structural convexity. Shapes that return false
	// are classified from their outline by Mesh.
	IsConvex() bool
}

// point places a vertex at angle theta from +Y with radius r.
func point(theta, r float64, w Winding) r2.Vec {
	s, c := math.Sincos(theta)
	x := -s * r
	if w == Clockwise {
		x = -x
	}
	return r2.Vec{X: x, Y: c * r}
}

func checkRadius(kind string, r float64) {
	if !(r > 0) {
		panic(fmt.Sprintf("shape: %s radius must be positive, got %v", kind, r))
	}
}

// Ball is a circle approximated by a 12-gon.
type Ball struct {
	R float64
}

func (b Ball) Vertices(w Winding) []r2.Vec {
	checkRadius("ball", b.R)
	out := make([]r2.Vec, BallSides)
	for i := range out {
		out[i] = point(2*math.Pi*float64(i)/BallSides, 1, w)
	}
	return out
}

func (b Ball) Radius() float64 { return b.R }
func (b Ball) Len() int         { return BallSides }
func (b Ball) IsConvex() bool   { return true }
func (b Ball) String() string   { return fmt.Sprintf("ball(r=%.3f)", b.R) }

// Box is a rectangle of half-height 1 and half-width Ratio. Its outline
// includes the wall midpoints so they can serve as attachment slots.
type Box struct {
	R     float64
	Ratio float64
}

func (b Box) Vertices(w Winding) []r2.Vec {
	checkRadius("box", b.R)
	if !(b.Ratio > 0) {
		panic(fmt.Sprintf("shape: box ratio must be positive, got %v", b.Ratio))
	}
	x := -b.Ratio
	if w == Clockwise {
		x = b.Ratio
	}
	return []r2.Vec{
		{X: 0, Y: 1},
		{X: x, Y: 1},
		{X: x, Y: 0},
		{X: x, Y: -1},
		{X: 0, Y: -1},
		{X: -x, Y: -1},
		{X: -x, Y: 0},
		{X: -x, Y: 1},
	}
}

func (b Box) Radius() float64 { return b.R }
func (b Box) Len() int         { return 8 }
func (b Box) IsConvex() bool   { return true }
func (b Box) String() string   { return fmt.Sprintf("box(r=%.3f, ratio=%.3f)", b.R, b.Ratio) }

// Poly is a regular |N|-gon. A negative N turns the polygon upside down and
// alternates its vertex radius between 1 and PolyInnerRadius.
type Poly struct {
	R float64
	N int
}

func (p Poly) sides() int {
	if p.N < 0 {
		return -p.N
	}
	return p.N
}

func (p Poly) Vertices(w Winding) []r2.Vec {
	checkRadius("poly", p.R)
	n := p.sides()
	if n < 3 {
		panic(fmt.Sprintf("shape: poly needs at least 3 sides, got %d", p.N))
	}
	out := make([]r2.Vec, n)
	for i := range out {
		theta := 2 * math.Pi * float64(i) / float64(n)
		r := 1.0
		if p.N < 0 {
			theta += math.Pi
			if i%2 == 1 {
				r = PolyInnerRadius
			}
		}
		out[i] = point(theta, r, w)
	}
	return out
}

func (p Poly) Radius() float64 { return p.R }
func (p Poly) Len() int         { return p.sides() }
func (p Poly) IsConvex() bool   { return p.N > 0 }
func (p Poly) String() string   { return fmt.Sprintf("poly(r=%.3f, n=%d)", p.R, p.N) }

// Star has 2N points whose radius decays multiplicatively from point to
// point, alternating between Ratio1 and Ratio2.
type Star struct {
	R      float64
	N      int
	Ratio1 float64
	Ratio2 float64
}

func (s Star) Vertices(w Winding) []r2.Vec {
	checkRadius("star", s.R)
	if s.N < 2 {
		panic(fmt.Sprintf("shape: star needs at least 2 points, got %d", s.N))
	}
	ratios := [2]float64{s.Ratio1, s.Ratio2}
	out := make([]r2.Vec, 2*s.N)
	damp := 1.0
	for i := range out {
		out[i] = point(math.Pi*float64(i)/float64(s.N), damp, w)
		damp = math.Max(damp*ratios[i%2], StarMinDamp)
	}
	return out
}

func (s Star) Radius() float64 { return s.R }
func (s Star) Len() int         { return 2 * s.N }
func (s Star) IsConvex() bool   { return false }
func (s Star) String() string {
	return fmt.Sprintf("star(r=%.3f, n=%d, ratio=%.3f/%.3f)", s.R, s.N, s.Ratio1, s.Ratio2)
}

// Triangle has vertices at angles 0, Angle1 and Angle2 from +Y.
type Triangle struct {
	R      float64
	Angle1 float64
	Angle2 float64
}

func (t Triangle) Vertices(w Winding) []r2.Vec {
	checkRadius("triangle", t.R)
	return []r2.Vec{
		point(0, 1, w),
		point(t.Angle1, 1, w),
		point(t.Angle2, 1, w),
	}
}

func (t Triangle) Radius() float64 { return t.R }
func (t Triangle) Len() int         { return 3 }
func (t Triangle) IsConvex() bool   { return true }
func (t Triangle) String() string {
	return fmt.Sprintf("triangle(r=%.3f, a1=%.3f, a2=%.3f)", t.R, t.Angle1, t.Angle2)
}
