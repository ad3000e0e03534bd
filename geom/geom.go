// Package geom provides the 2-D transform and vector helpers shared by the
// genome-to-body pipeline and the physics collaborator.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// UnitY is the local forward axis of every body part.
var UnitY = r2.Vec{X: 0, Y: 1}

// Transform is a rigid placement: position plus rotation (radians, CCW).
type Transform struct {
	Position r2.Vec
	Angle    float64
}

// Motion is a rigid body's velocity state.
type Motion struct {
	Linear  r2.Vec
	Angular float64
}

// Apply maps a point from the transform's local frame into world space.
func (t Transform) Apply(local r2.Vec) r2.Vec {
	return r2.Add(t.Position, Rotate(local, t.Angle))
}

// Inverse maps a world point into the transform's local frame.
func (t Transform) Inverse(world r2.Vec) r2.Vec {
	return Rotate(r2.Sub(world, t.Position), -t.Angle)
}

// Forward returns the transform's local +Y axis in world space.
func (t Transform) Forward() r2.Vec {
	return Rotate(UnitY, t.Angle)
}

// Rotate rotates v about the origin by angle radians.
func Rotate(v r2.Vec, angle float64) r2.Vec {
	s, c := math.Sincos(angle)
	return r2.Vec{X: v.X*c - v.Y*s, Y: v.X*s + v.Y*c}
}

// Polar returns the standard polar angle of v.
func Polar(v r2.Vec) float64 {
	return math.Atan2(v.Y, v.X)
}

// ClampLength scales v down so its length does not exceed max.
func ClampLength(v r2.Vec, max float64) r2.Vec {
	n := r2.Norm(v)
	if n <= max || n == 0 {
		return v
	}
	return r2.Scale(max/n, v)
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	Min, Max r2.Vec
}

// CenteredRect returns a rect of the given size centred on the origin.
func CenteredRect(width, height float64) Rect {
	return Rect{
		Min: r2.Vec{X: -width / 2, Y: -height / 2},
		Max: r2.Vec{X: width / 2, Y: height / 2},
	}
}

// Contains reports whether p lies inside the rect (inclusive).
func (r Rect) Contains(p r2.Vec) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Center returns the rect's midpoint.
func (r Rect) Center() r2.Vec {
	return r2.Scale(0.5, r2.Add(r.Min, r.Max))
}

// NormalizeAngle wraps an angle to [-Pi, Pi].
func NormalizeAngle(angle float64) float64 {
	angle = math.Mod(angle, 2*math.Pi)
	if angle > math.Pi {
		angle -= 2 * math.Pi
	} else if angle < -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}

// Clamp clamps v between minVal and maxVal.
func Clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// Clamp01 clamps v to the [0, 1] range.
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}
