package shape

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// collinearEpsilon bounds cross products treated as straight turns.
const collinearEpsilon = 1e-12

// Mesh is a Shape with its generated outline, winding and convexity.
// The outline is shared between copies and must not be modified.
type Mesh struct {
	shape    Shape
	winding  Winding
	vertices []r2.Vec
	convex   bool
}

// NewMesh generates the outline of s. Panics on degenerate parameters.
func NewMesh(s Shape, w Winding) Mesh {
	verts := s.Vertices(w)
	convex := s.IsConvex()
	if !convex {
		convex = Convex(verts)
	}
	return Mesh{shape: s, winding: w, vertices: verts, convex: convex}
}

// Shape returns the descriptor the mesh was generated from.
func (m Mesh) Shape() Shape { return m.shape }

// Winding returns the outline chirality.
func (m Mesh) Winding() Winding { return m.winding }

// Len returns the vertex count.
func (m Mesh) Len() int { return len(m.vertices) }

// Radius returns the shape's scale.
func (m Mesh) Radius() float64 { return m.shape.Radius() }

// Convex reports whether the outline is convex.
func (m Mesh) Convex() bool { return m.convex }

// Vertex returns unit-space vertex i, wrapping i into range.
func (m Mesh) Vertex(i int) r2.Vec {
	n := len(m.vertices)
	return m.vertices[((i%n)+n)%n]
}

// Vertices returns a copy of the unit-space outline.
func (m Mesh) Vertices() []r2.Vec {
	out := make([]r2.Vec, len(m.vertices))
	copy(out, m.vertices)
	return out
}

// Scaled returns the outline scaled by the shape's radius.
func (m Mesh) Scaled() []r2.Vec {
	r := m.Radius()
	out := make([]r2.Vec, len(m.vertices))
	for i, v := range m.vertices {
		out[i] = r2.Scale(r, v)
	}
	return out
}

// RadiusAt returns the distance from the centre to vertex i in local units.
func (m Mesh) RadiusAt(i int) float64 {
	return r2.Norm(m.Vertex(i)) * m.Radius()
}

// Direction returns the unit vector from the centre towards vertex i.
func (m Mesh) Direction(i int) r2.Vec {
	v := m.Vertex(i)
	if r2.Norm(v) == 0 {
		return r2.Vec{X: 0, Y: 1}
	}
	return r2.Unit(v)
}

// BoundingRadius returns the largest vertex distance in local units.
func (m Mesh) BoundingRadius() float64 {
	var best float64
	for i := range m.vertices {
		best = math.Max(best, m.RadiusAt(i))
	}
	return best
}

// Area returns the enclosed area in local units.
func (m Mesh) Area() float64 {
	var sum float64
	n := len(m.vertices)
	for i := 0; i < n; i++ {
		sum += r2.Cross(m.vertices[i], m.vertices[(i+1)%n])
	}
	r := m.Radius()
	return math.Abs(sum) / 2 * r * r
}

// Convex classifies a closed outline by the turn direction of consecutive
// edges. Collinear turns are ignored.
func Convex(verts []r2.Vec) bool {
	n := len(verts)
	if n < 3 {
		return false
	}
	var sign float64
	for i := 0; i < n; i++ {
		e1 := r2.Sub(verts[(i+1)%n], verts[i])
		e2 := r2.Sub(verts[(i+2)%n], verts[(i+1)%n])
		c := r2.Cross(e1, e2)
		if math.Abs(c) < collinearEpsilon {
			continue
		}
		if sign == 0 {
			sign = c
			continue
		}
		if (c > 0) != (sign > 0) {
			return false
		}
	}
	return true
}
