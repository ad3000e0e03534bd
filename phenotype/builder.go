// Package phenotype grows agents from a genome stream.
package phenotype

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/minions/agent"
	"github.com/pthm-cable/minions/components"
	"github.com/pthm-cable/minions/geom"
	"github.com/pthm-cable/minions/shape"
)

// Builder grows a segment tree. Segments are stored in creation order and
// referenced by index; a child always attaches to an earlier index.
type Builder struct {
	segments []agent.Segment
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Start creates the root segment (core, storage, middle).
func (b *Builder) Start(t geom.Transform, m geom.Motion, s shape.Shape, w shape.Winding) int {
	if len(b.segments) != 0 {
		panic("phenotype: root already started")
	}
	b.segments = append(b.segments, agent.Segment{
		Index:     0,
		Transform: t,
		Motion:    m,
		Mesh:      shape.NewMesh(s, w),
		Tags:      components.Core | components.Storage | components.Middle,
	})
	return 0
}

// Add attaches a middle segment at the parent's vertex offset.
func (b *Builder) Add(parent, vertexOffset int, s shape.Shape, tags components.Tags) int {
	return b.attach(parent, vertexOffset, s, tags|components.Middle, shape.CounterClockwise)
}

// AddL attaches a left segment.
func (b *Builder) AddL(parent, vertexOffset int, s shape.Shape, tags components.Tags) int {
	return b.attach(parent, vertexOffset, s, tags|components.Left, shape.CounterClockwise)
}

// AddR attaches a right segment with a mirrored outline.
func (b *Builder) AddR(parent, vertexOffset int, s shape.Shape, tags components.Tags) int {
	return b.attach(parent, vertexOffset, s, tags|components.Right, shape.Clockwise)
}

func (b *Builder) attach(parent, vertexOffset int, s shape.Shape, tags components.Tags, w shape.Winding) int {
	if parent < 0 || parent >= len(b.segments) {
		panic(fmt.Sprintf("phenotype: attach to missing segment %d (have %d)", parent, len(b.segments)))
	}
	p := &b.segments[parent]
	n := p.Mesh.Len()
	vertex := (vertexOffset%n + n) % n

	radial := geom.Rotate(p.Mesh.Direction(vertex), p.Transform.Angle)
	dist := p.Mesh.RadiusAt(vertex) + s.Radius()
	pos := r2.Add(p.Transform.Position, r2.Scale(dist, radial))

	index := len(b.segments)
	b.segments = append(b.segments, agent.Segment{
		Index:      index,
		Transform:  geom.Transform{Position: pos, Angle: geom.Polar(radial)},
		Motion:     p.Motion,
		Mesh:       shape.NewMesh(s, w),
		Attachment: &components.Attachment{Parent: parent, ParentVertex: vertex},
		Tags:       tags,
	})
	return index
}

// Len returns the number of segments grown so far.
func (b *Builder) Len() int { return len(b.segments) }

// Mesh returns the mesh of segment i.
func (b *Builder) Mesh(i int) shape.Mesh { return b.segments[i].Mesh }

// Segments returns the grown segments.
func (b *Builder) Segments() []agent.Segment { return b.segments }
