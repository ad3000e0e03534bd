package phenotype

import (
	"math"

	"github.com/pthm-cable/minions/components"
	"github.com/pthm-cable/minions/genome"
	"github.com/pthm-cable/minions/geom"
	"github.com/pthm-cable/minions/shape"
)

// Growth limits of the minion plan.
const (
	MaxSegments       = 20   // belly segments and their arms stay below this index
	BellyContinuation = 0.75 // chance of growing another belly segment
	BellyArmChance    = 0.5  // chance a belly segment sprouts an arm pair
)

// The order of every generator call below is part of the genetic code:
// reordering reads changes the creature every existing Dna grows into.

func resourcePlan(b *Builder, gen genome.Generator, t geom.Transform, m geom.Motion) {
	var root shape.Shape
	if gen.NextInteger(0, 1) == 0 {
		root = shape.Ball{R: gen.NextFloat(0.4, 1.0)}
	} else {
		r := gen.NextFloat(0.4, 1.0)
		n := gen.NextInteger(3, 8)
		if gen.NextInteger(0, 1) == 1 {
			n = -n
		}
		root = shape.Poly{R: r, N: n}
	}
	b.Start(t, m, root, shape.CounterClockwise)

	leaves := gen.NextInteger(0, 3)
	n := b.Mesh(0).Len()
	for i := 0; i < leaves; i++ {
		leaf := shape.Ball{R: gen.NextFloat(0.1, 0.3)}
		b.Add(0, i*n/max(leaves, 1), leaf, components.Storage)
	}
}

func minionPlan(b *Builder, gen genome.Generator, t geom.Transform, m geom.Motion) {
	root := b.Start(t, m, torsoShape(gen), shape.CounterClockwise)

	// Arms
	n := b.Mesh(root).Len()
	off := max(1, n/5)
	arm := armShape(gen)
	b.AddL(root, off, arm, components.Arm|components.Rudder|components.Joint)
	b.AddR(root, -off, arm, components.Arm|components.Rudder|components.Joint)

	// Head and horns
	head := b.Add(root, 0, headShape(gen),
		components.Head|components.Mouth|components.Sensor|components.Tracker|components.Joint)
	horn := shape.Ball{R: gen.NextFloat(0.08, 0.2)}
	b.AddL(head, 1, horn, components.Sensor)
	b.AddR(head, -1, horn, components.Sensor)

	// Belly chain
	prev := root
	for b.Len() < MaxSegments && gen.NextFloat(0, 1) < BellyContinuation {
		back := b.Mesh(prev).Len() / 2
		belly := b.Add(prev, back, bellyShape(gen), components.Torso|components.Storage|components.Joint)
		// Extra arms only when both fit under the cap.
		if gen.NextFloat(0, 1) < BellyArmChance && b.Len()+2 <= MaxSegments {
			bn := b.Mesh(belly).Len()
			extra := armShape(gen)
			b.AddL(belly, max(1, bn/4), extra, components.Arm|components.Rudder|components.Joint)
			b.AddR(belly, -max(1, bn/4), extra, components.Arm|components.Rudder|components.Joint)
		}
		prev = belly
	}

	// Legs and tail on the last torso piece
	tn := b.Mesh(prev).Len()
	back := tn / 2
	spread := max(1, tn/8)
	leg := shape.Box{R: gen.NextFloat(0.3, 0.7), Ratio: gen.NextFloat(0.2, 0.5)}
	b.AddL(prev, back-spread, leg, components.Leg|components.Thruster|components.Joint)
	b.AddR(prev, back+spread, leg, components.Leg|components.Thruster|components.Joint)
	tail := shape.Star{
		R:      gen.NextFloat(0.3, 0.8),
		N:      gen.NextInteger(2, 3),
		Ratio1: gen.NextFloat(0.2, 0.6),
		Ratio2: gen.NextFloat(0.8, 1.2),
	}
	b.Add(prev, back, tail, components.Tail|components.Brake|components.Joint)
}

func playerPlan(b *Builder, gen genome.Generator, t geom.Transform, m geom.Motion) {
	root := b.Start(t, m, shape.Box{R: gen.NextFloat(0.6, 1.0), Ratio: gen.NextFloat(0.5, 0.8)}, shape.CounterClockwise)
	b.Add(root, 0, headShape(gen),
		components.Head|components.Mouth|components.Sensor|components.Tracker|components.Joint)

	n := b.Mesh(root).Len()
	leg := shape.Box{R: gen.NextFloat(0.3, 0.6), Ratio: gen.NextFloat(0.2, 0.4)}
	b.AddL(root, n/2-1, leg, components.Leg|components.Thruster|components.Joint)
	b.AddR(root, n/2+1, leg, components.Leg|components.Thruster|components.Joint)
	b.Add(root, n/2, shape.Triangle{R: gen.NextFloat(0.3, 0.6), Angle1: 2.4, Angle2: 2*math.Pi - 2.4},
		components.Tail|components.Brake|components.Joint)
}

func sporePlan(b *Builder, gen genome.Generator, t geom.Transform, m geom.Motion) {
	root := b.Start(t, m, shape.Ball{R: gen.NextFloat(0.2, 0.35)}, shape.CounterClockwise)
	b.Add(root, 0, shape.Ball{R: gen.NextFloat(0.05, 0.1)}, components.Sensor)
}

func torsoShape(gen genome.Generator) shape.Shape {
	switch gen.NextInteger(0, 2) {
	case 0:
		return shape.Box{R: gen.NextFloat(0.5, 1.2), Ratio: gen.NextFloat(0.4, 1.0)}
	case 1:
		return shape.Poly{R: gen.NextFloat(0.5, 1.2), N: gen.NextInteger(5, 8)}
	default:
		return shape.Star{
			R:      gen.NextFloat(0.5, 1.2),
			N:      gen.NextInteger(3, 6),
			Ratio1: gen.NextFloat(0.5, 0.9),
			Ratio2: gen.NextFloat(0.9, 1.3),
		}
	}
}

func armShape(gen genome.Generator) shape.Shape {
	return shape.Star{
		R:      gen.NextFloat(0.3, 0.6),
		N:      gen.NextInteger(2, 4),
		Ratio1: gen.NextFloat(0.2, 0.8),
		Ratio2: gen.NextFloat(0.6, 1.4),
	}
}

func headShape(gen genome.Generator) shape.Shape {
	return shape.Triangle{
		R:      gen.NextFloat(0.3, 0.6),
		Angle1: gen.NextFloat(1.8, 2.6),
		Angle2: 2*math.Pi - gen.NextFloat(1.8, 2.6),
	}
}

func bellyShape(gen genome.Generator) shape.Shape {
	if gen.NextInteger(0, 1) == 0 {
		return shape.Ball{R: gen.NextFloat(0.4, 1.0)}
	}
	return shape.Poly{R: gen.NextFloat(0.4, 1.0), N: gen.NextInteger(4, 7)}
}
