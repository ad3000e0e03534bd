package phenotype

import (
	"fmt"
	"image/color"
	"math"

	"github.com/pthm-cable/minions/agent"
	"github.com/pthm-cable/minions/components"
	"github.com/pthm-cable/minions/config"
	"github.com/pthm-cable/minions/genome"
	"github.com/pthm-cable/minions/geom"
	"github.com/pthm-cable/minions/neural"
)

// Develop grows a complete agent of the given type from gen.
// The body plan is read first, then the brain, then the gender.
// The lifecycle timer starts at time zero; the world renews it on insertion.
func Develop(kind agent.Type, gen *genome.Genome, id agent.ID, t geom.Transform, m geom.Motion, charge float64) *agent.Agent {
	if id.Type != kind {
		panic(fmt.Sprintf("phenotype: id %v does not match type %v", id, kind))
	}

	b := NewBuilder()
	switch kind {
	case agent.Resource:
		resourcePlan(b, gen, t, m)
	case agent.Minion:
		minionPlan(b, gen, t, m)
	case agent.Player:
		playerPlan(b, gen, t, m)
	case agent.Spore:
		sporePlan(b, gen, t, m)
	default:
		panic(fmt.Sprintf("phenotype: unknown agent type %v", kind))
	}

	brain := neural.NewBrain(gen)
	gender := agent.Gender(gen.NextInteger(0, 1))

	cfg := config.Cfg()
	a := &agent.Agent{
		ID:         id,
		Gender:     gender,
		Brain:      brain,
		Dna:        gen.Dna(),
		Segments:   b.Segments(),
		Flags:      agent.FlagAlive | agent.FlagActive,
		Lifecycle:  agent.Timer{Duration: Lifecycle(kind).Lifespan},
		Trajectory: agent.NewTrajectory(cfg.Alife.TrajectoryLen),
	}

	charge = geom.Clamp01(charge)
	base := baseLivery(kind, a.Dna)
	var storage float64
	for i := range a.Segments {
		seg := &a.Segments[i]
		seg.Material = materialFor(seg.Tags)
		seg.Livery = liveryFor(base, seg.Tags)
		seg.State.Charge = charge
		seg.State.Target = charge
		if seg.Tags.Has(components.Storage) {
			storage += seg.Mesh.Area()
		}
	}

	a.Limits.MaxEnergy = storage * cfg.Alife.EnergyDensity
	a.SetEnergy(charge * a.Limits.MaxEnergy)
	return a
}

// Lifecycle returns the lifecycle parameters of an agent type.
// Players never expire.
func Lifecycle(kind agent.Type) config.LifecycleConfig {
	cfg := config.Cfg()
	switch kind {
	case agent.Resource:
		return cfg.Resource
	case agent.Spore:
		return cfg.Spore
	case agent.Player:
		lc := cfg.Minion
		lc.Lifespan = math.Inf(1)
		return lc
	default:
		return cfg.Minion
	}
}

func materialFor(tags components.Tags) components.Material {
	cfg := config.Cfg().Physics
	m := components.Material{
		Density:     1,
		Restitution: 0.2,
		Friction:    0.6,
		LinearDamp:  cfg.LinearDamping,
		AngularDamp: cfg.AngularDamping,
	}
	switch {
	case tags.Has(components.Storage):
		m.Density = 1.5
	case tags.Any(components.Actuator):
		m.Density = 0.8
		m.Friction = 0.9
	case tags.Has(components.Sensor):
		m.Density = 0.5
	}
	return m
}

// baseLivery tints the type's base colour by the Dna hash so relatives
// look alike without consuming the genome stream.
func baseLivery(kind agent.Type, dna genome.Dna) components.Livery {
	var c color.RGBA
	switch kind {
	case agent.Resource:
		c = color.RGBA{R: 90, G: 200, B: 90, A: 255}
	case agent.Spore:
		c = color.RGBA{R: 230, G: 220, B: 120, A: 255}
	case agent.Player:
		c = color.RGBA{R: 240, G: 240, B: 240, A: 255}
	default:
		c = color.RGBA{R: 200, G: 110, B: 80, A: 255}
	}
	h := dna.Hash()
	c.R = shift(c.R, int8(h))
	c.G = shift(c.G, int8(h>>8))
	c.B = shift(c.B, int8(h>>16))
	return components.Livery{Albedo: c, Ambient: 0.3, Diffuse: 0.7, Specular: 0.1}
}

func liveryFor(base components.Livery, tags components.Tags) components.Livery {
	l := base
	switch {
	case tags.Has(components.Mouth):
		l.Albedo = color.RGBA{R: 220, G: 60, B: 60, A: 255}
		l.Specular = 0.4
	case tags.Has(components.Sensor):
		l.Specular = 0.6
	case tags.Any(components.Actuator):
		l.Diffuse = 0.9
	}
	return l
}

func shift(c uint8, d int8) uint8 {
	v := int(c) + int(d)/4
	return uint8(max(0, min(255, v)))
}
