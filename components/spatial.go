package components

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"
)

// Segment identifies the agent segment an ECS body represents.
type Segment struct {
	Agent uint32
	Index int
}

// Body holds a rigid body's collision and inertia properties.
type Body struct {
	Radius      float64 // bounding circle radius
	InvMass     float64
	InvInertia  float64
	LinearDamp  float64
	AngularDamp float64
}

// Kinematics holds a rigid body's pose and velocity.
type Kinematics struct {
	Position r2.Vec
	Angle    float64
	Velocity r2.Vec
	Spin     float64
}

// Link constrains a body to an anchor on its parent body.
type Link struct {
	Parent    ecs.Entity
	Anchor    r2.Vec  // child position in the parent frame
	RestAngle float64 // child angle relative to the parent
	Revolute  bool
	Flex      float64 // revolute deflection from RestAngle
	FlexSpeed float64
}

// Accumulator collects the forces applied to a body during one step.
type Accumulator struct {
	Force   r2.Vec
	Torque  float64
	Impulse r2.Vec
}

// Pose is the physics engine's report of one segment body.
type Pose struct {
	Segment
	Kinematics
}

// Touch is a contact between segments of two different agents.
type Touch struct {
	A, B Contact
}
