// Package components defines the plain-data parts of a body segment and the
// ECS components used by the reference physics engine.
package components

import "strings"

// Tags is a set of segment roles.
type Tags uint32

// Individual roles.
const (
	Core Tags = 1 << iota
	Head
	Arm
	Leg
	Tail
	Torso
	Storage
	Sensor
	Mouth
	Tracker
	Thruster
	Rudder
	Brake
	Left
	Right
	Middle
	Joint // revolute joint to the parent; otherwise welded
)

// Derived unions.
const (
	Actuator = Thruster | Rudder | Brake
	Symmetry = Left | Right | Middle
)

var tagNames = []struct {
	tag  Tags
	name string
}{
	{Core, "core"},
	{Head, "head"},
	{Arm, "arm"},
	{Leg, "leg"},
	{Tail, "tail"},
	{Torso, "torso"},
	{Storage, "storage"},
	{Sensor, "sensor"},
	{Mouth, "mouth"},
	{Tracker, "tracker"},
	{Thruster, "thruster"},
	{Rudder, "rudder"},
	{Brake, "brake"},
	{Left, "left"},
	{Right, "right"},
	{Middle, "middle"},
	{Joint, "joint"},
}

// Has reports whether every role in o is present.
func (t Tags) Has(o Tags) bool { return t&o == o }

// Any reports whether at least one role in o is present.
func (t Tags) Any(o Tags) bool { return t&o != 0 }

// With returns t with o added.
func (t Tags) With(o Tags) Tags { return t | o }

// Without returns t with o removed.
func (t Tags) Without(o Tags) Tags { return t &^ o }

// IsActuator reports whether the segment can receive a motion intent.
func (t Tags) IsActuator() bool { return t.Any(Actuator) }

// String lists the role names joined by '|'.
func (t Tags) String() string {
	if t == 0 {
		return "none"
	}
	var parts []string
	for _, tn := range tagNames {
		if t.Has(tn.tag) {
			parts = append(parts, tn.name)
		}
	}
	return strings.Join(parts, "|")
}
