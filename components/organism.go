package components

import "gonum.org/v1/gonum/spatial/r2"

// IntentKind is the per-tick decision of an actuator segment.
type IntentKind uint8

const (
	IntentIdle IntentKind = iota
	IntentMove
	IntentBrake
	IntentRunAway
)

func (k IntentKind) String() string {
	switch k {
	case IntentMove:
		return "move"
	case IntentBrake:
		return "brake"
	case IntentRunAway:
		return "run_away"
	default:
		return "idle"
	}
}

// Intent is a motion request applied at a segment's centre.
// Move and Brake are continuous forces; RunAway is an impulse.
type Intent struct {
	Kind  IntentKind
	Force r2.Vec
}

// Contact references a segment of another agent.
type Contact struct {
	Agent   uint32 // packed agent id
	Segment int
}

// ChargeState tracks a segment's activation level and latest interaction.
type ChargeState struct {
	Charge  float64 // in [0, 1]
	Target  float64 // value Charge is smoothed towards
	Intent  Intent
	Touched bool // LastTouched is valid for the current tick
	// LastTouched is the foreign segment reported by the last physics step.
	LastTouched Contact
}
