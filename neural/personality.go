package neural

import "github.com/pthm-cable/minions/genome"

// Personality holds the genome-derived thresholds and charge levels that
// turn brain outputs into actuator intents.
type Personality struct {
	Hunger   float64 `json:"hunger"`   // rudder threshold
	Haste    float64 `json:"haste"`    // thruster threshold
	Prudence float64 `json:"prudence"` // brake threshold
	Fear     float64 `json:"fear"`     // run-away force multiplier
	Rest     float64 `json:"rest"`     // idle target charge
	Thrust   float64 `json:"thrust"`   // active target charge
}

// Personality ranges, read in declaration order.
var (
	HungerRange   = [2]float64{0.05, 0.6}
	HasteRange    = [2]float64{0.05, 0.6}
	PrudenceRange = [2]float64{0.05, 0.6}
	FearRange     = [2]float64{0.5, 3}
	RestRange     = [2]float64{0.05, 0.3}
	ThrustRange   = [2]float64{0.5, 1}
)

// NewPersonality reads the six scalars from gen.
func NewPersonality(gen genome.Generator) Personality {
	return Personality{
		Hunger:   gen.NextFloat(HungerRange[0], HungerRange[1]),
		Haste:    gen.NextFloat(HasteRange[0], HasteRange[1]),
		Prudence: gen.NextFloat(PrudenceRange[0], PrudenceRange[1]),
		Fear:     gen.NextFloat(FearRange[0], FearRange[1]),
		Rest:     gen.NextFloat(RestRange[0], RestRange[1]),
		Thrust:   gen.NextFloat(ThrustRange[0], ThrustRange[1]),
	}
}
