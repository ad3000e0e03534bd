// Package neural provides the fixed-topology feed-forward brain of minions.
package neural

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/pthm-cable/minions/genome"
)

// Network dimensions.
const (
	NumInputs  = 4 // neck angle, forward bearing, lateral bearing, reserved
	NumOutputs = 4 // left rudder, right rudder, thrust, brake
	NumLayers  = 3

	layerSize = NumInputs * NumOutputs
)

// Weight range read from the genome.
const (
	MinWeight = -2.0
	MaxWeight = 2.0
)

// Brain is a three-layer 4x4 feed-forward network with personality scalars.
// Weights and personality are fixed for the agent's lifetime.
type Brain struct {
	Personality
	W [NumLayers][layerSize]float64 // row-major, layer order
}

// NewBrain reads the personality and then every weight from gen.
func NewBrain(gen genome.Generator) *Brain {
	b := &Brain{Personality: NewPersonality(gen)}
	for l := range b.W {
		for i := range b.W[l] {
			b.W[l][i] = gen.NextFloat(MinWeight, MaxWeight)
		}
	}
	return b
}

// Response maps a sensor vector to actuator outputs in (-1, 1).
func (b *Brain) Response(sensor [NumInputs]float64) [NumOutputs]float64 {
	x := sensor
	for l := range b.W {
		x = b.layer(l, x)
	}
	return x
}

func (b *Brain) layer(l int, in [NumInputs]float64) [NumOutputs]float64 {
	var out [NumOutputs]float64
	blas64.Gemv(blas.NoTrans, 1,
		blas64.General{Rows: NumOutputs, Cols: NumInputs, Stride: NumInputs, Data: b.W[l][:]},
		blas64.Vector{N: NumInputs, Inc: 1, Data: in[:]},
		0,
		blas64.Vector{N: NumOutputs, Inc: 1, Data: out[:]},
	)
	for i := range out {
		out[i] = softsign(out[i])
	}
	return out
}

// Activations holds captured intermediate layer values.
type Activations struct {
	Inputs [NumInputs]float64
	Layers [NumLayers][NumOutputs]float64 // output of each layer after activation
}

// ResponseWithCapture computes Response and captures every layer's output.
func (b *Brain) ResponseWithCapture(sensor [NumInputs]float64) ([NumOutputs]float64, *Activations) {
	act := &Activations{Inputs: sensor}
	x := sensor
	for l := range b.W {
		x = b.layer(l, x)
		act.Layers[l] = x
	}
	return x, act
}

// Clone creates a deep copy of the brain.
func (b *Brain) Clone() *Brain {
	clone := *b
	return &clone
}

// softsign is x/(1+|x|): bounded in (-1, 1) with no transcendental calls.
func softsign(x float64) float64 {
	if x < 0 {
		return x / (1 - x)
	}
	return x / (1 + x)
}

// BrainWeights holds flattened network weights for serialization.
type BrainWeights struct {
	Personality Personality `json:"personality"`
	W           []float64   `json:"w"` // [NumLayers * NumInputs * NumOutputs]
}

// MarshalWeights flattens the brain for JSON serialization.
func (b *Brain) MarshalWeights() BrainWeights {
	bw := BrainWeights{
		Personality: b.Personality,
		W:           make([]float64, 0, NumLayers*layerSize),
	}
	for l := range b.W {
		bw.W = append(bw.W, b.W[l][:]...)
	}
	return bw
}

// UnmarshalWeights restores weights from flattened form. Missing trailing
// weights are left unchanged.
func (b *Brain) UnmarshalWeights(bw BrainWeights) {
	b.Personality = bw.Personality
	for l := range b.W {
		for i := range b.W[l] {
			if k := l*layerSize + i; k < len(bw.W) {
				b.W[l][i] = bw.W[k]
			}
		}
	}
}
