package genome

import (
	"fmt"
	"math/rand"
)

// Generator yields bounded numbers. Genome is the deterministic implementation
// driven by DNA; Randomizer is the non-deterministic one driven by an RNG.
type Generator interface {
	// NextFloat returns a value in [min, max).
	NextFloat(min, max float64) float64
	// NextInteger returns a value in [min, max].
	NextInteger(min, max int) int
}

// Genome reads a Dna circularly through a cursor.
// The same Dna and call sequence always yield the same values.
type Genome struct {
	dna    Dna
	cursor int
}

// New returns a Genome positioned at the start of d.
func New(d Dna) *Genome {
	if d.IsZero() {
		panic("genome: empty dna")
	}
	return &Genome{dna: d}
}

// Dna returns the underlying sequence.
func (g *Genome) Dna() Dna { return g.dna }

// Cursor returns the read position (always < Dna length).
func (g *Genome) Cursor() int { return g.cursor }

// Reset rewinds the cursor to 0.
func (g *Genome) Reset() { g.cursor = 0 }

func (g *Genome) nextByte() byte {
	b := g.dna.b[g.cursor]
	g.cursor++
	if g.cursor == len(g.dna.b) {
		g.cursor = 0
	}
	return b
}

// NextFloat reads a big-endian u16 and scales it into [min, max).
func (g *Genome) NextFloat(min, max float64) float64 {
	hi := uint16(g.nextByte())
	lo := uint16(g.nextByte())
	u := float64(hi<<8|lo) / 65536.0
	return min + u*(max-min)
}

// NextInteger reads 1 to 4 bytes depending on the range width and reduces
// the value modulo the width.
func (g *Genome) NextInteger(min, max int) int {
	if max < min {
		panic(fmt.Sprintf("genome: invalid integer range [%d, %d]", min, max))
	}
	width := uint64(max-min) + 1

	var n int
	switch {
	case width <= 1<<8:
		n = 1
	case width <= 1<<16:
		n = 2
	case width <= 1<<24:
		n = 3
	default:
		n = 4
	}

	var v uint64
	for i := 0; i < n; i++ {
		v = v<<8 | uint64(g.nextByte())
	}
	return min + int(v%width)
}

// Crossover recombines g with other at one random bit position inside the
// shorter sequence. A coin flip decides which parent supplies the bits before
// the locus. The result has the shorter length and a fresh cursor.
func (g *Genome) Crossover(rng *rand.Rand, other *Genome) *Genome {
	return New(Crossover(rng, g.dna, other.dna))
}

// Mutate returns a Genome whose Dna differs from g's in exactly one bit.
func (g *Genome) Mutate(rng *rand.Rand) *Genome {
	return New(Mutate(rng, g.dna))
}

// Crossover performs single-locus bit-slice recombination of a and b.
func Crossover(rng *rand.Rand, a, b Dna) Dna {
	n := a.Len()
	if b.Len() < n {
		n = b.Len()
	}
	locus := rng.Intn(n * 8)

	before, after := a.b, b.b
	if rng.Intn(2) == 1 {
		before, after = after, before
	}

	out := make([]byte, n)
	idx, bit := locus/8, uint(locus%8)
	copy(out[:idx], before[:idx])
	mask := byte(0xFF) << (8 - bit) // high bits come from the "before" parent
	out[idx] = before[idx]&mask | after[idx]&^mask
	copy(out[idx+1:], after[idx+1:n])

	return Dna{b: out}
}

// Mutate flips one random bit of d.
func Mutate(rng *rand.Rand, d Dna) Dna {
	out := d.Bytes()
	bit := rng.Intn(len(out) * 8)
	out[bit/8] ^= 1 << (7 - uint(bit%8))
	return Dna{b: out}
}

// Randomizer implements Generator on top of an RNG.
type Randomizer struct {
	rng *rand.Rand
}

// NewRandomizer wraps rng.
func NewRandomizer(rng *rand.Rand) *Randomizer {
	return &Randomizer{rng: rng}
}

// NextFloat returns a uniform value in [min, max).
func (r *Randomizer) NextFloat(min, max float64) float64 {
	return min + r.rng.Float64()*(max-min)
}

// NextInteger returns a uniform value in [min, max].
func (r *Randomizer) NextInteger(min, max int) int {
	if max < min {
		panic(fmt.Sprintf("genome: invalid integer range [%d, %d]", min, max))
	}
	return min + r.rng.Intn(max-min+1)
}
