// Package genome turns compact byte-string DNA into deterministic streams of
// bounded numbers, and recombines and mutates DNA.
package genome

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"hash/fnv"
	"math/rand"
)

// Dna is an immutable, non-empty byte sequence.
type Dna struct {
	b []byte
}

// NewDna copies b into a new Dna. Panics if b is empty.
func NewDna(b []byte) Dna {
	if len(b) == 0 {
		panic("genome: empty dna")
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return Dna{b: cp}
}

// RandomDna returns n random bytes drawn from rng.
func RandomDna(rng *rand.Rand, n int) Dna {
	if n < 1 {
		panic(fmt.Sprintf("genome: dna length must be positive, got %d", n))
	}
	b := make([]byte, n)
	rng.Read(b)
	return Dna{b: b}
}

// ParseDna decodes a standard base64 string.
func ParseDna(s string) (Dna, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Dna{}, fmt.Errorf("decoding dna: %w", err)
	}
	if len(b) == 0 {
		return Dna{}, fmt.Errorf("decoding dna: empty sequence")
	}
	return Dna{b: b}, nil
}

// Len returns the number of bytes.
func (d Dna) Len() int { return len(d.b) }

// IsZero reports whether d is the zero value (no sequence).
func (d Dna) IsZero() bool { return len(d.b) == 0 }

// At returns the byte at i, reading circularly.
func (d Dna) At(i int) byte {
	return d.b[i%len(d.b)]
}

// Bytes returns a copy of the sequence.
func (d Dna) Bytes() []byte {
	cp := make([]byte, len(d.b))
	copy(cp, d.b)
	return cp
}

// Equal reports whether both sequences hold the same bytes.
func (d Dna) Equal(o Dna) bool {
	return bytes.Equal(d.b, o.b)
}

// Hash returns the FNV-64a hash of the sequence.
func (d Dna) Hash() uint64 {
	h := fnv.New64a()
	h.Write(d.b)
	return h.Sum64()
}

// String returns the standard base64 encoding.
func (d Dna) String() string {
	return base64.StdEncoding.EncodeToString(d.b)
}

// MarshalText encodes the sequence as base64.
func (d Dna) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a base64 sequence. Empty text yields the zero Dna.
func (d *Dna) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Dna{}
		return nil
	}
	parsed, err := ParseDna(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
