// Package agent defines simulated creatures, their body segments and the
// lifecycle bookkeeping shared by the simulation systems.
package agent

import "fmt"

// Type partitions agents into swarms.
type Type uint8

const (
	Resource Type = iota
	Minion
	Player
	Spore

	NumTypes = 4
)

// Types lists every agent type in swarm order.
var Types = [NumTypes]Type{Resource, Minion, Player, Spore}

func (t Type) String() string {
	switch t {
	case Resource:
		return "resource"
	case Minion:
		return "minion"
	case Player:
		return "player"
	case Spore:
		return "spore"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// MaxSeq is the largest sequence number that fits a packed id.
const MaxSeq = 1<<24 - 1

// ID identifies an agent. Ids are unique across the world and never reused.
type ID struct {
	Type Type
	Seq  uint32
}

// NewID builds an id. Panics if seq does not fit the packed form.
func NewID(t Type, seq uint32) ID {
	if seq > MaxSeq {
		panic(fmt.Sprintf("agent: sequence %d overflows packed id", seq))
	}
	return ID{Type: t, Seq: seq}
}

// Packed returns seq<<8 | type.
func (id ID) Packed() uint32 {
	if id.Seq > MaxSeq {
		panic(fmt.Sprintf("agent: sequence %d overflows packed id", id.Seq))
	}
	return id.Seq<<8 | uint32(id.Type)
}

// Unpack reverses Packed.
func Unpack(p uint32) ID {
	return ID{Type: Type(p & 0xff), Seq: p >> 8}
}

// Less orders ids by type, then sequence.
func (id ID) Less(o ID) bool {
	if id.Type != o.Type {
		return id.Type < o.Type
	}
	return id.Seq < o.Seq
}

func (id ID) String() string {
	return fmt.Sprintf("%s#%d", id.Type, id.Seq)
}

// Gender decides mating compatibility.
type Gender uint8

const (
	Female Gender = iota
	Male
)

func (g Gender) String() string {
	if g == Male {
		return "male"
	}
	return "female"
}

// Opposite reports whether g and o can mate.
func (g Gender) Opposite(o Gender) bool { return g != o }
