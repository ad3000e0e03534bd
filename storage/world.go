// Package storage persists world state as JSON and keeps an archive of
// successful gene sequences.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/minions/agent"
	"github.com/pthm-cable/minions/config"
	"github.com/pthm-cable/minions/genome"
	"github.com/pthm-cable/minions/geom"
	"github.com/pthm-cable/minions/phenotype"
	"github.com/pthm-cable/minions/world"
)

// StateVersion is incremented when the format changes.
const StateVersion = 1

// ErrUnsupportedVersion is returned when a state file has an unknown version.
var ErrUnsupportedVersion = errors.New("unsupported world state version")

// State is the persisted form of a World.
type State struct {
	Version       int         `json:"version"`
	RunID         string      `json:"run_id,omitempty"`
	Arena         ArenaJSON   `json:"arena"`
	Regenerations int         `json:"regenerations"`
	MinionPool    PoolJSON    `json:"minion_pool"`
	ResourcePool  PoolJSON    `json:"resource_pool"`
	Swarms        []SwarmJSON `json:"swarms"`
}

// ArenaJSON holds the arena bounds.
type ArenaJSON struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// PoolJSON holds a gene pool and its read position.
type PoolJSON struct {
	Entries []genome.Dna `json:"entries"`
	Index   int          `json:"index"`
}

// SwarmJSON holds one swarm.
type SwarmJSON struct {
	Seq       uint32      `json:"seq"`
	AgentType uint8       `json:"agent_type"`
	Stream    genome.Dna  `json:"stream,omitzero"`
	Agents    []AgentJSON `json:"agents"`
}

// AgentJSON holds one agent's scalars. Body geometry is regrown from Dna.
type AgentJSON struct {
	ID         uint32        `json:"id"` // seq<<8 | agent type
	X          float64       `json:"x"`
	Y          float64       `json:"y"`
	Angle      float64       `json:"angle"`
	Dna        genome.Dna    `json:"dna"`
	AgeSeconds float64       `json:"age_seconds"`
	AgeFrames  uint64        `json:"age_frames"`
	Flags      uint8         `json:"flags"`
	Maturity   float64       `json:"maturity"`
	Phase      float64       `json:"phase"`
	Energy     float64       `json:"energy"`
	Mate       genome.Dna    `json:"mate,omitzero"`
	Segments   []SegmentJSON `json:"segments"`
}

// SegmentJSON holds a segment's charge levels.
type SegmentJSON struct {
	Charge       float64 `json:"charge"`
	TargetCharge float64 `json:"target_charge"`
}

// Capture builds the persisted form of w at now.
func Capture(w *world.World, now agent.SimulationTime) *State {
	st := &State{
		Version: StateVersion,
		Arena: ArenaJSON{
			MinX: w.Arena.Min.X, MinY: w.Arena.Min.Y,
			MaxX: w.Arena.Max.X, MaxY: w.Arena.Max.Y,
		},
		Regenerations: w.Regenerations,
		MinionPool:    PoolJSON{Entries: w.MinionPool.Entries(), Index: w.MinionPool.Index()},
		ResourcePool:  PoolJSON{Entries: w.ResourcePool.Entries(), Index: w.ResourcePool.Index()},
	}

	for _, s := range w.Swarms {
		if s == nil {
			continue
		}
		sj := SwarmJSON{Seq: s.Seq(), AgentType: uint8(s.Type), Stream: s.Stream()}
		for _, a := range s.Agents() {
			sj.Agents = append(sj.Agents, captureAgent(a, now))
		}
		st.Swarms = append(st.Swarms, sj)
	}
	return st
}

func captureAgent(a *agent.Agent, now agent.SimulationTime) AgentJSON {
	root := a.Root()
	aj := AgentJSON{
		ID:         a.ID.Packed(),
		X:          root.Transform.Position.X,
		Y:          root.Transform.Position.Y,
		Angle:      root.Transform.Angle,
		Dna:        a.Dna,
		AgeSeconds: a.Age.Elapsed,
		AgeFrames:  a.Age.Frame,
		Flags:      uint8(a.Flags),
		Maturity:   a.Maturity,
		Phase:      a.Lifecycle.Phase(now),
		Energy:     a.Energy(),
		Mate:       a.Mate,
		Segments:   make([]SegmentJSON, len(a.Segments)),
	}
	for i := range a.Segments {
		aj.Segments[i] = SegmentJSON{
			Charge:       a.Segments[i].State.Charge,
			TargetCharge: a.Segments[i].State.Target,
		}
	}
	return aj
}

// Restore rebuilds a World from st. Agents are regrown from their Dna and
// then their stored scalars are written back. The fence follows the stored
// arena and feeders are placed inside it from cfg.
func Restore(st *State, cfg *config.Config, rng *rand.Rand, now agent.SimulationTime) (*world.World, error) {
	if st.Version != StateVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, st.Version)
	}
	if st.Arena.MaxX <= st.Arena.MinX || st.Arena.MaxY <= st.Arena.MinY {
		return nil, fmt.Errorf("invalid arena bounds %+v", st.Arena)
	}

	w, err := world.New(cfg, rng)
	if err != nil {
		return nil, fmt.Errorf("creating world: %w", err)
	}
	w.Resize(geom.Rect{
		Min: r2.Vec{X: st.Arena.MinX, Y: st.Arena.MinY},
		Max: r2.Vec{X: st.Arena.MaxX, Y: st.Arena.MaxY},
	}, cfg, rng)
	w.Regenerations = st.Regenerations
	w.MinionPool = restorePool(st.MinionPool)
	w.ResourcePool = restorePool(st.ResourcePool)

	for _, sj := range st.Swarms {
		t := agent.Type(sj.AgentType)
		if int(t) >= agent.NumTypes {
			return nil, fmt.Errorf("swarm has unknown agent type %d", sj.AgentType)
		}
		stream := sj.Stream
		if stream.IsZero() {
			stream = w.Swarms[t].Stream()
		}
		swarm := world.NewSwarm(t, stream)
		swarm.SetSeq(sj.Seq)
		w.Swarms[t] = swarm

		for _, aj := range sj.Agents {
			id := agent.Unpack(aj.ID)
			if id.Type != t {
				return nil, fmt.Errorf("%v stored in the %v swarm", id, t)
			}
			if aj.Dna.IsZero() {
				return nil, fmt.Errorf("%v has no dna", id)
			}
			restoreAgent(w, id, aj, now)
		}
	}
	return w, nil
}

func restorePool(pj PoolJSON) *genome.GenePool {
	p := genome.NewGenePool(pj.Entries...)
	p.SetIndex(pj.Index)
	return p
}

func restoreAgent(w *world.World, id agent.ID, aj AgentJSON, now agent.SimulationTime) {
	tr := geom.Transform{Position: r2.Vec{X: aj.X, Y: aj.Y}, Angle: aj.Angle}
	a := phenotype.Develop(id.Type, genome.New(aj.Dna), id, tr, geom.Motion{}, 0)

	// Registration is per process; the host re-registers loaded agents.
	a.Flags = agent.Flags(aj.Flags) &^ agent.FlagRegistered
	w.Insert(a, now)

	a.Age = agent.SimulationTime{Elapsed: aj.AgeSeconds, Frame: aj.AgeFrames}
	a.Maturity = aj.Maturity
	a.Lifecycle.Start = now.Elapsed
	if !math.IsInf(a.Lifecycle.Duration, 1) {
		a.Lifecycle.Start -= aj.Phase * a.Lifecycle.Duration
	}
	a.Mate = aj.Mate
	for i := range a.Segments {
		if i >= len(aj.Segments) {
			break
		}
		a.Segments[i].State.Charge = aj.Segments[i].Charge
		a.Segments[i].State.Target = aj.Segments[i].TargetCharge
	}
	a.SetEnergy(aj.Energy)
}

// SaveWorld writes w as indented JSON.
func SaveWorld(out io.Writer, w *world.World, now agent.SimulationTime, runID string) error {
	st := Capture(w, now)
	st.RunID = runID
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st); err != nil {
		return fmt.Errorf("encode world: %w", err)
	}
	return nil
}

// LoadWorld decodes a world written by SaveWorld. On error no world is
// returned and the caller's world is untouched.
func LoadWorld(in io.Reader, cfg *config.Config, rng *rand.Rand, now agent.SimulationTime) (*world.World, *State, error) {
	var st State
	if err := json.NewDecoder(in).Decode(&st); err != nil {
		return nil, nil, fmt.Errorf("decode world: %w", err)
	}
	w, err := Restore(&st, cfg, rng, now)
	if err != nil {
		return nil, nil, err
	}
	return w, &st, nil
}

// SaveSnapshot writes w to dir as snapshot_<frame>.json.
// Returns the filepath where it was saved.
func SaveSnapshot(dir string, w *world.World, now agent.SimulationTime, runID string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("snapshot_%d.json", now.Frame))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	if err := SaveWorld(f, w, now, runID); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a world from disk.
func LoadSnapshot(path string, cfg *config.Config, rng *rand.Rand, now agent.SimulationTime) (*world.World, *State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read snapshot: %w", err)
	}
	defer f.Close()
	return LoadWorld(f, cfg, rng, now)
}
