package storage

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/pthm-cable/minions/agent"
	"github.com/pthm-cable/minions/config"
	"github.com/pthm-cable/minions/genome"
)

// Entry is one archived gene sequence with the record of the agent that
// carried it.
type Entry struct {
	ID       string
	RunID    string
	Type     agent.Type
	Dna      genome.Dna
	Fitness  float64
	Children int
	Survival float64 // seconds lived
	Created  time.Time
}

// Archive keeps the fittest sequences per agent type.
type Archive interface {
	Init(ctx context.Context) error
	// Put offers an entry. Entries below the lowest kept fitness of a full
	// type are dropped.
	Put(ctx context.Context, e Entry) error
	// Top returns up to n entries of type t, fittest first.
	Top(ctx context.Context, t agent.Type, n int) ([]Entry, error)
	Close() error
}

// NewArchive returns a SQLite archive when path is set, otherwise an
// in-memory one. size bounds the entries kept per type.
func NewArchive(path string, size int) Archive {
	if path == "" {
		return NewMemoryArchive(size)
	}
	return NewSQLiteArchive(path, size)
}

// NewEntry scores a finished life and stamps it with a fresh id.
func NewEntry(runID string, t agent.Type, dna genome.Dna, children int, survival float64, cfg config.ArchiveConfig) Entry {
	return Entry{
		ID:       uuid.NewString(),
		RunID:    runID,
		Type:     t,
		Dna:      dna,
		Fitness:  Fitness(children, survival, cfg),
		Children: children,
		Survival: survival,
		Created:  time.Now().UTC(),
	}
}

// Fitness is the weighted score of children and survival time.
func Fitness(children int, survival float64, cfg config.ArchiveConfig) float64 {
	return float64(children)*cfg.ChildrenWeight + survival*cfg.SurvivalWeight
}

// Qualifies reports whether a life is worth archiving: it reproduced, or
// it survived a full lifespan.
func Qualifies(children int, survival, lifespan float64) bool {
	return children > 0 || survival >= lifespan
}

// Sample selects an entry using tournament selection.
// Returns false if entries is empty.
func Sample(rng *rand.Rand, entries []Entry) (Entry, bool) {
	if len(entries) == 0 {
		return Entry{}, false
	}

	// Tournament selection with k=3
	const tournamentSize = 3
	best := -1
	for i := 0; i < tournamentSize && i < len(entries); i++ {
		idx := rng.Intn(len(entries))
		if best < 0 || entries[idx].Fitness > entries[best].Fitness {
			best = idx
		}
	}
	return entries[best], true
}

// Seed adds the archive's best sequences of type t to pool.
func Seed(ctx context.Context, a Archive, t agent.Type, n int, pool *genome.GenePool) (int, error) {
	top, err := a.Top(ctx, t, n)
	if err != nil {
		return 0, fmt.Errorf("reading archive: %w", err)
	}
	for _, e := range top {
		pool.Add(e.Dna)
	}
	return len(top), nil
}
