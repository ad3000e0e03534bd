package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/pthm-cable/minions/agent"
)

// MemoryArchive is an Archive held in process memory.
type MemoryArchive struct {
	mu      sync.RWMutex
	maxSize int
	halls   [agent.NumTypes][]Entry // sorted by descending fitness
	closed  bool
}

// NewMemoryArchive creates an archive keeping maxSize entries per type.
func NewMemoryArchive(maxSize int) *MemoryArchive {
	return &MemoryArchive{maxSize: max(1, maxSize)}
}

func (s *MemoryArchive) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = false
	return nil
}

func (s *MemoryArchive) Put(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("archive closed")
	}
	if int(e.Type) >= agent.NumTypes {
		return errors.New("archive entry has an unknown agent type")
	}
	s.halls[e.Type] = insertEntry(s.halls[e.Type], e, s.maxSize)
	return nil
}

func (s *MemoryArchive) Top(_ context.Context, t agent.Type, n int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(t) >= agent.NumTypes {
		return nil, nil
	}
	hall := s.halls[t]
	n = min(n, len(hall))
	out := make([]Entry, n)
	copy(out, hall[:n])
	return out, nil
}

func (s *MemoryArchive) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// insertEntry adds an entry to the hall, maintaining sorted order by fitness.
// If the hall is full, the lowest-fitness entry is removed.
func insertEntry(hall []Entry, entry Entry, maxSize int) []Entry {
	// Find insertion point (sorted descending by fitness)
	idx := sort.Search(len(hall), func(i int) bool {
		return hall[i].Fitness < entry.Fitness
	})

	// If hall is full and entry would be last (lowest), skip it
	if len(hall) >= maxSize && idx >= maxSize {
		return hall
	}

	hall = append(hall, Entry{})
	copy(hall[idx+1:], hall[idx:])
	hall[idx] = entry

	if len(hall) > maxSize {
		hall = hall[:maxSize]
	}
	return hall
}
