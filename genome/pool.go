package genome

// GenePool is an ordered list of seed sequences read round-robin.
type GenePool struct {
	entries []Dna
	index   int
}

// NewGenePool returns a pool holding entries in order.
func NewGenePool(entries ...Dna) *GenePool {
	p := &GenePool{}
	for _, d := range entries {
		p.Add(d)
	}
	return p
}

// Add appends d to the pool. Zero-value sequences are ignored.
func (p *GenePool) Add(d Dna) {
	if d.IsZero() {
		return
	}
	p.entries = append(p.entries, d)
}

// Next returns the entry at the current index and advances it.
// Returns false if the pool is empty.
func (p *GenePool) Next() (Dna, bool) {
	if len(p.entries) == 0 {
		return Dna{}, false
	}
	d := p.entries[p.index%len(p.entries)]
	p.index = (p.index + 1) % len(p.entries)
	return d, true
}

// Len returns the number of entries.
func (p *GenePool) Len() int { return len(p.entries) }

// Index returns the read position.
func (p *GenePool) Index() int { return p.index }

// SetIndex moves the read position, wrapping into range.
func (p *GenePool) SetIndex(i int) {
	if len(p.entries) == 0 || i < 0 {
		p.index = 0
		return
	}
	p.index = i % len(p.entries)
}

// Entries returns a copy of the pool's sequences.
func (p *GenePool) Entries() []Dna {
	out := make([]Dna, len(p.entries))
	copy(out, p.entries)
	return out
}
