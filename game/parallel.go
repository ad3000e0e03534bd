package game

import (
	"runtime"
	"sync"

	"github.com/pthm-cable/minions/agent"
	"github.com/pthm-cable/minions/systems"
	"github.com/pthm-cable/minions/world"
)

// workChunk represents a range of minions for a worker to process.
type workChunk struct {
	start, end int
}

// thinkPool runs AI decisions on a persistent worker pool. Workers only
// read the world; decisions are applied after the barrier in minion order.
type thinkPool struct {
	ai        *systems.AI
	world     *world.World
	minions   []*agent.Agent
	decisions []systems.Decision
	decided   []bool

	numWorkers int
	threshold  int // minion count below which thinking is single-threaded

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

// newThinkPool creates a pool. workers <= 0 uses GOMAXPROCS.
func newThinkPool(ai *systems.AI, workers, threshold int) *thinkPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &thinkPool{
		ai:         ai,
		numWorkers: workers,
		threshold:  threshold,
		minions:    make([]*agent.Agent, 0, 512),
		decisions:  make([]systems.Decision, 0, 512),
		decided:    make([]bool, 0, 512),
	}
}

// startWorkers launches persistent worker goroutines.
func (p *thinkPool) startWorkers() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *thinkPool) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *thinkPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			p.computeChunk(chunk.start, chunk.end)
			p.doneChan <- struct{}{}
		}
	}
}

// run computes and applies one AI pass over every minion of w.
func (p *thinkPool) run(w *world.World) {
	// Phase A: snapshot the minion list (single-threaded)
	p.ai.Prepare(w)
	p.world = w
	p.minions = append(p.minions[:0], w.Agents(agent.Minion)...)

	n := len(p.minions)
	if n == 0 {
		return
	}
	if cap(p.decisions) < n {
		p.decisions = make([]systems.Decision, n)
		p.decided = make([]bool, n)
	}
	p.decisions = p.decisions[:n]
	p.decided = p.decided[:n]

	// Phase B: compute - choose single or parallel based on minion count
	if n < p.threshold || p.numWorkers == 1 {
		p.computeChunk(0, n)
	} else {
		p.computeParallel(n)
	}

	// Phase C: apply decisions (single-threaded, preserves determinism)
	for i, a := range p.minions {
		if p.decided[i] {
			p.decisions[i].Apply(a)
		}
	}
}

// computeParallel dispatches work to the worker pool.
func (p *thinkPool) computeParallel(n int) {
	if !p.running {
		p.startWorkers()
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	chunksDispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		p.workChan <- workChunk{start: start, end: end}
		chunksDispatched++
	}

	// Wait for all chunks to complete
	for i := 0; i < chunksDispatched; i++ {
		<-p.doneChan
	}
}

// computeChunk processes a range of minions for a single worker.
func (p *thinkPool) computeChunk(i0, i1 int) {
	for i := i0; i < i1; i++ {
		p.decisions[i], p.decided[i] = p.ai.Think(p.minions[i], p.world)
	}
}
