package agent

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// SimulationTime is the simulation clock value passed into every system call.
type SimulationTime struct {
	Elapsed float64 // seconds since the world started
	Frame   uint64
}

// Advance returns the time one step of dt later.
func (t SimulationTime) Advance(dt float64) SimulationTime {
	return SimulationTime{Elapsed: t.Elapsed + dt, Frame: t.Frame + 1}
}

// Timer measures a duration from a stored start time.
type Timer struct {
	Start    float64
	Duration float64
}

// NewTimer starts a timer at now.
func NewTimer(now SimulationTime, duration float64) Timer {
	return Timer{Start: now.Elapsed, Duration: duration}
}

// Expired reports whether the full duration has elapsed.
func (t Timer) Expired(now SimulationTime) bool {
	return now.Elapsed-t.Start >= t.Duration
}

// Renew restarts the timer at now with its full duration.
func (t *Timer) Renew(now SimulationTime) {
	t.Start = now.Elapsed
}

// Phase returns the elapsed fraction, clamped to [0, 1]. A timer that
// never expires stays at 0.
func (t Timer) Phase(now SimulationTime) float64 {
	if t.Duration <= 0 {
		return 1
	}
	if math.IsInf(t.Duration, 1) {
		return 0
	}
	p := (now.Elapsed - t.Start) / t.Duration
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Trajectory is a fixed-capacity ring of recent positions.
type Trajectory struct {
	points []r2.Vec
	head   int
	n      int
}

// NewTrajectory returns an empty ring holding at most capacity points.
func NewTrajectory(capacity int) *Trajectory {
	if capacity < 1 {
		capacity = 1
	}
	return &Trajectory{points: make([]r2.Vec, capacity)}
}

// Push records p, overwriting the oldest point when full.
func (t *Trajectory) Push(p r2.Vec) {
	t.points[t.head] = p
	t.head = (t.head + 1) % len(t.points)
	if t.n < len(t.points) {
		t.n++
	}
}

// Len returns the number of stored points.
func (t *Trajectory) Len() int { return t.n }

// Points returns the stored points, oldest first.
func (t *Trajectory) Points() []r2.Vec {
	out := make([]r2.Vec, 0, t.n)
	start := (t.head - t.n + len(t.points)) % len(t.points)
	for i := 0; i < t.n; i++ {
		out = append(out, t.points[(start+i)%len(t.points)])
	}
	return out
}

// Last returns the newest point.
func (t *Trajectory) Last() (r2.Vec, bool) {
	if t.n == 0 {
		return r2.Vec{}, false
	}
	return t.points[(t.head-1+len(t.points))%len(t.points)], true
}
