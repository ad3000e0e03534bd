package systems

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/minions/geom"
)

func TestSpatialGridNearest(t *testing.T) {
	g := NewSpatialGrid[int](geom.CenteredRect(100, 100), 10)
	g.Insert(1, r2.Vec{X: 5, Y: 5})
	g.Insert(2, r2.Vec{X: 20, Y: 0})
	g.Insert(3, r2.Vec{X: -30, Y: -30})

	tests := []struct {
		name   string
		p      r2.Vec
		radius float64
		want   int
		found  bool
	}{
		{"closest", r2.Vec{X: 0, Y: 0}, 50, 1, true},
		{"other side", r2.Vec{X: 18, Y: 1}, 50, 2, true},
		{"out of range", r2.Vec{X: 40, Y: 40}, 5, 0, false},
		{"far corner", r2.Vec{X: -45, Y: -45}, 25, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := g.Nearest(tt.p, tt.radius)
			if ok != tt.found {
				t.Fatalf("found = %v, want %v", ok, tt.found)
			}
			if ok && n.Key != tt.want {
				t.Errorf("nearest = %d, want %d", n.Key, tt.want)
			}
		})
	}
}

func TestSpatialGridTiesGoToFirstInserted(t *testing.T) {
	g := NewSpatialGrid[string](geom.CenteredRect(40, 40), 4)
	g.Insert("a", r2.Vec{X: 1, Y: 0})
	g.Insert("b", r2.Vec{X: 1, Y: 0})

	n, ok := g.Nearest(r2.Vec{}, 5)
	if !ok || n.Key != "a" {
		t.Errorf("nearest = %q, want a", n.Key)
	}
}

func TestSpatialGridQueryRadius(t *testing.T) {
	g := NewSpatialGrid[int](geom.CenteredRect(100, 100), 8)
	for i := 0; i < 10; i++ {
		g.Insert(i, r2.Vec{X: float64(i) * 3, Y: 0})
	}
	if g.Len() != 10 {
		t.Fatalf("Len = %d, want 10", g.Len())
	}

	got := g.QueryRadiusInto(nil, r2.Vec{}, 10)
	if len(got) != 4 { // x = 0, 3, 6, 9
		t.Errorf("query returned %d items, want 4", len(got))
	}
	for _, n := range got {
		if n.DistSq > 100 {
			t.Errorf("item %d at distance² %v outside radius", n.Key, n.DistSq)
		}
	}

	g.Clear()
	if g.Len() != 0 || len(g.QueryRadiusInto(nil, r2.Vec{}, 100)) != 0 {
		t.Error("Clear left items behind")
	}
}

func TestSpatialGridClampsOutsidePoints(t *testing.T) {
	g := NewSpatialGrid[int](geom.CenteredRect(20, 20), 5)
	g.Insert(7, r2.Vec{X: 500, Y: -500})

	n, ok := g.Nearest(r2.Vec{X: 500, Y: -500}, 1)
	if !ok || n.Key != 7 {
		t.Error("point outside the arena was lost")
	}
}
