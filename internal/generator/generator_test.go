package generator

import (
	"testing"

	"github.com/verte-zerg/gyrocall/internal/model"
)

func TestSeededSequenceIsReproducible(t *testing.T) {
	a, b := NewSeeded(7), NewSeeded(7)
	for i := 0; i < 20; i++ {
		if x, y := a.Next(), b.Next(); x != y {
			t.Fatalf("expected identical sequences, differ at %d: %s vs %s", i, x, y)
		}
	}
}

func TestNextCoversAllDirections(t *testing.T) {
	g := NewSeeded(1)
	counts := map[model.Direction]int{}
	for i := 0; i < 6000; i++ {
		d := g.Next()
		if !d.Valid() {
			t.Fatalf("unexpected direction %d", int(d))
		}
		counts[d]++
	}
	if len(counts) != 6 {
		t.Fatalf("expected all 6 directions, got %v", counts)
	}
	for d, n := range counts {
		if n < 800 || n > 1200 {
			t.Fatalf("direction %s drawn %d times, expected roughly uniform", d, n)
		}
	}
}
