// Package generator draws the direction for each round.
package generator

import (
	"math/rand"
	"time"

	"github.com/verte-zerg/gyrocall/internal/model"
)

// Generator picks directions uniformly at random. Repeats are allowed.
type Generator struct {
	rnd        *rand.Rand
	directions []model.Direction
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a Generator with a fixed seed for reproducible sessions.
func NewSeeded(seed int64) *Generator {
	return &Generator{
		rnd:        rand.New(rand.NewSource(seed)),
		directions: model.AllDirections(),
	}
}

// Next returns the next direction, drawn independently of earlier ones.
func (g *Generator) Next() model.Direction {
	return g.directions[g.rnd.Intn(len(g.directions))]
}
