// Package sensor holds the latest device orientation and the sources that
// feed it.
package sensor

import (
	"math"
	"sync"

	"github.com/verte-zerg/gyrocall/internal/angle"
	"github.com/verte-zerg/gyrocall/internal/model"
)

// Reading is a raw device-orientation event. Alpha and Beta are required;
// Gamma defaults to 0 when absent.
type Reading struct {
	Alpha *float64 `json:"alpha"`
	Beta  *float64 `json:"beta"`
	Gamma *float64 `json:"gamma"`
}

// NewReading builds a complete Reading from plain values.
func NewReading(alpha, beta, gamma float64) Reading {
	return Reading{Alpha: &alpha, Beta: &beta, Gamma: &gamma}
}

// Sample validates the reading. It reports false when a required axis is
// missing or not finite.
func (r Reading) Sample() (model.OrientationSample, bool) {
	if !finite(r.Alpha) || !finite(r.Beta) {
		return model.OrientationSample{}, false
	}
	s := model.OrientationSample{
		Alpha: angle.Normalize(*r.Alpha),
		Beta:  *r.Beta,
	}
	if finite(r.Gamma) {
		s.Gamma = *r.Gamma
	}
	return s, true
}

func finite(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

// Sink receives readings from a Source.
type Sink interface {
	Push(r Reading) bool
}

// Sampler is a single latest-value cell. Writers overwrite, readers see the
// most recent valid sample; nothing is queued.
type Sampler struct {
	mu      sync.RWMutex
	latest  model.OrientationSample
	have    bool
	updates uint64
	dropped uint64
}

// NewSampler returns an empty Sampler.
func NewSampler() *Sampler {
	return &Sampler{}
}

// Push stores the reading if it is valid and reports whether it was kept.
// Malformed readings leave the previous sample in place.
func (s *Sampler) Push(r Reading) bool {
	sample, ok := r.Sample()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok {
		s.dropped++
		return false
	}
	s.latest = sample
	s.have = true
	s.updates++
	return true
}

// Latest returns the most recent valid sample. ok is false until the first
// valid reading arrives.
func (s *Sampler) Latest() (model.OrientationSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.have
}

// Updates returns the number of accepted and dropped readings.
func (s *Sampler) Updates() (accepted, dropped uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updates, s.dropped
}
