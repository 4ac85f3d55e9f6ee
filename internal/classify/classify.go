// Package classify decides whether a device orientation satisfies a
// direction command relative to a calibrated baseline.
package classify

import (
	"math"

	"github.com/verte-zerg/gyrocall/internal/angle"
	"github.com/verte-zerg/gyrocall/internal/model"
)

// Default thresholds in degrees.
const (
	DefaultTolerance     = 40.0
	DefaultTiltThreshold = 30.0
)

// Config holds the matching thresholds. Tolerance bounds the heading
// windows (and the tilt window of Front); TiltThreshold is the minimum tilt
// for Up and Down.
type Config struct {
	Tolerance     float64
	TiltThreshold float64
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{Tolerance: DefaultTolerance, TiltThreshold: DefaultTiltThreshold}
}

// Classifier evaluates samples against a baseline.
type Classifier struct {
	cfg Config
}

// New returns a Classifier. Non-positive thresholds fall back to defaults.
func New(cfg Config) *Classifier {
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	if cfg.TiltThreshold <= 0 {
		cfg.TiltThreshold = DefaultTiltThreshold
	}
	return &Classifier{cfg: cfg}
}

// Deltas returns the heading delta (shortest signed rotation) and tilt delta
// of current relative to baseline.
func Deltas(baseline, current model.OrientationSample) (heading, tilt float64) {
	return angle.Difference(baseline.Alpha, current.Alpha), current.Beta - baseline.Beta
}

// Matches reports whether current satisfies target relative to baseline.
func (c *Classifier) Matches(baseline, current model.OrientationSample, target model.Direction) bool {
	h, t := Deltas(baseline, current)
	tol := c.cfg.Tolerance
	switch target {
	case model.Front:
		return math.Abs(h) < tol && math.Abs(t) < tol
	case model.Back:
		return math.Abs(math.Abs(h)-180) < tol
	case model.Left:
		return h > 90-tol && h < 90+tol
	case model.Right:
		return h > -90-tol && h < -90+tol
	case model.Up:
		return t > c.cfg.TiltThreshold
	case model.Down:
		return t < -c.cfg.TiltThreshold
	default:
		return false
	}
}

// Classify returns every direction the sample currently satisfies, in
// canonical order.
func (c *Classifier) Classify(baseline, current model.OrientationSample) []model.Direction {
	var out []model.Direction
	for _, d := range model.AllDirections() {
		if c.Matches(baseline, current, d) {
			out = append(out, d)
		}
	}
	return out
}
