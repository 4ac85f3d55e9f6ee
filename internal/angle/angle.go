// Package angle provides wrap-around arithmetic for compass headings.
package angle

import "math"

const fullTurn = 360.0

// Difference returns the signed shortest rotation from target to current in
// degrees. The result lies in (-180, 180].
func Difference(target, current float64) float64 {
	diff := math.Mod(current-target+180, fullTurn) - 180
	if diff <= -180 {
		diff += fullTurn
	}
	return diff
}

// Normalize maps any angle into [0, 360).
func Normalize(a float64) float64 {
	r := math.Mod(a, fullTurn)
	if r < 0 {
		r += fullTurn
	}
	// A tiny negative remainder can round up to exactly 360.
	if r >= fullTurn {
		r = 0
	}
	return r
}
