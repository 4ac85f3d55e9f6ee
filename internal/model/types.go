// Package model defines shared data structures.
package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// OrientationSample is one device orientation reading in degrees.
// Alpha is the compass heading [0,360), Beta the front-back tilt [-180,180]
// and Gamma the left-right tilt [-90,90].
type OrientationSample struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

// Direction is one of the six commands a round can issue.
type Direction int

// Directions in their canonical order.
const (
	Front Direction = iota
	Back
	Left
	Right
	Up
	Down
)

var directionNames = [...]string{"front", "back", "left", "right", "up", "down"}

// AllDirections returns the six directions in canonical order.
func AllDirections() []Direction {
	return []Direction{Front, Back, Left, Right, Up, Down}
}

// Valid reports whether d is one of the six known directions.
func (d Direction) Valid() bool {
	return d >= Front && d <= Down
}

func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("direction(%d)", int(d))
	}
	return directionNames[d]
}

// ParseDirection converts a lower-case key such as "left" into a Direction.
func ParseDirection(s string) (Direction, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i, name := range directionNames {
		if name == key {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// RoundOutcome records how a single round concluded.
type RoundOutcome struct {
	Direction Direction
	Success   bool
	// Elapsed is the time from round start to resolution.
	Elapsed time.Duration
}

// SessionConfig defines the session settings.
type SessionConfig struct {
	SecondsPerRound float64
	TotalRounds     int

	LeadIn        time.Duration
	Settle        time.Duration
	FrameInterval time.Duration
}

// Default session timings.
const (
	DefaultSecondsPerRound = 3.0
	DefaultTotalRounds     = 10
	DefaultLeadIn          = 500 * time.Millisecond
	DefaultSettle          = time.Second
	DefaultFrameInterval   = 16 * time.Millisecond
)

// DefaultSessionConfig returns the settings a fresh install plays with.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		SecondsPerRound: DefaultSecondsPerRound,
		TotalRounds:     DefaultTotalRounds,
		LeadIn:          DefaultLeadIn,
		Settle:          DefaultSettle,
		FrameInterval:   DefaultFrameInterval,
	}
}

// Validate checks the hard limits on a session configuration.
func (c SessionConfig) Validate() error {
	if !(c.SecondsPerRound > 0) || math.IsInf(c.SecondsPerRound, 0) {
		return fmt.Errorf("seconds per round must be a finite number > 0")
	}
	if c.TotalRounds <= 0 {
		return fmt.Errorf("rounds must be > 0")
	}
	if c.LeadIn < 0 || c.Settle < 0 {
		return fmt.Errorf("lead-in and settle must be >= 0")
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("frame interval must be > 0")
	}
	return nil
}

// RoundDuration converts SecondsPerRound to a duration. Rounds longer than
// a time.Duration can represent are clamped to the maximum.
func (c SessionConfig) RoundDuration() time.Duration {
	if !(c.SecondsPerRound > 0) {
		return 0
	}
	d := c.SecondsPerRound * float64(time.Second)
	if d >= float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// SessionResult summarizes a finished session.
type SessionResult struct {
	CorrectCount int
	TotalCount   int
	History      []RoundOutcome
}

// Permission is the outcome of a sensor capability query.
type Permission int

const (
	// PermissionPending means the query has not resolved yet.
	PermissionPending Permission = iota
	// PermissionAvailable means the sensor needs no consent.
	PermissionAvailable
	// PermissionGranted means consent was requested and given.
	PermissionGranted
	// PermissionDenied means consent was refused.
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionAvailable:
		return "available"
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "pending"
	}
}

// Usable reports whether samples may be used under this permission.
func (p Permission) Usable() bool {
	return p == PermissionAvailable || p == PermissionGranted
}

// ParsePermission converts the wire form of a permission state.
func ParsePermission(s string) (Permission, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "available":
		return PermissionAvailable, nil
	case "granted":
		return PermissionGranted, nil
	case "denied":
		return PermissionDenied, nil
	case "pending", "":
		return PermissionPending, nil
	default:
		return PermissionPending, fmt.Errorf("unknown permission state %q", s)
	}
}
