package sensor

import (
	"context"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
)

const defaultMockInterval = 20 * time.Millisecond

// MockSource generates smooth synthetic motion: a slow heading sweep with a
// gentle tilt oscillation. Useful for demos without a phone.
type MockSource struct {
	Clock    clockwork.Clock
	Interval time.Duration
}

// NewMockSource returns a MockSource on the real clock.
func NewMockSource() *MockSource {
	return &MockSource{Clock: clockwork.NewRealClock(), Interval: defaultMockInterval}
}

// Run implements Source.
func (m *MockSource) Run(ctx context.Context, sink Sink) error {
	clock := m.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	interval := m.Interval
	if interval <= 0 {
		interval = defaultMockInterval
	}
	start := clock.Now()
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.Chan():
			sink.Push(mockPose(now.Sub(start).Seconds()))
		}
	}
}

func mockPose(elapsed float64) Reading {
	return NewReading(
		math.Mod(elapsed*45, 360),
		40*math.Sin(elapsed*0.7),
		20*math.Sin(elapsed),
	)
}
