package sensor

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/jonboulle/clockwork"
)

// Recorder is a Sink that writes every reading as a recording frame before
// passing it on.
type Recorder struct {
	mu    sync.Mutex
	next  Sink
	enc   *json.Encoder
	clock clockwork.Clock
	start int64
	count int
	err   error
}

// NewRecorder writes frames to w and forwards readings to next (may be nil).
func NewRecorder(w io.Writer, next Sink, clock clockwork.Clock) *Recorder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Recorder{
		next:  next,
		enc:   json.NewEncoder(w),
		clock: clock,
		start: clock.Now().UnixMilli(),
	}
}

// Push implements Sink. Write errors are kept and reported by Err; the
// reading is still forwarded.
func (r *Recorder) Push(reading Reading) bool {
	r.mu.Lock()
	if r.err == nil {
		frame := Frame{OffsetMs: r.clock.Now().UnixMilli() - r.start, Reading: reading}
		if err := r.enc.Encode(frame); err != nil {
			r.err = fmt.Errorf("failed to write frame: %w", err)
		} else {
			r.count++
		}
	}
	r.mu.Unlock()
	if r.next == nil {
		_, ok := reading.Sample()
		return ok
	}
	return r.next.Push(reading)
}

// Count returns the number of frames written.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Err returns the first write error.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
