package sensor

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// Frame is one line of a recording: a reading and its offset from the start
// of the recording in milliseconds.
type Frame struct {
	OffsetMs int64 `json:"t_ms"`
	Reading
}

// ParseRecording reads JSON-lines frames. Blank lines and lines starting
// with '#' are skipped. Offsets must not decrease.
func ParseRecording(r io.Reader) ([]Frame, error) {
	scanner := bufio.NewScanner(r)
	var frames []Frame
	lineNo := 0
	var last int64
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var f Frame
		if err := json.Unmarshal([]byte(line), &f); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if f.OffsetMs < last {
			return nil, fmt.Errorf("line %d: offset %d before previous %d", lineNo, f.OffsetMs, last)
		}
		last = f.OffsetMs
		frames = append(frames, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recording: %w", err)
	}
	return frames, nil
}

// LoadRecording reads a recording file.
func LoadRecording(path string) ([]Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}
	defer func() { _ = f.Close() }()
	frames, err := ParseRecording(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return frames, nil
}

// ReplaySource plays frames back at their recorded pace.
type ReplaySource struct {
	Frames []Frame
	Clock  clockwork.Clock
	// Loop restarts the recording after the last frame.
	Loop bool
}

// Run implements Source. Without Loop it returns nil after the last frame.
func (r *ReplaySource) Run(ctx context.Context, sink Sink) error {
	if len(r.Frames) == 0 {
		return fmt.Errorf("recording has no frames")
	}
	clock := r.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	for {
		start := clock.Now()
		for _, f := range r.Frames {
			wait := time.Duration(f.OffsetMs)*time.Millisecond - clock.Since(start)
			if wait > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-clock.After(wait):
				}
			} else if err := ctx.Err(); err != nil {
				return err
			}
			sink.Push(f.Reading)
		}
		if !r.Loop {
			return nil
		}
	}
}
