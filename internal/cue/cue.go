// Package cue plays the audible side of a session: spoken commands and
// short feedback tones.
package cue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// Tone is a feedback sound.
type Tone int

// Tones played during a session.
const (
	ToneStart Tone = iota
	ToneCorrect
	ToneWrong
)

func (t Tone) String() string {
	switch t {
	case ToneStart:
		return "start"
	case ToneCorrect:
		return "correct"
	case ToneWrong:
		return "wrong"
	default:
		return fmt.Sprintf("tone(%d)", int(t))
	}
}

// ErrNotInitialized is returned when Say or Play is called before Init.
var ErrNotInitialized = errors.New("cue output not initialized")

// Output is a session-scoped speech and tone handle. Init is called once
// when the player confirms calibration, Close when the session ends. Say
// cancels any utterance still playing.
type Output interface {
	Init(ctx context.Context) error
	Say(text string) error
	Play(t Tone) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) Init(context.Context) error { return nil }
func (Nop) Say(string) error           { return nil }
func (Nop) Play(Tone) error            { return nil }
func (Nop) Close() error               { return nil }

// Multi fans calls out to several outputs. Every output is called even if
// an earlier one fails; the errors are joined.
type Multi []Output

func (m Multi) Init(ctx context.Context) error {
	var errs []error
	for _, o := range m {
		errs = append(errs, o.Init(ctx))
	}
	return errors.Join(errs...)
}

func (m Multi) Say(text string) error {
	var errs []error
	for _, o := range m {
		errs = append(errs, o.Say(text))
	}
	return errors.Join(errs...)
}

func (m Multi) Play(t Tone) error {
	var errs []error
	for _, o := range m {
		errs = append(errs, o.Play(t))
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, o := range m {
		errs = append(errs, o.Close())
	}
	return errors.Join(errs...)
}

// Bell rings the terminal bell for start and wrong tones.
type Bell struct {
	mu sync.Mutex
	w  io.Writer
}

// NewBell writes BEL characters to w.
func NewBell(w io.Writer) *Bell {
	return &Bell{w: w}
}

func (b *Bell) Init(context.Context) error { return nil }
func (b *Bell) Say(string) error           { return nil }
func (b *Bell) Close() error               { return nil }

// Play implements Output.
func (b *Bell) Play(t Tone) error {
	if t != ToneStart && t != ToneWrong {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := io.WriteString(b.w, "\a"); err != nil {
		return fmt.Errorf("ring bell: %w", err)
	}
	return nil
}

// Logger records cues as log entries. Headless runs use it in place of
// audio.
type Logger struct {
	log zerolog.Logger
}

// NewLogger returns an Output that logs every cue at debug level.
func NewLogger(log zerolog.Logger) *Logger {
	return &Logger{log: log}
}

func (l *Logger) Init(context.Context) error { return nil }
func (l *Logger) Close() error               { return nil }

func (l *Logger) Say(text string) error {
	l.log.Debug().Str("text", text).Msg("say")
	return nil
}

func (l *Logger) Play(t Tone) error {
	l.log.Debug().Stringer("tone", t).Msg("tone")
	return nil
}
