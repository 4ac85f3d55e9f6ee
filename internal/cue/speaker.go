package cue

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSpeechCommand speaks with espeak-ng. {voice} and {text} are
// substituted per utterance.
const DefaultSpeechCommand = "espeak-ng -v {voice} {text}"

// killWait bounds how long Say waits for the previous process to exit.
const killWait = 500 * time.Millisecond

// Speaker speaks text by running an external text-to-speech command. Only
// one utterance runs at a time; a new Say kills the previous process and
// waits for it to exit before starting the next.
type Speaker struct {
	argv  []string
	voice string
	log   zerolog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	current *utterance
	wg      sync.WaitGroup
}

type utterance struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSpeaker parses command into an argument template. When the template
// has no {text} placeholder the text is appended as the last argument.
func NewSpeaker(command, voice string, log zerolog.Logger) (*Speaker, error) {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return nil, fmt.Errorf("speech command is empty")
	}
	hasText := false
	for _, a := range argv {
		if strings.Contains(a, "{text}") {
			hasText = true
		}
	}
	if !hasText {
		argv = append(argv, "{text}")
	}
	return &Speaker{argv: argv, voice: voice, log: log}, nil
}

// Init checks that the command exists and opens the speaker.
func (s *Speaker) Init(ctx context.Context) error {
	if _, err := exec.LookPath(s.argv[0]); err != nil {
		return fmt.Errorf("speech command %q: %w", s.argv[0], err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		s.ctx, s.cancel = context.WithCancel(ctx)
	}
	return nil
}

// Say implements Output.
func (s *Speaker) Say(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return ErrNotInitialized
	}
	if s.ctx.Err() != nil {
		return fmt.Errorf("speaker closed")
	}
	if s.current != nil {
		s.current.cancel()
		select {
		case <-s.current.done:
		case <-time.After(killWait):
			s.log.Debug().Msg("previous speech command still exiting")
		}
		s.current = nil
	}
	uctx, cancel := context.WithCancel(s.ctx)
	args := s.expand(text)
	cmd := exec.CommandContext(uctx, args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start speech: %w", err)
	}
	u := &utterance{cancel: cancel, done: make(chan struct{})}
	s.current = u
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(u.done)
		defer cancel()
		if err := cmd.Wait(); err != nil && uctx.Err() == nil {
			s.log.Debug().Err(err).Str("text", text).Msg("speech command failed")
		}
	}()
	return nil
}

// Play implements Output. The speaker has no tones.
func (s *Speaker) Play(Tone) error { return nil }

// Close stops any running utterance and waits for it to exit.
func (s *Speaker) Close() error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.current = nil
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

func (s *Speaker) expand(text string) []string {
	out := make([]string, len(s.argv))
	r := strings.NewReplacer("{text}", text, "{voice}", s.voice)
	for i, a := range s.argv {
		out[i] = r.Replace(a)
	}
	return out
}
