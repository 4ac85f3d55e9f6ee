package cue

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type failing struct{ Nop }

func (failing) Say(string) error { return errors.New("no voice") }

type counting struct {
	Nop
	says  int
	tones []Tone
}

func (c *counting) Say(string) error { c.says++; return nil }
func (c *counting) Play(t Tone) error {
	c.tones = append(c.tones, t)
	return nil
}

func TestMultiCallsEveryOutput(t *testing.T) {
	c := &counting{}
	m := Multi{failing{}, c}
	if err := m.Say("left"); err == nil {
		t.Fatalf("expected joined error")
	}
	if c.says != 1 {
		t.Fatalf("expected second output to still be called, got %d", c.says)
	}
	if err := m.Play(ToneCorrect); err != nil {
		t.Fatalf("unexpected play error: %v", err)
	}
	if len(c.tones) != 1 || c.tones[0] != ToneCorrect {
		t.Fatalf("unexpected tones: %v", c.tones)
	}
}

func TestBellRingsOnStartAndWrong(t *testing.T) {
	var buf bytes.Buffer
	b := NewBell(&buf)
	for _, tone := range []Tone{ToneStart, ToneCorrect, ToneWrong} {
		if err := b.Play(tone); err != nil {
			t.Fatalf("play %s: %v", tone, err)
		}
	}
	if buf.String() != "\a\a" {
		t.Fatalf("expected two bells, got %q", buf.String())
	}
}

func TestSpeakerExpandsTemplate(t *testing.T) {
	s, err := NewSpeaker("say -v {voice}", "cmn", zerolog.Nop())
	if err != nil {
		t.Fatalf("new speaker: %v", err)
	}
	got := s.expand("向左")
	want := []string{"say", "-v", "cmn", "向左"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if _, err := NewSpeaker("  ", "", zerolog.Nop()); err == nil {
		t.Fatalf("expected error for empty command")
	}
}

func TestSpeakerRequiresInit(t *testing.T) {
	s, err := NewSpeaker("echo {text}", "", zerolog.Nop())
	if err != nil {
		t.Fatalf("new speaker: %v", err)
	}
	if err := s.Say("hi"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestSpeakerCancelsInFlightUtterance(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	s, err := NewSpeaker("sleep {text}", "", zerolog.Nop())
	if err != nil {
		t.Fatalf("new speaker: %v", err)
	}
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := s.Say("30"); err != nil {
		t.Fatalf("first say: %v", err)
	}
	first := s.current
	if err := s.Say("30"); err != nil {
		t.Fatalf("second say: %v", err)
	}
	select {
	case <-first.done:
	default:
		t.Fatalf("expected the first utterance to have exited before the second started")
	}
	done := make(chan struct{})
	go func() {
		_ = s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("expected close to kill running utterances")
	}
	if err := s.Say("1"); err == nil {
		t.Fatalf("expected error after close")
	}
}
