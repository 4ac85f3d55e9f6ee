package gateway

import (
	"context"

	"github.com/verte-zerg/gyrocall/internal/cue"
)

// Remote is a cue.Output that speaks and plays tones on the phone.
type Remote struct {
	gw   *Gateway
	lang string
}

// Remote returns a cue output that forwards to the connected phone. lang is
// the BCP 47 tag handed to the phone's speech synthesizer.
func (g *Gateway) Remote(lang string) *Remote {
	return &Remote{gw: g, lang: lang}
}

func (r *Remote) Init(context.Context) error { return nil }
func (r *Remote) Close() error               { return nil }

// Say implements cue.Output. Without a phone the text is dropped.
func (r *Remote) Say(text string) error {
	r.gw.send(outbound{Type: msgSay, Text: text, Lang: r.lang})
	return nil
}

// Play implements cue.Output.
func (r *Remote) Play(t cue.Tone) error {
	r.gw.send(outbound{Type: msgTone, Kind: t.String()})
	return nil
}
