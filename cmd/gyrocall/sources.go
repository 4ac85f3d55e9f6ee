package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/gyrocall/internal/config"
	"github.com/verte-zerg/gyrocall/internal/cue"
	"github.com/verte-zerg/gyrocall/internal/feed"
	"github.com/verte-zerg/gyrocall/internal/gateway"
	"github.com/verte-zerg/gyrocall/internal/phrases"
	"github.com/verte-zerg/gyrocall/internal/sensor"
)

const (
	sourcePhone  = "phone"
	sourceMQTT   = "mqtt"
	sourceNATS   = "nats"
	sourceReplay = "replay"
	sourceMock   = "mock"
)

// buildSource returns the configured source. gw is non-nil for the phone
// source so callers can show its address and route cues to the page.
func buildSource(s settings, clock clockwork.Clock, logger zerolog.Logger) (sensor.Source, *gateway.Gateway, error) {
	switch s.source {
	case sourcePhone:
		cfg := gateway.DefaultConfig()
		cfg.Addr = s.listen
		cfg.CertFile = s.cert
		cfg.KeyFile = s.key
		gw := gateway.New(cfg, logger.With().Str("component", "gateway").Logger())
		return gw, gw, nil
	case sourceMQTT:
		return &feed.MQTTSource{
			Broker: s.mqttBroker,
			Topic:  s.mqttTopic,
			Log:    logger.With().Str("component", "mqtt").Logger(),
		}, nil, nil
	case sourceNATS:
		return &feed.NATSSource{
			URL:     s.natsURL,
			Subject: s.natsSubject,
			Log:     logger.With().Str("component", "nats").Logger(),
		}, nil, nil
	case sourceReplay:
		frames, err := sensor.LoadRecording(s.replayFile)
		if err != nil {
			return nil, nil, err
		}
		return &sensor.ReplaySource{Frames: frames, Clock: clock, Loop: s.loop}, nil, nil
	case sourceMock:
		src := sensor.NewMockSource()
		src.Clock = clock
		return src, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown source %q", s.source)
	}
}

// buildCue assembles speech, bell and phone outputs. Every cue is also
// logged at debug level.
func buildCue(s settings, pack *phrases.Pack, gw *gateway.Gateway, bellOut io.Writer, logger zerolog.Logger) cue.Output {
	outs := cue.Multi{cue.NewLogger(logger)}
	if cmd := strings.TrimSpace(s.speechCmd); cmd != "" && cmd != "none" {
		speaker, err := cue.NewSpeaker(cmd, pack.Voice, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("speech disabled")
		} else {
			outs = append(outs, speaker)
		}
	}
	if s.bell {
		outs = append(outs, cue.NewBell(bellOut))
	}
	if gw != nil {
		outs = append(outs, gw.Remote(pack.Locale))
	}
	return outs
}

// loadPack picks the phrase pack for the configured language. User packs in
// the config directory and --phrases override the built-in ones.
func loadPack(s settings) (*phrases.Pack, error) {
	bundle, err := loadBundle()
	if err != nil {
		return nil, err
	}
	if s.phrasesFile != "" {
		pack, err := bundle.LoadFile(s.phrasesFile)
		if err != nil {
			return nil, err
		}
		if s.lang == "" {
			return pack, nil
		}
	}
	return bundle.Match(preferredLang(s.lang)), nil
}

func loadBundle() (*phrases.Bundle, error) {
	bundle, err := phrases.LoadEmbedded()
	if err != nil {
		return nil, err
	}
	userPacks, _ := filepath.Glob(filepath.Join(config.DefaultPhrasesDir(), "*.yaml"))
	for _, path := range userPacks {
		if _, err := bundle.LoadFile(path); err != nil {
			return nil, err
		}
	}
	return bundle, nil
}

func preferredLang(flag string) string {
	if flag != "" {
		return flag
	}
	for _, name := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// phoneURLs lists the addresses a phone on the same network can open.
func phoneURLs(addr net.Addr, secure bool) []string {
	scheme := "http"
	if secure {
		scheme = "https"
	}
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return []string{scheme + "://" + addr.String() + "/"}
	}
	port := strconv.Itoa(tcp.Port)
	var hosts []string
	if tcp.IP != nil && !tcp.IP.IsUnspecified() {
		hosts = append(hosts, tcp.IP.String())
	} else {
		hosts = lanIPv4()
	}
	if len(hosts) == 0 {
		hosts = []string{"localhost"}
	}
	urls := make([]string, 0, len(hosts))
	for _, h := range hosts {
		urls = append(urls, fmt.Sprintf("%s://%s/", scheme, net.JoinHostPort(h, port)))
	}
	return urls
}

func lanIPv4() []string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}
	var out []string
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			out = append(out, ip4.String())
		}
	}
	return out
}

func joinURLs(urls []string) string {
	return strings.Join(urls, "  ")
}
