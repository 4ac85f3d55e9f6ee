package main

import (
	"bytes"
	"context"
	"errors"
	"math"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/gyrocall/internal/config"
	"github.com/verte-zerg/gyrocall/internal/sensor"
)

func parsedCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	opts = settings{}
	cmd := &cobra.Command{Use: "test"}
	bindSettingsFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd
}

func TestPrecedenceFlagEnvFile(t *testing.T) {
	cmd := parsedCmd(t, "--rounds", "7")
	s := opts

	fileRounds, fileSeconds, fileSource := 12, 2.0, "mqtt"
	applyFileConfig(cmd, &s, config.FileConfig{
		Game:   config.GameConfig{Rounds: &fileRounds, SecondsPerRound: &fileSeconds},
		Sensor: config.SensorConfig{Source: &fileSource},
	})
	envSource := "nats"
	applyEnvConfig(cmd, &s, config.EnvConfig{Source: &envSource})

	if s.rounds != 7 {
		t.Fatalf("expected flag to win, got %d rounds", s.rounds)
	}
	if s.seconds != 2.0 {
		t.Fatalf("expected file seconds, got %v", s.seconds)
	}
	if s.source != "nats" {
		t.Fatalf("expected env source over file, got %q", s.source)
	}
}

func TestValidateSettings(t *testing.T) {
	parsedCmd(t)
	base := opts
	if err := validateSettings(base); err != nil {
		t.Fatalf("expected defaults to be valid, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*settings)
		want   string
	}{
		{"rounds", func(s *settings) { s.rounds = 0 }, "rounds"},
		{"seconds nan", func(s *settings) { s.seconds = math.NaN() }, "seconds"},
		{"seconds inf", func(s *settings) { s.seconds = math.Inf(1) }, "seconds"},
		{"tolerance", func(s *settings) { s.tolerance = 0 }, "--tolerance"},
		{"tolerance nan", func(s *settings) { s.tolerance = math.NaN() }, "--tolerance"},
		{"source", func(s *settings) { s.source = "bluetooth" }, "unknown --source"},
		{"mqtt", func(s *settings) { s.source = sourceMQTT }, "--mqtt-broker"},
		{"replay", func(s *settings) { s.source = sourceReplay }, "--replay"},
		{"tls", func(s *settings) { s.cert = "cert.pem" }, "--cert and --key"},
	}
	for _, tc := range cases {
		s := base
		tc.mutate(&s)
		err := validateSettings(s)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestWarnUnusualSettingsUsesGivenLogger(t *testing.T) {
	parsedCmd(t)
	s := opts
	s.rounds = 40
	var buf bytes.Buffer
	warnUnusualSettings(zerolog.New(&buf), s)
	if !strings.Contains(buf.String(), "rounds outside the usual") {
		t.Fatalf("expected rounds warning, got %q", buf.String())
	}
	buf.Reset()
	warnUnusualSettings(zerolog.New(&buf), opts)
	if buf.Len() != 0 {
		t.Fatalf("expected no warnings for defaults, got %q", buf.String())
	}
}

func TestPhoneURLs(t *testing.T) {
	addr := &net.TCPAddr{IP: net.ParseIP("192.168.1.20"), Port: 8090}
	got := phoneURLs(addr, false)
	if len(got) != 1 || got[0] != "http://192.168.1.20:8090/" {
		t.Fatalf("unexpected urls %v", got)
	}
	got = phoneURLs(addr, true)
	if got[0] != "https://192.168.1.20:8090/" {
		t.Fatalf("expected https url, got %v", got)
	}
}

func TestWaitForSampleReturnsFirstSample(t *testing.T) {
	sampler := sensor.NewSampler()
	sampler.Push(sensor.NewReading(45, 10, 0))
	s, err := waitForSample(context.Background(), clockwork.NewRealClock(), sampler, time.Second, nil)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if s.Alpha != 45 || s.Beta != 10 {
		t.Fatalf("unexpected sample %+v", s)
	}
}

func TestWaitForSampleSourceEnded(t *testing.T) {
	srcErr := make(chan error, 1)
	srcErr <- nil
	_, err := waitForSample(context.Background(), clockwork.NewRealClock(), sensor.NewSampler(), time.Minute, srcErr)
	if !errors.Is(err, errSourceEnded) {
		t.Fatalf("expected source ended error, got %v", err)
	}
}

func TestWaitForSampleTimeout(t *testing.T) {
	_, err := waitForSample(context.Background(), clockwork.NewRealClock(), sensor.NewSampler(), 20*time.Millisecond, nil)
	if err == nil || !strings.Contains(err.Error(), "within") {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestConfigTemplateIsValidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := config.LoadConfig(path); err != nil {
		t.Fatalf("expected template to parse, got %v", err)
	}
}

func TestLoadPackHonoursLang(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	pack, err := loadPack(settings{lang: "zh_CN.UTF-8"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if pack.Locale != "zh-CN" {
		t.Fatalf("expected zh pack, got %s", pack.Locale)
	}
}
