package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/gyrocall/internal/classify"
	"github.com/verte-zerg/gyrocall/internal/config"
	"github.com/verte-zerg/gyrocall/internal/cue"
	"github.com/verte-zerg/gyrocall/internal/gateway"
	"github.com/verte-zerg/gyrocall/internal/generator"
	"github.com/verte-zerg/gyrocall/internal/model"
)

const (
	defaultSource      = sourcePhone
	defaultMQTTTopic   = "gyrocall/orientation"
	defaultNATSSubject = "gyrocall.orientation"
	defaultLogLevel    = "info"

	minRecommendedSeconds = 1.0
	maxRecommendedSeconds = 5.0
	minRecommendedRounds  = 5
	maxRecommendedRounds  = 20
)

type settings struct {
	seconds  float64
	rounds   int
	leadInMs int
	settleMs int
	frameMs  int

	tolerance     float64
	tiltThreshold float64

	source      string
	listen      string
	cert        string
	key         string
	mqttBroker  string
	mqttTopic   string
	natsURL     string
	natsSubject string
	replayFile  string
	loop        bool

	lang        string
	speechCmd   string
	bell        bool
	phrasesFile string

	seed     int64
	logLevel string
}

var opts settings

func bindSettingsFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.Float64Var(&opts.seconds, "seconds", model.DefaultSecondsPerRound, "seconds per round")
	flags.IntVar(&opts.rounds, "rounds", model.DefaultTotalRounds, "rounds per session")
	flags.IntVar(&opts.leadInMs, "lead-in-ms", int(model.DefaultLeadIn/time.Millisecond), "pause between start tone and first command")
	flags.IntVar(&opts.settleMs, "settle-ms", int(model.DefaultSettle/time.Millisecond), "feedback pause between rounds")
	flags.IntVar(&opts.frameMs, "frame-ms", int(model.DefaultFrameInterval/time.Millisecond), "polling interval")
	flags.Float64Var(&opts.tolerance, "tolerance", classify.DefaultTolerance, "heading/tilt tolerance in degrees")
	flags.Float64Var(&opts.tiltThreshold, "tilt-threshold", classify.DefaultTiltThreshold, "tilt needed for up/down in degrees")
	flags.StringVar(&opts.source, "source", defaultSource, "orientation source: phone|mqtt|nats|replay|mock")
	flags.StringVar(&opts.listen, "listen", gateway.DefaultConfig().Addr, "phone gateway listen address")
	flags.StringVar(&opts.cert, "cert", "", "TLS certificate for the phone gateway")
	flags.StringVar(&opts.key, "key", "", "TLS key for the phone gateway")
	flags.StringVar(&opts.mqttBroker, "mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883")
	flags.StringVar(&opts.mqttTopic, "mqtt-topic", defaultMQTTTopic, "MQTT topic carrying orientation")
	flags.StringVar(&opts.natsURL, "nats-url", "", "NATS server URL")
	flags.StringVar(&opts.natsSubject, "nats-subject", defaultNATSSubject, "NATS subject carrying orientation")
	flags.StringVar(&opts.replayFile, "replay", "", "recording to replay (JSON lines)")
	flags.BoolVar(&opts.loop, "loop", false, "loop the replay recording")
	flags.StringVar(&opts.lang, "lang", "", "phrase language (default: from $LANG)")
	flags.StringVar(&opts.speechCmd, "speech-cmd", cue.DefaultSpeechCommand, "text-to-speech command, or none")
	flags.BoolVar(&opts.bell, "bell", false, "ring the terminal bell on start and timeout")
	flags.StringVar(&opts.phrasesFile, "phrases", "", "custom phrase pack (YAML)")
	flags.Int64Var(&opts.seed, "seed", 0, "random seed for targets (0: time based)")
	flags.StringVar(&opts.logLevel, "log-level", defaultLogLevel, "log level")
}

// loadSettings layers config file, then environment, under explicit flags.
func loadSettings(cmd *cobra.Command) (settings, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	envCfg, err := config.LoadEnv()
	if err != nil {
		return settings{}, err
	}
	s := opts
	applyFileConfig(cmd, &s, fileCfg)
	applyEnvConfig(cmd, &s, envCfg)
	if err := validateSettings(s); err != nil {
		return settings{}, err
	}
	return s, nil
}

func applyFileConfig(cmd *cobra.Command, s *settings, f config.FileConfig) {
	applyConfig(cmd, "seconds", &s.seconds, f.Game.SecondsPerRound)
	applyConfig(cmd, "rounds", &s.rounds, f.Game.Rounds)
	applyConfig(cmd, "lead-in-ms", &s.leadInMs, f.Game.LeadInMs)
	applyConfig(cmd, "settle-ms", &s.settleMs, f.Game.SettleMs)
	applyConfig(cmd, "frame-ms", &s.frameMs, f.Game.FrameMs)
	applyConfig(cmd, "tolerance", &s.tolerance, f.Classifier.Tolerance)
	applyConfig(cmd, "tilt-threshold", &s.tiltThreshold, f.Classifier.TiltThreshold)
	applyConfig(cmd, "source", &s.source, f.Sensor.Source)
	applyConfig(cmd, "listen", &s.listen, f.Sensor.Listen)
	applyConfig(cmd, "cert", &s.cert, f.Sensor.CertFile)
	applyConfig(cmd, "key", &s.key, f.Sensor.KeyFile)
	applyConfig(cmd, "mqtt-broker", &s.mqttBroker, f.Sensor.MQTTBroker)
	applyConfig(cmd, "mqtt-topic", &s.mqttTopic, f.Sensor.MQTTTopic)
	applyConfig(cmd, "nats-url", &s.natsURL, f.Sensor.NATSURL)
	applyConfig(cmd, "nats-subject", &s.natsSubject, f.Sensor.NATSSubject)
	applyConfig(cmd, "replay", &s.replayFile, f.Sensor.ReplayFile)
	applyConfig(cmd, "lang", &s.lang, f.Voice.Lang)
	applyConfig(cmd, "speech-cmd", &s.speechCmd, f.Voice.SpeechCmd)
	applyConfig(cmd, "bell", &s.bell, f.Voice.Bell)
	applyConfig(cmd, "phrases", &s.phrasesFile, f.Voice.PhrasesFile)
}

func applyEnvConfig(cmd *cobra.Command, s *settings, e config.EnvConfig) {
	applyConfig(cmd, "source", &s.source, e.Source)
	applyConfig(cmd, "listen", &s.listen, e.Listen)
	applyConfig(cmd, "mqtt-broker", &s.mqttBroker, e.MQTTBroker)
	applyConfig(cmd, "mqtt-topic", &s.mqttTopic, e.MQTTTopic)
	applyConfig(cmd, "nats-url", &s.natsURL, e.NATSURL)
	applyConfig(cmd, "nats-subject", &s.natsSubject, e.NATSSubject)
	applyConfig(cmd, "lang", &s.lang, e.Lang)
	applyConfig(cmd, "speech-cmd", &s.speechCmd, e.SpeechCmd)
	if e.LogLevel != "" {
		applyConfig(cmd, "log-level", &s.logLevel, &e.LogLevel)
	}
}

func applyConfig[T any](cmd *cobra.Command, name string, target, value *T) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func validateSettings(s settings) error {
	if err := s.sessionConfig().Validate(); err != nil {
		return err
	}
	if !(s.tolerance > 0 && s.tolerance < 90) {
		return fmt.Errorf("--tolerance must be between 0 and 90")
	}
	if !(s.tiltThreshold > 0 && s.tiltThreshold < 90) {
		return fmt.Errorf("--tilt-threshold must be between 0 and 90")
	}
	switch s.source {
	case sourcePhone, sourceMock:
	case sourceMQTT:
		if s.mqttBroker == "" {
			return fmt.Errorf("--mqtt-broker is required for the mqtt source")
		}
	case sourceNATS:
	case sourceReplay:
		if s.replayFile == "" {
			return fmt.Errorf("--replay is required for the replay source")
		}
	default:
		return fmt.Errorf("unknown --source %q (want phone, mqtt, nats, replay or mock)", s.source)
	}
	if (s.cert == "") != (s.key == "") {
		return fmt.Errorf("--cert and --key must be set together")
	}
	return nil
}

// warnUnusualSettings logs values outside the recommended ranges.
func warnUnusualSettings(logger zerolog.Logger, s settings) {
	if s.seconds < minRecommendedSeconds || s.seconds > maxRecommendedSeconds {
		logger.Warn().Float64("seconds", s.seconds).Msgf("seconds per round outside the usual %.0f-%.0f", minRecommendedSeconds, maxRecommendedSeconds)
	}
	if s.rounds < minRecommendedRounds || s.rounds > maxRecommendedRounds {
		logger.Warn().Int("rounds", s.rounds).Msgf("rounds outside the usual %d-%d", minRecommendedRounds, maxRecommendedRounds)
	}
}

func (s settings) sessionConfig() model.SessionConfig {
	return model.SessionConfig{
		SecondsPerRound: s.seconds,
		TotalRounds:     s.rounds,
		LeadIn:          time.Duration(s.leadInMs) * time.Millisecond,
		Settle:          time.Duration(s.settleMs) * time.Millisecond,
		FrameInterval:   time.Duration(s.frameMs) * time.Millisecond,
	}
}

func (s settings) classifier() *classify.Classifier {
	return classify.New(classify.Config{Tolerance: s.tolerance, TiltThreshold: s.tiltThreshold})
}

func (s settings) picker() *generator.Generator {
	if s.seed != 0 {
		return generator.NewSeeded(s.seed)
	}
	return generator.New()
}
