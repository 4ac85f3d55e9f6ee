// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Game       GameConfig       `toml:"game"`
	Classifier ClassifierConfig `toml:"classifier"`
	Sensor     SensorConfig     `toml:"sensor"`
	Voice      VoiceConfig      `toml:"voice"`
}

// GameConfig maps session timing settings.
type GameConfig struct {
	SecondsPerRound *float64 `toml:"seconds-per-round"`
	Rounds          *int     `toml:"rounds"`
	LeadInMs        *int     `toml:"lead-in-ms"`
	SettleMs        *int     `toml:"settle-ms"`
	FrameMs         *int     `toml:"frame-ms"`
}

// ClassifierConfig maps the direction thresholds in degrees.
type ClassifierConfig struct {
	Tolerance     *float64 `toml:"tolerance"`
	TiltThreshold *float64 `toml:"tilt-threshold"`
}

// SensorConfig selects and configures the orientation source.
type SensorConfig struct {
	Source      *string `toml:"source"`
	Listen      *string `toml:"listen"`
	CertFile    *string `toml:"cert"`
	KeyFile     *string `toml:"key"`
	MQTTBroker  *string `toml:"mqtt-broker"`
	MQTTTopic   *string `toml:"mqtt-topic"`
	NATSURL     *string `toml:"nats-url"`
	NATSSubject *string `toml:"nats-subject"`
	ReplayFile  *string `toml:"replay-file"`
}

// VoiceConfig maps speech and tone settings.
type VoiceConfig struct {
	Lang        *string `toml:"lang"`
	SpeechCmd   *string `toml:"speech-cmd"`
	Bell        *bool   `toml:"bell"`
	PhrasesFile *string `toml:"phrases-file"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
