package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvConfig holds settings read from GYROCALL_* variables. Unset variables
// leave the pointers nil.
type EnvConfig struct {
	Source      *string `env:"SOURCE"`
	Listen      *string `env:"LISTEN"`
	MQTTBroker  *string `env:"MQTT_BROKER"`
	MQTTTopic   *string `env:"MQTT_TOPIC"`
	NATSURL     *string `env:"NATS_URL"`
	NATSSubject *string `env:"NATS_SUBJECT"`
	Lang        *string `env:"LANG"`
	SpeechCmd   *string `env:"SPEECH_CMD"`
	LogLevel    string  `env:"LOG_LEVEL" envDefault:"info"`
}

const envPrefix = "GYROCALL_"

// LoadEnv loads .env files when present and parses the process environment.
func LoadEnv(files ...string) (EnvConfig, error) {
	// Missing .env files are fine.
	_ = godotenv.Load(files...)
	return ParseEnv(nil)
}

// ParseEnv parses environ, or the process environment when environ is nil.
func ParseEnv(environ map[string]string) (EnvConfig, error) {
	var cfg EnvConfig
	opts := env.Options{Prefix: envPrefix, Environment: environ}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return EnvConfig{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}
