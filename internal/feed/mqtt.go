package feed

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/gyrocall/internal/sensor"
)

const connectTimeout = 10 * time.Second

// MQTTSource reads orientation payloads from an MQTT topic.
type MQTTSource struct {
	Broker   string
	Topic    string
	ClientID string
	QoS      byte
	Log      zerolog.Logger
}

// Run implements sensor.Source.
func (s *MQTTSource) Run(ctx context.Context, sink sensor.Sink) error {
	if s.Broker == "" || s.Topic == "" {
		return fmt.Errorf("mqtt broker and topic are required")
	}
	clientID := s.ClientID
	if clientID == "" {
		clientID = "gyrocall-" + uuid.NewString()[:8]
	}
	opts := mqtt.NewClientOptions().
		AddBroker(s.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			s.Log.Warn().Err(err).Msg("mqtt connection lost")
		}).
		SetOnConnectHandler(func(mqtt.Client) {
			s.Log.Info().Str("broker", s.Broker).Msg("mqtt connected")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("connect to mqtt broker %s: timed out", s.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to mqtt broker %s: %w", s.Broker, err)
	}
	defer client.Disconnect(250)

	token = client.Subscribe(s.Topic, s.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		r, err := Decode(msg.Payload())
		if err != nil {
			s.Log.Debug().Err(err).Str("topic", msg.Topic()).Msg("dropped mqtt message")
			return
		}
		sink.Push(r)
	})
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("subscribe to %s: timed out", s.Topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.Topic, err)
	}
	s.Log.Info().Str("topic", s.Topic).Msg("mqtt subscribed")

	<-ctx.Done()
	client.Unsubscribe(s.Topic).WaitTimeout(time.Second)
	return ctx.Err()
}
