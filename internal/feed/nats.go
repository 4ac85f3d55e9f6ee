package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/gyrocall/internal/sensor"
)

// NATSSource reads orientation payloads from a NATS subject.
type NATSSource struct {
	URL     string
	Subject string
	Log     zerolog.Logger
}

// Run implements sensor.Source.
func (s *NATSSource) Run(ctx context.Context, sink sensor.Sink) error {
	if s.Subject == "" {
		return fmt.Errorf("nats subject is required")
	}
	url := s.URL
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.Name("gyrocall"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			s.Log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			s.Log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connect to nats %s: %w", url, err)
	}
	defer nc.Close()

	sub, err := nc.Subscribe(s.Subject, func(msg *nats.Msg) {
		r, err := Decode(msg.Data)
		if err != nil {
			s.Log.Debug().Err(err).Str("subject", msg.Subject).Msg("dropped nats message")
			return
		}
		sink.Push(r)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.Subject, err)
	}
	s.Log.Info().Str("url", url).Str("subject", s.Subject).Msg("nats subscribed")

	<-ctx.Done()
	if err := sub.Unsubscribe(); err != nil {
		s.Log.Debug().Err(err).Msg("nats unsubscribe")
	}
	return ctx.Err()
}
