package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/hooplab/draftroom/go/internal/draft/events"
)

// NATSConfig holds connection settings for the NATS-backed bus.
type NATSConfig struct {
	URL           string
	SubjectPrefix string // e.g. "draftroom.changes"
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns the default NATS bus configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "draftroom.changes",
		MaxReconnects: -1, // infinite
		ReconnectWait: 2 * time.Second,
	}
}

// NATS is a Bus backed by core NATS pub/sub. Change notifications are
// fire-and-forget: a subscriber that was offline re-reads everything on its
// next cycle anyway, so no replay is needed.
type NATS struct {
	nc     *nats.Conn
	config NATSConfig
}

// ConnectNATS connects to NATS and returns a bus over it.
func ConnectNATS(config NATSConfig) (*NATS, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATS{nc: nc, config: config}, nil
}

func (b *NATS) subject(kind events.ChangeKind) string {
	return fmt.Sprintf("%s.%s", b.config.SubjectPrefix, kind)
}

func (b *NATS) Publish(_ context.Context, change events.Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}
	if err := b.nc.Publish(b.subject(change.Kind), data); err != nil {
		return fmt.Errorf("failed to publish %s change: %w", change.Kind, err)
	}
	return nil
}

func (b *NATS) Subscribe(kind events.ChangeKind, h Handler) (func(), error) {
	sub, err := b.nc.Subscribe(b.subject(kind), func(msg *nats.Msg) {
		var change events.Change
		if err := json.Unmarshal(msg.Data, &change); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject).Msg("dropping malformed change notification")
			return
		}
		h(change)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s changes: %w", kind, err)
	}

	return func() {
		if err := sub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Str("subject", b.subject(kind)).Msg("failed to unsubscribe")
		}
	}, nil
}

func (b *NATS) Close() {
	b.nc.Close()
}
