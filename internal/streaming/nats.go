package streaming

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"scamguard/internal/config"
	"scamguard/pkg/logger"
)

// NATSBridge fans alert events out across instances. Each instance
// publishes its own events and receives every sibling's; the hub stays
// fully functional with the bridge disabled.
type NATSBridge struct {
	conn       *nats.Conn
	subject    string
	instanceID string
	logger     *logger.Logger

	mu        sync.RWMutex
	connected bool
	sub       *nats.Subscription
}

// NewNATSBridge connects to NATS. Returns (nil, nil) when the bridge is
// disabled in configuration.
func NewNATSBridge(cfg config.NATSConfig, instanceID string, log *logger.Logger) (*NATSBridge, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	log = log.WithComponent("nats-bridge")

	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	subject := cfg.SubjectBase
	if subject == "" {
		subject = "scamguard.alerts"
	}

	log.Info().Str("url", cfg.URL).Str("subject", subject).Msg("connecting to NATS")

	conn, err := nats.Connect(cfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info().Msg("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSBridge{
		conn:       conn,
		subject:    subject,
		instanceID: instanceID,
		logger:     log,
		connected:  true,
	}, nil
}

// bridgeEnvelope wraps an event with its origin instance so inbound
// delivery can skip events this instance published itself
type bridgeEnvelope struct {
	Origin string      `json:"origin"`
	Event  *AlertEvent `json:"event"`
}

// PublishOutbound sends an event to sibling instances
func (b *NATSBridge) PublishOutbound(_ context.Context, event *AlertEvent) error {
	if !b.IsConnected() {
		return fmt.Errorf("NATS not connected")
	}

	data, err := json.Marshal(bridgeEnvelope{Origin: b.instanceID, Event: event})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return b.conn.Publish(b.subject, data)
}

// SubscribeInbound registers a handler for events from sibling instances.
// The subscription detaches when ctx is done.
func (b *NATSBridge) SubscribeInbound(ctx context.Context, handler Handler) {
	sub, err := b.conn.Subscribe(b.subject, func(msg *nats.Msg) {
		var env bridgeEnvelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			b.logger.Warn().Err(err).Msg("failed to unmarshal bridged event")
			return
		}
		if env.Origin == b.instanceID || env.Event == nil {
			return
		}
		handler(env.Event)
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to subscribe to alert subject")
		return
	}

	b.mu.Lock()
	b.sub = sub
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		if err := sub.Unsubscribe(); err != nil {
			b.logger.Warn().Err(err).Msg("failed to unsubscribe")
		}
	}()
}

// IsConnected returns whether the bridge connection is up
func (b *NATSBridge) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected && b.conn.IsConnected()
}

// Close shuts the NATS connection down
func (b *NATSBridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		b.conn.Close()
		b.connected = false
	}
}
