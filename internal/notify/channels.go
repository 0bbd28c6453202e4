// Package notify implements the per-channel alert delivery providers.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"scamguard/internal/config"
	"scamguard/internal/domain/models"
	"scamguard/internal/streaming"
	"scamguard/pkg/logger"
)

// Channel delivers one alert to one user over a single medium.
// Delivery is fire-and-forget: no receipts, errors are for logging.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, alert *models.Alert, userID string) error
}

// webhookChannel POSTs the alert to a provider endpoint. Push, email and
// SMS all share this shape; only the endpoint and payload framing differ.
type webhookChannel struct {
	name     string
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *logger.Logger
}

func newWebhookChannel(name string, cfg config.ChannelProviderConfig, log *logger.Logger) *webhookChannel {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &webhookChannel{
		name:     name,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
		logger:   log.WithComponent("notify-" + name),
	}
}

func (c *webhookChannel) Name() string {
	return c.name
}

// deliveryPayload is the body POSTed to the provider
type deliveryPayload struct {
	UserID   string          `json:"user_id"`
	Channel  string          `json:"channel"`
	AlertID  string          `json:"alert_id"`
	Type     models.AlertType `json:"type"`
	Severity models.Severity `json:"severity"`
	Title    string          `json:"title"`
	Message  string          `json:"message"`
	SentAt   time.Time       `json:"sent_at"`
}

func (c *webhookChannel) Deliver(ctx context.Context, alert *models.Alert, userID string) error {
	if c.endpoint == "" {
		c.logger.Debug().Str("user_id", userID).Msg("no endpoint configured, skipping delivery")
		return nil
	}

	body, err := json.Marshal(deliveryPayload{
		UserID:   userID,
		Channel:  c.name,
		AlertID:  alert.ID.String(),
		Type:     alert.Type,
		Severity: alert.Severity,
		Title:    alert.Title,
		Message:  alert.Message,
		SentAt:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s delivery failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s provider returned status %d", c.name, resp.StatusCode)
	}

	c.logger.Debug().
		Str("user_id", userID).
		Str("alert_id", alert.ID.String()).
		Msg("alert delivered")
	return nil
}

// NewPushChannel creates the push notification provider channel
func NewPushChannel(cfg config.ChannelProviderConfig, log *logger.Logger) Channel {
	return newWebhookChannel("push", cfg, log)
}

// NewEmailChannel creates the email provider channel
func NewEmailChannel(cfg config.ChannelProviderConfig, log *logger.Logger) Channel {
	return newWebhookChannel("email", cfg, log)
}

// NewSMSChannel creates the SMS provider channel
func NewSMSChannel(cfg config.ChannelProviderConfig, log *logger.Logger) Channel {
	return newWebhookChannel("sms", cfg, log)
}

// inAppChannel publishes the alert through the realtime transport so a
// connected client shows it immediately
type inAppChannel struct {
	publisher streaming.Publisher
	logger    *logger.Logger
}

// NewInAppChannel creates the in-app channel over the streaming hub
func NewInAppChannel(publisher streaming.Publisher, log *logger.Logger) Channel {
	return &inAppChannel{
		publisher: publisher,
		logger:    log.WithComponent("notify-in_app"),
	}
}

func (c *inAppChannel) Name() string {
	return "in_app"
}

func (c *inAppChannel) Deliver(ctx context.Context, alert *models.Alert, userID string) error {
	event := streaming.NewAlertEvent(streaming.EventAlertCreated, alert)
	event.UserID = userID
	return c.publisher.Publish(ctx, event)
}
