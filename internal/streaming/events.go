// Package streaming delivers alert events to connected clients over
// WebSocket, with an optional NATS bridge for cross-instance fan-out.
package streaming

import (
	"time"

	"github.com/google/uuid"

	"scamguard/internal/domain/models"
)

// EventType identifies the kind of realtime event
type EventType string

const (
	EventAlertCreated EventType = "alert.created"
	EventAlertUpdated EventType = "alert.updated"
	EventAlertExpired EventType = "alert.expired"

	EventPresence EventType = "presence"
	EventTyping   EventType = "typing"

	// Delivery side effects surfaced to the client UI
	EventHaptic   EventType = "haptic"
	EventAnnounce EventType = "announce"

	EventHeartbeat       EventType = "heartbeat"
	EventConnectionState EventType = "connection.state"
)

// AlertEvent is the unit carried over the realtime transport
type AlertEvent struct {
	ID        uuid.UUID      `json:"id"`
	Type      EventType      `json:"type"`
	Channel   string         `json:"channel,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Alert     *models.Alert  `json:"alert,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewAlertEvent builds an event carrying an alert
func NewAlertEvent(t EventType, alert *models.Alert) *AlertEvent {
	return &AlertEvent{
		ID:        uuid.New(),
		Type:      t,
		UserID:    alert.UserID,
		Alert:     alert,
		Timestamp: time.Now(),
	}
}

// Subscription filters which events a client receives. A zero filter
// matches everything addressed to the subscribing user.
type Subscription struct {
	UserID      string          `json:"user_id,omitempty"`
	Types       []EventType     `json:"types,omitempty"`
	MinSeverity models.Severity `json:"min_severity,omitempty"`
}

// Matches reports whether the event passes this subscription's filters
func (s *Subscription) Matches(event *AlertEvent) bool {
	if s.UserID != "" && event.UserID != "" && event.UserID != s.UserID {
		return false
	}
	if len(s.Types) > 0 {
		found := false
		for _, t := range s.Types {
			if t == event.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if s.MinSeverity != "" && event.Alert != nil {
		if !event.Alert.Severity.AtLeast(s.MinSeverity) {
			return false
		}
	}
	return true
}
