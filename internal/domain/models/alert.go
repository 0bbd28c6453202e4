package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertType categorizes what kind of threat an alert describes
type AlertType string

const (
	AlertTypeScam              AlertType = "scam"
	AlertTypePhishing          AlertType = "phishing"
	AlertTypeAccountCompromise AlertType = "account_compromise"
	AlertTypeThreatIntel       AlertType = "threat_intel"
	AlertTypeBehavioral        AlertType = "behavioral"
	AlertTypeSystem            AlertType = "system"
)

// AlertSource identifies which subsystem raised an alert
type AlertSource string

const (
	AlertSourceAIAnalysis  AlertSource = "ai_analysis"
	AlertSourceThreatIntel AlertSource = "threat_intel"
	AlertSourceUserReport  AlertSource = "user_report"
	AlertSourceBehavioral  AlertSource = "behavioral"
)

// AlertStatus describes where an alert is in its lifecycle
type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "active"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
	AlertStatusDismissed    AlertStatus = "dismissed"
	AlertStatusEscalated    AlertStatus = "escalated"
)

// ActionType identifies an executable response attached to an alert
type ActionType string

const (
	ActionAcknowledge    ActionType = "acknowledge"
	ActionDismiss        ActionType = "dismiss"
	ActionBlockIndicator ActionType = "block_indicator"
	ActionFileReport     ActionType = "file_report"
	ActionDeleteMessage  ActionType = "delete_message"
	ActionChangePassword ActionType = "change_password"
	ActionSetup2FA       ActionType = "setup_2fa"
	ActionEscalate       ActionType = "escalate"
)

// AlertAction is one executable response offered on an alert
type AlertAction struct {
	ID    string     `json:"id"`
	Label string     `json:"label"`
	Type  ActionType `json:"type"`
}

// TimelineEntry records one event in an alert's append-only timeline
type TimelineEntry struct {
	At     time.Time `json:"at"`
	Event  string    `json:"event"`
	Detail string    `json:"detail,omitempty"`
}

// Evidence is one item of supporting evidence attached to an alert
type Evidence struct {
	Kind        string `json:"kind"` // "message", "url", "screenshot", "transaction"
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// AlertData is the structured payload carried by an alert
type AlertData struct {
	Indicator       string          `json:"indicator,omitempty"`
	IndicatorType   IndicatorType   `json:"indicator_type,omitempty"`
	Confidence      float64         `json:"confidence,omitempty"`
	RiskScore       float64         `json:"risk_score,omitempty"`
	AffectedAssets  []string        `json:"affected_assets,omitempty"`
	Timeline        []TimelineEntry `json:"timeline,omitempty"`
	Evidence        []Evidence      `json:"evidence,omitempty"`
	RelatedAlertIDs []uuid.UUID     `json:"related_alert_ids,omitempty"`
}

// Alert is the durable unit of user-facing notification
type Alert struct {
	ID             uuid.UUID         `json:"id"`
	Type           AlertType         `json:"type"`
	Severity       Severity          `json:"severity"`
	Title          string            `json:"title"`
	Message        string            `json:"message"`
	Timestamp      time.Time         `json:"timestamp"`
	Source         AlertSource       `json:"source"`
	UserID         string            `json:"user_id"`
	Status         AlertStatus       `json:"status"`
	Data           AlertData         `json:"data"`
	Actions        []AlertAction     `json:"actions,omitempty"`
	AssignedTo     string            `json:"assigned_to,omitempty"`
	AcknowledgedAt *time.Time        `json:"acknowledged_at,omitempty"`
	ExpiresAt      *time.Time        `json:"expires_at,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// ExpiryForSeverity returns how long an alert of the given severity lives.
// Set once at creation and never recomputed.
func ExpiryForSeverity(s Severity) time.Duration {
	switch s {
	case SeverityCritical:
		return 720 * time.Hour
	case SeverityHigh:
		return 168 * time.Hour
	case SeverityMedium:
		return 72 * time.Hour
	case SeverityLow:
		return 48 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// AppendTimeline appends one entry to the alert's timeline. Entries are
// never rewritten or removed.
func (a *Alert) AppendTimeline(event, detail string) {
	a.Data.Timeline = append(a.Data.Timeline, TimelineEntry{
		At:     time.Now(),
		Event:  event,
		Detail: detail,
	})
}

// FindAction returns the action with the given id, if present
func (a *Alert) FindAction(actionID string) (AlertAction, bool) {
	for _, act := range a.Actions {
		if act.ID == actionID {
			return act, true
		}
	}
	return AlertAction{}, false
}

// IsTerminal reports whether the status ends the ordinary lifecycle.
// Escalated alerts may still receive action execution.
func (s AlertStatus) IsTerminal() bool {
	switch s {
	case AlertStatusAcknowledged, AlertStatusResolved, AlertStatusDismissed:
		return true
	default:
		return false
	}
}
