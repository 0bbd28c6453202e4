package alerts

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"scamguard/internal/domain/models"
	"scamguard/internal/repository"
	"scamguard/internal/streaming"
	"scamguard/pkg/logger"
)

var (
	// ErrNotOwner is returned when a user operates on another user's
	// alert. The alert is left untouched.
	ErrNotOwner = errors.New("alert does not belong to user")

	// ErrTerminalState is returned when a transition targets an alert
	// that already reached a terminal status
	ErrTerminalState = errors.New("alert is in a terminal state")

	// ErrUnknownAction is returned when the requested action id is not
	// offered on the alert
	ErrUnknownAction = errors.New("unknown action")
)

// Manager owns the alert lifecycle: creation, ownership-checked
// transitions, and action execution.
type Manager struct {
	store     repository.AlertStore
	publisher streaming.Publisher
	executor  *ActionExecutor
	logger    *logger.Logger
	now       func() time.Time
}

// NewManager creates the alert lifecycle manager
func NewManager(store repository.AlertStore, publisher streaming.Publisher, log *logger.Logger) *Manager {
	m := &Manager{
		store:     store,
		publisher: publisher,
		logger:    log.WithComponent("alert-manager"),
		now:       time.Now,
	}
	m.executor = NewActionExecutor(m, log)
	return m
}

// CreateAlert fills in lifecycle fields, attaches default actions, stores
// and publishes the alert
func (m *Manager) CreateAlert(ctx context.Context, alert *models.Alert) (*models.Alert, error) {
	if alert.UserID == "" {
		return nil, fmt.Errorf("alert user id is required")
	}

	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	now := m.now()
	if alert.Timestamp.IsZero() {
		alert.Timestamp = now
	}
	alert.Status = models.AlertStatusActive

	// Expiry is fixed from severity at creation and never recomputed
	expiresAt := now.Add(models.ExpiryForSeverity(alert.Severity))
	alert.ExpiresAt = &expiresAt

	if len(alert.Actions) == 0 {
		alert.Actions = defaultActions(alert)
	}
	alert.AppendTimeline("created", string(alert.Source))

	if err := m.store.Put(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to store alert: %w", err)
	}

	m.logger.Info().
		Str("alert_id", alert.ID.String()).
		Str("user_id", alert.UserID).
		Str("type", string(alert.Type)).
		Str("severity", string(alert.Severity)).
		Msg("alert created")

	m.publish(ctx, streaming.EventAlertCreated, alert)
	return alert, nil
}

// CreateFromSignal builds an alert from a detection signal and the rule
// that matched it
func (m *Manager) CreateFromSignal(ctx context.Context, sig *models.Signal, rule *models.AlertRule) (*models.Alert, error) {
	alert := &models.Alert{
		Type:     rule.AlertType,
		Severity: rule.Severity,
		Source:   sig.Source,
		UserID:   sig.UserID,
		Data: models.AlertData{
			Indicator:     sig.Indicator,
			IndicatorType: sig.IndicatorType,
			RiskScore:     sig.RiskScore,
		},
		Metadata: map[string]string{"rule_id": rule.ID},
	}
	if sig.AI != nil {
		alert.Data.Confidence = sig.AI.Confidence
	}
	alert.Title, alert.Message = describeSignal(sig, rule)

	return m.CreateAlert(ctx, alert)
}

// describeSignal generates the user-facing title and message
func describeSignal(sig *models.Signal, rule *models.AlertRule) (title, message string) {
	switch rule.AlertType {
	case models.AlertTypeScam:
		if sig.AI != nil {
			title = fmt.Sprintf("Potential Scam Detected (%d%% confidence)", int(math.Round(sig.AI.Confidence*100)))
		} else {
			title = "Potential Scam Detected"
		}
	case models.AlertTypePhishing:
		title = "Phishing Attempt Detected"
	case models.AlertTypeAccountCompromise:
		title = "Possible Account Compromise"
	case models.AlertTypeBehavioral:
		title = "Unusual Activity Detected"
	case models.AlertTypeThreatIntel:
		title = "Threat Intelligence Alert"
	default:
		title = rule.Name
	}

	if sig.AI != nil && sig.AI.Reasoning != "" {
		message = sig.AI.Reasoning
	} else if sig.Indicator != "" {
		message = fmt.Sprintf("Suspicious %s: %s", sig.IndicatorType, sig.Indicator)
	} else {
		message = rule.Name
	}
	return title, message
}

// defaultActions builds the action set offered on a new alert
func defaultActions(alert *models.Alert) []models.AlertAction {
	actions := []models.AlertAction{
		{ID: "ack", Label: "Acknowledge", Type: models.ActionAcknowledge},
		{ID: "dismiss", Label: "Dismiss", Type: models.ActionDismiss},
	}

	switch alert.Type {
	case models.AlertTypeScam, models.AlertTypePhishing:
		actions = append(actions,
			models.AlertAction{ID: "block", Label: "Block Sender", Type: models.ActionBlockIndicator},
			models.AlertAction{ID: "report", Label: "File Report", Type: models.ActionFileReport},
		)
	case models.AlertTypeAccountCompromise:
		actions = append(actions,
			models.AlertAction{ID: "password", Label: "Change Password", Type: models.ActionChangePassword},
			models.AlertAction{ID: "2fa", Label: "Set Up 2FA", Type: models.ActionSetup2FA},
		)
	}

	if alert.Severity.AtLeast(models.SeverityHigh) {
		actions = append(actions,
			models.AlertAction{ID: "escalate", Label: "Escalate", Type: models.ActionEscalate})
	}
	return actions
}

// Get returns the alert if it belongs to the user
func (m *Manager) Get(ctx context.Context, id uuid.UUID, userID string) (*models.Alert, error) {
	alert, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.UserID != userID {
		return nil, ErrNotOwner
	}
	return alert, nil
}

// ListForUser returns the user's alerts
func (m *Manager) ListForUser(ctx context.Context, userID string, filter repository.AlertFilter) ([]*models.Alert, error) {
	return m.store.ListForUser(ctx, userID, filter)
}

// Acknowledge marks the alert acknowledged
func (m *Manager) Acknowledge(ctx context.Context, id uuid.UUID, userID string) (*models.Alert, error) {
	return m.transition(ctx, id, userID, models.AlertStatusAcknowledged, "acknowledged", "", nil)
}

// Resolve marks the alert resolved with a resolution note
func (m *Manager) Resolve(ctx context.Context, id uuid.UUID, userID, resolution string) (*models.Alert, error) {
	return m.transition(ctx, id, userID, models.AlertStatusResolved, "resolved", resolution, nil)
}

// Dismiss marks the alert dismissed with a reason
func (m *Manager) Dismiss(ctx context.Context, id uuid.UUID, userID, reason string) (*models.Alert, error) {
	return m.transition(ctx, id, userID, models.AlertStatusDismissed, "dismissed", reason, nil)
}

// Escalate raises the alert to critical severity and assigns it to the
// named escalation handler
func (m *Manager) Escalate(ctx context.Context, id uuid.UUID, userID, handler string) (*models.Alert, error) {
	return m.transition(ctx, id, userID, models.AlertStatusEscalated, "escalated", handler,
		func(alert *models.Alert) {
			alert.Severity = models.SeverityCritical
			alert.AssignedTo = handler
		})
}

// transition applies one ownership-checked status change. Every applied
// transition appends exactly one timeline entry; mutate, when non-nil,
// runs inside the same store write.
func (m *Manager) transition(ctx context.Context, id uuid.UUID, userID string, to models.AlertStatus, event, detail string, mutate func(*models.Alert)) (*models.Alert, error) {
	alert, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.UserID != userID {
		return nil, ErrNotOwner
	}
	if alert.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", ErrTerminalState, alert.Status)
	}

	alert.Status = to
	if to == models.AlertStatusAcknowledged {
		at := m.now()
		alert.AcknowledgedAt = &at
	}
	if mutate != nil {
		mutate(alert)
	}
	alert.AppendTimeline(event, detail)

	if err := m.store.Put(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to store transition: %w", err)
	}

	m.logger.Info().
		Str("alert_id", id.String()).
		Str("user_id", userID).
		Str("status", string(to)).
		Msg("alert transitioned")

	m.publish(ctx, streaming.EventAlertUpdated, alert)
	return alert, nil
}

// ExecuteAction runs the named action on the alert. Ownership is checked
// before any side effect; a handler failure leaves the alert unchanged
// except for the action's timeline entry on success.
func (m *Manager) ExecuteAction(ctx context.Context, alertID uuid.UUID, actionID, userID string) (*models.Alert, error) {
	alert, err := m.store.Get(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if alert.UserID != userID {
		return nil, ErrNotOwner
	}

	action, ok := alert.FindAction(actionID)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownAction, actionID)
	}

	if err := m.executor.Execute(ctx, alert, action); err != nil {
		m.logger.Error().Err(err).
			Str("alert_id", alertID.String()).
			Str("action", string(action.Type)).
			Msg("action failed")
		return nil, err
	}

	// The executor may have transitioned the alert; reload before the
	// timeline append so we never clobber its update.
	alert, err = m.store.Get(ctx, alertID)
	if err != nil {
		return nil, err
	}
	alert.AppendTimeline("action_executed", string(action.Type))
	if err := m.store.Put(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to store action result: %w", err)
	}

	m.publish(ctx, streaming.EventAlertUpdated, alert)
	return alert, nil
}

// publish emits an alert event; delivery failures are logged, never fatal
func (m *Manager) publish(ctx context.Context, t streaming.EventType, alert *models.Alert) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, streaming.NewAlertEvent(t, alert)); err != nil {
		m.logger.Warn().Err(err).Str("alert_id", alert.ID.String()).Msg("failed to publish alert event")
	}
}
