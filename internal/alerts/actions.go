package alerts

import (
	"context"
	"fmt"
	"sync"

	"scamguard/internal/domain/models"
	"scamguard/pkg/logger"
)

// ActionExecutor runs alert response actions. Each handler runs inside a
// panic recovery boundary so one broken handler cannot take out the
// request or corrupt the alert.
type ActionExecutor struct {
	manager *Manager
	logger  *logger.Logger

	mu      sync.RWMutex
	blocked map[string]bool
}

// NewActionExecutor creates the executor bound to its manager
func NewActionExecutor(manager *Manager, log *logger.Logger) *ActionExecutor {
	return &ActionExecutor{
		manager: manager,
		logger:  log.WithComponent("action-executor"),
		blocked: make(map[string]bool),
	}
}

// Execute runs one action against the alert
func (e *ActionExecutor) Execute(ctx context.Context, alert *models.Alert, action models.AlertAction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action %s panicked: %v", action.Type, r)
		}
	}()

	switch action.Type {
	case models.ActionAcknowledge:
		_, err = e.manager.Acknowledge(ctx, alert.ID, alert.UserID)
	case models.ActionDismiss:
		_, err = e.manager.Dismiss(ctx, alert.ID, alert.UserID, "dismissed via action")
	case models.ActionEscalate:
		// User-triggered escalations go to the default support queue
		_, err = e.manager.Escalate(ctx, alert.ID, alert.UserID, "support")
	case models.ActionBlockIndicator:
		err = e.blockIndicator(ctx, alert)
	case models.ActionFileReport:
		err = e.fileReport(ctx, alert)
	case models.ActionDeleteMessage:
		err = e.deleteMessage(ctx, alert)
	case models.ActionChangePassword:
		err = e.redirect(ctx, alert, "/settings/security/password")
	case models.ActionSetup2FA:
		err = e.redirect(ctx, alert, "/settings/security/2fa")
	default:
		err = fmt.Errorf("unsupported action type %q", action.Type)
	}
	return err
}

// blockIndicator adds the alert's indicator to the block list
func (e *ActionExecutor) blockIndicator(_ context.Context, alert *models.Alert) error {
	if alert.Data.Indicator == "" {
		return fmt.Errorf("alert has no indicator to block")
	}

	e.mu.Lock()
	e.blocked[alert.Data.Indicator] = true
	e.mu.Unlock()

	e.logger.Info().
		Str("indicator", alert.Data.Indicator).
		Str("alert_id", alert.ID.String()).
		Msg("indicator blocked")
	return nil
}

// IsBlocked reports whether an indicator was blocked by a user action
func (e *ActionExecutor) IsBlocked(indicator string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.blocked[indicator]
}

// fileReport records a report reference on the alert
func (e *ActionExecutor) fileReport(ctx context.Context, alert *models.Alert) error {
	if alert.Metadata == nil {
		alert.Metadata = make(map[string]string)
	}
	alert.Metadata["report_filed"] = "true"
	if err := e.manager.store.Put(ctx, alert); err != nil {
		return fmt.Errorf("failed to record report: %w", err)
	}

	e.logger.Info().Str("alert_id", alert.ID.String()).Msg("report filed")
	return nil
}

// deleteMessage records the deletion of the offending message
func (e *ActionExecutor) deleteMessage(ctx context.Context, alert *models.Alert) error {
	if alert.Metadata == nil {
		alert.Metadata = make(map[string]string)
	}
	alert.Metadata["message_deleted"] = "true"
	if err := e.manager.store.Put(ctx, alert); err != nil {
		return fmt.Errorf("failed to record deletion: %w", err)
	}

	e.logger.Info().Str("alert_id", alert.ID.String()).Msg("message deleted")
	return nil
}

// redirect records the client flow the user should be sent into
func (e *ActionExecutor) redirect(ctx context.Context, alert *models.Alert, path string) error {
	if alert.Metadata == nil {
		alert.Metadata = make(map[string]string)
	}
	alert.Metadata["redirect"] = path
	if err := e.manager.store.Put(ctx, alert); err != nil {
		return fmt.Errorf("failed to record redirect: %w", err)
	}
	return nil
}
