package alerts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"scamguard/internal/domain/models"
	"scamguard/internal/repository"
	"scamguard/internal/streaming"
	"scamguard/pkg/logger"
)

// capturePublisher records every published event
type capturePublisher struct {
	mu     sync.Mutex
	events []*streaming.AlertEvent
}

func (p *capturePublisher) Publish(_ context.Context, event *streaming.AlertEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) byType(t streaming.EventType) []*streaming.AlertEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*streaming.AlertEvent
	for _, ev := range p.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func newTestManager() (*Manager, *repository.MemoryAlertStore, *capturePublisher) {
	store := repository.NewMemoryAlertStore()
	pub := &capturePublisher{}
	return NewManager(store, pub, logger.Nop()), store, pub
}

func scamSignal(userID string, confidence float64) *models.Signal {
	return &models.Signal{
		Source: models.AlertSourceAIAnalysis,
		UserID: userID,
		AI: &models.AIClassification{
			IsScam:     true,
			Confidence: confidence,
			RiskLevel:  models.SeverityHigh,
			Reasoning:  "Urgent payment request with spoofed sender",
		},
		Indicator:     "+1-202-555-0100",
		IndicatorType: models.IndicatorTypePhone,
	}
}

func scamRule() *models.AlertRule {
	return &models.AlertRule{
		ID:        "high-confidence-scam",
		Name:      "High Confidence Scam Detection",
		Enabled:   true,
		Severity:  models.SeverityHigh,
		AlertType: models.AlertTypeScam,
	}
}

func TestCreateFromSignal(t *testing.T) {
	manager, _, pub := newTestManager()

	alert, err := manager.CreateFromSignal(context.Background(), scamSignal("user-1", 0.92), scamRule())
	if err != nil {
		t.Fatalf("CreateFromSignal: %v", err)
	}

	if alert.Title != "Potential Scam Detected (92% confidence)" {
		t.Errorf("title = %q", alert.Title)
	}
	if alert.Status != models.AlertStatusActive {
		t.Errorf("status = %s, want active", alert.Status)
	}
	if alert.Data.Indicator != "+1-202-555-0100" {
		t.Errorf("indicator not carried: %q", alert.Data.Indicator)
	}

	// High severity expires 168h after creation
	if alert.ExpiresAt == nil {
		t.Fatal("expected expiry to be set")
	}
	want := alert.Timestamp.Add(168 * time.Hour)
	if !alert.ExpiresAt.Equal(want) {
		t.Errorf("expires at %s, want %s", alert.ExpiresAt, want)
	}

	// Default actions: ack + dismiss + block + report + escalate (high)
	types := make(map[models.ActionType]bool)
	for _, a := range alert.Actions {
		types[a.Type] = true
	}
	for _, want := range []models.ActionType{
		models.ActionAcknowledge, models.ActionDismiss,
		models.ActionBlockIndicator, models.ActionFileReport, models.ActionEscalate,
	} {
		if !types[want] {
			t.Errorf("missing default action %s", want)
		}
	}

	if created := pub.byType(streaming.EventAlertCreated); len(created) != 1 {
		t.Errorf("published %d created events, want 1", len(created))
	}
}

func TestTransitionsAppendTimeline(t *testing.T) {
	manager, _, _ := newTestManager()
	ctx := context.Background()

	alert, err := manager.CreateFromSignal(ctx, scamSignal("user-1", 0.92), scamRule())
	if err != nil {
		t.Fatalf("CreateFromSignal: %v", err)
	}
	if len(alert.Data.Timeline) != 1 {
		t.Fatalf("timeline after creation has %d entries, want 1", len(alert.Data.Timeline))
	}

	updated, err := manager.Acknowledge(ctx, alert.ID, "user-1")
	if err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}
	if updated.Status != models.AlertStatusAcknowledged {
		t.Errorf("status = %s, want acknowledged", updated.Status)
	}
	if updated.AcknowledgedAt == nil {
		t.Error("acknowledged timestamp not set")
	}
	if len(updated.Data.Timeline) != 2 {
		t.Errorf("timeline has %d entries, want 2", len(updated.Data.Timeline))
	}
	if updated.Data.Timeline[1].Event != "acknowledged" {
		t.Errorf("timeline event = %q", updated.Data.Timeline[1].Event)
	}
}

func TestOwnershipRejectionLeavesStateUntouched(t *testing.T) {
	manager, store, _ := newTestManager()
	ctx := context.Background()

	alert, err := manager.CreateFromSignal(ctx, scamSignal("user-1", 0.92), scamRule())
	if err != nil {
		t.Fatalf("CreateFromSignal: %v", err)
	}

	if _, err := manager.Acknowledge(ctx, alert.ID, "intruder"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, err := manager.ExecuteAction(ctx, alert.ID, "block", "intruder"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner for action, got %v", err)
	}

	stored, err := store.Get(ctx, alert.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != models.AlertStatusActive {
		t.Errorf("status changed to %s after rejected transition", stored.Status)
	}
	if len(stored.Data.Timeline) != 1 {
		t.Errorf("timeline grew to %d entries after rejected operations", len(stored.Data.Timeline))
	}
}

func TestEscalateRaisesSeverityAndAssignsHandler(t *testing.T) {
	manager, store, _ := newTestManager()
	ctx := context.Background()

	alert, err := manager.CreateFromSignal(ctx, scamSignal("user-1", 0.92), scamRule())
	if err != nil {
		t.Fatalf("CreateFromSignal: %v", err)
	}

	updated, err := manager.Escalate(ctx, alert.ID, "user-1", "soc-oncall")
	if err != nil {
		t.Fatalf("Escalate: %v", err)
	}
	if updated.Status != models.AlertStatusEscalated {
		t.Errorf("status = %s, want escalated", updated.Status)
	}
	if updated.Severity != models.SeverityCritical {
		t.Errorf("severity = %s, want critical", updated.Severity)
	}
	if updated.AssignedTo != "soc-oncall" {
		t.Errorf("assigned to %q, want soc-oncall", updated.AssignedTo)
	}

	stored, err := store.Get(ctx, alert.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Severity != models.SeverityCritical || stored.AssignedTo != "soc-oncall" {
		t.Errorf("escalation not persisted: severity=%s assigned_to=%q", stored.Severity, stored.AssignedTo)
	}
}

func TestTerminalStateRejectsTransitions(t *testing.T) {
	manager, _, _ := newTestManager()
	ctx := context.Background()

	alert, _ := manager.CreateFromSignal(ctx, scamSignal("user-1", 0.92), scamRule())
	if _, err := manager.Dismiss(ctx, alert.ID, "user-1", "false positive"); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if _, err := manager.Acknowledge(ctx, alert.ID, "user-1"); !errors.Is(err, ErrTerminalState) {
		t.Fatalf("expected ErrTerminalState, got %v", err)
	}
}

func TestExecuteBlockAction(t *testing.T) {
	manager, _, _ := newTestManager()
	ctx := context.Background()

	alert, _ := manager.CreateFromSignal(ctx, scamSignal("user-1", 0.92), scamRule())

	updated, err := manager.ExecuteAction(ctx, alert.ID, "block", "user-1")
	if err != nil {
		t.Fatalf("ExecuteAction: %v", err)
	}
	if !manager.executor.IsBlocked("+1-202-555-0100") {
		t.Error("indicator not blocked after block action")
	}

	last := updated.Data.Timeline[len(updated.Data.Timeline)-1]
	if last.Event != "action_executed" || last.Detail != string(models.ActionBlockIndicator) {
		t.Errorf("unexpected timeline entry: %+v", last)
	}
}

func TestExecuteUnknownAction(t *testing.T) {
	manager, _, _ := newTestManager()
	ctx := context.Background()

	alert, _ := manager.CreateFromSignal(ctx, scamSignal("user-1", 0.92), scamRule())
	if _, err := manager.ExecuteAction(ctx, alert.ID, "no-such-action", "user-1"); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	manager, _, _ := newTestManager()
	ctx := context.Background()

	alert, _ := manager.CreateFromSignal(ctx, scamSignal("user-1", 0.92), scamRule())
	if _, err := manager.Get(ctx, alert.ID, "someone-else"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, err := manager.Get(ctx, uuid.New(), "user-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
