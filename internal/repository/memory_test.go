package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"scamguard/internal/domain/models"
)

func newAlert(userID string, status models.AlertStatus, severity models.Severity, age time.Duration) *models.Alert {
	return &models.Alert{
		ID:        uuid.New(),
		Type:      models.AlertTypeScam,
		Severity:  severity,
		Title:     "Test Alert",
		Timestamp: time.Now().Add(-age),
		Source:    models.AlertSourceAIAnalysis,
		UserID:    userID,
		Status:    status,
	}
}

func TestMemoryAlertStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAlertStore()

	alert := newAlert("user-1", models.AlertStatusActive, models.SeverityHigh, 0)
	if err := store.Put(ctx, alert); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, alert.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != alert.ID || got.UserID != "user-1" {
		t.Errorf("got %+v, want stored alert", got)
	}

	// The store must hand out copies, not aliases
	got.Status = models.AlertStatusResolved
	again, _ := store.Get(ctx, alert.ID)
	if again.Status != models.AlertStatusActive {
		t.Error("mutating a returned alert leaked into the store")
	}
}

func TestMemoryAlertStoreGetMissing(t *testing.T) {
	store := NewMemoryAlertStore()
	if _, err := store.Get(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryAlertStoreListForUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAlertStore()

	oldest := newAlert("user-1", models.AlertStatusActive, models.SeverityLow, 3*time.Hour)
	middle := newAlert("user-1", models.AlertStatusResolved, models.SeverityHigh, 2*time.Hour)
	newest := newAlert("user-1", models.AlertStatusActive, models.SeverityHigh, time.Hour)
	other := newAlert("user-2", models.AlertStatusActive, models.SeverityHigh, 0)
	for _, a := range []*models.Alert{oldest, middle, newest, other} {
		if err := store.Put(ctx, a); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	t.Run("newest first", func(t *testing.T) {
		got, err := store.ListForUser(ctx, "user-1", AlertFilter{})
		if err != nil {
			t.Fatalf("ListForUser: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 alerts, got %d", len(got))
		}
		if got[0].ID != newest.ID || got[2].ID != oldest.ID {
			t.Error("alerts not sorted newest first")
		}
	})

	t.Run("status filter", func(t *testing.T) {
		got, err := store.ListForUser(ctx, "user-1", AlertFilter{Status: models.AlertStatusActive})
		if err != nil {
			t.Fatalf("ListForUser: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 active alerts, got %d", len(got))
		}
	})

	t.Run("limit and offset", func(t *testing.T) {
		got, err := store.ListForUser(ctx, "user-1", AlertFilter{Limit: 1, Offset: 1})
		if err != nil {
			t.Fatalf("ListForUser: %v", err)
		}
		if len(got) != 1 || got[0].ID != middle.ID {
			t.Errorf("expected the middle alert, got %d results", len(got))
		}
	})

	t.Run("other user invisible", func(t *testing.T) {
		got, err := store.ListForUser(ctx, "user-2", AlertFilter{})
		if err != nil {
			t.Fatalf("ListForUser: %v", err)
		}
		if len(got) != 1 || got[0].ID != other.ID {
			t.Error("user-2 should see only their own alert")
		}
	})
}

func TestMemoryPreferenceStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPreferenceStore()

	if _, err := store.Get(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unseen user, got %v", err)
	}

	prefs := models.DefaultPreferences("user-1")
	if err := store.Put(ctx, prefs); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserID != "user-1" || !got.Channels.Push || got.Channels.SMS {
		t.Errorf("unexpected preferences: %+v", got)
	}

	if err := store.Delete(ctx, "user-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatal("expected ErrNotFound after delete")
	}
}
