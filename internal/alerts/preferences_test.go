package alerts

import (
	"context"
	"testing"

	"scamguard/internal/domain/models"
	"scamguard/internal/repository"
	"scamguard/pkg/logger"
)

func TestPreferencesLazyDefaults(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryPreferenceStore()
	svc := NewPreferenceService(store, logger.Nop())

	prefs, err := svc.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if prefs.UserID != "user-1" || prefs.SeverityThreshold != models.SeverityLow {
		t.Errorf("unexpected defaults: %+v", prefs)
	}

	// Defaults are persisted, not recreated per read
	stored, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("defaults not persisted: %v", err)
	}
	if stored.UpdatedAt.IsZero() {
		t.Error("stored defaults missing timestamp")
	}
}

func TestPreferencesUpdateValidates(t *testing.T) {
	ctx := context.Background()
	svc := NewPreferenceService(repository.NewMemoryPreferenceStore(), logger.Nop())

	prefs := models.DefaultPreferences("user-1")
	prefs.SeverityThreshold = "extreme"
	if err := svc.Update(ctx, prefs); err == nil {
		t.Fatal("expected validation error for bad threshold")
	}

	prefs = models.DefaultPreferences("user-1")
	prefs.QuietHours = models.QuietHours{Enabled: true, Start: "25:00", End: "08:00"}
	if err := svc.Update(ctx, prefs); err == nil {
		t.Fatal("expected validation error for bad quiet hours")
	}

	prefs = models.DefaultPreferences("user-1")
	prefs.QuietHours = models.QuietHours{Enabled: true, Start: "21:00", End: "07:30"}
	if err := svc.Update(ctx, prefs); err != nil {
		t.Fatalf("valid update rejected: %v", err)
	}

	got, err := svc.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.QuietHours.Start != "21:00" {
		t.Errorf("update not persisted: %+v", got.QuietHours)
	}
}
