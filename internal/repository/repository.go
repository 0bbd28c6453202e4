// Package repository defines the persistence contracts for alerts and
// delivery preferences, with in-memory and PostgreSQL implementations.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"scamguard/internal/domain/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// AlertFilter narrows ListForUser results
type AlertFilter struct {
	Status   models.AlertStatus
	Type     models.AlertType
	Severity models.Severity
	Limit    int
	Offset   int
}

// AlertStore persists alerts
type AlertStore interface {
	Put(ctx context.Context, alert *models.Alert) error
	Get(ctx context.Context, id uuid.UUID) (*models.Alert, error)
	ListForUser(ctx context.Context, userID string, filter AlertFilter) ([]*models.Alert, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PreferenceStore persists per-user delivery preferences
type PreferenceStore interface {
	Put(ctx context.Context, prefs *models.AlertPreferences) error
	Get(ctx context.Context, userID string) (*models.AlertPreferences, error)
	Delete(ctx context.Context, userID string) error
}
