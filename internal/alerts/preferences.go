// Package alerts implements the alert lifecycle: creation from detection
// signals, ownership-checked transitions, action execution and delivery.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scamguard/internal/domain/models"
	"scamguard/internal/repository"
	"scamguard/pkg/logger"
)

// PreferenceService reads and writes per-user delivery preferences. A
// user who has never configured preferences gets defaults created lazily
// on first read.
type PreferenceService struct {
	store  repository.PreferenceStore
	logger *logger.Logger
}

// NewPreferenceService creates the preference service
func NewPreferenceService(store repository.PreferenceStore, log *logger.Logger) *PreferenceService {
	return &PreferenceService{
		store:  store,
		logger: log.WithComponent("preferences"),
	}
}

// Get returns the user's preferences, creating defaults on first access
func (s *PreferenceService) Get(ctx context.Context, userID string) (*models.AlertPreferences, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	prefs, err := s.store.Get(ctx, userID)
	if err == nil {
		return prefs, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	prefs = models.DefaultPreferences(userID)
	if err := s.store.Put(ctx, prefs); err != nil {
		return nil, fmt.Errorf("failed to store default preferences: %w", err)
	}
	s.logger.Debug().Str("user_id", userID).Msg("created default preferences")
	return prefs, nil
}

// Update validates and persists the user's preferences
func (s *PreferenceService) Update(ctx context.Context, prefs *models.AlertPreferences) error {
	if err := prefs.Validate(); err != nil {
		return fmt.Errorf("invalid preferences: %w", err)
	}
	prefs.UpdatedAt = time.Now()
	if err := s.store.Put(ctx, prefs); err != nil {
		return fmt.Errorf("failed to store preferences: %w", err)
	}
	s.logger.Info().Str("user_id", prefs.UserID).Msg("preferences updated")
	return nil
}
