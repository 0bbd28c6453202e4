package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"scamguard/internal/domain/models"
)

// MemoryAlertStore is the in-memory AlertStore used by tests and
// single-node deployments without a database
type MemoryAlertStore struct {
	mu     sync.RWMutex
	alerts map[uuid.UUID]*models.Alert
}

// NewMemoryAlertStore creates an empty in-memory alert store
func NewMemoryAlertStore() *MemoryAlertStore {
	return &MemoryAlertStore{alerts: make(map[uuid.UUID]*models.Alert)}
}

// Put inserts or replaces an alert
func (s *MemoryAlertStore) Put(_ context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *alert
	s.alerts[alert.ID] = &cp
	return nil
}

// Get returns the alert with the given id
func (s *MemoryAlertStore) Get(_ context.Context, id uuid.UUID) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alert, ok := s.alerts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *alert
	return &cp, nil
}

// ListForUser returns the user's alerts, newest first
func (s *MemoryAlertStore) ListForUser(_ context.Context, userID string, filter AlertFilter) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Alert
	for _, alert := range s.alerts {
		if alert.UserID != userID {
			continue
		}
		if filter.Status != "" && alert.Status != filter.Status {
			continue
		}
		if filter.Type != "" && alert.Type != filter.Type {
			continue
		}
		if filter.Severity != "" && alert.Severity != filter.Severity {
			continue
		}
		cp := *alert
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Delete removes an alert
func (s *MemoryAlertStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[id]; !ok {
		return ErrNotFound
	}
	delete(s.alerts, id)
	return nil
}

// MemoryPreferenceStore is the in-memory PreferenceStore
type MemoryPreferenceStore struct {
	mu    sync.RWMutex
	prefs map[string]*models.AlertPreferences
}

// NewMemoryPreferenceStore creates an empty in-memory preference store
func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{prefs: make(map[string]*models.AlertPreferences)}
}

// Put inserts or replaces a user's preferences
func (s *MemoryPreferenceStore) Put(_ context.Context, prefs *models.AlertPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *prefs
	s.prefs[prefs.UserID] = &cp
	return nil
}

// Get returns the preferences for a user
func (s *MemoryPreferenceStore) Get(_ context.Context, userID string) (*models.AlertPreferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefs, ok := s.prefs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *prefs
	return &cp, nil
}

// Delete removes a user's preferences
func (s *MemoryPreferenceStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.prefs[userID]; !ok {
		return ErrNotFound
	}
	delete(s.prefs, userID)
	return nil
}
