package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"scamguard/internal/domain/models"
)

const alertSchema = `
CREATE TABLE IF NOT EXISTS alerts (
	id         UUID PRIMARY KEY,
	user_id    TEXT NOT NULL,
	type       TEXT NOT NULL,
	severity   TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	payload    JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_user_created ON alerts (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_alerts_user_status  ON alerts (user_id, status);

CREATE TABLE IF NOT EXISTS alert_preferences (
	user_id    TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

// PostgresAlertStore is the pgx-backed AlertStore. Filterable columns are
// stored alongside the full alert payload as JSONB.
type PostgresAlertStore struct {
	pool *pgxpool.Pool
}

// NewPostgresAlertStore creates the store and bootstraps its schema
func NewPostgresAlertStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresAlertStore, error) {
	if _, err := pool.Exec(ctx, alertSchema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &PostgresAlertStore{pool: pool}, nil
}

// Put inserts or replaces an alert
func (s *PostgresAlertStore) Put(ctx context.Context, alert *models.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO alerts (id, user_id, type, severity, status, created_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status   = EXCLUDED.status,
			severity = EXCLUDED.severity,
			payload  = EXCLUDED.payload`,
		alert.ID, alert.UserID, alert.Type, alert.Severity, alert.Status, alert.Timestamp, payload)
	if err != nil {
		return fmt.Errorf("failed to store alert: %w", err)
	}
	return nil
}

// Get returns the alert with the given id
func (s *PostgresAlertStore) Get(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM alerts WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load alert: %w", err)
	}

	var alert models.Alert
	if err := json.Unmarshal(payload, &alert); err != nil {
		return nil, fmt.Errorf("failed to unmarshal alert: %w", err)
	}
	return &alert, nil
}

// ListForUser returns the user's alerts, newest first
func (s *PostgresAlertStore) ListForUser(ctx context.Context, userID string, filter AlertFilter) ([]*models.Alert, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT payload FROM alerts WHERE user_id = $1`)
	args := []any{userID}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		sb.WriteString(` AND status = $` + strconv.Itoa(len(args)))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		sb.WriteString(` AND type = $` + strconv.Itoa(len(args)))
	}
	if filter.Severity != "" {
		args = append(args, string(filter.Severity))
		sb.WriteString(` AND severity = $` + strconv.Itoa(len(args)))
	}
	sb.WriteString(` ORDER BY created_at DESC`)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sb.WriteString(` LIMIT $` + strconv.Itoa(len(args)))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		sb.WriteString(` OFFSET $` + strconv.Itoa(len(args)))
	}

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var out []*models.Alert
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		var alert models.Alert
		if err := json.Unmarshal(payload, &alert); err != nil {
			return nil, fmt.Errorf("failed to unmarshal alert: %w", err)
		}
		out = append(out, &alert)
	}
	return out, rows.Err()
}

// Delete removes an alert
func (s *PostgresAlertStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PostgresPreferenceStore is the pgx-backed PreferenceStore
type PostgresPreferenceStore struct {
	pool *pgxpool.Pool
}

// NewPostgresPreferenceStore creates the store. Schema bootstrap is shared
// with NewPostgresAlertStore; call either first.
func NewPostgresPreferenceStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresPreferenceStore, error) {
	if _, err := pool.Exec(ctx, alertSchema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &PostgresPreferenceStore{pool: pool}, nil
}

// Put inserts or replaces a user's preferences
func (s *PostgresPreferenceStore) Put(ctx context.Context, prefs *models.AlertPreferences) error {
	payload, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO alert_preferences (user_id, payload, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			payload    = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at`,
		prefs.UserID, payload, prefs.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to store preferences: %w", err)
	}
	return nil
}

// Get returns the preferences for a user
func (s *PostgresPreferenceStore) Get(ctx context.Context, userID string) (*models.AlertPreferences, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM alert_preferences WHERE user_id = $1`, userID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	var prefs models.AlertPreferences
	if err := json.Unmarshal(payload, &prefs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal preferences: %w", err)
	}
	return &prefs, nil
}

// Delete removes a user's preferences
func (s *PostgresPreferenceStore) Delete(ctx context.Context, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM alert_preferences WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete preferences: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
