package models

import (
	"fmt"
	"time"
)

// DeliveryFrequency selects immediate or digest delivery
type DeliveryFrequency string

const (
	FrequencyImmediate DeliveryFrequency = "immediate"
	FrequencyDigest    DeliveryFrequency = "digest"
)

// QuietHours is a user-configured window during which only critical alerts
// are delivered. The window may cross midnight (Start > End).
type QuietHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"` // "HH:MM"
	End     string `json:"end"`   // "HH:MM"
}

// Contains reports whether t falls inside the quiet-hours window. If the
// window wraps past midnight, "inside" means at-or-after Start or
// at-or-before End.
func (q QuietHours) Contains(t time.Time) bool {
	if !q.Enabled {
		return false
	}
	start, err := parseClock(q.Start)
	if err != nil {
		return false
	}
	end, err := parseClock(q.End)
	if err != nil {
		return false
	}
	now := t.Hour()*60 + t.Minute()

	if start <= end {
		return now >= start && now <= end
	}
	return now >= start || now <= end
}

// parseClock parses "HH:MM" into minutes since midnight
func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, err
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	return h*60 + m, nil
}

// ChannelSettings enables or disables each delivery channel
type ChannelSettings struct {
	Push  bool `json:"push"`
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
	InApp bool `json:"in_app"`
}

// AlertPreferences is the per-user delivery policy. One record per user,
// created lazily with defaults on first access.
type AlertPreferences struct {
	UserID            string            `json:"user_id"`
	EnabledTypes      []AlertType       `json:"enabled_types"`
	SeverityThreshold Severity          `json:"severity_threshold"`
	QuietHours        QuietHours        `json:"quiet_hours"`
	Channels          ChannelSettings   `json:"channels"`
	Frequency         DeliveryFrequency `json:"frequency"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// DefaultPreferences returns the policy applied to a user who has never
// configured one: all alert types, low threshold, quiet hours off, SMS off.
func DefaultPreferences(userID string) *AlertPreferences {
	return &AlertPreferences{
		UserID: userID,
		EnabledTypes: []AlertType{
			AlertTypeScam,
			AlertTypePhishing,
			AlertTypeAccountCompromise,
			AlertTypeThreatIntel,
			AlertTypeBehavioral,
			AlertTypeSystem,
		},
		SeverityThreshold: SeverityLow,
		QuietHours:        QuietHours{Enabled: false, Start: "22:00", End: "08:00"},
		Channels:          ChannelSettings{Push: true, Email: true, SMS: false, InApp: true},
		Frequency:         FrequencyImmediate,
		UpdatedAt:         time.Now(),
	}
}

// TypeEnabled reports whether the given alert type is enabled
func (p *AlertPreferences) TypeEnabled(t AlertType) bool {
	for _, enabled := range p.EnabledTypes {
		if enabled == t {
			return true
		}
	}
	return false
}

// Validate checks the preference record for consistency
func (p *AlertPreferences) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	switch p.SeverityThreshold {
	case SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
	default:
		return fmt.Errorf("invalid severity threshold %q", p.SeverityThreshold)
	}
	if p.QuietHours.Enabled {
		if _, err := parseClock(p.QuietHours.Start); err != nil {
			return fmt.Errorf("invalid quiet hours start: %w", err)
		}
		if _, err := parseClock(p.QuietHours.End); err != nil {
			return fmt.Errorf("invalid quiet hours end: %w", err)
		}
	}
	switch p.Frequency {
	case FrequencyImmediate, FrequencyDigest, "":
	default:
		return fmt.Errorf("invalid delivery frequency %q", p.Frequency)
	}
	return nil
}
