package models

import (
	"time"
)

// IndicatorType represents the type of threat indicator
type IndicatorType string

const (
	IndicatorTypeIP           IndicatorType = "ip"
	IndicatorTypeDomain       IndicatorType = "domain"
	IndicatorTypeURL          IndicatorType = "url"
	IndicatorTypePhone        IndicatorType = "phone"
	IndicatorTypeEmail        IndicatorType = "email"
	IndicatorTypeHash         IndicatorType = "hash"
	IndicatorTypeWallet       IndicatorType = "wallet"
	IndicatorTypeSocialHandle IndicatorType = "social_handle"
	IndicatorTypeBankAccount  IndicatorType = "bank_account"
)

// Severity represents the threat severity level
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// IndicatorContext carries contextual enrichment attached to a finding
type IndicatorContext struct {
	Campaign          string   `json:"campaign,omitempty"`
	RelatedIndicators []string `json:"related_indicators,omitempty"`
	Geolocation       string   `json:"geolocation,omitempty"`
}

// ThreatIndicator is one finding from one reputation source about one raw
// value. Indicators are immutable once created; a fresh source query after
// cache expiry supersedes the old one.
type ThreatIndicator struct {
	Value       string           `json:"value"`
	Type        IndicatorType    `json:"type"`
	Confidence  float64          `json:"confidence"` // 0.0 - 1.0
	Severity    Severity         `json:"severity"`
	FirstSeen   time.Time        `json:"first_seen"`
	LastSeen    time.Time        `json:"last_seen"`
	SourceName  string           `json:"source_name"`
	Description string           `json:"description,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	TTLSeconds  int              `json:"ttl_seconds,omitempty"`
	Attribution []string         `json:"attribution,omitempty"`
	Context     IndicatorContext `json:"context,omitempty"`
}

// HasTag reports whether the indicator carries the given tag
func (i *ThreatIndicator) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SeverityForConfidence derives severity from a confidence value. Severity
// is always a function of its computing input, never set independently.
func SeverityForConfidence(confidence float64) Severity {
	switch {
	case confidence >= 0.9:
		return SeverityCritical
	case confidence >= 0.7:
		return SeverityHigh
	case confidence >= 0.5:
		return SeverityMedium
	case confidence >= 0.3:
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// SeverityWeight returns a numeric weight for ordering severities
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is at least as severe as threshold
func (s Severity) AtLeast(threshold Severity) bool {
	return s.Weight() >= threshold.Weight()
}

// String returns the string representation of IndicatorType
func (t IndicatorType) String() string {
	return string(t)
}

// String returns the string representation of Severity
func (s Severity) String() string {
	return string(s)
}

// ParseSeverity parses a string into Severity
func ParseSeverity(s string) Severity {
	switch s {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	case "low":
		return SeverityLow
	case "info":
		return SeverityInfo
	default:
		return Severity(s)
	}
}
