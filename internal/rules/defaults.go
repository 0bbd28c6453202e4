package rules

import (
	"time"

	"scamguard/internal/domain/models"
)

// DefaultRules returns the compiled-in rule set used when no rule file
// is configured
func DefaultRules() []*models.AlertRule {
	return []*models.AlertRule{
		{
			ID:      "high-confidence-scam",
			Name:    "High Confidence Scam Detection",
			Enabled: true,
			Conditions: []models.RuleCondition{
				{Field: "ai.isScam", Operator: models.OpEquals, Value: true, Weight: 1.0},
				{Field: "ai.confidence", Operator: models.OpGreaterThan, Value: 0.8, Weight: 1.0},
			},
			Severity:  models.SeverityHigh,
			AlertType: models.AlertTypeScam,
			Cooldown:  5 * time.Minute,
			Actions:   []models.ActionType{models.ActionBlockIndicator, models.ActionFileReport},
		},
		{
			ID:      "critical-threat-score",
			Name:    "Critical Threat Score",
			Enabled: true,
			Conditions: []models.RuleCondition{
				{Field: "risk_score", Operator: models.OpGreaterThan, Value: 0.9, Weight: 1.0},
			},
			Severity:  models.SeverityCritical,
			AlertType: models.AlertTypeThreatIntel,
			Cooldown:  time.Minute,
			Actions:   []models.ActionType{models.ActionBlockIndicator, models.ActionEscalate},
		},
		{
			ID:      "phishing-threat-type",
			Name:    "Phishing Threat Detected",
			Enabled: true,
			Conditions: []models.RuleCondition{
				{Field: "ai.threatTypes", Operator: models.OpContains, Value: "phishing", Weight: 1.0},
				{Field: "ai.confidence", Operator: models.OpGreaterThan, Value: 0.6, Weight: 0.5},
			},
			Severity:  models.SeverityHigh,
			AlertType: models.AlertTypePhishing,
			Cooldown:  5 * time.Minute,
			Actions:   []models.ActionType{models.ActionBlockIndicator, models.ActionChangePassword},
		},
		{
			ID:      "behavioral-anomaly",
			Name:    "Behavioral Anomaly",
			Enabled: true,
			Conditions: []models.RuleCondition{
				{Field: "behavior_score", Operator: models.OpGreaterThan, Value: 0.7, Weight: 1.0},
				{Field: "source", Operator: models.OpEquals, Value: "behavioral", Weight: 0.5},
			},
			Severity:  models.SeverityMedium,
			AlertType: models.AlertTypeBehavioral,
			Cooldown:  15 * time.Minute,
			Actions:   []models.ActionType{models.ActionSetup2FA},
		},
	}
}
