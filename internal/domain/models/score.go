package models

import (
	"time"
)

// ScoreStatus labels the aggregate verdict for an indicator
type ScoreStatus string

const (
	ScoreStatusMalicious  ScoreStatus = "malicious"
	ScoreStatusSuspicious ScoreStatus = "suspicious"
	ScoreStatusClean      ScoreStatus = "clean"
	ScoreStatusUnknown    ScoreStatus = "unknown"
)

// UnknownScoreFloor is the overall score assigned when no source returned a
// finding. A low-confidence-unknown default, deliberately not zero.
const UnknownScoreFloor = 0.1

// CategoryScores breaks the overall score down by signal category
type CategoryScores struct {
	Reputation float64 `json:"reputation"`
	Behavior   float64 `json:"behavior"`
	Network    float64 `json:"network"`
	Content    float64 `json:"content"`
	Temporal   float64 `json:"temporal"`
}

// ScoringFactor records one source's contribution to an aggregate score
type ScoringFactor struct {
	Source      string  `json:"source"`
	Reliability float64 `json:"reliability"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation,omitempty"`
}

// ThreatScore is the aggregated, weighted risk score for one
// (indicator, type) pair
type ThreatScore struct {
	Value      string          `json:"value"`
	Type       IndicatorType   `json:"type"`
	Overall    float64         `json:"overall"` // 0.0 - 1.0
	Categories CategoryScores  `json:"categories"`
	Factors    []ScoringFactor `json:"factors,omitempty"`
	Status     ScoreStatus     `json:"status"`
	ComputedAt time.Time       `json:"computed_at"`
}

// StatusForScore maps an overall score to its verdict label
func StatusForScore(overall float64) ScoreStatus {
	switch {
	case overall > 0.7:
		return ScoreStatusMalicious
	case overall > 0.4:
		return ScoreStatusSuspicious
	case overall > 0.1:
		return ScoreStatusClean
	default:
		return ScoreStatusUnknown
	}
}
