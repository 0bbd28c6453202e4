package models

import (
	"strings"
)

// AIClassification is the structured result of the upstream AI analysis.
// Consumed here, never produced.
type AIClassification struct {
	IsScam      bool     `json:"is_scam"`
	Confidence  float64  `json:"confidence"`
	RiskLevel   Severity `json:"risk_level"`
	ThreatTypes []string `json:"threat_types,omitempty"`
	Reasoning   string   `json:"reasoning,omitempty"`
}

// Signal is the record a rule evaluates against: the known, typed fields of
// an incoming detection plus an escape-hatch map for provider extras.
type Signal struct {
	Source        AlertSource       `json:"source"`
	UserID        string            `json:"user_id"`
	AI            *AIClassification `json:"ai,omitempty"`
	Indicator     string            `json:"indicator,omitempty"`
	IndicatorType IndicatorType     `json:"indicator_type,omitempty"`
	RiskScore     float64           `json:"risk_score,omitempty"`
	BehaviorScore float64           `json:"behavior_score,omitempty"`
	Extra         map[string]any    `json:"extra,omitempty"`
}

// FieldKind tags the type of a resolved signal field
type FieldKind int

const (
	FieldMissing FieldKind = iota
	FieldString
	FieldNumber
	FieldBool
	FieldStringList
)

// FieldValue is the tagged union returned by Signal.Field
type FieldValue struct {
	Kind FieldKind
	Str  string
	Num  float64
	Bool bool
	List []string
}

// Field resolves a dot-path against the signal's typed fields, falling back
// to the Extra map. A missing path yields FieldMissing, never an error.
func (s *Signal) Field(path string) FieldValue {
	switch path {
	case "source":
		return FieldValue{Kind: FieldString, Str: string(s.Source)}
	case "userId", "user_id":
		return FieldValue{Kind: FieldString, Str: s.UserID}
	case "indicator":
		return FieldValue{Kind: FieldString, Str: s.Indicator}
	case "indicatorType", "indicator_type":
		return FieldValue{Kind: FieldString, Str: string(s.IndicatorType)}
	case "riskScore", "risk_score":
		return FieldValue{Kind: FieldNumber, Num: s.RiskScore}
	case "behaviorScore", "behavior_score":
		return FieldValue{Kind: FieldNumber, Num: s.BehaviorScore}
	}

	if strings.HasPrefix(path, "ai.") {
		if s.AI == nil {
			return FieldValue{Kind: FieldMissing}
		}
		switch strings.TrimPrefix(path, "ai.") {
		case "isScam", "is_scam":
			return FieldValue{Kind: FieldBool, Bool: s.AI.IsScam}
		case "confidence":
			return FieldValue{Kind: FieldNumber, Num: s.AI.Confidence}
		case "riskLevel", "risk_level":
			return FieldValue{Kind: FieldString, Str: string(s.AI.RiskLevel)}
		case "threatTypes", "threat_types":
			return FieldValue{Kind: FieldStringList, List: s.AI.ThreatTypes}
		case "reasoning":
			return FieldValue{Kind: FieldString, Str: s.AI.Reasoning}
		}
		return FieldValue{Kind: FieldMissing}
	}

	return s.extraField(path)
}

// extraField resolves a dot-path inside the Extra map
func (s *Signal) extraField(path string) FieldValue {
	var cur any = s.Extra
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return FieldValue{Kind: FieldMissing}
		}
		cur, ok = m[part]
		if !ok {
			return FieldValue{Kind: FieldMissing}
		}
	}

	switch v := cur.(type) {
	case string:
		return FieldValue{Kind: FieldString, Str: v}
	case bool:
		return FieldValue{Kind: FieldBool, Bool: v}
	case float64:
		return FieldValue{Kind: FieldNumber, Num: v}
	case int:
		return FieldValue{Kind: FieldNumber, Num: float64(v)}
	case int64:
		return FieldValue{Kind: FieldNumber, Num: float64(v)}
	case []string:
		return FieldValue{Kind: FieldStringList, List: v}
	case []any:
		list := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				list = append(list, str)
			}
		}
		return FieldValue{Kind: FieldStringList, List: list}
	default:
		return FieldValue{Kind: FieldMissing}
	}
}
