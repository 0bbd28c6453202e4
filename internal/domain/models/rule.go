package models

import (
	"time"
)

// ConditionOperator is the comparison applied by one rule condition
type ConditionOperator string

const (
	OpEquals      ConditionOperator = "equals"
	OpContains    ConditionOperator = "contains"
	OpGreaterThan ConditionOperator = "greater_than"
	OpLessThan    ConditionOperator = "less_than"
	OpRegex       ConditionOperator = "regex"
)

// Valid reports whether the operator is one the engine evaluates
func (o ConditionOperator) Valid() bool {
	switch o {
	case OpEquals, OpContains, OpGreaterThan, OpLessThan, OpRegex:
		return true
	default:
		return false
	}
}

// RuleCondition is one weighted condition inside an alert rule. Field is a
// dot-path into the signal record; a missing path never matches.
type RuleCondition struct {
	Field    string            `json:"field" yaml:"field"`
	Operator ConditionOperator `json:"operator" yaml:"operator"`
	Value    any               `json:"value" yaml:"value"`
	Weight   float64           `json:"weight" yaml:"weight"`
}

// AlertRule is a named, weighted set of conditions that produces an alert
// when sufficiently matched. Rules are static configuration.
//
// Cooldown is carried through from configuration but is not enforced by the
// engine; see the repository design notes before relying on it.
type AlertRule struct {
	ID         string          `json:"id" yaml:"id"`
	Name       string          `json:"name" yaml:"name"`
	Enabled    bool            `json:"enabled" yaml:"enabled"`
	Conditions []RuleCondition `json:"conditions" yaml:"conditions"`
	Severity   Severity        `json:"severity" yaml:"severity"`
	AlertType  AlertType       `json:"alert_type" yaml:"alert_type"`
	Cooldown   time.Duration   `json:"cooldown,omitempty" yaml:"-"`
	Actions    []ActionType    `json:"actions,omitempty" yaml:"actions"`
}

// TriggerThreshold is the minimum matched-weight ratio for a rule to fire
const TriggerThreshold = 0.70
