// Package rules evaluates incoming detection signals against weighted
// alert rules.
package rules

import (
	"regexp"
	"strings"
	"sync"

	"scamguard/internal/domain/models"
	"scamguard/pkg/logger"
)

// Engine evaluates signals against a rule set. Rules are replaced
// wholesale via SetRules; evaluation takes a read lock so reloads are
// safe under concurrent evaluation.
type Engine struct {
	mu      sync.RWMutex
	rules   []*models.AlertRule
	regexes map[string]*regexp.Regexp
	logger  *logger.Logger
}

// NewEngine creates an engine with the given rule set
func NewEngine(rules []*models.AlertRule, log *logger.Logger) *Engine {
	e := &Engine{
		regexes: make(map[string]*regexp.Regexp),
		logger:  log.WithComponent("rule-engine"),
	}
	e.SetRules(rules)
	return e
}

// SetRules replaces the active rule set. Invalid regex patterns are
// compiled once here; a condition with a bad pattern never matches.
func (e *Engine) SetRules(rules []*models.AlertRule) {
	regexes := make(map[string]*regexp.Regexp)
	for _, rule := range rules {
		for _, cond := range rule.Conditions {
			if cond.Operator != models.OpRegex {
				continue
			}
			pattern, ok := cond.Value.(string)
			if !ok {
				continue
			}
			if _, seen := regexes[pattern]; seen {
				continue
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				e.logger.Warn().Err(err).
					Str("rule", rule.ID).
					Str("pattern", pattern).
					Msg("invalid regex in rule condition")
				continue
			}
			regexes[pattern] = re
		}
	}

	e.mu.Lock()
	e.rules = rules
	e.regexes = regexes
	e.mu.Unlock()
}

// Rules returns the active rule set
func (e *Engine) Rules() []*models.AlertRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*models.AlertRule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate returns every enabled rule whose matched-weight ratio meets
// the trigger threshold for the given signal
func (e *Engine) Evaluate(sig *models.Signal) []*models.AlertRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var triggered []*models.AlertRule
	for _, rule := range e.rules {
		if !rule.Enabled || len(rule.Conditions) == 0 {
			continue
		}

		var matched, total float64
		for _, cond := range rule.Conditions {
			weight := cond.Weight
			if weight <= 0 {
				weight = 1.0
			}
			total += weight
			if e.matches(sig, cond) {
				matched += weight
			}
		}

		if matched/total >= models.TriggerThreshold {
			triggered = append(triggered, rule)
		}
	}
	return triggered
}

// matches applies one condition to the signal. A missing field is a
// non-match, never an error.
func (e *Engine) matches(sig *models.Signal, cond models.RuleCondition) bool {
	field := sig.Field(cond.Field)
	if field.Kind == models.FieldMissing {
		return false
	}

	switch cond.Operator {
	case models.OpEquals:
		return equalsValue(field, cond.Value)
	case models.OpContains:
		return containsValue(field, cond.Value)
	case models.OpGreaterThan:
		want, ok := numberValue(cond.Value)
		return ok && field.Kind == models.FieldNumber && field.Num > want
	case models.OpLessThan:
		want, ok := numberValue(cond.Value)
		return ok && field.Kind == models.FieldNumber && field.Num < want
	case models.OpRegex:
		pattern, ok := cond.Value.(string)
		if !ok || field.Kind != models.FieldString {
			return false
		}
		re, ok := e.regexes[pattern]
		return ok && re.MatchString(field.Str)
	default:
		return false
	}
}

func equalsValue(field models.FieldValue, want any) bool {
	switch field.Kind {
	case models.FieldString:
		s, ok := want.(string)
		return ok && field.Str == s
	case models.FieldBool:
		b, ok := want.(bool)
		return ok && field.Bool == b
	case models.FieldNumber:
		n, ok := numberValue(want)
		return ok && field.Num == n
	default:
		return false
	}
}

// containsValue matches substring on strings and membership on lists
func containsValue(field models.FieldValue, want any) bool {
	s, ok := want.(string)
	if !ok {
		return false
	}
	switch field.Kind {
	case models.FieldString:
		return strings.Contains(field.Str, s)
	case models.FieldStringList:
		for _, item := range field.List {
			if item == s {
				return true
			}
		}
	}
	return false
}

func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
