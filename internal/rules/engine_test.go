package rules

import (
	"testing"
	"time"

	"scamguard/internal/domain/models"
	"scamguard/pkg/logger"
)

func testRule(id string, conditions ...models.RuleCondition) *models.AlertRule {
	return &models.AlertRule{
		ID:         id,
		Name:       id,
		Enabled:    true,
		Conditions: conditions,
		Severity:   models.SeverityHigh,
		AlertType:  models.AlertTypeScam,
	}
}

func TestEvaluateAllConditionsMatch(t *testing.T) {
	engine := NewEngine([]*models.AlertRule{
		testRule("scam",
			models.RuleCondition{Field: "ai.isScam", Operator: models.OpEquals, Value: true, Weight: 1.0},
			models.RuleCondition{Field: "ai.confidence", Operator: models.OpGreaterThan, Value: 0.8, Weight: 1.0},
		),
	}, logger.Nop())

	sig := &models.Signal{
		Source: models.AlertSourceAIAnalysis,
		UserID: "user-1",
		AI:     &models.AIClassification{IsScam: true, Confidence: 0.95},
	}

	triggered := engine.Evaluate(sig)
	if len(triggered) != 1 || triggered[0].ID != "scam" {
		t.Fatalf("expected rule scam to trigger, got %d rules", len(triggered))
	}
}

func TestEvaluateHalfWeightDoesNotTrigger(t *testing.T) {
	// One of two equal-weight conditions matches: ratio 0.5 < 0.70
	engine := NewEngine([]*models.AlertRule{
		testRule("partial",
			models.RuleCondition{Field: "ai.isScam", Operator: models.OpEquals, Value: true, Weight: 1.0},
			models.RuleCondition{Field: "ai.confidence", Operator: models.OpGreaterThan, Value: 0.8, Weight: 1.0},
		),
	}, logger.Nop())

	sig := &models.Signal{
		AI: &models.AIClassification{IsScam: true, Confidence: 0.5},
	}

	if triggered := engine.Evaluate(sig); len(triggered) != 0 {
		t.Fatalf("expected no trigger at 0.5 matched ratio, got %d rules", len(triggered))
	}
}

func TestEvaluateWeightedMajorityTriggers(t *testing.T) {
	// Matched weight 1.0 of total 1.3 ≈ 0.77 ≥ 0.70
	engine := NewEngine([]*models.AlertRule{
		testRule("weighted",
			models.RuleCondition{Field: "risk_score", Operator: models.OpGreaterThan, Value: 0.9, Weight: 1.0},
			models.RuleCondition{Field: "ai.isScam", Operator: models.OpEquals, Value: true, Weight: 0.3},
		),
	}, logger.Nop())

	sig := &models.Signal{RiskScore: 0.95}

	if triggered := engine.Evaluate(sig); len(triggered) != 1 {
		t.Fatalf("expected weighted majority to trigger, got %d rules", len(triggered))
	}
}

func TestEvaluateMissingFieldIsNonMatch(t *testing.T) {
	engine := NewEngine([]*models.AlertRule{
		testRule("missing",
			models.RuleCondition{Field: "ai.confidence", Operator: models.OpGreaterThan, Value: 0.5, Weight: 1.0},
		),
	}, logger.Nop())

	// Signal without AI classification: the ai.* path is missing
	sig := &models.Signal{RiskScore: 0.99}

	if triggered := engine.Evaluate(sig); len(triggered) != 0 {
		t.Fatal("expected missing field to be a non-match")
	}
}

func TestEvaluateDisabledRuleSkipped(t *testing.T) {
	rule := testRule("disabled",
		models.RuleCondition{Field: "risk_score", Operator: models.OpGreaterThan, Value: 0.1, Weight: 1.0},
	)
	rule.Enabled = false
	engine := NewEngine([]*models.AlertRule{rule}, logger.Nop())

	if triggered := engine.Evaluate(&models.Signal{RiskScore: 0.9}); len(triggered) != 0 {
		t.Fatal("disabled rule must not trigger")
	}
}

func TestEvaluateOperators(t *testing.T) {
	sig := &models.Signal{
		Indicator: "http://evil.example.com/login",
		AI: &models.AIClassification{
			ThreatTypes: []string{"phishing", "credential_theft"},
		},
		RiskScore: 0.42,
		Extra:     map[string]any{"channel": map[string]any{"name": "sms"}},
	}

	tests := []struct {
		name string
		cond models.RuleCondition
		want bool
	}{
		{
			name: "contains substring on string",
			cond: models.RuleCondition{Field: "indicator", Operator: models.OpContains, Value: "evil.example"},
			want: true,
		},
		{
			name: "contains membership on list",
			cond: models.RuleCondition{Field: "ai.threatTypes", Operator: models.OpContains, Value: "phishing"},
			want: true,
		},
		{
			name: "contains non-member",
			cond: models.RuleCondition{Field: "ai.threatTypes", Operator: models.OpContains, Value: "malware"},
			want: false,
		},
		{
			name: "less_than",
			cond: models.RuleCondition{Field: "risk_score", Operator: models.OpLessThan, Value: 0.5},
			want: true,
		},
		{
			name: "regex",
			cond: models.RuleCondition{Field: "indicator", Operator: models.OpRegex, Value: `^https?://.*\.example\.com`},
			want: true,
		},
		{
			name: "equals on nested extra field",
			cond: models.RuleCondition{Field: "channel.name", Operator: models.OpEquals, Value: "sms"},
			want: true,
		},
		{
			name: "type mismatch never matches",
			cond: models.RuleCondition{Field: "risk_score", Operator: models.OpEquals, Value: "0.42"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine([]*models.AlertRule{testRule("op", tt.cond)}, logger.Nop())
			got := len(engine.Evaluate(sig)) == 1
			if got != tt.want {
				t.Errorf("matched = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateInvalidRegexNeverMatches(t *testing.T) {
	engine := NewEngine([]*models.AlertRule{
		testRule("bad-regex",
			models.RuleCondition{Field: "indicator", Operator: models.OpRegex, Value: "([unclosed", Weight: 1.0},
		),
	}, logger.Nop())

	sig := &models.Signal{Indicator: "([unclosed"}
	if triggered := engine.Evaluate(sig); len(triggered) != 0 {
		t.Fatal("condition with invalid regex must never match")
	}
}

func TestParseRules(t *testing.T) {
	doc := []byte(`
rules:
  - id: yaml-rule
    name: YAML Rule
    enabled: true
    severity: high
    alert_type: phishing
    cooldown: 5m
    conditions:
      - field: ai.confidence
        operator: greater_than
        value: 0.7
        weight: 1.0
    actions:
      - block_indicator
`)

	rules, err := ParseRules(doc)
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}

	rule := rules[0]
	if rule.ID != "yaml-rule" || rule.Severity != models.SeverityHigh || rule.AlertType != models.AlertTypePhishing {
		t.Errorf("unexpected rule: %+v", rule)
	}
	if len(rule.Conditions) != 1 || rule.Conditions[0].Operator != models.OpGreaterThan {
		t.Errorf("unexpected conditions: %+v", rule.Conditions)
	}
	if rule.Cooldown != 5*time.Minute {
		t.Errorf("cooldown = %s, want 5m", rule.Cooldown)
	}
}

func TestParseRulesRejectsDuplicateIDs(t *testing.T) {
	doc := []byte(`
rules:
  - id: dup
    conditions:
      - {field: risk_score, operator: greater_than, value: 0.5}
  - id: dup
    conditions:
      - {field: risk_score, operator: greater_than, value: 0.9}
`)
	if _, err := ParseRules(doc); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestParseRulesRejectsUnknownOperator(t *testing.T) {
	doc := []byte(`
rules:
  - id: bad-op
    conditions:
      - {field: risk_score, operator: approximately, value: 0.5}
`)
	if _, err := ParseRules(doc); err == nil {
		t.Fatal("expected unknown operator error")
	}
}

func TestDefaultRulesTriggerOnScamSignal(t *testing.T) {
	engine := NewEngine(DefaultRules(), logger.Nop())

	sig := &models.Signal{
		Source: models.AlertSourceAIAnalysis,
		UserID: "user-1",
		AI: &models.AIClassification{
			IsScam:      true,
			Confidence:  0.92,
			ThreatTypes: []string{"phishing"},
		},
	}

	triggered := engine.Evaluate(sig)
	ids := make(map[string]bool, len(triggered))
	for _, rule := range triggered {
		ids[rule.ID] = true
	}
	if !ids["high-confidence-scam"] {
		t.Error("expected high-confidence-scam to trigger")
	}
	if !ids["phishing-threat-type"] {
		t.Error("expected phishing-threat-type to trigger")
	}
}
