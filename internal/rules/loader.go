package rules

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"scamguard/internal/domain/models"
)

// ruleEntry wraps AlertRule to parse cooldown from its "5m" string form
type ruleEntry struct {
	models.AlertRule `yaml:",inline"`
	Cooldown         string `yaml:"cooldown"`
}

// ruleFile is the YAML document shape for a rule configuration file
type ruleFile struct {
	Rules []ruleEntry `yaml:"rules"`
}

// LoadRules reads alert rules from a YAML file. Rules with no ID or no
// conditions are rejected.
func LoadRules(path string) ([]*models.AlertRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules parses alert rules from YAML bytes
func ParseRules(data []byte) ([]*models.AlertRule, error) {
	var doc ruleFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}

	seen := make(map[string]bool, len(doc.Rules))
	rules := make([]*models.AlertRule, 0, len(doc.Rules))
	for i := range doc.Rules {
		entry := &doc.Rules[i]
		rule := entry.AlertRule
		if rule.ID == "" {
			return nil, fmt.Errorf("rule %q missing id", rule.Name)
		}
		if seen[rule.ID] {
			return nil, fmt.Errorf("duplicate rule id %q", rule.ID)
		}
		seen[rule.ID] = true
		if len(rule.Conditions) == 0 {
			return nil, fmt.Errorf("rule %q has no conditions", rule.ID)
		}
		for _, cond := range rule.Conditions {
			if !cond.Operator.Valid() {
				return nil, fmt.Errorf("rule %q has unknown operator %q", rule.ID, cond.Operator)
			}
		}
		if entry.Cooldown != "" {
			d, err := time.ParseDuration(entry.Cooldown)
			if err != nil {
				return nil, fmt.Errorf("rule %q has invalid cooldown: %w", rule.ID, err)
			}
			rule.Cooldown = d
		}
		rules = append(rules, &rule)
	}
	return rules, nil
}
