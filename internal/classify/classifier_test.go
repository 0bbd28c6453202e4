package classify

import (
	"strings"
	"testing"

	"scamguard/internal/domain/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		raw  string
		want models.IndicatorType
	}{
		{"8.8.8.8", models.IndicatorTypeIP},
		{"192.168.1.254", models.IndicatorTypeIP},
		{"a@b.com", models.IndicatorTypeEmail},
		{"support@paypa1-secure.net", models.IndicatorTypeEmail},
		{"+1-202-555-0100", models.IndicatorTypePhone},
		{"(020) 7946 0958", models.IndicatorTypePhone},
		{"http://x.com", models.IndicatorTypeURL},
		{"https://login.example.com/verify", models.IndicatorTypeURL},
		{"example.com", models.IndicatorTypeDomain},
		{"sub.domain.co.uk", models.IndicatorTypeDomain},
		{strings.Repeat("ab12", 8), models.IndicatorTypeHash},  // 32 hex chars
		{strings.Repeat("ab12", 16), models.IndicatorTypeHash}, // 64 hex chars
		{"0x" + strings.Repeat("ab12", 10), models.IndicatorTypeWallet},
		{"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", models.IndicatorTypeWallet},
		{"not a real indicator", models.IndicatorTypeDomain}, // fallback
	}

	for _, tt := range tests {
		if got := Classify(tt.raw); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

// A value matching both the phone and the domain shapes resolves as phone:
// the priority order is fixed.
func TestClassifyPriorityOrder(t *testing.T) {
	if got := Classify("123.456.7890"); got != models.IndicatorTypePhone {
		t.Errorf("phone-shaped value classified as %q, want phone", got)
	}
}

func TestClassifyNeverErrors(t *testing.T) {
	for _, raw := range []string{"", "   ", "\x00\x01", "🙂"} {
		got := Classify(raw)
		if got == "" {
			t.Errorf("Classify(%q) returned empty type", raw)
		}
	}
}
