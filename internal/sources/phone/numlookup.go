package phone

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"scamguard/internal/domain/models"
	"scamguard/internal/sources"
	"scamguard/pkg/logger"
)

const (
	numLookupAPIURL = "https://api.numlookupapi.com/v1/validate"
	numLookupSlug   = "numlookup"
)

// NumLookupAdapter checks phone numbers for spam and scam reports
type NumLookupAdapter struct {
	*sources.BaseAdapter
	client *http.Client
	logger *logger.Logger
}

// NewNumLookupAdapter creates a new phone reputation adapter
func NewNumLookupAdapter(log *logger.Logger) *NumLookupAdapter {
	return &NumLookupAdapter{
		BaseAdapter: sources.NewBaseAdapter(
			numLookupSlug,
			"NumLookup",
			0.75,
			models.IndicatorTypePhone,
		),
		client: &http.Client{Timeout: sources.DefaultConfig().Timeout},
		logger: log.WithComponent("numlookup"),
	}
}

// Configure applies adapter configuration
func (a *NumLookupAdapter) Configure(cfg sources.AdapterConfig) error {
	if err := a.BaseAdapter.Configure(cfg); err != nil {
		return err
	}
	a.client.Timeout = a.Config().Timeout
	return nil
}

type numLookupResponse struct {
	Valid       bool   `json:"valid"`
	Number      string `json:"number"`
	CountryCode string `json:"country_code"`
	Carrier     string `json:"carrier"`
	LineType    string `json:"line_type"`
	IsSpam      bool   `json:"is_spam"`
	SpamReports int    `json:"spam_reports"`
	ScamReports int    `json:"scam_reports"`
}

// Lookup queries the phone reputation provider for a single number
func (a *NumLookupAdapter) Lookup(ctx context.Context, value string, t models.IndicatorType) (*models.ThreatIndicator, error) {
	if !a.Supports(t) {
		return nil, nil
	}
	if a.Config().APIKey == "" {
		a.logger.Debug().Msg("NumLookup API key not configured, skipping")
		return nil, nil
	}

	apiURL := a.Config().APIURL
	if apiURL == "" {
		apiURL = numLookupAPIURL
	}

	normalized := normalizeNumber(value)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"/"+normalized, nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("apikey", a.Config().APIKey)
	req.URL.RawQuery = q.Encode()

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("NumLookup returned status %d", resp.StatusCode)
	}

	var apiResp numLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	confidence := spamConfidence(apiResp)
	if confidence == 0 {
		return nil, nil
	}

	tags := []string{"phone-reputation"}
	if apiResp.ScamReports > 0 {
		tags = append(tags, "scam-reports")
	}
	if apiResp.IsSpam {
		tags = append(tags, "spam")
	}

	now := time.Now()
	return &models.ThreatIndicator{
		Value:       value,
		Type:        models.IndicatorTypePhone,
		Confidence:  confidence,
		Severity:    models.SeverityForConfidence(confidence),
		FirstSeen:   now,
		LastSeen:    now,
		SourceName:  a.Name(),
		Description: fmt.Sprintf("Phone reputation: %d spam / %d scam reports", apiResp.SpamReports, apiResp.ScamReports),
		Tags:        tags,
		TTLSeconds:  86400,
		Context: models.IndicatorContext{
			Geolocation: apiResp.CountryCode,
		},
	}, nil
}

// spamConfidence maps report counts onto a confidence in [0,1]. Scam
// reports weigh double spam reports; an invalid number with reports is
// treated as a likely spoofed caller ID.
func spamConfidence(r numLookupResponse) float64 {
	score := float64(r.SpamReports)*0.05 + float64(r.ScamReports)*0.10
	if r.IsSpam {
		score += 0.30
	}
	if !r.Valid && (r.SpamReports > 0 || r.ScamReports > 0) {
		score += 0.20
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// normalizeNumber strips formatting characters, keeping digits and a
// leading plus sign
func normalizeNumber(raw string) string {
	var b strings.Builder
	for i, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
