package ip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"scamguard/internal/domain/models"
	"scamguard/internal/sources"
	"scamguard/pkg/logger"
)

const (
	abuseIPDBAPIURL = "https://api.abuseipdb.com/api/v2/check"
	abuseIPDBSlug   = "abuseipdb"
)

// AbuseIPDBAdapter checks IP reputation against AbuseIPDB
type AbuseIPDBAdapter struct {
	*sources.BaseAdapter
	client *http.Client
	logger *logger.Logger
}

// NewAbuseIPDBAdapter creates a new AbuseIPDB adapter
func NewAbuseIPDBAdapter(log *logger.Logger) *AbuseIPDBAdapter {
	return &AbuseIPDBAdapter{
		BaseAdapter: sources.NewBaseAdapter(
			abuseIPDBSlug,
			"AbuseIPDB",
			0.90,
			models.IndicatorTypeIP,
		),
		client: &http.Client{Timeout: sources.DefaultConfig().Timeout},
		logger: log.WithComponent("abuseipdb"),
	}
}

// Configure applies adapter configuration
func (a *AbuseIPDBAdapter) Configure(cfg sources.AdapterConfig) error {
	if err := a.BaseAdapter.Configure(cfg); err != nil {
		return err
	}
	a.client.Timeout = a.Config().Timeout
	return nil
}

type abuseIPDBResponse struct {
	Data struct {
		IPAddress            string `json:"ipAddress"`
		AbuseConfidenceScore int    `json:"abuseConfidenceScore"`
		CountryCode          string `json:"countryCode"`
		TotalReports         int    `json:"totalReports"`
		LastReportedAt       string `json:"lastReportedAt"`
	} `json:"data"`
}

// Lookup queries AbuseIPDB for a single IP address
func (a *AbuseIPDBAdapter) Lookup(ctx context.Context, value string, t models.IndicatorType) (*models.ThreatIndicator, error) {
	if !a.Supports(t) {
		return nil, nil
	}
	if a.Config().APIKey == "" {
		a.logger.Debug().Msg("AbuseIPDB API key not configured, skipping")
		return nil, nil
	}

	apiURL := a.Config().APIURL
	if apiURL == "" {
		apiURL = abuseIPDBAPIURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Key", a.Config().APIKey)
	req.Header.Set("Accept", "application/json")

	q := req.URL.Query()
	q.Set("ipAddress", value)
	q.Set("maxAgeInDays", "90")
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
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("AbuseIPDB returned status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp abuseIPDBResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// Clean IPs are absence, not a finding
	if apiResp.Data.AbuseConfidenceScore == 0 {
		return nil, nil
	}

	confidence := float64(apiResp.Data.AbuseConfidenceScore) / 100.0

	lastSeen := time.Now()
	if ts, err := time.Parse(time.RFC3339, apiResp.Data.LastReportedAt); err == nil {
		lastSeen = ts
	}

	tags := []string{"reputation", "malicious-ip"}
	if apiResp.Data.CountryCode != "" {
		tags = append(tags, apiResp.Data.CountryCode)
	}

	return &models.ThreatIndicator{
		Value:       value,
		Type:        models.IndicatorTypeIP,
		Confidence:  confidence,
		Severity:    models.SeverityForConfidence(confidence),
		FirstSeen:   lastSeen,
		LastSeen:    lastSeen,
		SourceName:  a.Name(),
		Description: fmt.Sprintf("AbuseIPDB: confidence %d%%, %d reports", apiResp.Data.AbuseConfidenceScore, apiResp.Data.TotalReports),
		Tags:        tags,
		TTLSeconds:  3600,
		Context: models.IndicatorContext{
			Geolocation: apiResp.Data.CountryCode,
		},
	}, nil
}
