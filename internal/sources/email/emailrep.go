package email

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"scamguard/internal/domain/models"
	"scamguard/internal/sources"
	"scamguard/pkg/logger"
)

const (
	emailRepAPIURL = "https://emailrep.io"
	emailRepSlug   = "emailrep"
)

// EmailRepAdapter checks email addresses against the EmailRep reputation service
type EmailRepAdapter struct {
	*sources.BaseAdapter
	client *http.Client
	logger *logger.Logger
}

// NewEmailRepAdapter creates a new EmailRep adapter
func NewEmailRepAdapter(log *logger.Logger) *EmailRepAdapter {
	return &EmailRepAdapter{
		BaseAdapter: sources.NewBaseAdapter(
			emailRepSlug,
			"EmailRep",
			0.80,
			models.IndicatorTypeEmail,
		),
		client: &http.Client{Timeout: sources.DefaultConfig().Timeout},
		logger: log.WithComponent("emailrep"),
	}
}

// Configure applies adapter configuration
func (a *EmailRepAdapter) Configure(cfg sources.AdapterConfig) error {
	if err := a.BaseAdapter.Configure(cfg); err != nil {
		return err
	}
	a.client.Timeout = a.Config().Timeout
	return nil
}

type emailRepResponse struct {
	Email      string `json:"email"`
	Reputation string `json:"reputation"`
	Suspicious bool   `json:"suspicious"`
	Details    struct {
		Blacklisted        bool   `json:"blacklisted"`
		MaliciousActivity  bool   `json:"malicious_activity"`
		CredentialsLeaked  bool   `json:"credentials_leaked"`
		DataBreach         bool   `json:"data_breach"`
		NewDomain          bool   `json:"new_domain"`
		SpoofableDomain    bool   `json:"spoofable"`
		FreeProvider       bool   `json:"free_provider"`
		DisposableProvider bool   `json:"disposable"`
		LastSeen           string `json:"last_seen"`
	} `json:"details"`
}

// Lookup queries EmailRep for a single address
func (a *EmailRepAdapter) Lookup(ctx context.Context, value string, t models.IndicatorType) (*models.ThreatIndicator, error) {
	if !a.Supports(t) {
		return nil, nil
	}

	apiURL := a.Config().APIURL
	if apiURL == "" {
		apiURL = emailRepAPIURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"/"+url.PathEscape(value), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if key := a.Config().APIKey; key != "" {
		req.Header.Set("Key", key)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("EmailRep returned status %d", resp.StatusCode)
	}

	var apiResp emailRepResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	confidence, tags := emailConfidence(apiResp)
	if confidence == 0 {
		return nil, nil
	}

	lastSeen := time.Now()
	if ts, err := time.Parse("01/02/2006", apiResp.Details.LastSeen); err == nil {
		lastSeen = ts
	}

	return &models.ThreatIndicator{
		Value:       value,
		Type:        models.IndicatorTypeEmail,
		Confidence:  confidence,
		Severity:    models.SeverityForConfidence(confidence),
		FirstSeen:   lastSeen,
		LastSeen:    lastSeen,
		SourceName:  a.Name(),
		Description: fmt.Sprintf("EmailRep: reputation %s", apiResp.Reputation),
		Tags:        tags,
		TTLSeconds:  86400,
	}, nil
}

// emailConfidence maps EmailRep's verdicts onto a confidence in [0,1]
// with the signals that contributed as tags
func emailConfidence(r emailRepResponse) (float64, []string) {
	var score float64
	tags := []string{"email-reputation"}

	if r.Details.MaliciousActivity {
		score += 0.50
		tags = append(tags, "malicious-activity")
	}
	if r.Details.Blacklisted {
		score += 0.30
		tags = append(tags, "blacklisted")
	}
	if r.Suspicious {
		score += 0.20
		tags = append(tags, "suspicious")
	}
	if r.Details.DisposableProvider {
		score += 0.15
		tags = append(tags, "disposable")
	}
	if r.Details.NewDomain && r.Details.SpoofableDomain {
		score += 0.10
		tags = append(tags, "spoofable-new-domain")
	}
	if score > 1.0 {
		score = 1.0
	}
	return score, tags
}
