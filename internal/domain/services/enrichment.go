package services

import (
	"context"
	"net"
	"time"

	"scamguard/internal/domain/models"
	"scamguard/pkg/logger"
)

// Enrichment carries best-effort context for a scored indicator. Every
// field is optional; failures during enrichment leave fields empty
// rather than failing the query.
type Enrichment struct {
	ResolvedIPs []string `json:"resolved_ips,omitempty"`
	ReverseDNS  []string `json:"reverse_dns,omitempty"`
	MXRecords   []string `json:"mx_records,omitempty"`
}

// Enricher attaches network context to indicator lookups
type Enricher struct {
	resolver *net.Resolver
	logger   *logger.Logger
	timeout  time.Duration
}

// NewEnricher creates an enricher using the system resolver
func NewEnricher(log *logger.Logger) *Enricher {
	return &Enricher{
		resolver: net.DefaultResolver,
		logger:   log.WithComponent("enricher"),
		timeout:  3 * time.Second,
	}
}

// Enrich performs best-effort DNS enrichment for the value. Never
// returns an error: a failed lookup is simply an empty field.
func (e *Enricher) Enrich(ctx context.Context, value string, t models.IndicatorType) *Enrichment {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out := &Enrichment{}
	switch t {
	case models.IndicatorTypeDomain:
		if addrs, err := e.resolver.LookupHost(ctx, value); err == nil {
			out.ResolvedIPs = addrs
		}
		if mxs, err := e.resolver.LookupMX(ctx, value); err == nil {
			for _, mx := range mxs {
				out.MXRecords = append(out.MXRecords, mx.Host)
			}
		}
	case models.IndicatorTypeIP:
		if names, err := e.resolver.LookupAddr(ctx, value); err == nil {
			out.ReverseDNS = names
		}
	}
	return out
}
