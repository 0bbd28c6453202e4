// Package classify maps raw indicator strings to typed indicator categories.
package classify

import (
	"net"
	"regexp"
	"strings"

	"scamguard/internal/domain/models"
)

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern  = regexp.MustCompile(`^\+?\(?[0-9][0-9\s().-]{6,18}$`)
	domainPattern = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)
	hashPattern   = regexp.MustCompile(`^[a-fA-F0-9]{32,64}$`)
	btcPattern    = regexp.MustCompile(`^(bc1|[13])[a-zA-HJ-NP-Z0-9]{25,39}$`)
	ethPattern    = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
)

// Classify maps a raw string to exactly one indicator type, checking
// patterns in fixed priority order. The order is a deliberate tie-break: a
// value matching both the phone and domain shapes classifies as phone
// because phone is checked first. An unrecognized string falls back to
// domain; there is no error case.
func Classify(raw string) models.IndicatorType {
	value := strings.TrimSpace(raw)

	if isIPv4(value) {
		return models.IndicatorTypeIP
	}
	if emailPattern.MatchString(value) {
		return models.IndicatorTypeEmail
	}
	if phonePattern.MatchString(value) {
		return models.IndicatorTypePhone
	}
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return models.IndicatorTypeURL
	}
	if domainPattern.MatchString(value) {
		return models.IndicatorTypeDomain
	}
	if hashPattern.MatchString(value) {
		return models.IndicatorTypeHash
	}
	if btcPattern.MatchString(value) || ethPattern.MatchString(value) {
		return models.IndicatorTypeWallet
	}
	return models.IndicatorTypeDomain
}

// isIPv4 reports whether the value is a dotted-quad IPv4 literal
func isIPv4(value string) bool {
	if !strings.Contains(value, ".") {
		return false
	}
	ip := net.ParseIP(value)
	return ip != nil && ip.To4() != nil
}
