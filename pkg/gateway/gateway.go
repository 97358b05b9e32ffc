package gateway

import (
	"context"
	"regexp"
	"strings"

	"github.com/crediflow/crm-backend/pkg/apperrors"
)

// SendResult is the outcome of a single send attempt. Ordinary provider
// failures are reported through Success/ErrorDetail rather than an error, so
// callers only handle errors for validation and configuration problems.
type SendResult struct {
	Success           bool   `json:"success"`
	ProviderMessageID string `json:"providerMessageId,omitempty"`
	ErrorDetail       string `json:"errorDetail,omitempty"`
}

// Template is a provider-side message template
type Template struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Category string `json:"category"`
	Status   string `json:"status"`
	Body     string `json:"body"`
}

// Health reports whether the gateway is configured and reachable
type Health struct {
	Configured bool `json:"configured"`
	Reachable  bool `json:"reachable"`
}

// Client is the outbound messaging gateway contract. Implementations perform
// exactly one attempt per call; retry policy lives with the retry manager.
type Client interface {
	SendText(ctx context.Context, phone, body string) (*SendResult, error)
	SendTemplate(ctx context.Context, phone, templateName string, params []string) (*SendResult, error)
	SendMedia(ctx context.Context, phone, templateName string, params []string, mediaURL, mediaType string) (*SendResult, error)
	ListTemplates(ctx context.Context) ([]Template, error)
	CheckHealth(ctx context.Context) Health
}

var digitsOnly = regexp.MustCompile(`^[0-9]+$`)

// NormalizePhone validates a phone identifier and returns it in
// +<country><number> form. Accepts a 10-digit local number (prefixed with the
// given default country code) or an already country-prefixed number of 11-15
// digits. Malformed input fails fast with a ValidationError before any
// network call.
func NormalizePhone(phone, defaultCountryCode string) (string, error) {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
	if cleaned == "" {
		return "", apperrors.NewValidation("phone", "empty phone number")
	}

	hasPlus := strings.HasPrefix(cleaned, "+")
	if hasPlus {
		cleaned = cleaned[1:]
	}
	if !digitsOnly.MatchString(cleaned) {
		return "", apperrors.NewValidation("phone", "non-numeric characters in phone number")
	}

	switch {
	case !hasPlus && len(cleaned) == 10:
		return "+" + defaultCountryCode + cleaned, nil
	case len(cleaned) >= 11 && len(cleaned) <= 15:
		return "+" + cleaned, nil
	default:
		return "", apperrors.NewValidation("phone", "expected 10-digit local or country-prefixed number")
	}
}
