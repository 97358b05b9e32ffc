package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crediflow/crm-backend/pkg/apperrors"
)

// Options configures the HTTP gateway client
type Options struct {
	BaseURL        string
	AccountID      string
	APISecret      string
	CountryCode    string
	RequestTimeout time.Duration
}

// HTTPClient talks to the external messaging provider over HTTPS. Every call
// is a single bounded-timeout request; provider-side failures come back as an
// unsuccessful SendResult, never as a thrown error.
type HTTPClient struct {
	opts       Options
	tokens     *TokenService
	httpClient *http.Client
}

// NewHTTPClient creates a gateway client for the configured provider account
func NewHTTPClient(opts Options) *HTTPClient {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.CountryCode == "" {
		opts.CountryCode = "91"
	}
	return &HTTPClient{
		opts:   opts,
		tokens: NewTokenService(opts.AccountID, opts.APISecret),
		httpClient: &http.Client{
			Timeout: opts.RequestTimeout,
		},
	}
}

func (c *HTTPClient) configured() bool {
	return c.opts.BaseURL != "" && c.opts.APISecret != ""
}

// SendText sends a free-form text message
func (c *HTTPClient) SendText(ctx context.Context, phone, body string) (*SendResult, error) {
	if body == "" {
		return nil, apperrors.NewValidation("body", "empty message body")
	}
	return c.send(ctx, phone, map[string]interface{}{
		"type": "text",
		"body": body,
	})
}

// SendTemplate sends a named pre-approved template with positional parameters
func (c *HTTPClient) SendTemplate(ctx context.Context, phone, templateName string, params []string) (*SendResult, error) {
	if templateName == "" {
		return nil, apperrors.NewValidation("templateName", "missing template name")
	}
	return c.send(ctx, phone, map[string]interface{}{
		"type":     "template",
		"template": templateName,
		"params":   params,
	})
}

// SendMedia sends a media template with an attached media URL
func (c *HTTPClient) SendMedia(ctx context.Context, phone, templateName string, params []string, mediaURL, mediaType string) (*SendResult, error) {
	if templateName == "" {
		return nil, apperrors.NewValidation("templateName", "missing template name")
	}
	if mediaURL == "" {
		return nil, apperrors.NewValidation("mediaUrl", "missing media url")
	}
	return c.send(ctx, phone, map[string]interface{}{
		"type":      "media",
		"template":  templateName,
		"params":    params,
		"mediaUrl":  mediaURL,
		"mediaType": mediaType,
	})
}

func (c *HTTPClient) send(ctx context.Context, phone string, payload map[string]interface{}) (*SendResult, error) {
	normalized, err := NormalizePhone(phone, c.opts.CountryCode)
	if err != nil {
		return nil, err
	}
	if !c.configured() {
		return nil, apperrors.NewConfiguration("gateway", "missing base URL or credentials")
	}

	payload["phone"] = normalized
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/v1/messages", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and transport errors are ordinary send failures
		return &SendResult{Success: false, ErrorDetail: err.Error()}, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return &SendResult{Success: false, ErrorDetail: fmt.Sprintf("failed to read response: %v", err)}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &SendResult{
			Success:     false,
			ErrorDetail: fmt.Sprintf("gateway returned status %d: %s", resp.StatusCode, string(body)),
		}, nil
	}

	var response struct {
		MessageID string `json:"messageId"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return &SendResult{Success: false, ErrorDetail: fmt.Sprintf("unparseable gateway response: %v", err)}, nil
	}

	return &SendResult{Success: true, ProviderMessageID: response.MessageID}, nil
}

// ListTemplates fetches the provider-side template catalogue
func (c *HTTPClient) ListTemplates(ctx context.Context) ([]Template, error) {
	if !c.configured() {
		return nil, apperrors.NewConfiguration("gateway", "missing base URL or credentials")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+"/v1/templates", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Templates []Template `json:"templates"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse template list: %w", err)
	}
	return response.Templates, nil
}

// CheckHealth reports configuration and reachability of the provider
func (c *HTTPClient) CheckHealth(ctx context.Context) Health {
	health := Health{Configured: c.configured()}
	if !health.Configured {
		return health
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+"/v1/health", nil)
	if err != nil {
		return health
	}
	if err := c.authorize(req); err != nil {
		return health
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return health
	}
	defer resp.Body.Close()
	health.Reachable = resp.StatusCode == http.StatusOK
	return health
}

func (c *HTTPClient) authorize(req *http.Request) error {
	token, err := c.tokens.AccessToken()
	if err != nil {
		return apperrors.NewConfiguration("gateway", "failed to sign access token: "+err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
