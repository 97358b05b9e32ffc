package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MockClient is an in-memory gateway for development and tests. FailPhones
// and FailEvery make individual sends fail deterministically.
type MockClient struct {
	CountryCode string
	FailPhones  map[string]string // normalized phone -> error detail
	FailEvery   int               // fail every Nth send when > 0

	mu        sync.Mutex
	sends     int
	Sent      []MockSend
	Templates []Template
}

// MockSend records one send accepted by the mock
type MockSend struct {
	Phone        string
	Body         string
	TemplateName string
	Params       []string
	MediaURL     string
}

// NewMockClient creates a MockClient with a couple of approved templates
func NewMockClient() *MockClient {
	return &MockClient{
		CountryCode: "91",
		FailPhones:  map[string]string{},
		Templates: []Template{
			{Name: "loan_offer", Language: "en", Category: "MARKETING", Status: "APPROVED", Body: "Hi {{1}}, your pre-approved loan of {{2}} awaits."},
			{Name: "payment_reminder", Language: "en", Category: "UTILITY", Status: "APPROVED", Body: "Hi {{1}}, your EMI of {{2}} is due on {{3}}."},
		},
	}
}

func (m *MockClient) record(phone, body, template string, params []string, mediaURL string) (*SendResult, error) {
	normalized, err := NormalizePhone(phone, m.CountryCode)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends++

	if detail, ok := m.FailPhones[normalized]; ok {
		return &SendResult{Success: false, ErrorDetail: detail}, nil
	}
	if m.FailEvery > 0 && m.sends%m.FailEvery == 0 {
		return &SendResult{Success: false, ErrorDetail: fmt.Sprintf("simulated failure on send %d", m.sends)}, nil
	}

	m.Sent = append(m.Sent, MockSend{Phone: normalized, Body: body, TemplateName: template, Params: params, MediaURL: mediaURL})
	return &SendResult{Success: true, ProviderMessageID: "MOCK-" + uuid.NewString()}, nil
}

// SendText simulates a text send
func (m *MockClient) SendText(ctx context.Context, phone, body string) (*SendResult, error) {
	return m.record(phone, body, "", nil, "")
}

// SendTemplate simulates a template send
func (m *MockClient) SendTemplate(ctx context.Context, phone, templateName string, params []string) (*SendResult, error) {
	return m.record(phone, "", templateName, params, "")
}

// SendMedia simulates a media template send
func (m *MockClient) SendMedia(ctx context.Context, phone, templateName string, params []string, mediaURL, mediaType string) (*SendResult, error) {
	return m.record(phone, "", templateName, params, mediaURL)
}

// ListTemplates returns the mock template catalogue
func (m *MockClient) ListTemplates(ctx context.Context) ([]Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Template, len(m.Templates))
	copy(out, m.Templates)
	return out, nil
}

// CheckHealth always reports the mock as configured and reachable
func (m *MockClient) CheckHealth(ctx context.Context) Health {
	return Health{Configured: true, Reachable: true}
}

// SendCount returns how many sends the mock has accepted or failed
func (m *MockClient) SendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sends
}
