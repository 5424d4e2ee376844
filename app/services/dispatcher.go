// Package services provides external service integrations and technical concerns like message delivery and tokens
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/clearlens/campaign-engine/config"
	"github.com/clearlens/campaign-engine/models"
	"github.com/clearlens/campaign-engine/utils"
)

// Dispatcher delivers rendered messages over a channel
type Dispatcher interface {
	Send(ctx context.Context, channel models.MessageChannel, destination, subject, body string) error
}

// DispatcherImpl implements Dispatcher against HTTP delivery providers
type DispatcherImpl struct {
	config *config.DispatcherConfig
	client *http.Client
}

// SMSRequest represents the request payload for the SMS provider API
type SMSRequest struct {
	SrcNum         string `json:"srcNum"`
	Recipient      string `json:"recipient"`
	Body           string `json:"body"`
	RetryCount     int    `json:"retryCount"`
	ValidityPeriod int    `json:"validityPeriod"`
}

// SMSResponse represents the delivery result from the SMS provider API
type SMSResponse struct {
	MessageID  int64  `json:"messageId"`
	Recipient  string `json:"recipient"`
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
}

// EmailRequest represents the request payload for the email provider API
type EmailRequest struct {
	FromAddress string `json:"fromAddress"`
	FromName    string `json:"fromName"`
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
}

// EmailResponse represents the delivery result from the email provider API
type EmailResponse struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

// NewDispatcher creates a new dispatcher instance
func NewDispatcher(cfg *config.DispatcherConfig) Dispatcher {
	return &DispatcherImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Send delivers one message over the given channel
func (d *DispatcherImpl) Send(ctx context.Context, channel models.MessageChannel, destination, subject, body string) error {
	switch channel {
	case models.MessageChannelSMS:
		return d.sendSMS(ctx, destination, body)
	case models.MessageChannelEmail:
		return d.sendEmail(ctx, destination, subject, body)
	default:
		return fmt.Errorf("unsupported channel: %s", channel)
	}
}

func (d *DispatcherImpl) sendSMS(ctx context.Context, recipient, body string) error {
	request := SMSRequest{
		SrcNum:         d.config.SMS.SourceNumber,
		Recipient:      recipient,
		Body:           body,
		RetryCount:     d.config.SMS.RetryCount,
		ValidityPeriod: d.config.SMS.ValidityPeriod,
	}

	requestBody, err := json.Marshal([]SMSRequest{request})
	if err != nil {
		return fmt.Errorf("failed to marshal SMS request: %w", err)
	}

	url := fmt.Sprintf("https://%s/api/v3.0.1/send", d.config.SMS.ProviderDomain)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", d.config.SMS.APIKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS request: %w", err)
	}
	defer resp.Body.Close()

	var results []SMSResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return fmt.Errorf("failed to decode SMS response: %w", err)
	}
	for _, r := range results {
		if r.StatusCode != 200 || r.Status != "ACCEPTED" {
			return fmt.Errorf("SMS delivery failed for %s: %s (%d)", r.Recipient, r.Status, r.StatusCode)
		}
	}
	return nil
}

func (d *DispatcherImpl) sendEmail(ctx context.Context, to, subject, body string) error {
	request := EmailRequest{
		FromAddress: d.config.Email.FromAddress,
		FromName:    d.config.Email.FromName,
		To:          to,
		Subject:     subject,
		Body:        body,
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	url := fmt.Sprintf("https://%s/api/v1/messages", d.config.Email.ProviderDomain)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.config.Email.APIKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email request: %w", err)
	}
	defer resp.Body.Close()

	var result EmailResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode email response: %w", err)
	}
	if result.Status != "queued" && result.Status != "sent" {
		return fmt.Errorf("email delivery failed for %s: %s", to, result.Status)
	}
	return nil
}

// MockDispatcher implements Dispatcher for testing
type MockDispatcher struct {
	mu           sync.Mutex
	SentMessages []MockDispatch
	FailWith     error
}

// MockDispatch represents one delivery recorded by the mock
type MockDispatch struct {
	Channel     models.MessageChannel
	Destination string
	Subject     string
	Body        string
	SentAt      time.Time
}

// NewMockDispatcher creates a new mock dispatcher
func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{
		SentMessages: make([]MockDispatch, 0),
	}
}

// Send records a mock delivery
func (m *MockDispatcher) Send(ctx context.Context, channel models.MessageChannel, destination, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.SentMessages = append(m.SentMessages, MockDispatch{
		Channel:     channel,
		Destination: destination,
		Subject:     subject,
		Body:        body,
		SentAt:      utils.UTCNow(),
	})
	return nil
}

// GetSentMessages returns all recorded deliveries
func (m *MockDispatcher) GetSentMessages() []MockDispatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockDispatch, len(m.SentMessages))
	copy(out, m.SentMessages)
	return out
}
