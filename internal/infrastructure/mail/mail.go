// Package mail delivers transactional email through Resend, with a
// log-only fallback for environments without an API key.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mecsa/pkg/logger"
)

const resendEndpoint = "https://api.resend.com/emails"

// Mailer sends one HTML message.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// ResendMailer sends through the Resend HTTP API.
type ResendMailer struct {
	apiKey string
	from   string
	client *http.Client
}

// NewResendMailer creates a Resend client. from is "Name <addr>".
func NewResendMailer(apiKey, senderName, senderEmail string) *ResendMailer {
	return &ResendMailer{
		apiKey: apiKey,
		from:   fmt.Sprintf("%s <%s>", senderName, senderEmail),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send posts the message and fails on any non-2xx response.
func (m *ResendMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	body, err := json.Marshal(resendRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		HTML:    htmlBody,
	})
	if err != nil {
		return fmt.Errorf("marshal mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resendEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("mail provider returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}

// LogMailer writes the message to the log instead of sending. Used in
// development and tests.
type LogMailer struct{}

// Send logs the message. The body only appears at debug level so login
// codes stay out of production log storage.
func (LogMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	logger.Info(ctx, "mail suppressed", "to", to, "subject", subject)
	logger.Debug(ctx, "mail body", "to", to, "body", htmlBody)
	return nil
}
