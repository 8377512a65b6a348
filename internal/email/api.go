package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// HTTP API Mailer Implementation
// =============================================================================

// APIMailer sends emails through a transactional provider's HTTP API.
//
// The provider's HTTP status code drives retry classification via
// ProviderError; the caller owns the retry loop.
type APIMailer struct {
	config APIConfig
	client *http.Client
	logger *slog.Logger
}

// NewAPIMailer creates a new API-based mailer.
func NewAPIMailer(config APIConfig, logger *slog.Logger) (*APIMailer, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("email API URL is required")
	}
	if config.From == "" {
		config.From = DefaultFromEmail
	}
	if config.FromName == "" {
		config.FromName = DefaultFromName
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}

	return &APIMailer{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}, nil
}

// Send submits one message to the provider.
func (m *APIMailer) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(m.buildRequest(msg))
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if m.config.Token != "" {
		req.Header.Set("X-Server-Token", m.config.Token)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		if ctx.Err() == context.Canceled {
			return ctx.Err()
		}
		// Network errors and client timeouts never reached the provider.
		return &ProviderError{StatusCode: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ProviderError{StatusCode: 0, Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		perr := m.mapError(resp.StatusCode, respBody)
		m.logger.Error("provider rejected email",
			"to", msg.To,
			"subject", msg.Subject,
			"status", resp.StatusCode,
			"retryable", perr.Retryable(),
		)
		return perr
	}

	var sendResp apiSendResponse
	_ = json.Unmarshal(respBody, &sendResp)

	m.logger.Info("email sent",
		"transport", "api",
		"to", msg.To,
		"subject", msg.Subject,
		"message_id", sendResp.MessageID,
	)
	return nil
}

// buildRequest maps a Message onto the provider's send payload.
func (m *APIMailer) buildRequest(msg Message) apiSendRequest {
	from := msg.From
	if from == "" {
		from = m.config.From
	}
	fromName := msg.FromName
	if fromName == "" {
		fromName = m.config.FromName
	}

	req := apiSendRequest{
		From:     fmt.Sprintf("%s <%s>", fromName, from),
		To:       strings.Join(msg.To, ","),
		ReplyTo:  msg.ReplyTo,
		Subject:  msg.Subject,
		HTMLBody: msg.HTMLBody,
		TextBody: msg.TextBody,
	}
	for _, a := range msg.Attachments {
		req.Attachments = append(req.Attachments, apiAttachment{
			Name:        a.Name,
			Content:     base64.StdEncoding.EncodeToString(a.Data),
			ContentType: a.ContentType,
		})
	}
	return req
}

// mapError converts a provider response to a ProviderError, pulling the
// provider's message out of the body when present.
func (m *APIMailer) mapError(statusCode int, body []byte) *ProviderError {
	var errResp apiErrorResponse
	_ = json.Unmarshal(body, &errResp)

	message := errResp.Message
	if message == "" {
		message = http.StatusText(statusCode)
	}

	return &ProviderError{
		StatusCode: statusCode,
		Message:    message,
	}
}

// =============================================================================
// API Payload Types
// =============================================================================

type apiSendRequest struct {
	From        string          `json:"From"`
	To          string          `json:"To"`
	ReplyTo     string          `json:"ReplyTo,omitempty"`
	Subject     string          `json:"Subject"`
	HTMLBody    string          `json:"HtmlBody"`
	TextBody    string          `json:"TextBody,omitempty"`
	Attachments []apiAttachment `json:"Attachments,omitempty"`
}

type apiAttachment struct {
	Name        string `json:"Name"`
	Content     string `json:"Content"`
	ContentType string `json:"ContentType"`
}

type apiSendResponse struct {
	MessageID string `json:"MessageID"`
}

type apiErrorResponse struct {
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
}

// Compile-time interface check
var _ Mailer = (*APIMailer)(nil)
