// Package email composes and sends quote reply emails.
//
// This package defines a Mailer interface with implementations for:
// - SMTP (Mailhog in development, any authenticated relay in production)
// - An HTTP transactional-email provider API
//
// It also contains the reply template builder, a pure function mapping a
// reply payload to a self-contained HTML document.
package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Mailer defines the interface for sending one transactional email.
//
// All implementations are context-aware; the caller applies per-attempt
// timeouts and owns the retry policy.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// =============================================================================
// Message Types
// =============================================================================

// Message represents a single outbound email.
type Message struct {
	From        string // Sender address; defaults come from config
	FromName    string // Sender display name
	To          []string
	ReplyTo     string // Optional Reply-To address
	Subject     string
	HTMLBody    string
	TextBody    string // Plain text fallback
	Attachments []Attachment
}

// Attachment is one file sent with a message.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// =============================================================================
// Configuration Types
// =============================================================================

// SMTPConfig holds SMTP relay configuration.
type SMTPConfig struct {
	Host     string // SMTP server hostname (e.g., "localhost" for Mailhog)
	Port     int    // SMTP server port (e.g., 1025 for Mailhog)
	Username string // SMTP authentication username (empty for Mailhog)
	Password string // SMTP authentication password (empty for Mailhog)
	From     string // Default sender email address
	FromName string // Default sender display name
}

// APIConfig holds configuration for the HTTP provider implementation.
type APIConfig struct {
	URL      string        // Provider send endpoint
	Token    string        // Server token sent with every request
	From     string        // Default sender email address
	FromName string        // Default sender display name
	Timeout  time.Duration // HTTP client timeout (default 15s)
}

const (
	// DefaultFromEmail is the default sender for reply emails.
	DefaultFromEmail = "devis@piecesautodistrib.fr"

	// DefaultFromName is the default sender display name.
	DefaultFromName = "Pièces Auto Distrib"
)

// =============================================================================
// Provider Errors
// =============================================================================

// ProviderError is a delivery failure reported by the transport or the
// provider. StatusCode carries the HTTP-like code used to decide retry
// eligibility; 0 means the request never reached the provider.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("email provider unreachable: %s", e.Message)
	}
	return fmt.Sprintf("email provider error (status %d): %s", e.StatusCode, e.Message)
}

// Retryable reports whether the failure is transient. Network errors,
// timeouts, throttling and 5xx-class responses retry; everything else
// (bad request, rejected sender, auth) is permanent.
func (e *ProviderError) Retryable() bool {
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusRequestTimeout:
		return true
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err is a transient delivery failure.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return false
}
