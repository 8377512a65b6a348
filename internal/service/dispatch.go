// Package service contains the business logic layer.
//
// This file implements the reply dispatch service: validate the request,
// build the email, deliver it with bounded retry, persist the reply and
// update the quote metadata.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/tbessard/devismail/internal/domain"
	"github.com/tbessard/devismail/internal/email"
	"github.com/tbessard/devismail/internal/metrics"
	"github.com/tbessard/devismail/internal/storage"
	"github.com/tbessard/devismail/internal/store"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Dispatcher delivers one reply: build, send, persist.
type Dispatcher interface {
	// Dispatch sends the reply described by req and records it against
	// the quote. The reply is persisted whether or not delivery succeeds;
	// a terminal delivery failure is surfaced as an unavailable error
	// after persistence.
	Dispatch(ctx context.Context, req domain.DispatchRequest) (*DispatchResult, error)
}

// DispatchResult reports one completed dispatch.
type DispatchResult struct {
	Reply      domain.ReplyRecord `json:"reply"`
	Attempts   int                `json:"attempts"`
	ReplyCount int                `json:"replyCount"`
}

// Options configures the dispatch service.
type Options struct {
	// ReplyTo is the Reply-To address stamped on every outbound reply,
	// so client answers land in the operators' shared inbox. Empty
	// leaves the header unset.
	ReplyTo string

	// MaxRetries is the number of retries after the first send attempt.
	// Default 2 (three attempts total); -1 disables retries entirely.
	MaxRetries int

	// RetryBaseDelay is the first backoff delay; subsequent delays grow
	// linearly (base, 2×base, …). Default 1s.
	RetryBaseDelay time.Duration

	// SendTimeout bounds each individual send attempt. Default 15s.
	SendTimeout time.Duration

	// MaxAttachmentSize bounds each attachment loaded from storage.
	// Default 10 MiB.
	MaxAttachmentSize int64
}

func (o Options) withDefaults() Options {
	if o.MaxRetries == 0 {
		o.MaxRetries = 2
	} else if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBaseDelay == 0 {
		o.RetryBaseDelay = time.Second
	}
	if o.SendTimeout == 0 {
		o.SendTimeout = 15 * time.Second
	}
	if o.MaxAttachmentSize == 0 {
		o.MaxAttachmentSize = 10 << 20
	}
	return o
}

// =============================================================================
// Implementation
// =============================================================================

type dispatchService struct {
	store       store.QuoteStore
	mailer      email.Mailer
	attachments storage.Storage
	branding    email.Branding
	opts        Options
	logger      *slog.Logger
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(
	quotes store.QuoteStore,
	mailer email.Mailer,
	attachments storage.Storage,
	branding email.Branding,
	opts Options,
	logger *slog.Logger,
) Dispatcher {
	return &dispatchService{
		store:       quotes,
		mailer:      mailer,
		attachments: attachments,
		branding:    branding,
		opts:        opts.withDefaults(),
		logger:      logger,
	}
}

// Dispatch implements the Dispatcher interface.
func (s *dispatchService) Dispatch(ctx context.Context, req domain.DispatchRequest) (*DispatchResult, error) {
	const op = "dispatch.send"
	start := time.Now()

	// Validation failures reject immediately with no side effects.
	if err := req.Validate(op); err != nil {
		return nil, err
	}

	attachments, err := s.loadAttachments(ctx, op, req.AttachmentKeys)
	if err != nil {
		return nil, err
	}

	opts := s.buildOptions(req)
	subject := opts.Subject
	if subject == "" {
		subject = email.DefaultSubject
	}

	msg := email.Message{
		To:          []string{req.To},
		ReplyTo:     s.opts.ReplyTo,
		Subject:     subject,
		HTMLBody:    email.BuildReplyHTML(opts),
		TextBody:    email.BuildReplyText(opts),
		Attachments: attachments,
	}

	attempts, sendErr := s.sendWithRetry(ctx, msg)

	// The reply is persisted regardless of delivery outcome so no reply
	// text is ever silently lost; the delivery status lands in the meta.
	record := domain.ReplyRecord{
		ID:             uuid.NewString(),
		To:             req.To,
		ToName:         req.ToName,
		Subject:        subject,
		Message:        req.Message,
		Details:        req.Details,
		ReplyNotice:    req.ReplyNotice,
		ReplyOptions:   req.ReplyOptions,
		CompanyInfo:    req.CompanyInfo,
		AttachmentKeys: req.AttachmentKeys,
		SentAt:         time.Now().UTC(),
	}

	updated, persistErr := s.store.AppendReply(ctx, req.QuoteID, record)
	if persistErr != nil {
		metrics.StoreWriteFailuresTotal.Inc()
		if sendErr != nil {
			s.logger.Error("delivery and persistence both failed",
				"quote_id", req.QuoteID,
				"send_error", sendErr,
				"store_error", persistErr,
			)
		}
		return nil, domain.Internal(persistErr, op, "failed to persist reply")
	}
	metrics.RepliesPersistedTotal.Inc()

	meta := domain.QuoteMeta{
		domain.MetaDeliveryStatus: domain.DeliverySent,
		domain.MetaAttempts:       attempts,
		domain.MetaLastReplyAt:    record.SentAt.Format(time.RFC3339),
		domain.MetaReplyCount:     len(updated),
	}
	if sendErr != nil {
		meta[domain.MetaDeliveryStatus] = domain.DeliveryFailed
		meta[domain.MetaLastError] = sendErr.Error()
	}
	if _, err := s.store.SetMeta(ctx, req.QuoteID, meta); err != nil {
		metrics.StoreWriteFailuresTotal.Inc()
		return nil, domain.Internal(err, op, "failed to update quote metadata")
	}

	metrics.DispatchDuration.Observe(time.Since(start).Seconds())

	if sendErr != nil {
		metrics.DispatchesTotal.WithLabelValues("failed").Inc()
		s.logger.Warn("reply persisted but delivery failed",
			"quote_id", req.QuoteID,
			"reply_id", record.ID,
			"attempts", attempts,
			"error", sendErr,
		)
		return nil, domain.Unavailable(sendErr, op,
			fmt.Sprintf("email delivery failed after %d attempts", attempts))
	}

	metrics.DispatchesTotal.WithLabelValues("sent").Inc()
	s.logger.Info("reply dispatched",
		"quote_id", req.QuoteID,
		"reply_id", record.ID,
		"to", req.To,
		"attempts", attempts,
	)

	return &DispatchResult{
		Reply:      record,
		Attempts:   attempts,
		ReplyCount: len(updated),
	}, nil
}

// sendWithRetry attempts delivery with linearly increasing backoff.
// Only transient provider errors retry; the last error is returned after
// the budget is exhausted.
func (s *dispatchService) sendWithRetry(ctx context.Context, msg email.Message) (int, error) {
	attempts := 0

	backoff := retry.WithMaxRetries(uint64(s.opts.MaxRetries), linearBackoff(s.opts.RetryBaseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		metrics.EmailSendAttemptsTotal.Inc()
		if attempts > 1 {
			metrics.EmailSendRetriesTotal.Inc()
		}

		sendCtx, cancel := context.WithTimeout(ctx, s.opts.SendTimeout)
		defer cancel()

		if err := s.mailer.Send(sendCtx, msg); err != nil {
			if email.IsRetryable(err) {
				s.logger.Info("transient delivery failure, will retry",
					"attempt", attempts,
					"error", err,
				)
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})

	return attempts, err
}

// linearBackoff returns delays of base, 2×base, 3×base, …
func linearBackoff(base time.Duration) retry.Backoff {
	var attempt int64
	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return base * time.Duration(attempt), false
	})
}

// loadAttachments resolves attachment keys against the attachment store.
// A missing or oversized attachment rejects the dispatch before any send
// attempt.
func (s *dispatchService) loadAttachments(ctx context.Context, op string, keys []string) ([]email.Attachment, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if s.attachments == nil {
		return nil, domain.Invalid(op, "attachments are not configured")
	}

	result := make([]email.Attachment, 0, len(keys))
	for _, key := range keys {
		reader, info, err := s.attachments.Get(ctx, key)
		if err != nil {
			if storage.IsNotFound(err) {
				return nil, domain.Invalid(op, fmt.Sprintf("attachment %q not found", key))
			}
			return nil, domain.Internal(err, op, "failed to load attachment")
		}

		data, err := io.ReadAll(io.LimitReader(reader, s.opts.MaxAttachmentSize+1))
		reader.Close()
		if err != nil {
			return nil, domain.Internal(err, op, "failed to read attachment")
		}
		if int64(len(data)) > s.opts.MaxAttachmentSize {
			return nil, domain.Invalid(op, fmt.Sprintf("attachment %q exceeds the size limit", key))
		}

		result = append(result, email.Attachment{
			Name:        path.Base(key),
			ContentType: info.ContentType,
			Data:        data,
		})
	}
	return result, nil
}

// buildOptions merges deployment branding with the per-reply payload.
func (s *dispatchService) buildOptions(req domain.DispatchRequest) email.ReplyOptions {
	opts := s.branding.Options()
	opts.Subject = req.Subject
	opts.ToName = req.ToName
	opts.Message = req.Message
	opts.Details = req.Details
	opts.CompanyInfo = req.CompanyInfo
	opts.ReplyNotice = req.ReplyNotice
	opts.ReplyContact = req.ReplyOptions
	return opts
}
