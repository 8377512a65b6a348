// Package domain contains the core types of the devismail service.
//
// A quote identifies one customer request for a part price. Each quote
// accumulates an append-only history of replies sent by the shop, plus a
// mutable bag of metadata (delivery status, counters, operator flags).
package domain

import (
	"strings"
	"time"
)

// =============================================================================
// Reply Types
// =============================================================================

// ReplyRecord is one immutable entry in a quote's reply history.
//
// The store never stamps records; ID and SentAt are set by the dispatch
// service before the record is appended.
type ReplyRecord struct {
	ID      string `json:"id,omitempty"`
	To      string `json:"to,omitempty"`
	ToName  string `json:"toName,omitempty"`
	Subject string `json:"subject,omitempty"`

	// Message is the free-text body. It may already open with a greeting,
	// in which case the template builder suppresses its own greeting line.
	Message string `json:"message"`

	Details      *OfferDetails `json:"details,omitempty"`
	ReplyNotice  string        `json:"replyNotice,omitempty"`
	ReplyOptions *ReplyOptions `json:"replyOptions,omitempty"`
	CompanyInfo  *CompanyInfo  `json:"companyInfo,omitempty"`

	// AttachmentKeys reference objects in the attachment store that were
	// sent with this reply.
	AttachmentKeys []string `json:"attachmentKeys,omitempty"`

	SentAt time.Time `json:"sentAt,omitempty"`
}

// OfferDetails is the structured part of a reply: the priced offer for the
// requested part.
//
// Price and MileageKm are free-form strings on purpose: operators type
// "150", "150€" or "environ 150" and the template builder applies its
// formatting rules without rejecting any of them.
type OfferDetails struct {
	Price          string      `json:"price,omitempty"`
	MileageKm      string      `json:"mileageKm,omitempty"`
	Delivery       string      `json:"delivery,omitempty"`
	Reference      string      `json:"reference,omitempty"`
	Items          []OfferItem `json:"items,omitempty"`
	TestsPerformed []string    `json:"testsPerformed,omitempty"`
	DefectObserved string      `json:"defectObserved,omitempty"`
}

// Empty reports whether the details carry nothing worth rendering.
func (d *OfferDetails) Empty() bool {
	if d == nil {
		return true
	}
	return d.Price == "" && d.MileageKm == "" && d.Delivery == "" &&
		d.Reference == "" && len(d.Items) == 0 &&
		len(d.TestsPerformed) == 0 && d.DefectObserved == ""
}

// OfferItem is one line of an itemized parts offer.
type OfferItem struct {
	Product      string `json:"product,omitempty"`
	Reference    string `json:"reference,omitempty"`
	Price        string `json:"price,omitempty"`
	Warranty     string `json:"warranty,omitempty"`
	Availability string `json:"availability,omitempty"`
}

// ReplyOptions tells the recipient how to answer.
type ReplyOptions struct {
	Phone    string `json:"phone,omitempty"`
	WhatsApp string `json:"whatsapp,omitempty"`
}

// Empty reports whether no contact channel is set.
func (o *ReplyOptions) Empty() bool {
	return o == nil || (o.Phone == "" && o.WhatsApp == "")
}

// CompanyInfo is the signature block appended to a reply email.
type CompanyInfo struct {
	Name       string `json:"name,omitempty"`
	TaxID      string `json:"taxId,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
	SocialLink string `json:"socialLink,omitempty"`
}

// Empty reports whether the signature block carries no data.
func (c *CompanyInfo) Empty() bool {
	if c == nil {
		return true
	}
	return c.Name == "" && c.TaxID == "" && c.Phone == "" &&
		c.Address == "" && c.SocialLink == ""
}

// =============================================================================
// Quote Metadata
// =============================================================================

// QuoteMeta is the mutable key/value annotation map attached to a QuoteId.
// Updates are shallow-merged: new fields overwrite same-named existing
// fields, unspecified fields are preserved.
type QuoteMeta map[string]any

// Merge returns a copy of m with partial shallow-merged on top.
func (m QuoteMeta) Merge(partial QuoteMeta) QuoteMeta {
	merged := make(QuoteMeta, len(m)+len(partial))
	for k, v := range m {
		merged[k] = v
	}
	for k, v := range partial {
		merged[k] = v
	}
	return merged
}

// Well-known meta fields written by the dispatch service.
const (
	MetaDeliveryStatus = "delivery_status"
	MetaAttempts       = "attempts"
	MetaLastError      = "last_error"
	MetaLastReplyAt    = "last_reply_at"
	MetaReplyCount     = "reply_count"
)

// Delivery status values stored under MetaDeliveryStatus.
const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

// =============================================================================
// Dispatch Request Validation
// =============================================================================

// DispatchRequest is the inbound contract for sending one reply.
type DispatchRequest struct {
	QuoteID string `json:"quoteId"`

	To      string `json:"to"`
	ToName  string `json:"toName,omitempty"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`

	Details      *OfferDetails `json:"details,omitempty"`
	ReplyNotice  string        `json:"replyNotice,omitempty"`
	ReplyOptions *ReplyOptions `json:"replyOptions,omitempty"`
	CompanyInfo  *CompanyInfo  `json:"companyInfo,omitempty"`

	AttachmentKeys []string `json:"attachmentKeys,omitempty"`
}

// Validate checks the required fields of a dispatch request.
// Optional structured fields are never rejected; the template builder
// degrades gracefully on whatever they contain.
func (r *DispatchRequest) Validate(op string) error {
	var err error
	if strings.TrimSpace(r.QuoteID) == "" {
		err = addField(err, op, "quoteId", "QuoteId is required")
	}
	if strings.TrimSpace(r.Message) == "" {
		err = addField(err, op, "message", "Message is required")
	}
	if strings.TrimSpace(r.To) == "" {
		err = addField(err, op, "to", "Recipient address is required")
	}
	return err
}

func addField(err error, op, field, message string) error {
	if err == nil {
		return NewValidationError(op, field, message)
	}
	return AddFieldError(err, field, message)
}
