package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchRequest_Validate(t *testing.T) {
	tests := []struct {
		name       string
		req        DispatchRequest
		wantFields []string
	}{
		{
			name: "valid request",
			req: DispatchRequest{
				QuoteID: "q-123",
				To:      "client@example.fr",
				Message: "Votre pièce est disponible.",
			},
		},
		{
			name: "missing quote id",
			req: DispatchRequest{
				To:      "client@example.fr",
				Message: "Bonjour",
			},
			wantFields: []string{"quoteId"},
		},
		{
			name: "missing recipient",
			req: DispatchRequest{
				QuoteID: "q-123",
				Message: "Bonjour",
			},
			wantFields: []string{"to"},
		},
		{
			name: "missing message",
			req: DispatchRequest{
				QuoteID: "q-123",
				To:      "client@example.fr",
			},
			wantFields: []string{"message"},
		},
		{
			name:       "everything missing",
			req:        DispatchRequest{},
			wantFields: []string{"quoteId", "to", "message"},
		},
		{
			name: "whitespace-only message rejected",
			req: DispatchRequest{
				QuoteID: "q-123",
				To:      "client@example.fr",
				Message: "   \n\t  ",
			},
			wantFields: []string{"message"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate("test.op")
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Len(t, ve.Fields, len(tt.wantFields))
			for _, f := range tt.wantFields {
				assert.Contains(t, ve.Fields, f)
			}
		})
	}
}

func TestOfferDetails_Empty(t *testing.T) {
	var nilDetails *OfferDetails
	assert.True(t, nilDetails.Empty())
	assert.True(t, (&OfferDetails{}).Empty())

	assert.False(t, (&OfferDetails{Price: "150"}).Empty())
	assert.False(t, (&OfferDetails{MileageKm: "120000"}).Empty())
	assert.False(t, (&OfferDetails{Items: []OfferItem{{Product: "Moteur"}}}).Empty())
	assert.False(t, (&OfferDetails{TestsPerformed: []string{"compression"}}).Empty())
	assert.False(t, (&OfferDetails{DefectObserved: "rayure capot"}).Empty())
}

func TestQuoteMeta_Merge(t *testing.T) {
	tests := []struct {
		name  string
		base  QuoteMeta
		patch QuoteMeta
		want  QuoteMeta
	}{
		{
			name:  "merge into empty",
			base:  QuoteMeta{},
			patch: QuoteMeta{"status": "sent"},
			want:  QuoteMeta{"status": "sent"},
		},
		{
			name:  "new keys are added",
			base:  QuoteMeta{"status": "sent"},
			patch: QuoteMeta{"attempts": 2},
			want:  QuoteMeta{"status": "sent", "attempts": 2},
		},
		{
			name:  "existing keys are replaced",
			base:  QuoteMeta{"status": "sent", "attempts": 1},
			patch: QuoteMeta{"status": "failed"},
			want:  QuoteMeta{"status": "failed", "attempts": 1},
		},
		{
			name: "nested values replace, not deep-merge",
			base: QuoteMeta{
				"client": map[string]any{"name": "Durand", "city": "Lyon"},
			},
			patch: QuoteMeta{
				"client": map[string]any{"name": "Martin"},
			},
			want: QuoteMeta{
				"client": map[string]any{"name": "Martin"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.base.Merge(tt.patch)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	inner := errors.New("connection refused")
	err := Unavailable(inner, "dispatch.send", "email delivery failed")

	assert.Equal(t, EUNAVAILABLE, ErrorCode(err))
	assert.Equal(t, "email delivery failed", ErrorMessage(err))
	assert.Equal(t, "dispatch.send", ErrorOp(err))
	assert.ErrorIs(t, err, inner)

	// Untyped errors report EINTERNAL and hide the message.
	plain := errors.New("disk full")
	assert.Equal(t, EINTERNAL, ErrorCode(plain))
	assert.NotContains(t, ErrorMessage(plain), "disk full")
}
