package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/tbessard/devismail/internal/domain"
)

// =============================================================================
// Error Response Tests - Security Focus
// =============================================================================

func TestErrorResponse_ValidationDoesNotExposeOperationName(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Create a validation error with an internal operation name
	ve := domain.NewValidationError("dispatch.send", "message", "Message is required")

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(w, r, logger, ve)
	})

	req := httptest.NewRequest("POST", "/api/quotes/q-1/replies", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	body := rec.Body.String()

	// Should NOT contain internal operation names
	if strings.Contains(body, "dispatch.send") {
		t.Errorf("response exposes internal operation name: %s", body)
	}

	// Should contain the field error
	if !strings.Contains(body, "message") {
		t.Errorf("response should contain field name: %s", body)
	}
	if !strings.Contains(body, "Validation failed") {
		t.Errorf("response should contain user-friendly message, got: %s", body)
	}
}

func TestErrorResponse_InternalDetailsHidden(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	err := domain.Internal(
		os.ErrPermission,
		"store.save",
		"failed to persist reply",
	)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(w, r, logger, err)
	})

	req := httptest.NewRequest("POST", "/api/quotes/q-1/replies", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}

	body := rec.Body.String()
	if strings.Contains(body, "permission denied") {
		t.Errorf("response exposes underlying error: %s", body)
	}
	if strings.Contains(body, "store.save") {
		t.Errorf("response exposes internal operation: %s", body)
	}
}

func TestErrorResponse_CodeMapping(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "invalid maps to 400",
			err:        domain.Invalid("op", "bad input"),
			wantStatus: http.StatusBadRequest,
			wantCode:   domain.EINVALID,
		},
		{
			name:       "not found maps to 404",
			err:        domain.NotFound("op", "quote metadata", "q-1"),
			wantStatus: http.StatusNotFound,
			wantCode:   domain.ENOTFOUND,
		},
		{
			name:       "unavailable maps to 502",
			err:        domain.Unavailable(nil, "op", "delivery failed"),
			wantStatus: http.StatusBadGateway,
			wantCode:   domain.EUNAVAILABLE,
		},
		{
			name:       "rate limit maps to 429",
			err:        domain.Errorf(domain.ERATELIMIT, "op", "slow down"),
			wantStatus: http.StatusTooManyRequests,
			wantCode:   domain.ERATELIMIT,
		},
		{
			name:       "untyped error maps to 500",
			err:        os.ErrClosed,
			wantStatus: http.StatusInternalServerError,
			wantCode:   domain.EINTERNAL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ErrorResponse(w, r, logger, tt.err)
			})

			req := httptest.NewRequest("GET", "/api/quotes/q-1/meta", nil)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}

			var resp JSONError
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("response is not valid JSON: %v", err)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("expected code %q, got %q", tt.wantCode, resp.Error.Code)
			}
		})
	}
}

func TestErrorResponse_AlwaysJSON(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(w, r, logger, domain.Invalid("op", "bad input"))
	})

	// No Accept header at all: still JSON
	req := httptest.NewRequest("GET", "/api/quotes/q-1/meta", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}
}
