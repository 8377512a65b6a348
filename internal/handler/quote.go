// Package handler contains HTTP handlers for the devismail API.
//
// This file implements the quote reply endpoints: dispatching a reply,
// listing the reply history, and reading or patching the quote metadata.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tbessard/devismail/internal/domain"
	"github.com/tbessard/devismail/internal/service"
	"github.com/tbessard/devismail/internal/store"
)

// =============================================================================
// Handler Configuration
// =============================================================================

// QuoteHandler handles quote-related HTTP requests.
type QuoteHandler struct {
	dispatcher service.Dispatcher
	store      store.QuoteStore
	logger     *slog.Logger
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(dispatcher service.Dispatcher, quotes store.QuoteStore, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{
		dispatcher: dispatcher,
		store:      quotes,
		logger:     logger,
	}
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers all quote routes with the provided mux.
//
// Routes:
// - POST  /api/quotes/{id}/replies -> SendReply
// - GET   /api/quotes/{id}/replies -> ListReplies
// - GET   /api/quotes/{id}/meta    -> GetMeta
// - PATCH /api/quotes/{id}/meta    -> PatchMeta
func (h *QuoteHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/quotes/{id}/replies", h.SendReply)
	mux.HandleFunc("GET /api/quotes/{id}/replies", h.ListReplies)
	mux.HandleFunc("GET /api/quotes/{id}/meta", h.GetMeta)
	mux.HandleFunc("PATCH /api/quotes/{id}/meta", h.PatchMeta)
}

// =============================================================================
// POST /api/quotes/{id}/replies - Send Reply
// =============================================================================

// SendReply dispatches a reply email for a quote and records it.
func (h *QuoteHandler) SendReply(w http.ResponseWriter, r *http.Request) {
	var req domain.DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.send_reply", "invalid JSON body"))
		return
	}

	// The path segment is authoritative for the quote identity.
	req.QuoteID = r.PathValue("id")

	result, err := h.dispatcher.Dispatch(r.Context(), req)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// =============================================================================
// GET /api/quotes/{id}/replies - List Replies
// =============================================================================

// ListRepliesResponse wraps the reply history of a quote.
type ListRepliesResponse struct {
	QuoteID string               `json:"quoteId"`
	Replies []domain.ReplyRecord `json:"replies"`
}

// ListReplies returns the reply history for a quote, oldest first.
// An unknown quote returns an empty list, not 404.
func (h *QuoteHandler) ListReplies(w http.ResponseWriter, r *http.Request) {
	quoteID := r.PathValue("id")

	replies, err := h.store.ListReplies(r.Context(), quoteID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, ListRepliesResponse{
		QuoteID: quoteID,
		Replies: replies,
	})
}

// =============================================================================
// GET /api/quotes/{id}/meta - Get Metadata
// =============================================================================

// GetMeta returns the metadata object for a quote.
func (h *QuoteHandler) GetMeta(w http.ResponseWriter, r *http.Request) {
	quoteID := r.PathValue("id")

	meta, ok, err := h.store.GetMeta(r.Context(), quoteID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if !ok {
		ErrorResponse(w, r, h.logger, domain.NotFound("handler.get_meta", "quote metadata", quoteID))
		return
	}

	writeJSON(w, http.StatusOK, meta)
}

// =============================================================================
// PATCH /api/quotes/{id}/meta - Patch Metadata
// =============================================================================

// PatchMeta shallow-merges the request body into the quote metadata and
// returns the merged result.
func (h *QuoteHandler) PatchMeta(w http.ResponseWriter, r *http.Request) {
	quoteID := r.PathValue("id")

	var patch domain.QuoteMeta
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.patch_meta", "invalid JSON body"))
		return
	}
	if len(patch) == 0 {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.patch_meta", "metadata patch is empty"))
		return
	}

	merged, err := h.store.SetMeta(r.Context(), quoteID, patch)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, merged)
}

// =============================================================================
// Helper Functions
// =============================================================================

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
