// Package handler contains HTTP handlers for the devismail API.
//
// This file implements the attachment endpoints: operators upload part
// photos and condition reports ahead of a dispatch, then reference them
// by key in the reply payload.
package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tbessard/devismail/internal/domain"
	"github.com/tbessard/devismail/internal/storage"
)

// maxUploadSize bounds each uploaded attachment.
const maxUploadSize = 10 << 20 // 10 MiB

// =============================================================================
// Handler Configuration
// =============================================================================

// AttachmentHandler handles attachment-related HTTP requests.
type AttachmentHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

// NewAttachmentHandler creates a new AttachmentHandler.
func NewAttachmentHandler(store storage.Storage, logger *slog.Logger) *AttachmentHandler {
	return &AttachmentHandler{
		storage: store,
		logger:  logger,
	}
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers all attachment routes with the provided mux.
//
// Routes:
// - POST   /api/quotes/{id}/attachments -> Upload
// - GET    /api/attachments/{key...}    -> Serve
// - DELETE /api/attachments/{key...}    -> Delete
func (h *AttachmentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/quotes/{id}/attachments", h.Upload)
	mux.HandleFunc("GET /api/attachments/{key...}", h.Serve)
	mux.HandleFunc("DELETE /api/attachments/{key...}", h.Delete)
}

// =============================================================================
// POST /api/quotes/{id}/attachments - Upload Attachments
// =============================================================================

// UploadedAttachment describes one stored attachment.
type UploadedAttachment struct {
	Key         string `json:"key"`
	URL         string `json:"url,omitempty"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// UploadResponse reports the outcome of a multipart upload.
type UploadResponse struct {
	Uploaded []UploadedAttachment `json:"uploaded"`
	Errors   []string             `json:"errors,omitempty"`
}

// Upload stores the files of a multipart form under the quote, rejecting
// anything that is not a part photo (jpeg/png/webp) or a PDF document.
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	const op = "handler.upload_attachment"
	quoteID := r.PathValue("id")

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "invalid multipart form"))
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "no files uploaded"))
		return
	}

	var resp UploadResponse
	for _, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			h.logger.Error("failed to open uploaded file", "error", err, "filename", fileHeader.Filename)
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: failed to read upload", fileHeader.Filename))
			continue
		}

		contentType := storage.DetectContentType(
			fileHeader.Header.Get("Content-Type"),
			fileHeader.Filename,
			file,
		)
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			file.Close()
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: failed to read upload", fileHeader.Filename))
			continue
		}

		if !storage.IsAllowedAttachmentType(contentType) {
			file.Close()
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: unsupported attachment type %s", fileHeader.Filename, contentType))
			continue
		}

		key := storage.AttachmentKey(quoteID, fileHeader.Filename)
		err = h.storage.Put(r.Context(), key, file, storage.PutOptions{
			ContentType: contentType,
			MaxSize:     maxUploadSize,
		})
		file.Close()
		if err != nil {
			h.logger.Error("failed to store attachment",
				"error", err,
				"filename", fileHeader.Filename,
				"quote_id", quoteID,
			)
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: failed to store", fileHeader.Filename))
			continue
		}

		url, err := h.storage.URL(r.Context(), key, time.Hour)
		if err != nil {
			h.logger.Warn("failed to build attachment URL", "error", err, "key", key)
			url = ""
		}

		resp.Uploaded = append(resp.Uploaded, UploadedAttachment{
			Key:         key,
			URL:         url,
			ContentType: contentType,
			Size:        fileHeader.Size,
		})
	}

	h.logger.Info("attachment upload completed",
		"quote_id", quoteID,
		"success_count", len(resp.Uploaded),
		"error_count", len(resp.Errors),
	)

	if len(resp.Uploaded) == 0 {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, strings.Join(resp.Errors, "; ")))
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// =============================================================================
// GET /api/attachments/{key...} - Serve Attachment
// =============================================================================

// Serve streams a stored attachment back to the client.
func (h *AttachmentHandler) Serve(w http.ResponseWriter, r *http.Request) {
	const op = "handler.serve_attachment"

	key, err := attachmentKey(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	reader, info, err := h.storage.Get(r.Context(), key)
	if err != nil {
		if storage.IsNotFound(err) {
			ErrorResponse(w, r, h.logger, domain.NotFound(op, "attachment", key))
			return
		}
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "failed to load attachment"))
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", info.ContentType)
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Warn("failed to stream attachment", "error", err, "key", key)
	}
}

// =============================================================================
// DELETE /api/attachments/{key...} - Delete Attachment
// =============================================================================

// Delete removes a stored attachment. Deleting an unknown key is a 404.
func (h *AttachmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "handler.delete_attachment"

	key, err := attachmentKey(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	exists, err := h.storage.Exists(r.Context(), key)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "failed to check attachment"))
		return
	}
	if !exists {
		ErrorResponse(w, r, h.logger, domain.NotFound(op, "attachment", key))
		return
	}

	if err := h.storage.Delete(r.Context(), key); err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "failed to delete attachment"))
		return
	}

	h.logger.Info("attachment deleted", "key", key)
	w.WriteHeader(http.StatusNoContent)
}

// attachmentKey extracts and validates the storage key from the request
// path. Only keys minted by Upload (under the quotes/ prefix) are served.
func attachmentKey(r *http.Request, op string) (string, error) {
	key := r.PathValue("key")
	if !strings.HasPrefix(key, "quotes/") {
		return "", domain.Invalid(op, "invalid attachment key")
	}
	return key, nil
}
