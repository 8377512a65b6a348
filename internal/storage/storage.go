// Package storage provides the attachment store for reply emails.
//
// Operators upload part photos and condition reports ahead of time; a
// dispatch then references them by key and the service attaches them to
// the outbound email. Two implementations exist:
// - LocalStorage: filesystem storage for development
// - R2Storage: Cloudflare R2 (S3-compatible) for production
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Storage defines the interface for attachment storage operations.
// All methods are context-aware for timeout and cancellation support.
type Storage interface {
	// Put stores data at the specified key with the given options.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get retrieves the data at the specified key. The caller must close
	// the reader. Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at the specified key. Idempotent.
	Delete(ctx context.Context, key string) error

	// URL returns a URL for accessing the object, presigned for the given
	// duration where the backend supports it.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists checks if an object exists at the specified key.
	Exists(ctx context.Context, key string) (bool, error)
}

// =============================================================================
// Data Types
// =============================================================================

// PutOptions configures how an object is stored.
type PutOptions struct {
	// ContentType specifies the MIME type of the object. If empty, it is
	// detected from the key's extension or the content.
	ContentType string

	// MaxSize is the maximum allowed size in bytes; 0 means no limit.
	// Oversized data yields ErrTooLarge.
	MaxSize int64

	// Overwrite allows replacing an existing object at the same key.
	// If false and the key exists, ErrKeyExists is returned.
	Overwrite bool
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// =============================================================================
// Configuration Types
// =============================================================================

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	// BasePath is the root directory where attachments are stored.
	BasePath string

	// BaseURL is the public URL prefix for accessing attachments.
	BaseURL string
}

// R2Config holds configuration for Cloudflare R2 storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// PublicURL is the public URL for the bucket when served through a
	// custom domain. If empty, presigned URLs are used for all access.
	PublicURL string

	// Region is required by the AWS SDK; R2 accepts any value.
	// Default: "auto"
	Region string
}

// Provider identifiers accepted by the configuration.
const (
	ProviderLocal = "local"
	ProviderR2    = "r2"
)

// =============================================================================
// Key Generation
// =============================================================================

// AttachmentKey generates a storage key for an uploaded attachment,
// scoped to the quote it belongs to.
// Format: quotes/{quoteID}/attachments/{uuid}.{ext}
func AttachmentKey(quoteID, filename string) string {
	ext := filepath.Ext(filename)
	return fmt.Sprintf("quotes/%s/attachments/%s%s", quoteID, uuid.New(), ext)
}
