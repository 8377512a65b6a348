// Package store persists quote reply histories and metadata in a single
// JSON document on disk.
//
// The file holds two top-level documents so a QuoteId can never collide
// with a reserved key:
//
//	{
//	  "replies": { "<quoteId>": [ <ReplyRecord>, ... ] },
//	  "meta":    { "<quoteId>": { ... } }
//	}
//
// Every mutation is a whole-file read-modify-write serialized through an
// in-process mutex. Concurrent processes sharing the same file still race;
// the service assumes low write volume and a single instance per file.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/tbessard/devismail/internal/domain"
)

// =============================================================================
// Interface Definition
// =============================================================================

// QuoteStore defines persistence for reply histories and quote metadata.
type QuoteStore interface {
	// AppendReply appends record to the reply sequence of quoteID,
	// creating the sequence if absent, and returns the updated sequence.
	AppendReply(ctx context.Context, quoteID string, record domain.ReplyRecord) ([]domain.ReplyRecord, error)

	// ListReplies returns the ordered reply sequence for quoteID.
	// An unknown id yields an empty sequence, never an error.
	ListReplies(ctx context.Context, quoteID string) ([]domain.ReplyRecord, error)

	// SetMeta shallow-merges partial into the existing metadata of quoteID
	// and returns the merged result.
	SetMeta(ctx context.Context, quoteID string, partial domain.QuoteMeta) (domain.QuoteMeta, error)

	// GetMeta returns the current metadata for quoteID. The second return
	// value is false when no metadata has ever been recorded.
	GetMeta(ctx context.Context, quoteID string) (domain.QuoteMeta, bool, error)
}

// =============================================================================
// File Store Implementation
// =============================================================================

// Config holds file store configuration.
type Config struct {
	// Path is the location of the JSON store file. The file is created
	// empty on first write if absent.
	Path string

	// StrictRead makes a corrupted store file a hard error instead of
	// degrading to an empty store. Off by default: the reply log favors
	// availability over strictness.
	StrictRead bool
}

// FileStore implements QuoteStore on a single JSON file.
type FileStore struct {
	path   string
	strict bool
	logger *slog.Logger

	mu sync.Mutex // serializes all read-modify-write cycles
}

// document is the on-disk shape of the store file.
type document struct {
	Replies map[string][]domain.ReplyRecord `json:"replies"`
	Meta    map[string]domain.QuoteMeta     `json:"meta"`
}

// NewFileStore creates a FileStore. The parent directory is created if
// needed; the file itself is created lazily on first write.
func NewFileStore(cfg Config, logger *slog.Logger) (*FileStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve store path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	logger.Info("initialized quote store",
		"path", absPath,
		"strict_read", cfg.StrictRead,
	)

	return &FileStore{
		path:   absPath,
		strict: cfg.StrictRead,
		logger: logger,
	}, nil
}

// =============================================================================
// Interface Implementation
// =============================================================================

// AppendReply appends record to quoteID's sequence and persists the store.
func (s *FileStore) AppendReply(ctx context.Context, quoteID string, record domain.ReplyRecord) ([]domain.ReplyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	doc.Replies[quoteID] = append(doc.Replies[quoteID], record)
	if err := s.save(doc); err != nil {
		return nil, err
	}

	s.logger.Debug("appended reply",
		"quote_id", quoteID,
		"reply_id", record.ID,
		"count", len(doc.Replies[quoteID]),
	)

	return doc.Replies[quoteID], nil
}

// ListReplies returns the reply sequence for quoteID, empty when unknown.
func (s *FileStore) ListReplies(ctx context.Context, quoteID string) ([]domain.ReplyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	replies := doc.Replies[quoteID]
	if replies == nil {
		return []domain.ReplyRecord{}, nil
	}
	return replies, nil
}

// SetMeta shallow-merges partial into quoteID's metadata and persists.
func (s *FileStore) SetMeta(ctx context.Context, quoteID string, partial domain.QuoteMeta) (domain.QuoteMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	merged := doc.Meta[quoteID].Merge(partial)
	doc.Meta[quoteID] = merged
	if err := s.save(doc); err != nil {
		return nil, err
	}

	return merged, nil
}

// GetMeta returns the metadata for quoteID, or ok=false when none exists.
func (s *FileStore) GetMeta(ctx context.Context, quoteID string) (domain.QuoteMeta, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, false, err
	}

	meta, ok := doc.Meta[quoteID]
	return meta, ok, nil
}

// =============================================================================
// Internal Helpers
// =============================================================================

// load reads and parses the store file. A missing file yields an empty
// store. A corrupted file yields an empty store with a warning unless
// StrictRead is set, in which case the parse error surfaces.
func (s *FileStore) load() (*document, error) {
	doc := &document{
		Replies: make(map[string][]domain.ReplyRecord),
		Meta:    make(map[string]domain.QuoteMeta),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		if s.strict {
			return nil, fmt.Errorf("read store file: %w", err)
		}
		s.logger.Warn("store file unreadable, starting from empty store",
			"path", s.path,
			"error", err,
		)
		return doc, nil
	}

	if len(data) == 0 {
		return doc, nil
	}

	if err := json.Unmarshal(data, doc); err != nil {
		if s.strict {
			return nil, fmt.Errorf("parse store file: %w", err)
		}
		s.logger.Warn("store file corrupted, starting from empty store",
			"path", s.path,
			"error", err,
		)
		return &document{
			Replies: make(map[string][]domain.ReplyRecord),
			Meta:    make(map[string]domain.QuoteMeta),
		}, nil
	}

	// Maps decoded from an older or hand-edited file may be nil.
	if doc.Replies == nil {
		doc.Replies = make(map[string][]domain.ReplyRecord)
	}
	if doc.Meta == nil {
		doc.Meta = make(map[string]domain.QuoteMeta)
	}

	return doc, nil
}

// save writes the full store pretty-printed, via a temp file and rename so
// a crash mid-write never leaves a truncated store behind. Write failures
// always surface to the caller.
func (s *FileStore) save(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".quotes-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close store file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace store file: %w", err)
	}

	return nil
}

// Compile-time interface check
var _ QuoteStore = (*FileStore)(nil)
