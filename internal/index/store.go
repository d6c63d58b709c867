// Package index maintains a collection's full-text index: a bleve-backed
// document store plus the incremental reindex manager.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/colsearch/colsearch/internal/errors"
	"github.com/colsearch/colsearch/internal/extract"
)

// Document is the unit committed into the index, derived 1:1 from an
// extraction record. Path is the unique identifier; re-indexing the same
// path replaces the document.
type Document struct {
	Path    string   `json:"path"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
	// Custom is the extractor's extra metadata as an opaque JSON blob,
	// stored but not searchable.
	Custom string `json:"custom"`
}

// DocumentFromRecord converts an extraction record into an index document.
func DocumentFromRecord(rec *extract.Record) (*Document, error) {
	doc := &Document{
		Path:    rec.SourcePath,
		Title:   rec.Title,
		Content: rec.Content,
		Tags:    rec.Tags,
	}
	if len(rec.Custom) > 0 {
		blob, err := json.Marshal(rec.Custom)
		if err != nil {
			return nil, errors.New(errors.ErrCodeInternal,
				fmt.Sprintf("cannot encode custom metadata for %s", rec.SourcePath), err)
		}
		doc.Custom = string(blob)
	}
	return doc, nil
}

// Store wraps a bleve index for one collection. The reindex manager is the
// sole writer; queries open the store read-only.
type Store struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// buildIndexMapping defines the schema: path as stored keyword identifier,
// title and content as indexed+stored text, tags as stored keyword values
// filtered by exact match only (they do not feed the free-text composite
// field), custom as a stored-only blob.
func buildIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	pathField := bleve.NewKeywordFieldMapping()
	pathField.Store = true
	pathField.IncludeInAll = false
	docMapping.AddFieldMappingsAt("path", pathField)

	titleField := bleve.NewTextFieldMapping()
	titleField.Store = true
	docMapping.AddFieldMappingsAt("title", titleField)

	contentField := bleve.NewTextFieldMapping()
	contentField.Store = true
	docMapping.AddFieldMappingsAt("content", contentField)

	tagsField := bleve.NewKeywordFieldMapping()
	tagsField.Store = true
	tagsField.IncludeInAll = false
	docMapping.AddFieldMappingsAt("tags", tagsField)

	customField := bleve.NewTextFieldMapping()
	customField.Store = true
	customField.Index = false
	customField.IncludeInAll = false
	docMapping.AddFieldMappingsAt("custom", customField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Exists reports whether an index has been created at path.
func Exists(path string) bool {
	_, err := os.Stat(filepath.Join(path, "index_meta.json"))
	return err == nil
}

// isCorruptionError checks whether an open error indicates index
// corruption rather than absence.
func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return err == bleve.ErrorIndexMetaCorrupt ||
		strings.Contains(msg, "unexpected end of JSON") ||
		strings.Contains(msg, "error parsing mapping JSON") ||
		strings.Contains(msg, "failed to load segment") ||
		strings.Contains(msg, "no such file or directory") ||
		strings.Contains(msg, "error opening bolt")
}

// Open creates or opens the writable index at path. A corrupted index is
// cleared and recreated empty; the caller's reindex run repopulates it
// from the filesystem.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.New(errors.ErrCodeCorruptIndex,
			fmt.Sprintf("cannot create %s", filepath.Dir(path)), err)
	}

	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildIndexMapping())
	} else if err == bleve.ErrorIndexMetaMissing {
		// The directory exists but was never populated (init pre-creates
		// it). bleve.New refuses an existing path, so clear it first.
		if rmErr := os.RemoveAll(path); rmErr != nil {
			return nil, errors.New(errors.ErrCodeCorruptIndex,
				fmt.Sprintf("cannot clear %s", path), rmErr)
		}
		idx, err = bleve.New(path, buildIndexMapping())
	} else if err != nil && isCorruptionError(err) {
		slog.Warn("index_corrupted",
			slog.String("path", path),
			slog.String("error", err.Error()))
		if rmErr := os.RemoveAll(path); rmErr != nil {
			return nil, errors.New(errors.ErrCodeCorruptIndex,
				fmt.Sprintf("index corrupted at %s and cannot be cleared", path), rmErr)
		}
		idx, err = bleve.New(path, buildIndexMapping())
	}
	if err != nil {
		return nil, errors.New(errors.ErrCodeCorruptIndex,
			fmt.Sprintf("cannot open index at %s", path), err)
	}

	return &Store{index: idx, path: path}, nil
}

// OpenReadOnly opens an existing index without write access. The caller
// must check Exists first; a missing index is an error here.
func OpenReadOnly(path string) (*Store, error) {
	idx, err := bleve.OpenUsing(path, map[string]interface{}{"read_only": true})
	if err != nil {
		return nil, errors.New(errors.ErrCodeCorruptIndex,
			fmt.Sprintf("cannot open index at %s", path), err)
	}
	return &Store{index: idx, path: path}, nil
}

// Apply commits upserts and deletes as one batch. The batch is the
// engine's atomic commit unit: a failure leaves the previously committed
// state intact.
func (s *Store) Apply(ctx context.Context, upserts []*Document, deletes []string) error {
	if len(upserts) == 0 && len(deletes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New(errors.ErrCodeInternal, "index is closed", nil)
	}

	batch := s.index.NewBatch()
	for _, doc := range upserts {
		if err := batch.Index(doc.Path, doc); err != nil {
			return errors.CommitError(
				fmt.Sprintf("cannot stage document %s", doc.Path), err)
		}
	}
	for _, path := range deletes {
		batch.Delete(path)
	}

	if err := s.index.Batch(batch); err != nil {
		return errors.CommitError("index commit failed", err)
	}
	return nil
}

// Search executes a prepared search request.
func (s *Store) Search(ctx context.Context, req *bleve.SearchRequest) (*bleve.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errors.New(errors.ErrCodeInternal, "index is closed", nil)
	}
	return s.index.SearchInContext(ctx, req)
}

// DocCount returns the number of committed documents.
func (s *Store) DocCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, errors.New(errors.ErrCodeInternal, "index is closed", nil)
	}
	return s.index.DocCount()
}

// Close closes the underlying index. Safe to call twice.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.index != nil {
		return s.index.Close()
	}
	return nil
}
