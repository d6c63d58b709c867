// Package scanner discovers search collections within a directory tree.
package scanner

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/colsearch/colsearch/internal/config"
	"github.com/colsearch/colsearch/internal/errors"
)

// configCacheSize bounds the number of opened collections kept in memory.
const configCacheSize = 256

// Scanner finds collections and caches their parsed configs.
type Scanner struct {
	// configs caches opened collections by absolute root, so repeated
	// discovery passes (scan then query) parse each config once.
	configs *lru.Cache[string, *config.Collection]
}

// New creates a Scanner.
func New() (*Scanner, error) {
	cache, err := lru.New[string, *config.Collection](configCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create config cache: %w", err)
	}
	return &Scanner{configs: cache}, nil
}

// Open loads the collection at root, using the cache when possible.
func (s *Scanner) Open(root string) (*config.Collection, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("cannot resolve %s", root), err)
	}
	if col, ok := s.configs.Get(abs); ok {
		return col, nil
	}
	col, err := config.Open(abs)
	if err != nil {
		return nil, err
	}
	s.configs.Add(abs, col)
	return col, nil
}

// Find walks the tree under base and returns the sorted absolute roots of
// all valid collections: directories whose reserved config file exists and
// parses. Invalid configs are logged and skipped; discovery never aborts
// on one bad collection.
func (s *Scanner) Find(base string) ([]string, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return nil, errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("cannot resolve %s", base), err)
	}

	var roots []string
	walkErr := filepath.WalkDir(absBase, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Debug("scan_unreadable", slog.String("path", path), slog.String("error", err.Error()))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == config.SearchDir {
			root := filepath.Dir(path)
			if config.ConfigExists(root) {
				if _, openErr := s.Open(root); openErr != nil {
					slog.Warn("scan_invalid_collection",
						slog.String("root", root),
						slog.String("error", openErr.Error()))
				} else {
					roots = append(roots, root)
				}
			}
			return filepath.SkipDir
		}
		return nil
	})
	if walkErr != nil {
		return nil, errors.New(errors.ErrCodeInternal, "collection scan failed", walkErr)
	}

	sort.Strings(roots)
	return roots, nil
}

// FindCollections is Find followed by Open on every discovered root.
func (s *Scanner) FindCollections(base string) ([]*config.Collection, error) {
	roots, err := s.Find(base)
	if err != nil {
		return nil, err
	}
	cols := make([]*config.Collection, 0, len(roots))
	for _, root := range roots {
		col, err := s.Open(root)
		if err != nil {
			continue
		}
		cols = append(cols, col)
	}
	return cols, nil
}

// Enclosing walks upward from dir looking for a collection root, mirroring
// how git finds its repository. Returns "" when none is found.
func Enclosing(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		if config.ConfigExists(abs) {
			return abs
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return ""
		}
		abs = parent
	}
}
