// Package cache persists per-file extraction records under a collection's
// reserved cache directory.
//
// Each source file gets exactly one entry file, named deterministically
// from its relative path, so entries can be inspected or deleted
// individually without loading the whole cache. Fingerprint comparison
// against the live file is the sole mechanism for incremental indexing.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/renameio"
	"gopkg.in/yaml.v3"

	"github.com/colsearch/colsearch/internal/config"
	"github.com/colsearch/colsearch/internal/errors"
	"github.com/colsearch/colsearch/internal/extract"
)

// Cache is a collection's metadata cache. All mutating operations are
// serialized; extraction workers share one Cache per reindex run.
type Cache struct {
	mu     sync.Mutex
	dir    string
	format config.Format
}

// New returns the cache for a collection.
func New(col *config.Collection) *Cache {
	return &Cache{
		dir:    col.CacheDir(),
		format: col.Config.Output.Format,
	}
}

// EntryFile returns the deterministic cache file name for a source path:
// the path with separators flattened plus a short hash of the exact
// relative path. The hash disambiguates paths that flatten identically
// ("a/b.md" vs "a_b.md").
func EntryFile(relpath string, format config.Format) string {
	flat := strings.NewReplacer("/", "_", "\\", "_").Replace(relpath)
	sum := sha256.Sum256([]byte(relpath))
	return fmt.Sprintf("%s-%s.%s", flat, hex.EncodeToString(sum[:4]), format)
}

func (c *Cache) entryPath(relpath string) string {
	return filepath.Join(c.dir, EntryFile(relpath, c.format))
}

// Get loads the cached record for relpath, or nil if no entry exists.
func (c *Cache) Get(relpath string) (*extract.Record, error) {
	raw, err := os.ReadFile(c.entryPath(relpath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.New(errors.ErrCodeCacheRead,
			fmt.Sprintf("cannot read cache entry for %s", relpath), err)
	}
	return c.decode(raw, relpath)
}

// Put creates or overwrites the cache entry for rec.SourcePath.
func (c *Cache) Put(rec *extract.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return errors.New(errors.ErrCodeCacheWrite, "cannot create cache directory", err)
	}

	var raw []byte
	var err error
	switch c.format {
	case config.FormatJSON:
		raw, err = json.MarshalIndent(rec, "", "  ")
	default:
		raw, err = yaml.Marshal(rec)
	}
	if err != nil {
		return errors.New(errors.ErrCodeCacheWrite,
			fmt.Sprintf("cannot encode cache entry for %s", rec.SourcePath), err)
	}

	if err := renameio.WriteFile(c.entryPath(rec.SourcePath), raw, 0o644); err != nil {
		return errors.New(errors.ErrCodeCacheWrite,
			fmt.Sprintf("cannot write cache entry for %s", rec.SourcePath), err)
	}
	return nil
}

// Remove deletes the cache entry for relpath. Removing an absent entry is
// not an error.
func (c *Cache) Remove(relpath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := os.Remove(c.entryPath(relpath))
	if err != nil && !os.IsNotExist(err) {
		return errors.New(errors.ErrCodeCacheWrite,
			fmt.Sprintf("cannot remove cache entry for %s", relpath), err)
	}
	return nil
}

// Paths returns the source paths of all cache entries, sorted. Entries
// that fail to decode are skipped; a later Put will overwrite them.
func (c *Cache) Paths() ([]string, error) {
	dirents, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.New(errors.ErrCodeCacheRead, "cannot list cache directory", err)
	}

	var paths []string
	for _, d := range dirents {
		if d.IsDir() {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(c.dir, d.Name()))
		if err != nil {
			continue
		}
		rec, err := c.decode(raw, d.Name())
		if err != nil || rec.SourcePath == "" {
			continue
		}
		paths = append(paths, rec.SourcePath)
	}
	sort.Strings(paths)
	return paths, nil
}

// NeedsReextraction reports whether relpath must be re-extracted: true
// when no entry exists or the stored fingerprint differs from the current
// one.
func (c *Cache) NeedsReextraction(relpath, currentFingerprint string) bool {
	rec, err := c.Get(relpath)
	if err != nil || rec == nil {
		return true
	}
	return rec.Fingerprint != currentFingerprint
}

func (c *Cache) decode(raw []byte, what string) (*extract.Record, error) {
	rec := &extract.Record{}
	var err error
	switch c.format {
	case config.FormatJSON:
		err = json.Unmarshal(raw, rec)
	default:
		err = yaml.Unmarshal(raw, rec)
	}
	if err != nil {
		return nil, errors.New(errors.ErrCodeCacheRead,
			fmt.Sprintf("corrupt cache entry %s", what), err)
	}
	return rec, nil
}
