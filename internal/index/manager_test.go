package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colsearch/colsearch/internal/cache"
	"github.com/colsearch/colsearch/internal/config"
	"github.com/colsearch/colsearch/internal/errors"
)

// catExtractor replays the source file verbatim, so test files are
// written as complete YAML records.
const catExtractor = "cat {input}"

// faultyExtractor fails for any source containing the marker BOOM.
const faultyExtractor = "if grep -q BOOM {input}; then echo 'boom' >&2; exit 3; fi; cat {input}"

func newTestCollection(t *testing.T, cfg *config.Config) *config.Collection {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{
			Name:       "test",
			Include:    config.PatternList{Patterns: []string{"*.md"}},
			Extractors: map[string]string{"*.md": catExtractor},
		}
	}
	col, err := config.Init(t.TempDir(), cfg, false)
	require.NoError(t, err)
	return col
}

func writeRecord(t *testing.T, col *config.Collection, relpath, title, content string) {
	t.Helper()
	path := col.AbsPath(relpath)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	body := fmt.Sprintf("title: %q\ncontent: %q\n", title, content)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func reindex(t *testing.T, col *config.Collection) *Report {
	t.Helper()
	report, err := NewManager(nil, 2).Reindex(context.Background(), col)
	require.NoError(t, err)
	return report
}

func searchContent(t *testing.T, col *config.Collection, term string) int {
	t.Helper()
	store, err := OpenReadOnly(col.IndexDir())
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	q := bleve.NewMatchQuery(term)
	q.SetField("content")
	res, err := store.Search(context.Background(), bleve.NewSearchRequest(q))
	require.NoError(t, err)
	return int(res.Total)
}

func indexedCount(t *testing.T, col *config.Collection) uint64 {
	t.Helper()
	store, err := OpenReadOnly(col.IndexDir())
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	count, err := store.DocCount()
	require.NoError(t, err)
	return count
}

func TestReindex_FreshCollection(t *testing.T) {
	col := newTestCollection(t, nil)
	writeRecord(t, col, "a.md", "Alpha", "first body")
	writeRecord(t, col, "sub/b.md", "Beta", "second body")

	report := reindex(t, col)

	assert.Equal(t, 2, report.Indexed)
	assert.Zero(t, report.Unchanged)
	assert.Zero(t, report.Failed)
	assert.Equal(t, uint64(2), indexedCount(t, col))

	cached, err := cache.New(col).Paths()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "sub/b.md"}, cached)
}

func TestReindex_SecondRunIsUnchanged(t *testing.T) {
	col := newTestCollection(t, nil)
	writeRecord(t, col, "a.md", "Alpha", "stable body")
	reindex(t, col)

	report := reindex(t, col)

	assert.Zero(t, report.Indexed)
	assert.Equal(t, 1, report.Unchanged)
	assert.Equal(t, uint64(1), indexedCount(t, col))
}

func TestExtractStale_DefersCacheWrites(t *testing.T) {
	col := newTestCollection(t, nil)
	writeRecord(t, col, "a.md", "Alpha", "pending body")

	m := NewManager(nil, 2)
	included, err := m.enumerate(col)
	require.NoError(t, err)

	ca := cache.New(col)
	staged, err := m.extractStale(context.Background(), col, ca, included, &Report{})
	require.NoError(t, err)
	require.Len(t, staged, 1)

	// Nothing may reach the cache before the index batch commits;
	// otherwise a killed run leaves an entry for a document the index
	// never received, and the fingerprint check would skip it forever.
	cached, err := ca.Paths()
	require.NoError(t, err)
	assert.Empty(t, cached)
}

func TestReindex_MissingCacheIsRebuilt(t *testing.T) {
	col := newTestCollection(t, nil)
	writeRecord(t, col, "a.md", "Alpha", "durable body")
	reindex(t, col)

	// A run killed between the index commit and the cache flush leaves
	// the index ahead of the cache. The next run just re-extracts.
	require.NoError(t, os.RemoveAll(col.CacheDir()))

	report := reindex(t, col)

	assert.Equal(t, 1, report.Indexed)
	assert.Zero(t, report.Unchanged)
	assert.Equal(t, uint64(1), indexedCount(t, col))
	assert.Equal(t, 1, searchContent(t, col, "durable"))
}

func TestReindex_ModifiedFileIsReextracted(t *testing.T) {
	col := newTestCollection(t, nil)
	writeRecord(t, col, "a.md", "Alpha", "original text")
	reindex(t, col)

	writeRecord(t, col, "a.md", "Alpha", "rewritten text entirely")
	// Content length differs, and a bumped mtime makes the staleness
	// unambiguous even on coarse filesystem clocks.
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(col.AbsPath("a.md"), future, future))

	report := reindex(t, col)

	assert.Equal(t, 1, report.Indexed)
	assert.Zero(t, report.Unchanged)
	assert.Zero(t, searchContent(t, col, "original"))
	assert.Equal(t, 1, searchContent(t, col, "rewritten"))
}

func TestReindex_DeletedFileIsPruned(t *testing.T) {
	col := newTestCollection(t, nil)
	writeRecord(t, col, "a.md", "Alpha", "keep this")
	writeRecord(t, col, "b.md", "Beta", "remove this")
	reindex(t, col)

	require.NoError(t, os.Remove(col.AbsPath("b.md")))
	report := reindex(t, col)

	assert.Equal(t, 1, report.Pruned)
	assert.Equal(t, 1, report.Unchanged)
	assert.Equal(t, uint64(1), indexedCount(t, col))

	cached, err := cache.New(col).Paths()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md"}, cached)
}

func TestReindex_ExcludedFileIsPruned(t *testing.T) {
	col := newTestCollection(t, nil)
	writeRecord(t, col, "a.md", "Alpha", "body")
	reindex(t, col)
	require.Equal(t, uint64(1), indexedCount(t, col))

	// Tightening the rules has the same effect as deleting the file.
	excluded := &config.Config{
		Name:       "test",
		Include:    config.PatternList{Patterns: []string{"*.md"}},
		Exclude:    config.PatternList{Patterns: []string{"a.md"}},
		Extractors: map[string]string{"*.md": catExtractor},
	}
	col2, err := config.Init(col.Root, excluded, true)
	require.NoError(t, err)

	report := reindex(t, col2)
	assert.Equal(t, 1, report.Pruned)
	assert.Equal(t, uint64(0), indexedCount(t, col2))
}

func TestReindex_NoExtractorIsSkipped(t *testing.T) {
	cfg := &config.Config{
		Name:       "test",
		Include:    config.PatternList{Patterns: []string{"*.md", "*.txt"}},
		Extractors: map[string]string{"*.md": catExtractor},
	}
	col := newTestCollection(t, cfg)
	writeRecord(t, col, "a.md", "Alpha", "body")
	require.NoError(t, os.WriteFile(col.AbsPath("plain.txt"), []byte("raw"), 0o644))

	report := reindex(t, col)

	assert.Equal(t, 1, report.Indexed)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.Failed)
	assert.Equal(t, uint64(1), indexedCount(t, col))
}

func TestReindex_FailureDoesNotAbortRun(t *testing.T) {
	cfg := &config.Config{
		Name:       "test",
		Include:    config.PatternList{Patterns: []string{"*.md"}},
		Extractors: map[string]string{"*.md": faultyExtractor},
	}
	col := newTestCollection(t, cfg)
	writeRecord(t, col, "good.md", "Good", "fine body")
	writeRecord(t, col, "bad.md", "Bad", "BOOM")

	report := reindex(t, col)

	assert.Equal(t, 1, report.Indexed)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "bad.md", report.Failures[0].Path)
	assert.Equal(t, errors.ErrCodeExtractorFailed, report.Failures[0].Code)
	assert.Equal(t, uint64(1), indexedCount(t, col))
}

func TestReindex_FailureKeepsPriorDocument(t *testing.T) {
	cfg := &config.Config{
		Name:       "test",
		Include:    config.PatternList{Patterns: []string{"*.md"}},
		Extractors: map[string]string{"*.md": faultyExtractor},
	}
	col := newTestCollection(t, cfg)
	writeRecord(t, col, "a.md", "Alpha", "healthy body")
	reindex(t, col)
	require.Equal(t, 1, searchContent(t, col, "healthy"))

	// The source breaks; the previously committed document survives.
	require.NoError(t, os.WriteFile(col.AbsPath("a.md"), []byte("BOOM BOOM BOOM"), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(col.AbsPath("a.md"), future, future))

	report := reindex(t, col)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, searchContent(t, col, "healthy"))
}

func TestReindex_SearchDirNeverDescended(t *testing.T) {
	col := newTestCollection(t, nil)
	writeRecord(t, col, "a.md", "Alpha", "body")

	// Even a matching file under the reserved directory stays invisible.
	hidden := filepath.Join(col.SearchDir(), "sneaky.md")
	require.NoError(t, os.WriteFile(hidden, []byte("title: X\ncontent: y\n"), 0o644))

	report := reindex(t, col)
	assert.Equal(t, 1, report.Indexed)
	assert.Equal(t, uint64(1), indexedCount(t, col))
}

func TestReindex_EmptyCollection(t *testing.T) {
	col := newTestCollection(t, nil)

	report := reindex(t, col)
	assert.Zero(t, report.Indexed+report.Unchanged+report.Skipped+report.Failed+report.Pruned)
	assert.Equal(t, uint64(0), indexedCount(t, col))
}
