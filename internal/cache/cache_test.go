package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colsearch/colsearch/internal/config"
	"github.com/colsearch/colsearch/internal/extract"
)

func newCache(t *testing.T, format config.Format) *Cache {
	t.Helper()
	cfg := config.Default()
	cfg.Output.Format = format
	col, err := config.Init(t.TempDir(), cfg, false)
	require.NoError(t, err)
	return New(col)
}

func sampleRecord(path string) *extract.Record {
	return &extract.Record{
		SourcePath:  path,
		Title:       "Doc",
		Tags:        []string{"x", "y"},
		Content:     "hello world",
		Custom:      map[string]any{"author": "me"},
		ExtractedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Fingerprint: "1700000000000000000-42",
	}
}

func TestCache_RoundTrip(t *testing.T) {
	for _, format := range []config.Format{config.FormatYAML, config.FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			c := newCache(t, format)
			want := sampleRecord("docs/a.md")
			require.NoError(t, c.Put(want))

			got, err := c.Get("docs/a.md")
			require.NoError(t, err)
			require.NotNil(t, got)

			assert.Equal(t, want.SourcePath, got.SourcePath)
			assert.Equal(t, want.Title, got.Title)
			assert.Equal(t, want.Tags, got.Tags)
			assert.Equal(t, want.Content, got.Content)
			assert.Equal(t, "me", got.Custom["author"])
			assert.Equal(t, want.Fingerprint, got.Fingerprint)
			assert.True(t, want.ExtractedAt.Equal(got.ExtractedAt))
		})
	}
}

func TestCache_GetMissingReturnsNil(t *testing.T) {
	c := newCache(t, config.FormatYAML)
	rec, err := c.Get("nope.md")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestCache_PutOverwrites(t *testing.T) {
	c := newCache(t, config.FormatYAML)
	require.NoError(t, c.Put(sampleRecord("a.md")))

	updated := sampleRecord("a.md")
	updated.Title = "Updated"
	updated.Fingerprint = "9-9"
	require.NoError(t, c.Put(updated))

	got, err := c.Get("a.md")
	require.NoError(t, err)
	assert.Equal(t, "Updated", got.Title)
	assert.Equal(t, "9-9", got.Fingerprint)

	paths, err := c.Paths()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md"}, paths)
}

func TestCache_Remove(t *testing.T) {
	c := newCache(t, config.FormatYAML)
	require.NoError(t, c.Put(sampleRecord("a.md")))
	require.NoError(t, c.Remove("a.md"))

	got, err := c.Get("a.md")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Removing again is a no-op.
	assert.NoError(t, c.Remove("a.md"))
}

func TestCache_Paths(t *testing.T) {
	c := newCache(t, config.FormatJSON)
	for _, p := range []string{"b.md", "a.md", "docs/deep/c.pdf"} {
		require.NoError(t, c.Put(sampleRecord(p)))
	}

	paths, err := c.Paths()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "b.md", "docs/deep/c.pdf"}, paths)
}

func TestCache_NeedsReextraction(t *testing.T) {
	c := newCache(t, config.FormatYAML)

	// Missing entry.
	assert.True(t, c.NeedsReextraction("a.md", "1-1"))

	rec := sampleRecord("a.md")
	rec.Fingerprint = "1-1"
	require.NoError(t, c.Put(rec))

	assert.False(t, c.NeedsReextraction("a.md", "1-1"))
	assert.True(t, c.NeedsReextraction("a.md", "2-1"))
}

func TestEntryFile_DistinguishesFlattenedCollisions(t *testing.T) {
	// "a/b.md" and "a_b.md" flatten to the same stem; the hash suffix
	// must keep them apart.
	one := EntryFile("a/b.md", config.FormatYAML)
	two := EntryFile("a_b.md", config.FormatYAML)
	assert.NotEqual(t, one, two)

	// Deterministic.
	assert.Equal(t, one, EntryFile("a/b.md", config.FormatYAML))
}
